package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

type hostDetector struct{}

// NewDetector returns a Detector for the running machine.
func NewDetector() Detector {
	return hostDetector{}
}

// Detect reports runtime.GOOS and runtime.GOARCH. On Linux it asks gopsutil
// for the distribution so that musl hosts resolve to the musl target; when
// the distribution cannot be read the host is treated as glibc. A cancelled
// context is an error.
func (hostDetector) Detect(ctx context.Context) (*Info, error) {
	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	info := &Info{OS: runtime.GOOS, Arch: arch, ArchRaw: runtime.GOARCH}
	if !info.IsLinux() {
		return info, nil
	}

	info.Libc = LibcGNU
	distro, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("detect platform: %w", ctx.Err())
		}
		return info, nil
	}

	info.Distro = normalizeID(distro)
	info.DistroVersion = normalizeID(version)
	info.Libc = libcFor(info.Distro)
	return info, nil
}
