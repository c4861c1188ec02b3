// Package platform detects the host OS, architecture and C library and maps
// them to the release target triple that prebuilt archives are published
// under (for example "x86_64-apple-darwin").
//
// Linux distribution details come from gopsutil. A host whose distribution
// cannot be identified is treated as glibc.
package platform

import "context"

// C libraries a Linux target can link against.
const (
	LibcGNU  = "gnu"
	LibcMusl = "musl"
)

// Info describes a platform that a descriptor is resolved for.
type Info struct {
	OS            string // "linux", "darwin", "windows"
	Arch          string // "amd64", "arm64" (normalized)
	ArchRaw       string // GOARCH, or the CPU part of a parsed triple
	Libc          string // LibcGNU or LibcMusl on Linux, empty elsewhere
	Distro        string // distribution ID (Linux only, e.g. "ubuntu", "alpine")
	DistroVersion string // distribution version (Linux only, e.g. "22.04")
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == "darwin" && i.Arch == "arm64"
}

// IsMusl reports whether the platform is a musl-based Linux.
func (i *Info) IsMusl() bool {
	return i.OS == "linux" && i.Libc == LibcMusl
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. It is used when the target is forced
// on the command line and in tests.
type StaticDetector struct {
	Info *Info
}

// Detect returns the fixed info.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Info, nil
}
