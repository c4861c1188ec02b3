package platform

import (
	"fmt"
	"strings"
)

// Target returns the release target triple for the platform, in the form
// used by most prebuilt release archives: {cpu}-{vendor}-{os}[-{abi}].
// Musl Linux hosts get the musl variant.
func (i *Info) Target() (string, error) {
	cpu, err := targetCPU(i.Arch)
	if err != nil {
		return "", err
	}

	switch i.OS {
	case "darwin":
		return cpu + "-apple-darwin", nil
	case "linux":
		if i.IsMusl() {
			return cpu + "-unknown-linux-musl", nil
		}
		return cpu + "-unknown-linux-gnu", nil
	case "windows":
		return cpu + "-pc-windows-msvc", nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", i.OS)
	}
}

func targetCPU(arch string) (string, error) {
	switch arch {
	case "amd64":
		return "x86_64", nil
	case "arm64":
		return "aarch64", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", arch)
	}
}

// ParseTarget converts a target triple back into platform info. It accepts
// the triples produced by Target.
func ParseTarget(triple string) (*Info, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(triple)), "-")
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid target triple: %q", triple)
	}

	arch, err := normalizeArch(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid target triple %q: %w", triple, err)
	}

	info := &Info{Arch: arch, ArchRaw: parts[0]}

	switch {
	case parts[1] == "apple" && parts[2] == "darwin":
		info.OS = "darwin"
	case parts[1] == "pc" && parts[2] == "windows":
		info.OS = "windows"
	case parts[2] == "linux":
		info.OS = "linux"
		info.Libc = LibcGNU
		if len(parts) > 3 && parts[3] == LibcMusl {
			info.Libc = LibcMusl
		}
	default:
		return nil, fmt.Errorf("unsupported target triple: %q", triple)
	}

	return info, nil
}
