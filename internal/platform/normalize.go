package platform

import (
	"fmt"
	"strings"
)

// cpuAliases maps GOARCH values and target triple CPU names to the
// normalized architecture.
var cpuAliases = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"x64":     "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
}

// muslDistros are distribution IDs whose system C library is musl.
var muslDistros = map[string]bool{
	"alpine":       true,
	"chimera":      true,
	"postmarketos": true,
}

func normalizeArch(arch string) (string, error) {
	if normalized, ok := cpuAliases[normalizeID(arch)]; ok {
		return normalized, nil
	}
	return "", fmt.Errorf("unsupported architecture: %s (supported: x86_64, aarch64)", arch)
}

// libcFor returns the C library of a Linux distribution. Unknown
// distributions are assumed to use glibc.
func libcFor(distro string) string {
	if muslDistros[normalizeID(distro)] {
		return LibcMusl
	}
	return LibcGNU
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
