package installer

import (
	"io"
	"strings"
	"time"

	"github.com/kyrylokulyhin/pour/internal/platform"
)

// VerificationMethod indicates how an artifact was verified.
type VerificationMethod int

const (
	// VerificationSHA256 indicates the descriptor digest matched.
	VerificationSHA256 VerificationMethod = iota + 1
	// VerificationGPG indicates a detached OpenPGP signature was checked.
	VerificationGPG
	// VerificationSigstore indicates a Sigstore bundle was checked.
	VerificationSigstore
)

// String returns the string representation of the verification method.
func (v VerificationMethod) String() string {
	switch v {
	case VerificationSHA256:
		return "SHA256"
	case VerificationGPG:
		return "GPG"
	case VerificationSigstore:
		return "Sigstore"
	default:
		return "Unknown"
	}
}

// MethodNames returns the names of methods, joined by "+".
func MethodNames(methods []VerificationMethod) string {
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, m.String())
	}
	return strings.Join(names, "+")
}

// Config configures an Installer.
type Config struct {
	// Prefix is the destination directory for installed binaries.
	Prefix string
	// StateDir holds receipts and the install lock.
	StateDir string
	// CacheDir holds verified downloads. Empty disables the cache.
	CacheDir string
	// Detector supplies the target platform. Required.
	Detector platform.Detector
	// Progress receives a download progress bar. Nil disables it.
	Progress io.Writer
	// Logger receives structured logs. Nil discards them.
	Logger Logger
	// MaxDownloadSize caps the archive size. Zero means DefaultMaxDownloadSize.
	MaxDownloadSize int64
}

// InstallOptions tunes a single install.
type InstallOptions struct {
	// NoCache bypasses the download cache for this install.
	NoCache bool
	// Force reinstalls even when a receipt for the same version exists.
	Force bool
}

// Result describes a completed install or fetch.
type Result struct {
	Name         string
	Version      string
	Target       string
	URL          string
	Path         string // installed path; empty for fetch
	Verified     []VerificationMethod
	FromCache    bool
	Skipped      bool // already installed at this version
	DownloadTime time.Duration
	Receipt      *Receipt
}
