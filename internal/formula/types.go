package formula

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._+-]*$`)

// Fields is the wire form of a descriptor, as written in YAML, JSON or Lua.
// The url/source_url and sha256/integrity_digest pairs are aliases.
type Fields struct {
	Name            string         `yaml:"name" json:"name"`
	Description     string         `yaml:"description,omitempty" json:"description,omitempty"`
	Homepage        string         `yaml:"homepage,omitempty" json:"homepage,omitempty"`
	URL             string         `yaml:"url,omitempty" json:"url,omitempty"`
	SourceURL       string         `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	SHA256          string         `yaml:"sha256,omitempty" json:"sha256,omitempty"`
	IntegrityDigest string         `yaml:"integrity_digest,omitempty" json:"integrity_digest,omitempty"`
	Version         string         `yaml:"version" json:"version"`
	Bin             string         `yaml:"bin,omitempty" json:"bin,omitempty"`
	Test            TestSpec       `yaml:"test,omitempty" json:"test,omitempty"`
	Signature       *SignatureSpec `yaml:"signature,omitempty" json:"signature,omitempty"`
	Cosign          *CosignSpec    `yaml:"cosign,omitempty" json:"cosign,omitempty"`
}

// TestSpec configures the post-install smoke test.
type TestSpec struct {
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// SignatureSpec points at a detached OpenPGP signature over the archive.
type SignatureSpec struct {
	URL     string `yaml:"url" json:"url"`
	Keyring string `yaml:"keyring" json:"keyring"` // armored or binary public keyring
}

// CosignSpec points at a Sigstore bundle for the archive.
type CosignSpec struct {
	BundleURL   string `yaml:"bundle_url" json:"bundle_url"`
	TrustedRoot string `yaml:"trusted_root" json:"trusted_root"` // trusted_root.json path
	Identity    string `yaml:"identity" json:"identity"`         // certificate SAN
	Issuer      string `yaml:"issuer" json:"issuer"`             // OIDC issuer
}

// Descriptor is a validated, immutable package descriptor.
type Descriptor struct {
	name        string
	description string
	homepage    string
	sourceURL   string
	digest      string
	version     string
	bin         string
	testArgs    []string
	signature   *SignatureSpec
	cosign      *CosignSpec
}

// ValidationError reports an invalid descriptor field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// New validates f and returns the descriptor it describes.
func New(f Fields) (Descriptor, error) {
	f = normalize(f)

	if err := f.validate(); err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		name:        f.Name,
		description: f.Description,
		homepage:    f.Homepage,
		sourceURL:   f.SourceURL,
		digest:      strings.ToLower(f.IntegrityDigest),
		version:     f.Version,
		bin:         f.Bin,
		testArgs:    append([]string(nil), f.Test.Args...),
	}
	if f.Signature != nil {
		sig := *f.Signature
		d.signature = &sig
	}
	if f.Cosign != nil {
		cs := *f.Cosign
		d.cosign = &cs
	}

	return d, nil
}

// normalize folds aliases and applies defaults.
func normalize(f Fields) Fields {
	f.Name = strings.TrimSpace(f.Name)
	f.Version = strings.TrimSpace(f.Version)

	if f.SourceURL == "" {
		f.SourceURL = f.URL
	}
	f.URL = ""
	f.SourceURL = strings.TrimSpace(f.SourceURL)

	if f.IntegrityDigest == "" {
		f.IntegrityDigest = f.SHA256
	}
	f.SHA256 = ""
	f.IntegrityDigest = strings.TrimSpace(f.IntegrityDigest)

	if f.Bin == "" {
		f.Bin = f.Name
	}
	if len(f.Test.Args) == 0 {
		f.Test.Args = []string{defaultSmokeTestFlag}
	}

	return f
}

func (f Fields) validate() error {
	if f.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if !namePattern.MatchString(f.Name) {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("%q must match %s", f.Name, namePattern)}
	}

	if f.Version == "" {
		return &ValidationError{Field: "version", Message: "must not be empty"}
	}
	if err := ValidatePathSegment(f.Version); err != nil {
		return &ValidationError{Field: "version", Message: err.Error()}
	}

	if f.SourceURL == "" {
		return &ValidationError{Field: "source_url", Message: "must not be empty"}
	}
	if err := validateURLTemplate(f.SourceURL); err != nil {
		return &ValidationError{Field: "source_url", Message: err.Error()}
	}

	if err := ValidateDigest(f.IntegrityDigest); err != nil {
		return &ValidationError{Field: "integrity_digest", Message: err.Error()}
	}

	if f.Bin != path.Base(f.Bin) || f.Bin == "." || f.Bin == ".." || strings.ContainsAny(f.Bin, `/\`) {
		return &ValidationError{Field: "bin", Message: fmt.Sprintf("%q must be a plain file name", f.Bin)}
	}

	if f.Homepage != "" {
		if err := validateURLTemplate(f.Homepage); err != nil {
			return &ValidationError{Field: "homepage", Message: err.Error()}
		}
	}

	if sig := f.Signature; sig != nil {
		if sig.URL == "" || sig.Keyring == "" {
			return &ValidationError{Field: "signature", Message: "url and keyring are required"}
		}
		if err := validateURLTemplate(sig.URL); err != nil {
			return &ValidationError{Field: "signature.url", Message: err.Error()}
		}
	}

	if cs := f.Cosign; cs != nil {
		if cs.BundleURL == "" || cs.TrustedRoot == "" || cs.Identity == "" || cs.Issuer == "" {
			return &ValidationError{Field: "cosign", Message: "bundle_url, trusted_root, identity and issuer are required"}
		}
		if err := validateURLTemplate(cs.BundleURL); err != nil {
			return &ValidationError{Field: "cosign.bundle_url", Message: err.Error()}
		}
	}

	return nil
}

// ValidateDigest checks that digest is a hex-encoded SHA-256 sum.
func ValidateDigest(digest string) error {
	if digest == "" {
		return fmt.Errorf("must not be empty")
	}
	if len(digest) != 64 {
		return fmt.Errorf("%q is not a SHA-256 hex digest (want 64 hex characters, got %d)", digest, len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("%q is not a SHA-256 hex digest: %w", digest, err)
	}
	return nil
}

// ValidatePathSegment checks that s can be used as a single path element:
// not empty, not "." or "..", and free of path separators.
func ValidatePathSegment(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("must not be empty")
	case s == "." || s == "..":
		return fmt.Errorf("%q is not a valid path element", s)
	case strings.ContainsAny(s, "/\\\x00"):
		return fmt.Errorf("%q must not contain path separators", s)
	}
	return nil
}

// validateURLTemplate checks that u, with placeholders filled in, is an
// absolute http(s) URL.
func validateURLTemplate(u string) error {
	probe := placeholderPattern.ReplaceAllString(u, "x")
	parsed, err := url.Parse(probe)
	if err != nil {
		return fmt.Errorf("parse %q: %w", u, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("%q must use http or https", u)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%q has no host", u)
	}
	return nil
}

// Name returns the package name.
func (d Descriptor) Name() string { return d.name }

// Description returns the human-readable summary.
func (d Descriptor) Description() string { return d.description }

// Homepage returns the informational homepage URL.
func (d Descriptor) Homepage() string { return d.homepage }

// SourceURL returns the unresolved source URL template.
func (d Descriptor) SourceURL() string { return d.sourceURL }

// Digest returns the expected SHA-256 of the archive, lower-case hex.
func (d Descriptor) Digest() string { return d.digest }

// Version returns the release version tag.
func (d Descriptor) Version() string { return d.version }

// Bin returns the archive entry to install.
func (d Descriptor) Bin() string { return d.bin }

// TestArgs returns the smoke-test arguments.
func (d Descriptor) TestArgs() []string {
	return append([]string(nil), d.testArgs...)
}

// Signature returns the OpenPGP signature settings, if any.
func (d Descriptor) Signature() (SignatureSpec, bool) {
	if d.signature == nil {
		return SignatureSpec{}, false
	}
	return *d.signature, true
}

// Cosign returns the Sigstore bundle settings, if any.
func (d Descriptor) Cosign() (CosignSpec, bool) {
	if d.cosign == nil {
		return CosignSpec{}, false
	}
	return *d.cosign, true
}

// IsZero reports whether d is the zero descriptor.
func (d Descriptor) IsZero() bool {
	return d.name == ""
}

// Fields returns the wire form of d.
func (d Descriptor) Fields() Fields {
	f := Fields{
		Name:            d.name,
		Description:     d.description,
		Homepage:        d.homepage,
		SourceURL:       d.sourceURL,
		IntegrityDigest: d.digest,
		Version:         d.version,
		Bin:             d.bin,
		Test:            TestSpec{Args: d.TestArgs()},
	}
	if sig, ok := d.Signature(); ok {
		f.Signature = &sig
	}
	if cs, ok := d.Cosign(); ok {
		f.Cosign = &cs
	}
	return f
}
