package formula

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kyrylokulyhin/pour/internal/platform"
)

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// Resolved is a descriptor with every URL expanded for one target.
type Resolved struct {
	Descriptor
	Target       string
	URL          string
	SignatureURL string // empty unless the descriptor declares a signature
	BundleURL    string // empty unless the descriptor declares a cosign bundle
}

// Filename returns the last path element of the resolved source URL.
func (r Resolved) Filename() string {
	u := r.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return u[strings.LastIndex(u, "/")+1:]
}

// Resolve expands the URL templates of d for the given platform.
func (d Descriptor) Resolve(info *platform.Info) (Resolved, error) {
	if d.IsZero() {
		return Resolved{}, fmt.Errorf("resolve: empty descriptor")
	}
	if info == nil {
		return Resolved{}, fmt.Errorf("resolve %s: platform info is required", d.name)
	}

	target, err := info.Target()
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve %s: %w", d.name, err)
	}

	values := map[string]string{
		"{name}":    d.name,
		"{version}": d.version,
		"{target}":  target,
		"{os}":      info.OS,
		"{arch}":    info.Arch,
	}

	expand := func(field, tmpl string) (string, error) {
		out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(p string) string {
			if v, ok := values[p]; ok {
				return v
			}
			return p
		})
		if leftover := placeholderPattern.FindString(out); leftover != "" {
			return "", &ValidationError{Field: field, Message: fmt.Sprintf("unknown placeholder %s", leftover)}
		}
		return out, nil
	}

	r := Resolved{Descriptor: d, Target: target}

	if r.URL, err = expand("source_url", d.sourceURL); err != nil {
		return Resolved{}, err
	}
	if err := ValidatePathSegment(r.Filename()); err != nil {
		return Resolved{}, &ValidationError{Field: "source_url", Message: fmt.Sprintf("%s has no usable file name: %v", r.URL, err)}
	}
	if d.signature != nil {
		if r.SignatureURL, err = expand("signature.url", d.signature.URL); err != nil {
			return Resolved{}, err
		}
	}
	if d.cosign != nil {
		if r.BundleURL, err = expand("cosign.bundle_url", d.cosign.BundleURL); err != nil {
			return Resolved{}, err
		}
	}

	return r, nil
}
