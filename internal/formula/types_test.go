package formula

import (
	"errors"
	"strings"
	"testing"
)

const testDigest = "e7227a05c1b7d2f0a9e8c6b4d3f2a1908e7d6c5b4a3928170f6e5d4c3b2977f3"

func validFields() Fields {
	return Fields{
		Name:        "ecs-exec",
		Description: "CLI tool to execute commands in an AWS ECS container",
		Homepage:    "https://github.com/kyrylokulyhin/ecs-exec",
		URL:         "https://github.com/kyrylokulyhin/ecs-exec/releases/download/{version}/ecs-exec-{target}.zip",
		SHA256:      testDigest,
		Version:     "v0.1.0",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *Fields)
		wantField string // empty means valid
	}{
		{"valid", func(f *Fields) {}, ""},
		{"source_url alias", func(f *Fields) { f.SourceURL, f.URL = f.URL, "" }, ""},
		{"integrity_digest alias", func(f *Fields) { f.IntegrityDigest, f.SHA256 = strings.ToUpper(f.SHA256), "" }, ""},
		{"missing name", func(f *Fields) { f.Name = "" }, "name"},
		{"bad name", func(f *Fields) { f.Name = "Ecs Exec" }, "name"},
		{"missing version", func(f *Fields) { f.Version = " " }, "version"},
		{"version with separator", func(f *Fields) { f.Version = "../../x" }, "version"},
		{"version dotdot", func(f *Fields) { f.Version = ".." }, "version"},
		{"version backslash", func(f *Fields) { f.Version = `v1\..\x` }, "version"},
		{"missing url", func(f *Fields) { f.URL = "" }, "source_url"},
		{"ftp url", func(f *Fields) { f.URL = "ftp://example.com/a.zip" }, "source_url"},
		{"relative url", func(f *Fields) { f.URL = "releases/a.zip" }, "source_url"},
		{"missing digest", func(f *Fields) { f.SHA256 = "" }, "integrity_digest"},
		{"placeholder digest", func(f *Fields) { f.SHA256 = "PUT_SHA256_CHECKSUM_OF_THE_ZIP_FILE_HERE" }, "integrity_digest"},
		{"short digest", func(f *Fields) { f.SHA256 = "e72270" }, "integrity_digest"},
		{"non-hex digest", func(f *Fields) { f.SHA256 = strings.Repeat("z", 64) }, "integrity_digest"},
		{"bin with path", func(f *Fields) { f.Bin = "../ecs-exec" }, "bin"},
		{"bin dotdot", func(f *Fields) { f.Bin = ".." }, "bin"},
		{"bad homepage", func(f *Fields) { f.Homepage = "not a url" }, "homepage"},
		{"signature without keyring", func(f *Fields) { f.Signature = &SignatureSpec{URL: "https://x/a.sig"} }, "signature"},
		{"cosign incomplete", func(f *Fields) { f.Cosign = &CosignSpec{BundleURL: "https://x/a.bundle"} }, "cosign"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)

			d, err := New(f)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("New() unexpected error: %v", err)
				}
				if d.IsZero() {
					t.Fatal("New() returned zero descriptor")
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("New() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	f := validFields()
	f.SHA256 = strings.ToUpper(testDigest)

	d, err := New(f)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if d.Bin() != "ecs-exec" {
		t.Errorf("Bin() = %q, want name as default", d.Bin())
	}
	if got := d.TestArgs(); len(got) != 1 || got[0] != "--version" {
		t.Errorf("TestArgs() = %v, want [--version]", got)
	}
	if d.Digest() != testDigest {
		t.Errorf("Digest() = %q, want lower-case %q", d.Digest(), testDigest)
	}
	if d.SourceURL() != f.URL {
		t.Errorf("SourceURL() = %q, want %q", d.SourceURL(), f.URL)
	}
	if _, ok := d.Signature(); ok {
		t.Error("Signature() should be absent")
	}
	if _, ok := d.Cosign(); ok {
		t.Error("Cosign() should be absent")
	}
}

func TestDescriptorIsImmutable(t *testing.T) {
	f := validFields()
	f.Test.Args = []string{"--version"}
	f.Signature = &SignatureSpec{URL: "https://example.com/a.sig", Keyring: "/keys/a.asc"}

	d, err := New(f)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Mutating the input after construction must not leak in.
	f.Test.Args[0] = "--help"
	f.Signature.Keyring = "/tmp/evil.asc"

	// Mutating returned values must not leak in either.
	args := d.TestArgs()
	args[0] = "--help"
	sig, _ := d.Signature()
	sig.URL = "https://evil.example.com"

	if got := d.TestArgs()[0]; got != "--version" {
		t.Errorf("TestArgs()[0] = %q after mutation, want --version", got)
	}
	if got, _ := d.Signature(); got.Keyring != "/keys/a.asc" || got.URL != "https://example.com/a.sig" {
		t.Errorf("Signature() = %+v after mutation", got)
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	d, err := New(validFields())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	again, err := New(d.Fields())
	if err != nil {
		t.Fatalf("New(d.Fields()) error = %v", err)
	}
	if again.Name() != d.Name() || again.Digest() != d.Digest() || again.SourceURL() != d.SourceURL() {
		t.Errorf("round trip mismatch: %+v vs %+v", again.Fields(), d.Fields())
	}
}

func TestValidateDigest(t *testing.T) {
	if err := ValidateDigest(testDigest); err != nil {
		t.Errorf("ValidateDigest(valid) error = %v", err)
	}
	if err := ValidateDigest(strings.ToUpper(testDigest)); err != nil {
		t.Errorf("ValidateDigest(upper) error = %v", err)
	}
	for _, bad := range []string{"", "abc", strings.Repeat("g", 64), testDigest + "00"} {
		if err := ValidateDigest(bad); err == nil {
			t.Errorf("ValidateDigest(%q) expected error", bad)
		}
	}
}

func TestValidatePathSegment(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"v0.1.0", false},
		{"ecs-exec-x86_64-unknown-linux-gnu.zip", false},
		{"..hidden", false},
		{"", true},
		{".", true},
		{"..", true},
		{"a/b", true},
		{`a\b`, true},
		{"a\x00b", true},
	}

	for _, tt := range tests {
		if err := ValidatePathSegment(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePathSegment(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
