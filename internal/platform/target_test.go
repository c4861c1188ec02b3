package platform

import "testing"

func TestInfoTarget(t *testing.T) {
	tests := []struct {
		name    string
		info    Info
		want    string
		wantErr bool
	}{
		{"intel mac", Info{OS: "darwin", Arch: "amd64"}, "x86_64-apple-darwin", false},
		{"apple silicon", Info{OS: "darwin", Arch: "arm64"}, "aarch64-apple-darwin", false},
		{"linux gnu", Info{OS: "linux", Arch: "amd64", Libc: LibcGNU}, "x86_64-unknown-linux-gnu", false},
		{"alpine musl", Info{OS: "linux", Arch: "arm64", Libc: LibcMusl}, "aarch64-unknown-linux-musl", false},
		{"linux without libc", Info{OS: "linux", Arch: "amd64"}, "x86_64-unknown-linux-gnu", false},
		{"windows", Info{OS: "windows", Arch: "amd64"}, "x86_64-pc-windows-msvc", false},
		{"unknown os", Info{OS: "plan9", Arch: "amd64"}, "", true},
		{"unknown arch", Info{OS: "linux", Arch: "mips"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.info.Target()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Target() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Target() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTargetRoundTrip(t *testing.T) {
	triples := []string{
		"x86_64-apple-darwin",
		"aarch64-apple-darwin",
		"x86_64-unknown-linux-gnu",
		"aarch64-unknown-linux-musl",
		"x86_64-pc-windows-msvc",
	}

	for _, triple := range triples {
		t.Run(triple, func(t *testing.T) {
			info, err := ParseTarget(triple)
			if err != nil {
				t.Fatalf("ParseTarget(%q) error = %v", triple, err)
			}
			got, err := info.Target()
			if err != nil {
				t.Fatalf("Target() error = %v", err)
			}
			if got != triple {
				t.Errorf("round trip = %q, want %q", got, triple)
			}
		})
	}
}

func TestParseTargetInvalid(t *testing.T) {
	for _, triple := range []string{"", "darwin", "sparc-sun-solaris", "x86_64-foo-bar"} {
		if _, err := ParseTarget(triple); err == nil {
			t.Errorf("ParseTarget(%q) expected error", triple)
		}
	}
}
