package installer

import (
	"bytes"
	"errors"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want ArchiveFormat
	}{
		{"zip", zipArchive(t, map[string]string{"a": "b"}), FormatZip},
		{"tar.gz", tarGzArchive(t, map[string]string{"a": "b"}), FormatTarGz},
		{"tar.xz", tarXzArchive(t, map[string]string{"a": "b"}), FormatTarXz},
		{"elf", []byte("\x7fELF\x02\x01\x01"), FormatBinary},
		{"mach-o 64", []byte{0xcf, 0xfa, 0xed, 0xfe, 0x07}, FormatBinary},
		{"shebang", []byte("#!/bin/sh\n"), FormatBinary},
		{"text", []byte("hello"), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractEntry(t *testing.T) {
	files := map[string]string{
		"README.md":                "docs",
		"ecs-exec-v0.1.0/LICENSE":  "MIT",
		"ecs-exec-v0.1.0/ecs-exec": okScript,
	}

	tests := []struct {
		name       string
		data       []byte
		entry      string
		wantFormat ArchiveFormat
		want       string
		wantErr    bool
	}{
		{"zip nested entry", zipArchive(t, files), "ecs-exec", FormatZip, okScript, false},
		{"zip top-level entry", zipArchive(t, map[string]string{"ecs-exec": "bin"}), "ecs-exec", FormatZip, "bin", false},
		{"tar.gz", tarGzArchive(t, files), "ecs-exec", FormatTarGz, okScript, false},
		{"tar.xz", tarXzArchive(t, files), "ecs-exec", FormatTarXz, okScript, false},
		{"bare executable", []byte(okScript), "ecs-exec", FormatBinary, okScript, false},
		{"zip missing entry", zipArchive(t, files), "ecs", FormatZip, "", true},
		{"tar.gz missing entry", tarGzArchive(t, files), "other", FormatTarGz, "", true},
		{"prefix is not a match", zipArchive(t, map[string]string{"ecs-exec.sha256": "x"}), "ecs-exec", FormatZip, "", true},
		{"truncated zip", zipArchive(t, files)[:20], "ecs-exec", FormatZip, "", true},
		{"corrupt gzip", []byte{0x1f, 0x8b, 0x00, 0x00}, "ecs-exec", FormatTarGz, "", true},
		{"unknown format", []byte("not an archive"), "ecs-exec", FormatUnknown, "", true},
	}

	extractor := NewExtractor(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, format, err := extractor.ExtractEntry(tt.data, tt.entry)
			if format != tt.wantFormat {
				t.Errorf("format = %s, want %s", format, tt.wantFormat)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrExtraction) {
					t.Fatalf("expected ErrExtraction, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractEntry failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractEntrySizeLimit(t *testing.T) {
	big := string(bytes.Repeat([]byte("x"), 1024))
	data := tarGzArchive(t, map[string]string{"ecs-exec": big})

	_, _, err := NewExtractor(100).ExtractEntry(data, "ecs-exec")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction for oversized entry, got %v", err)
	}

	got, _, err := NewExtractor(2048).ExtractEntry(data, "ecs-exec")
	if err != nil {
		t.Fatalf("ExtractEntry failed under limit: %v", err)
	}
	if len(got) != 1024 {
		t.Errorf("expected 1024 bytes, got %d", len(got))
	}
}
