package installer

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// ArchiveFormat is the container format of a downloaded artifact.
type ArchiveFormat string

const (
	FormatZip     ArchiveFormat = "zip"
	FormatTarGz   ArchiveFormat = "tar.gz"
	FormatTarXz   ArchiveFormat = "tar.xz"
	FormatBinary  ArchiveFormat = "binary"
	FormatUnknown ArchiveFormat = "unknown"
)

var (
	magicZip      = []byte("PK\x03\x04")
	magicZipEmpty = []byte("PK\x05\x06")
	magicGzip     = []byte{0x1f, 0x8b}
	magicXz       = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

	// ELF, Mach-O (32/64-bit, both byte orders, fat), PE, and shebang scripts.
	executableMagics = [][]byte{
		[]byte("\x7fELF"),
		{0xfe, 0xed, 0xfa, 0xce},
		{0xfe, 0xed, 0xfa, 0xcf},
		{0xce, 0xfa, 0xed, 0xfe},
		{0xcf, 0xfa, 0xed, 0xfe},
		{0xca, 0xfe, 0xba, 0xbe},
		[]byte("MZ"),
		[]byte("#!"),
	}
)

// DetectFormat identifies the artifact format from its leading bytes.
func DetectFormat(data []byte) ArchiveFormat {
	switch {
	case bytes.HasPrefix(data, magicZip), bytes.HasPrefix(data, magicZipEmpty):
		return FormatZip
	case bytes.HasPrefix(data, magicGzip):
		return FormatTarGz
	case bytes.HasPrefix(data, magicXz):
		return FormatTarXz
	}
	for _, m := range executableMagics {
		if bytes.HasPrefix(data, m) {
			return FormatBinary
		}
	}
	return FormatUnknown
}

// Extractor pulls a single named entry out of an archive held in memory.
type Extractor struct {
	maxSize int64
}

// NewExtractor creates an extractor that refuses entries larger than
// maxSize bytes once decompressed.
func NewExtractor(maxSize int64) *Extractor {
	if maxSize <= 0 {
		maxSize = DefaultMaxDownloadSize
	}
	return &Extractor{maxSize: maxSize}
}

// ExtractEntry returns the contents of the regular file whose base name is
// entry. A bare executable is returned as-is. A malformed archive or a
// missing entry returns ErrExtraction.
func (e *Extractor) ExtractEntry(data []byte, entry string) ([]byte, ArchiveFormat, error) {
	format := DetectFormat(data)

	var (
		content []byte
		err     error
	)

	switch format {
	case FormatZip:
		content, err = e.extractZip(data, entry)
	case FormatTarGz:
		var r io.ReadCloser
		r, err = gzip.NewReader(bytes.NewReader(data))
		if err == nil {
			defer r.Close()
			content, err = e.extractTar(r, entry)
		} else {
			err = fmt.Errorf("create gzip reader: %w", err)
		}
	case FormatTarXz:
		var r io.Reader
		r, err = xz.NewReader(bytes.NewReader(data))
		if err == nil {
			content, err = e.extractTar(r, entry)
		} else {
			err = fmt.Errorf("create xz reader: %w", err)
		}
	case FormatBinary:
		content = data
	default:
		err = fmt.Errorf("unrecognized archive format")
	}

	if err != nil {
		return nil, format, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return content, format, nil
}

func (e *Extractor) extractZip(data []byte, entry string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	for _, f := range zr.File {
		mode := f.Mode()
		if mode.IsDir() || mode&fs.ModeSymlink != 0 || !matchesEntry(f.Name, entry) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := e.readLimited(rc, f.Name)
		rc.Close()
		if err != nil {
			return nil, err
		}
		return content, nil
	}

	return nil, fmt.Errorf("binary %s not found in archive", entry)
}

func (e *Extractor) extractTar(r io.Reader, entry string) ([]byte, error) {
	tarReader := tar.NewReader(r)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("binary %s not found in archive", entry)
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag == tar.TypeReg && matchesEntry(header.Name, entry) {
			return e.readLimited(tarReader, header.Name)
		}
	}
}

func (e *Extractor) readLimited(r io.Reader, name string) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, e.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(content)) > e.maxSize {
		return nil, fmt.Errorf("%s exceeds size limit of %d bytes", name, e.maxSize)
	}
	return content, nil
}

// matchesEntry compares archive paths by base name, so "ecs-exec" matches
// both "ecs-exec" and "ecs-exec-v0.1.0/ecs-exec".
func matchesEntry(name, entry string) bool {
	name = strings.TrimSuffix(strings.ReplaceAll(name, `\`, "/"), "/")
	return path.Base(name) == entry
}
