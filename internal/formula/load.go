package formula

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kyrylokulyhin/pour/internal/platform"
)

// Extensions lists the descriptor file extensions Loader understands, in
// lookup order.
var Extensions = []string{".lua", ".yaml", ".yml", ".json"}

// Loader reads descriptor files.
type Loader struct {
	detector platform.Detector
	logger   Logger
}

// NewLoader creates a loader. detector supplies the platform table for Lua
// descriptors and may be nil.
func NewLoader(detector platform.Detector) *Loader {
	return &Loader{detector: detector, logger: defaultLogger()}
}

// WithLogger sets the logger used by the loader.
func (l *Loader) WithLogger(logger Logger) *Loader {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// LoadFile reads and validates the descriptor at path. The format is chosen
// by file extension.
func (l *Loader) LoadFile(ctx context.Context, path string) (Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("open descriptor: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxDescriptorSize+1))
	if err != nil {
		return Descriptor{}, fmt.Errorf("read descriptor: %w", err)
	}

	d, err := l.Load(ctx, filepath.Ext(path), data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("load %s: %w", path, err)
	}

	l.logger.Debug("loaded descriptor", "path", path, "name", d.Name(), "version", d.Version())
	return d, nil
}

// Load parses data in the format named by ext (".lua", ".yaml", ".yml" or
// ".json") and validates the result.
func (l *Loader) Load(ctx context.Context, ext string, data []byte) (Descriptor, error) {
	var (
		fields Fields
		err    error
	)

	switch strings.ToLower(ext) {
	case ".lua":
		var info *platform.Info
		if l.detector != nil {
			if info, err = l.detector.Detect(ctx); err != nil {
				return Descriptor{}, fmt.Errorf("platform detection failed: %w", err)
			}
		}
		fields, err = ParseLua(ctx, string(data), info)
	case ".yaml", ".yml", ".json":
		fields, err = ParseYAML(data)
	default:
		return Descriptor{}, fmt.Errorf("unsupported descriptor format %q (want one of %s)", ext, strings.Join(Extensions, ", "))
	}
	if err != nil {
		return Descriptor{}, err
	}

	return New(fields)
}
