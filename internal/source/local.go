package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LocalSource reads an export from the local filesystem.
type LocalSource struct {
	path string
}

// NewLocalSource creates a source for path. The file is not opened until
// Open is called.
func NewLocalSource(path string) *LocalSource {
	return &LocalSource{path: path}
}

// Open opens the file, wrapping it in a decompressor when the extension
// calls for one.
func (s *LocalSource) Open(ctx context.Context) (io.ReadCloser, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", s.path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open input %s: is a directory", s.path)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", s.path, err)
	}

	slog.Debug("opened local input", "component", "source", "path", s.path, "bytes", info.Size())

	rc, err := Decompress(f, baseName(s.path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open input %s: %w", s.path, err)
	}
	return rc, nil
}

// Location returns the file path.
func (s *LocalSource) Location() string { return s.path }

// Close is a no-op for local files.
func (s *LocalSource) Close() error { return nil }
