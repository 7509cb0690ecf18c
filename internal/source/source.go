package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Source opens an export for sequential line reads.
type Source interface {
	// Open returns a reader over the decompressed export.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Location describes where the export lives, for logs and manifests.
	Location() string

	// Close releases resources held by the source.
	Close() error
}

// Config configures how an input location is resolved.
type Config struct {
	Location   string // local path, or gs://, s3://, file:// URL
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"` // custom endpoint for B2/MinIO/R2
}

var ErrNoLocation = errors.New("no input location")

// New constructs a source for cfg.Location. Plain paths are read from the
// local filesystem; URLs with a scheme go through gocloud.dev/blob.
func New(cfg Config) (Source, error) {
	if cfg.Location == "" {
		return nil, ErrNoLocation
	}

	u, err := url.Parse(cfg.Location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Single-letter schemes are Windows drive letters.
		return NewLocalSource(cfg.Location), nil
	}

	switch u.Scheme {
	case "gs", "s3", "file", "mem":
		src, err := NewBucketSource(cfg, u)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported input scheme %q in %s", u.Scheme, cfg.Location)
	}
}

// baseName returns the object name used for compression detection.
func baseName(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
