package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the encoding of an export file.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionGzip Compression = "gzip"
)

// DetectCompression picks the compression from a file name.
func DetectCompression(name string) Compression {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return CompressionZstd
	case strings.HasSuffix(lower, ".gz"):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Decompress wraps rc in a decoder chosen by name. Closing the result closes
// both the decoder and rc.
func Decompress(rc io.ReadCloser, name string) (io.ReadCloser, error) {
	switch DetectCompression(name) {
	case CompressionZstd:
		dec, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return &decodedReader{Reader: dec, close: dec.Close, inner: rc}, nil

	case CompressionGzip:
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &decodedReader{Reader: gz, close: func() { gz.Close() }, inner: rc}, nil

	default:
		return rc, nil
	}
}

// decodedReader closes a decoder together with the stream beneath it.
type decodedReader struct {
	io.Reader
	close func()
	inner io.Closer
}

func (d *decodedReader) Close() error {
	d.close()
	return d.inner.Close()
}
