package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver
)

// BucketSource reads an export object from any gocloud.dev bucket.
// Works with GCS, AWS S3, Backblaze B2, Cloudflare R2, MinIO and local
// directories via file://.
type BucketSource struct {
	bucket   *blob.Bucket
	key      string
	location string
}

// NewBucketSource opens the bucket named by u and targets the object at its
// path.
//
//	gs://bucket/exports/sms.xml
//	s3://bucket/exports/sms.xml.zst
//	file:///var/backups/sms.xml
func NewBucketSource(cfg Config, u *url.URL) (*BucketSource, error) {
	bucketURL, key, err := splitObjectURL(cfg, u)
	if err != nil {
		return nil, err
	}

	bucket, err := blob.OpenBucket(context.Background(), bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	return &BucketSource{
		bucket:   bucket,
		key:      key,
		location: u.String(),
	}, nil
}

// NewBucketSourceFromBucket wraps an already opened bucket.
func NewBucketSourceFromBucket(bucket *blob.Bucket, key string) *BucketSource {
	return &BucketSource{bucket: bucket, key: key, location: key}
}

// splitObjectURL separates an object URL into a gocloud bucket URL and the
// object key.
func splitObjectURL(cfg Config, u *url.URL) (bucketURL, key string, err error) {
	params := u.Query()

	switch u.Scheme {
	case "file":
		dir, file := path.Split(u.Path)
		if file == "" {
			return "", "", fmt.Errorf("no object name in %s", u.String())
		}
		return "file://" + strings.TrimSuffix(dir, "/"), file, nil

	case "s3":
		// For AWS: s3://bucket-name?region=us-east-1
		// For custom endpoint: s3://bucket-name?endpoint=https://...&region=...
		if cfg.S3Region != "" && params.Get("region") == "" {
			params.Set("region", cfg.S3Region)
		}
		if cfg.S3Endpoint != "" && params.Get("endpoint") == "" {
			params.Set("endpoint", cfg.S3Endpoint)
			// Custom endpoints usually need path-style addressing.
			params.Set("s3ForcePathStyle", "true")
		}
	}

	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("no object key in %s", u.String())
	}

	bucketURL = u.Scheme + "://" + u.Host
	if len(params) > 0 {
		bucketURL += "?" + params.Encode()
	}
	return bucketURL, key, nil
}

// Open streams the object, wrapping it in a decompressor when the key calls
// for one.
func (s *BucketSource) Open(ctx context.Context) (io.ReadCloser, error) {
	reader, err := s.bucket.NewReader(ctx, s.key, nil)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", s.key, err)
	}

	slog.Debug("opened bucket input", "component", "source", "key", s.key, "bytes", reader.Size())

	rc, err := Decompress(reader, baseName(s.key))
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("open object %s: %w", s.key, err)
	}
	return rc, nil
}

// Location returns the object URL.
func (s *BucketSource) Location() string { return s.location }

// Close releases the bucket connection.
func (s *BucketSource) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
