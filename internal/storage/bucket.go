package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver
)

// BucketStore writes reports to any gocloud.dev bucket.
// Works with GCS, AWS S3, Backblaze B2, Cloudflare R2 and MinIO.
type BucketStore struct {
	bucket *blob.Bucket
	base   string // scheme://host used for URIs
	prefix string
}

// NewBucketStore opens bucketURL. endpoint and region only apply to s3://
// URLs; endpoint can be empty for AWS S3, or a custom URL for B2/R2/MinIO.
func NewBucketStore(bucketURL, prefix, endpoint, region string) (*BucketStore, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("parse bucket URL %s: %w", bucketURL, err)
	}

	if u.Scheme == "s3" {
		params := u.Query()
		if region != "" && params.Get("region") == "" {
			params.Set("region", region)
		}
		if endpoint != "" && params.Get("endpoint") == "" {
			params.Set("endpoint", endpoint)
			// For custom endpoints, we often need to disable host-style addressing
			params.Set("s3ForcePathStyle", "true")
		}
		u.RawQuery = params.Encode()
	}

	bucket, err := blob.OpenBucket(context.Background(), u.String())
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	return newBucketStore(bucket, u.Scheme+"://"+u.Host+u.Path, prefix), nil
}

// NewBucketStoreFromBucket wraps an already opened bucket.
func NewBucketStoreFromBucket(bucket *blob.Bucket, base, prefix string) *BucketStore {
	return newBucketStore(bucket, base, prefix)
}

func newBucketStore(bucket *blob.Bucket, base, prefix string) *BucketStore {
	return &BucketStore{
		bucket: bucket,
		base:   strings.TrimSuffix(base, "/"),
		prefix: prefix,
	}
}

// WriteReport writes report bytes to a temp key and publishes it.
func (s *BucketStore) WriteReport(ctx context.Context, ref ReportRef, data []byte) error {
	return s.writeAtomic(ctx, ref.Path(s.prefix), data)
}

// WriteManifest writes a manifest to a temp key and publishes it.
func (s *BucketStore) WriteManifest(ctx context.Context, ref ReportRef, manifest *Manifest) error {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.writeAtomic(ctx, ref.ManifestPath(s.prefix), data)
}

// writeAtomic uploads to a unique temp key, then copies to key and deletes
// the temp object. Readers never see a partially uploaded key.
func (s *BucketStore) writeAtomic(ctx context.Context, key string, data []byte) error {
	tempKey := key + ".tmp." + uuid.New().String()

	if err := s.bucket.WriteAll(ctx, tempKey, data, nil); err != nil {
		return fmt.Errorf("write data to %s: %w", tempKey, err)
	}

	if err := s.bucket.Copy(ctx, key, tempKey, nil); err != nil {
		s.bucket.Delete(ctx, tempKey)
		return fmt.Errorf("finalize %s -> %s: %w", tempKey, key, err)
	}

	if err := s.bucket.Delete(ctx, tempKey); err != nil {
		return fmt.Errorf("delete temp object %s: %w", tempKey, err)
	}
	return nil
}

// Exists checks if a report already exists in the bucket.
func (s *BucketStore) Exists(ctx context.Context, ref ReportRef) (bool, error) {
	return s.bucket.Exists(ctx, ref.Path(s.prefix))
}

// URI returns the canonical URI for the given key.
func (s *BucketStore) URI(key string) string {
	return s.base + "/" + key
}

// Close releases the bucket connection.
func (s *BucketStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
