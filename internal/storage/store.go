package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrReportExists is returned by Publish when a report is already stored
// under the same ref and overwriting is not allowed.
var ErrReportExists = errors.New("report already exists")

// ReportRef describes where one run's report lives.
type ReportRef struct {
	Dataset   string // export name, e.g. "sms-20240102"
	RunID     string
	Extension string // "txt" | "json" | "parquet"
}

// Path returns the storage path for the report file.
func (r ReportRef) Path(prefix string) string {
	return fmt.Sprintf("%s%s/run=%s/contacts.%s", prefix, r.Dataset, r.RunID, r.Extension)
}

// ManifestPath returns the storage path for the report's manifest.
func (r ReportRef) ManifestPath(prefix string) string {
	return fmt.Sprintf("%s%s/run=%s/_manifest.json", prefix, r.Dataset, r.RunID)
}

// Manifest describes a stored report.
type Manifest struct {
	Report    ReportInfo   `json:"report"`
	Run       RunInfo      `json:"run"`
	Producer  ProducerInfo `json:"producer"`
	CreatedAt time.Time    `json:"created_at"`
}

// ReportInfo describes the report file.
type ReportInfo struct {
	File          string `json:"file"`
	Format        string `json:"format"`
	SchemaVersion string `json:"schema_version"`
	Checksum      string `json:"checksum"`
	ContactCount  int    `json:"contact_count"`
	ByteSize      int64  `json:"byte_size"`
}

// RunInfo describes the aggregation run that produced the report.
type RunInfo struct {
	RunID       string `json:"run_id"`
	Source      string `json:"source"`
	Lines       int64  `json:"lines"`
	Messages    int64  `json:"messages"`
	ParseErrors int64  `json:"parse_errors"`
}

// ProducerInfo describes the software that produced the report.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha,omitempty"`
}

// MarshalJSON returns the manifest as indented JSON bytes.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type Alias Manifest
	return json.MarshalIndent((*Alias)(m), "", "  ")
}

// ReportStore abstracts writing reports to storage.
type ReportStore interface {
	// WriteReport writes rendered report bytes to storage.
	WriteReport(ctx context.Context, ref ReportRef, data []byte) error

	// WriteManifest writes a manifest file next to the report.
	WriteManifest(ctx context.Context, ref ReportRef, manifest *Manifest) error

	// Exists checks if a report is already stored under ref.
	Exists(ctx context.Context, ref ReportRef) (bool, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// Config configures the storage backend.
type Config struct {
	Backend string `yaml:"backend"` // "none" | "local" | "bucket"

	// Local filesystem
	LocalDir string `yaml:"local_dir"`

	// Any gocloud.dev bucket: gs://, s3://, file://, mem://
	BucketURL  string `yaml:"bucket_url"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"` // custom endpoint for B2/MinIO/R2

	// Common
	Prefix         string `yaml:"prefix"` // "reports/" (path prefix within bucket or local dir)
	AllowOverwrite bool   `yaml:"allow_overwrite"`
}

// NewReportStore creates a storage backend based on configuration.
func NewReportStore(cfg Config) (ReportStore, error) {
	switch cfg.Backend {
	case "", "none":
		return noopStore{}, nil
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		store, err := NewLocalStore(cfg.LocalDir, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "bucket":
		if cfg.BucketURL == "" {
			return nil, fmt.Errorf("BucketURL required for bucket backend")
		}
		store, err := NewBucketStore(cfg.BucketURL, cfg.Prefix, cfg.S3Endpoint, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// PublishResult contains the keys written by Publish.
type PublishResult struct {
	ReportKey   string
	ManifestKey string
	ReportURI   string
}

// Publish writes the report and then its manifest. The manifest is written
// last so its presence marks a complete report.
func Publish(ctx context.Context, store ReportStore, prefix string, ref ReportRef, data []byte, manifest *Manifest, allowOverwrite bool) (*PublishResult, error) {
	exists, err := store.Exists(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("check existing report: %w", err)
	}
	if exists && !allowOverwrite {
		return nil, fmt.Errorf("%w: %s", ErrReportExists, ref.Path(prefix))
	}

	if err := store.WriteReport(ctx, ref, data); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	if err := store.WriteManifest(ctx, ref, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return &PublishResult{
		ReportKey:   ref.Path(prefix),
		ManifestKey: ref.ManifestPath(prefix),
		ReportURI:   store.URI(ref.Path(prefix)),
	}, nil
}

// noopStore discards everything; used when storage is disabled.
type noopStore struct{}

func (noopStore) WriteReport(context.Context, ReportRef, []byte) error      { return nil }
func (noopStore) WriteManifest(context.Context, ReportRef, *Manifest) error { return nil }
func (noopStore) Exists(context.Context, ReportRef) (bool, error)           { return false, nil }
func (noopStore) URI(string) string                                         { return "" }
func (noopStore) Close() error                                              { return nil }
