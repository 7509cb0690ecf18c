package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes reports to the local filesystem.
type LocalStore struct {
	baseDir string
	prefix  string
}

// NewLocalStore creates a new local filesystem store.
func NewLocalStore(baseDir, prefix string) (*LocalStore, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", baseDir, err)
	}

	return &LocalStore{
		baseDir: baseDir,
		prefix:  prefix,
	}, nil
}

// WriteReport writes report bytes to the local filesystem.
func (s *LocalStore) WriteReport(ctx context.Context, ref ReportRef, data []byte) error {
	return s.writeAtomic(filepath.Join(s.baseDir, ref.Path(s.prefix)), data)
}

// WriteManifest writes a manifest file to the local filesystem.
func (s *LocalStore) WriteManifest(ctx context.Context, ref ReportRef, manifest *Manifest) error {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.writeAtomic(filepath.Join(s.baseDir, ref.ManifestPath(s.prefix)), data)
}

// writeAtomic writes data to a uniquely named temp file in the target
// directory, syncs it and renames it over path.
func (s *LocalStore) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tempPath := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tempPath, 0644)
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("write temp file %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s to %s: %w", tempPath, path, err)
	}

	return nil
}

// Exists checks if a report already exists.
func (s *LocalStore) Exists(ctx context.Context, ref ReportRef) (bool, error) {
	path := filepath.Join(s.baseDir, ref.Path(s.prefix))
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// URI returns the canonical URI for the given key.
func (s *LocalStore) URI(key string) string {
	absPath, err := filepath.Abs(filepath.Join(s.baseDir, key))
	if err != nil {
		absPath = filepath.Join(s.baseDir, key)
	}
	return "file://" + filepath.ToSlash(absPath)
}

// Close is a no-op for local storage.
func (s *LocalStore) Close() error {
	return nil
}
