package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sms-stats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
report:
  format: parquet
  sort: messages
storage:
  backend: bucket
  bucket_url: gs://reports
  allow_overwrite: true
metrics:
  textfile: /var/lib/node_exporter/sms_stats.prom
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "parquet", cfg.Report.Format)
	assert.Equal(t, "messages", cfg.Report.Sort)
	assert.Equal(t, "zstd", cfg.Report.Compression)
	assert.Equal(t, "bucket", cfg.Storage.Backend)
	assert.Equal(t, "gs://reports", cfg.Storage.BucketURL)
	assert.True(t, cfg.Storage.AllowOverwrite)
	assert.Equal(t, "/var/lib/node_exporter/sms_stats.prom", cfg.Metrics.Textfile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "report:\n  fromat: json\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "report:\n  format: json\n")
	t.Setenv("SMS_STATS_FORMAT", "parquet")
	t.Setenv("SMS_STATS_ALLOW_OVERWRITE", "true")
	t.Setenv("SMS_STATS_STORAGE_BACKEND", "local")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "parquet", cfg.Report.Format)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.True(t, cfg.Storage.AllowOverwrite)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Report.Format = "csv" }},
		{"sort", func(c *Config) { c.Report.Sort = "random" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"local dir", func(c *Config) { c.Storage.Backend = "local"; c.Storage.LocalDir = "" }},
		{"bucket url", func(c *Config) { c.Storage.Backend = "bucket" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
