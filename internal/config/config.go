package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/withObsrvr/sms-stats/internal/report"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Input   InputConfig   `yaml:"input"`
	Report  ReportConfig  `yaml:"report"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Format string `yaml:"format"` // "json" | "text"
	Level  string `yaml:"level"`
}

type InputConfig struct {
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

type ReportConfig struct {
	Format      string `yaml:"format"`      // "text" | "json" | "parquet"
	Sort        string `yaml:"sort"`        // "ledger" | "messages" | "address" | "name"
	Compression string `yaml:"compression"` // parquet only
	RunID       string `yaml:"run_id"`      // empty: a fresh UUID per run
}

type StorageConfig struct {
	Backend        string `yaml:"backend"` // "none" | "local" | "bucket"
	LocalDir       string `yaml:"local_dir"`
	BucketURL      string `yaml:"bucket_url"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	Prefix         string `yaml:"prefix"`
	AllowOverwrite bool   `yaml:"allow_overwrite"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Textfile  string `yaml:"textfile"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Report: ReportConfig{
			Format:      string(report.FormatText),
			Sort:        string(report.SortLedger),
			Compression: "zstd",
		},
		Storage: StorageConfig{
			Backend:  "none",
			LocalDir: "./reports",
			Prefix:   "sms-stats/",
		},
		Metrics: MetricsConfig{
			Namespace: "sms_stats",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional) and
// SMS_STATS_* environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		slog.Debug("loading config file", "component", "config", "path", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	return cfg, nil
}

// decodeYAML rejects unknown keys so typos in a config file surface early.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Format = getenvDefault("SMS_STATS_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Level = getenvDefault("SMS_STATS_LOG_LEVEL", cfg.Log.Level)

	cfg.Input.S3Region = getenvDefault("SMS_STATS_INPUT_S3_REGION", cfg.Input.S3Region)
	cfg.Input.S3Endpoint = getenvDefault("SMS_STATS_INPUT_S3_ENDPOINT", cfg.Input.S3Endpoint)

	cfg.Report.Format = getenvDefault("SMS_STATS_FORMAT", cfg.Report.Format)
	cfg.Report.Sort = getenvDefault("SMS_STATS_SORT", cfg.Report.Sort)
	cfg.Report.Compression = getenvDefault("SMS_STATS_PARQUET_COMPRESSION", cfg.Report.Compression)
	cfg.Report.RunID = getenvDefault("SMS_STATS_RUN_ID", cfg.Report.RunID)

	cfg.Storage.Backend = getenvDefault("SMS_STATS_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.LocalDir = getenvDefault("SMS_STATS_LOCAL_DIR", cfg.Storage.LocalDir)
	cfg.Storage.BucketURL = getenvDefault("SMS_STATS_BUCKET_URL", cfg.Storage.BucketURL)
	cfg.Storage.S3Region = getenvDefault("SMS_STATS_S3_REGION", cfg.Storage.S3Region)
	cfg.Storage.S3Endpoint = getenvDefault("SMS_STATS_S3_ENDPOINT", cfg.Storage.S3Endpoint)
	cfg.Storage.Prefix = getenvDefault("SMS_STATS_STORAGE_PREFIX", cfg.Storage.Prefix)
	if v := os.Getenv("SMS_STATS_ALLOW_OVERWRITE"); v != "" {
		cfg.Storage.AllowOverwrite = v == "true"
	}

	cfg.Metrics.Namespace = getenvDefault("SMS_STATS_METRICS_NAMESPACE", cfg.Metrics.Namespace)
	cfg.Metrics.Textfile = getenvDefault("SMS_STATS_METRICS_TEXTFILE", cfg.Metrics.Textfile)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		return err
	}
	if _, err := report.ParseSortOrder(c.Report.Sort); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	switch c.Storage.Backend {
	case "", "none":
	case "local":
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir required for local backend")
		}
	case "bucket":
		if c.Storage.BucketURL == "" {
			return errors.New("storage.bucket_url required for bucket backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
