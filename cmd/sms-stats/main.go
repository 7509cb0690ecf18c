package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/sms-stats/internal/config"
	"github.com/withObsrvr/sms-stats/internal/job"
	"github.com/withObsrvr/sms-stats/internal/logging"
	"github.com/withObsrvr/sms-stats/internal/metrics"
	"github.com/withObsrvr/sms-stats/internal/source"
	"github.com/withObsrvr/sms-stats/internal/storage"
)

const versionTemplate = `{{.Name}} {{.Version}}
Copyright (c) Obsrvr. Licensed under the Apache License, Version 2.0.
This is free software; there is NO warranty.
Written by the Obsrvr team.
`

// flags mirrors the command line. Only flags the user set override the
// config file and environment.
type flags struct {
	configPath      string
	format          string
	sort            string
	logLevel        string
	logFormat       string
	storage         string
	storageDir      string
	bucket          string
	prefix          string
	overwrite       bool
	metricsTextfile string
	runID           string
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Printf("[shutdown] received signal: %v", sig)
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sms-stats: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "sms-stats [flags] <input>",
		Short: "Per-contact message statistics from an SMS Backup & Restore export",
		Long: `sms-stats reads an XML export produced by SMS Backup & Restore and prints,
for every address, how many messages and characters were sent to and
received from it.

The input may be a local path or a gs://, s3:// or file:// URL, optionally
compressed with zstd (.zst) or gzip (.gz). When several arguments are given,
the last one is the input.`,
		Version:       fmt.Sprintf("%s (%s)", job.Version, job.GitSHA),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return run(cmd, f, args[len(args)-1])
		},
	}
	cmd.SetVersionTemplate(versionTemplate)

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVarP(&f.format, "format", "f", "", "report format: text, json or parquet")
	fs.StringVarP(&f.sort, "sort", "s", "", "contact order: ledger, messages, address or name")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	fs.StringVar(&f.storage, "storage", "", "report storage backend: none, local or bucket")
	fs.StringVar(&f.storageDir, "storage-dir", "", "directory for the local storage backend")
	fs.StringVar(&f.bucket, "bucket", "", "bucket URL for the bucket storage backend")
	fs.StringVar(&f.prefix, "prefix", "", "path prefix for stored reports")
	fs.BoolVar(&f.overwrite, "overwrite", false, "replace a report already stored for the same run")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	fs.StringVar(&f.runID, "run-id", "", "run identifier used in storage paths (default: random UUID)")

	return cmd
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	set := cmd.Flags().Changed

	if set("format") {
		cfg.Report.Format = f.format
	}
	if set("sort") {
		cfg.Report.Sort = f.sort
	}
	if set("run-id") {
		cfg.Report.RunID = f.runID
	}
	if set("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if set("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if set("storage") {
		cfg.Storage.Backend = f.storage
	}
	if set("storage-dir") {
		cfg.Storage.LocalDir = f.storageDir
	}
	if set("bucket") {
		cfg.Storage.BucketURL = f.bucket
	}
	if set("prefix") {
		cfg.Storage.Prefix = f.prefix
	}
	if set("overwrite") {
		cfg.Storage.AllowOverwrite = f.overwrite
	}
	if set("metrics-textfile") {
		cfg.Metrics.Textfile = f.metricsTextfile
	}
}

func run(cmd *cobra.Command, f *flags, input string) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, f, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.Setup(logging.Config{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})

	src, err := source.New(source.Config{
		Location:   input,
		S3Region:   cfg.Input.S3Region,
		S3Endpoint: cfg.Input.S3Endpoint,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", job.ErrOpenInput, err)
	}
	defer src.Close()

	store, err := storage.NewReportStore(storage.Config{
		Backend:        cfg.Storage.Backend,
		LocalDir:       cfg.Storage.LocalDir,
		BucketURL:      cfg.Storage.BucketURL,
		S3Region:       cfg.Storage.S3Region,
		S3Endpoint:     cfg.Storage.S3Endpoint,
		Prefix:         cfg.Storage.Prefix,
		AllowOverwrite: cfg.Storage.AllowOverwrite,
	})
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	m := metrics.New(cfg.Metrics.Namespace)

	_, err = job.New(cfg, src, store, m).Run(cmd.Context(), cmd.OutOrStdout())
	return err
}
