// Package job runs one sms-stats pass: open the export, aggregate it, render
// the report, then hand it to stdout, report storage and metrics.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/withObsrvr/sms-stats/internal/aggregate"
	"github.com/withObsrvr/sms-stats/internal/config"
	"github.com/withObsrvr/sms-stats/internal/logging"
	"github.com/withObsrvr/sms-stats/internal/metrics"
	"github.com/withObsrvr/sms-stats/internal/report"
	"github.com/withObsrvr/sms-stats/internal/source"
	"github.com/withObsrvr/sms-stats/internal/storage"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

const producerName = "sms-stats"

// ErrOpenInput wraps failures to open the export. Nothing is aggregated when
// it is returned.
var ErrOpenInput = errors.New("cannot open input")

// ErrValidation is returned when a run fails its pre-publish checks. The
// report has already gone to stdout; nothing is stored.
var ErrValidation = errors.New("run validation failed")

// Job wires a source, the aggregator and the report outputs for one run.
type Job struct {
	cfg     config.Config
	src     source.Source
	store   storage.ReportStore
	metrics *metrics.Metrics
	now     func() time.Time
}

// Outcome describes a finished run.
type Outcome struct {
	RunID     string
	Result    *aggregate.Result
	Report    []byte
	Published *storage.PublishResult // nil when storage is disabled
}

// New creates a Job. store and m may be nil.
func New(cfg config.Config, src source.Source, store storage.ReportStore, m *metrics.Metrics) *Job {
	return &Job{
		cfg:     cfg,
		src:     src,
		store:   store,
		metrics: m,
		now:     time.Now,
	}
}

// Run performs the pass and writes the rendered report to stdout.
func (j *Job) Run(ctx context.Context, stdout io.Writer) (*Outcome, error) {
	format, err := report.ParseFormat(j.cfg.Report.Format)
	if err != nil {
		return nil, err
	}
	order, err := report.ParseSortOrder(j.cfg.Report.Sort)
	if err != nil {
		return nil, err
	}

	runID := j.cfg.Report.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, runID)
	log := logging.RunLogger(ctx, "job", j.src.Location())
	started := j.now()

	log.Info("starting run",
		"version", Version,
		"format", format,
		"sort", order,
		"storage", j.backend(),
	)

	rc, err := j.src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenInput, err)
	}

	agg := aggregate.New(
		aggregate.WithLogger(logging.RunLogger(ctx, "aggregate", j.src.Location())),
		aggregate.WithMetrics(j.metrics),
	)
	res, err := agg.Run(ctx, rc)
	if closeErr := rc.Close(); closeErr != nil {
		log.Warn("failed to close input", "error", closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", j.src.Location(), err)
	}

	sum := j.summary(runID, res)
	data, err := report.RenderBytes(res.Contacts, sum, report.Options{
		Format:      format,
		Sort:        order,
		Compression: j.cfg.Report.Compression,
	})
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	j.metrics.SetReportBytes(string(format), len(data))

	if stdout != nil {
		if _, err := stdout.Write(data); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
	}

	out := &Outcome{RunID: runID, Result: res, Report: data}

	if j.storageEnabled() {
		pub, err := j.publish(ctx, log, format, res, sum, data)
		if err != nil {
			j.metrics.IncStorageErrors(j.backend())
			return out, err
		}
		out.Published = pub
	}

	finished := j.now()
	j.metrics.ObserveRun(finished.Sub(started).Seconds(), float64(finished.Unix()))
	if err := j.metrics.WriteTextfile(j.cfg.Metrics.Textfile); err != nil {
		log.Warn("failed to write metrics textfile", "error", err)
	}

	log.Info("run complete",
		"contacts", len(res.Contacts),
		"messages", res.Messages,
		"errors", res.Errors,
		"duration_ms", finished.Sub(started).Milliseconds(),
	)

	return out, nil
}

func (j *Job) publish(ctx context.Context, log *slog.Logger, format report.Format, res *aggregate.Result, sum report.Summary, data []byte) (*storage.PublishResult, error) {
	ref := storage.ReportRef{
		Dataset:   datasetName(j.src.Location()),
		RunID:     sum.RunID,
		Extension: format.Extension(),
	}
	manifest := buildManifest(ref, format, sum, data, j.now())

	v := ValidateRun(res, data, manifest)
	for _, w := range v.Warnings {
		log.Warn("validation warning", "warning", w)
	}
	if !v.Passed {
		return nil, fmt.Errorf("%w: %s", ErrValidation, v.Error())
	}

	pub, err := storage.Publish(ctx, j.store, j.cfg.Storage.Prefix, ref, data, manifest, j.cfg.Storage.AllowOverwrite)
	if err != nil {
		return nil, fmt.Errorf("publish report: %w", err)
	}

	log.Info("report published",
		"uri", pub.ReportURI,
		"checksum", manifest.Report.Checksum,
		"bytes", len(data),
	)
	return pub, nil
}

func (j *Job) summary(runID string, res *aggregate.Result) report.Summary {
	byKind := make(map[string]int64, len(res.ErrorsByKind))
	for kind, n := range res.ErrorsByKind {
		byKind[string(kind)] = n
	}

	return report.Summary{
		RunID:        runID,
		Source:       j.src.Location(),
		Lines:        res.Lines,
		Messages:     res.Messages,
		Errors:       res.Errors,
		ErrorsByKind: byKind,
		Contacts:     len(res.Contacts),
		GeneratedAt:  j.now().UTC(),
	}
}

func (j *Job) storageEnabled() bool {
	return j.store != nil && j.backend() != "none"
}

func (j *Job) backend() string {
	if j.cfg.Storage.Backend == "" {
		return "none"
	}
	return j.cfg.Storage.Backend
}

// buildManifest creates the manifest stored beside a report.
func buildManifest(ref storage.ReportRef, format report.Format, sum report.Summary, data []byte, now time.Time) *storage.Manifest {
	return &storage.Manifest{
		Report: storage.ReportInfo{
			File:          path.Base(ref.Path("")),
			Format:        string(format),
			SchemaVersion: report.SchemaVersion,
			Checksum:      report.ComputeChecksum(data),
			ContactCount:  sum.Contacts,
			ByteSize:      int64(len(data)),
		},
		Run: storage.RunInfo{
			RunID:       sum.RunID,
			Source:      sum.Source,
			Lines:       sum.Lines,
			Messages:    sum.Messages,
			ParseErrors: sum.Errors,
		},
		Producer: storage.ProducerInfo{
			Name:    producerName,
			Version: Version,
			GitSHA:  GitSHA,
		},
		CreatedAt: now.UTC(),
	}
}

// datasetName derives a storage-safe dataset name from the input location:
// "gs://b/exports/sms-2024.xml.zst" becomes "sms-2024".
func datasetName(location string) string {
	name := location
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	for _, ext := range []string{".zst", ".gz", ".xml"} {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" {
		return "export"
	}
	return name
}
