// Package metrics provides Prometheus metrics for sms-stats runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one run.
type Metrics struct {
	registry *prometheus.Registry

	// Line metrics
	LinesRead    prometheus.Counter
	LinesSkipped prometheus.Counter

	// Message metrics
	MessagesParsed *prometheus.CounterVec
	ParseErrors    *prometheus.CounterVec

	// Result metrics
	Contacts    prometheus.Gauge
	RunDuration prometheus.Gauge
	LastRunTime prometheus.Gauge

	// Output metrics
	ReportBytes   *prometheus.GaugeVec
	StorageErrors *prometheus.CounterVec
}

// New registers a fresh set of metrics on a private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sms_stats"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LinesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Total number of input lines read",
		}),
		LinesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_skipped_total",
			Help:      "Total number of input lines that were not <sms/> records",
		}),
		MessagesParsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_parsed_total",
				Help:      "Total number of messages parsed, by direction",
			},
			[]string{"direction"},
		),
		ParseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of candidate lines that failed to parse, by kind",
			},
			[]string{"kind"},
		),
		Contacts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contacts",
			Help:      "Number of distinct addresses in the last run",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		LastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		ReportBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "report_bytes",
				Help:      "Size of the rendered report in bytes",
			},
			[]string{"format"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of report storage errors",
			},
			[]string{"backend"},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// IncLinesRead increments the lines read counter.
func (m *Metrics) IncLinesRead() {
	if m == nil {
		return
	}
	m.LinesRead.Inc()
}

// IncLinesSkipped increments the skipped lines counter.
func (m *Metrics) IncLinesSkipped() {
	if m == nil {
		return
	}
	m.LinesSkipped.Inc()
}

// IncMessagesParsed increments the parsed messages counter for a direction
// ("sent", "received" or "other").
func (m *Metrics) IncMessagesParsed(direction string) {
	if m == nil {
		return
	}
	m.MessagesParsed.WithLabelValues(direction).Inc()
}

// IncParseErrors increments the parse errors counter for an error kind.
func (m *Metrics) IncParseErrors(kind string) {
	if m == nil {
		return
	}
	m.ParseErrors.WithLabelValues(kind).Inc()
}

// SetContacts sets the contacts gauge.
func (m *Metrics) SetContacts(n int) {
	if m == nil {
		return
	}
	m.Contacts.Set(float64(n))
}

// ObserveRun records the run duration and completion time.
func (m *Metrics) ObserveRun(seconds float64, finishedUnix float64) {
	if m == nil {
		return
	}
	m.RunDuration.Set(seconds)
	m.LastRunTime.Set(finishedUnix)
}

// SetReportBytes records the rendered report size.
func (m *Metrics) SetReportBytes(format string, n int) {
	if m == nil {
		return
	}
	m.ReportBytes.WithLabelValues(format).Set(float64(n))
}

// IncStorageErrors increments the storage errors counter.
func (m *Metrics) IncStorageErrors(backend string) {
	if m == nil {
		return
	}
	m.StorageErrors.WithLabelValues(backend).Inc()
}

// WriteTextfile writes all metrics to path in the text exposition format,
// atomically, for pickup by the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
