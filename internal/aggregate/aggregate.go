// Package aggregate drives an export stream through the line parser and into
// a contact ledger.
package aggregate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/withObsrvr/sms-stats/internal/ledger"
	"github.com/withObsrvr/sms-stats/internal/metrics"
	"github.com/withObsrvr/sms-stats/internal/sms"
)

// Result is the outcome of one aggregation pass.
type Result struct {
	Contacts     []ledger.Contact
	Lines        int64 // every line read
	Candidates   int64 // lines that looked like <sms/> records
	Messages     int64 // candidates that parsed
	Errors       int64 // candidates that did not parse
	ErrorsByKind map[sms.ErrorKind]int64
}

// Aggregator folds <sms/> lines into a ledger. It is single-use per Run and
// not safe for concurrent use.
type Aggregator struct {
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for per-line diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithMetrics records line and message counts in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{log: slog.With("component", "aggregate")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run reads r to the end. Lines that are not <sms/> records are skipped;
// records that fail to parse are counted and dropped without stopping the
// run. Only read failures and context cancellation return an error.
func (a *Aggregator) Run(ctx context.Context, r io.Reader) (*Result, error) {
	res := &Result{ErrorsByKind: make(map[sms.ErrorKind]int64)}
	l := ledger.New()

	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("read line %d: %w", res.Lines+1, readErr)
		}
		if line == "" && readErr != nil {
			break
		}

		res.Lines++
		a.metrics.IncLinesRead()
		a.handle(l, res, line)

		if readErr != nil {
			break
		}
	}

	res.Contacts = l.Contacts()
	a.metrics.SetContacts(l.Len())

	if res.Errors > 0 {
		a.log.Warn("finished with unparseable records",
			"errors", res.Errors,
			"missing_field", res.ErrorsByKind[sms.KindMissingField],
			"invalid_number", res.ErrorsByKind[sms.KindInvalidNumber],
		)
	}
	var chars int64
	for _, c := range res.Contacts {
		chars += c.Chars()
	}
	a.log.Info("aggregation complete",
		"lines", res.Lines,
		"messages", res.Messages,
		"chars", chars,
		"contacts", len(res.Contacts),
		"errors", res.Errors,
	)

	return res, nil
}

func (a *Aggregator) handle(l *ledger.Ledger, res *Result, line string) {
	if !sms.IsCandidate(line) {
		a.metrics.IncLinesSkipped()
		return
	}
	res.Candidates++

	msg, err := sms.ParseLine(line)
	if err != nil {
		kind := sms.KindOf(err)
		res.Errors++
		res.ErrorsByKind[kind]++
		a.metrics.IncParseErrors(string(kind))
		a.log.Debug("skipping record", "line", res.Lines, "error", err)
		return
	}

	res.Messages++
	a.metrics.IncMessagesParsed(direction(msg))
	l.Record(msg)
}

func direction(msg *sms.Message) string {
	switch {
	case msg.Sent():
		return "sent"
	case msg.Received():
		return "received"
	default:
		return "other"
	}
}
