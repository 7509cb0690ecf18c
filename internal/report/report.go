// Package report renders contact totals as text, JSON or parquet.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/withObsrvr/sms-stats/internal/ledger"
)

// Format is a report encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a format name. Empty means FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatParquet:
		return "parquet"
	default:
		return "txt"
	}
}

// Summary describes the run a report came from.
type Summary struct {
	RunID        string           `json:"run_id"`
	Source       string           `json:"source"`
	Lines        int64            `json:"lines"`
	Messages     int64            `json:"messages"`
	Errors       int64            `json:"errors"`
	ErrorsByKind map[string]int64 `json:"errors_by_kind,omitempty"`
	Contacts     int              `json:"contacts"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// Options controls rendering.
type Options struct {
	Format      Format
	Sort        SortOrder
	Compression string // parquet only: "zstd" | "snappy" | "none"
}

// Render writes contacts to w in the requested format and order.
func Render(w io.Writer, contacts []ledger.Contact, sum Summary, opts Options) error {
	sorted := Sort(contacts, opts.Sort)

	switch opts.Format {
	case FormatText, "":
		return renderText(w, sorted)
	case FormatJSON:
		return renderJSON(w, sorted, sum)
	case FormatParquet:
		return renderParquet(w, sorted, sum, opts.Compression)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// RenderBytes renders into memory.
func RenderBytes(contacts []ledger.Contact, sum Summary, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, contacts, sum, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderText writes one block per contact:
//
//	John Smith (+12345678901)
//	To (Messages/Chars): 3/120
//	From (Messages/Chars): 2/57
func renderText(w io.Writer, contacts []ledger.Contact) error {
	for i, c := range contacts {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s (%s)\nTo (Messages/Chars): %d/%d\nFrom (Messages/Chars): %d/%d\n",
			c.ContactName, c.Address, c.CountTo, c.LengthTo, c.CountFrom, c.LengthFrom); err != nil {
			return err
		}
	}
	return nil
}

type jsonReport struct {
	Summary  Summary          `json:"summary"`
	Contacts []ledger.Contact `json:"contacts"`
}

func renderJSON(w io.Writer, contacts []ledger.Contact, sum Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Summary: sum, Contacts: contacts}); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

func renderParquet(w io.Writer, contacts []ledger.Contact, sum Summary, compression string) error {
	codec, err := parquetCodec(compression)
	if err != nil {
		return err
	}

	pw := parquet.NewGenericWriter[ContactRow](w, parquet.Compression(codec))
	if _, err := pw.Write(rowsFromContacts(contacts, sum)); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
