package report

import (
	"time"

	"github.com/withObsrvr/sms-stats/internal/ledger"
)

// ContactRow is one row of the contacts parquet table.
type ContactRow struct {
	// Position in the rendered order, starting at 1
	Rank int32 `parquet:"rank"`

	// Identity
	Address     string `parquet:"address"`
	ContactName string `parquet:"contact_name"`

	// Sent (self -> other)
	CountTo  int64 `parquet:"count_to"`
	LengthTo int64 `parquet:"length_to"`

	// Received (other -> self)
	CountFrom  int64 `parquet:"count_from"`
	LengthFrom int64 `parquet:"length_from"`

	// Run metadata
	RunID       string    `parquet:"run_id"`
	Source      string    `parquet:"source"`
	GeneratedAt time.Time `parquet:"generated_at,timestamp(millisecond)"`
}

// TableName returns the canonical table name.
func (ContactRow) TableName() string {
	return "contacts"
}

// rowsFromContacts builds parquet rows in the given order.
func rowsFromContacts(contacts []ledger.Contact, sum Summary) []ContactRow {
	rows := make([]ContactRow, len(contacts))
	for i, c := range contacts {
		rows[i] = ContactRow{
			Rank:        int32(i + 1),
			Address:     c.Address,
			ContactName: c.ContactName,
			CountTo:     c.CountTo,
			LengthTo:    c.LengthTo,
			CountFrom:   c.CountFrom,
			LengthFrom:  c.LengthFrom,
			RunID:       sum.RunID,
			Source:      sum.Source,
			GeneratedAt: sum.GeneratedAt,
		}
	}
	return rows
}

// SchemaVersion is the version of the report schema, stamped into manifests.
// Increment this when making breaking changes.
const SchemaVersion = "1.0.0"
