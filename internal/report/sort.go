package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/withObsrvr/sms-stats/internal/ledger"
)

// SortOrder selects how contacts are ordered in a report.
type SortOrder string

const (
	// SortLedger keeps ledger order: least recently touched first.
	SortLedger   SortOrder = "ledger"
	SortMessages SortOrder = "messages" // most messages first
	SortAddress  SortOrder = "address"
	SortName     SortOrder = "name"
)

// ParseSortOrder validates a sort order name. Empty means SortLedger.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case "":
		return SortLedger, nil
	case SortLedger, SortMessages, SortAddress, SortName:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// Sort returns a sorted copy of contacts. Ties fall back to address, so the
// result is deterministic.
func Sort(contacts []ledger.Contact, order SortOrder) []ledger.Contact {
	out := make([]ledger.Contact, len(contacts))
	copy(out, contacts)

	switch order {
	case SortMessages:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Messages() != out[j].Messages() {
				return out[i].Messages() > out[j].Messages()
			}
			return out[i].Address < out[j].Address
		})
	case SortAddress:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Address < out[j].Address
		})
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := strings.ToLower(out[i].ContactName), strings.ToLower(out[j].ContactName)
			if a != b {
				return a < b
			}
			return out[i].Address < out[j].Address
		})
	}
	return out
}
