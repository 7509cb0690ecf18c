// Package ledger folds parsed messages into per-address contact totals.
package ledger

import (
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/withObsrvr/sms-stats/internal/sms"
)

// Contact aggregates every message exchanged with one address.
type Contact struct {
	Address     string `json:"address"`
	ContactName string `json:"contact_name"`
	CountTo     int64  `json:"count_to"`
	LengthTo    int64  `json:"length_to"`
	CountFrom   int64  `json:"count_from"`
	LengthFrom  int64  `json:"length_from"`
}

// Messages returns the number of sent and received messages.
func (c Contact) Messages() int64 { return c.CountTo + c.CountFrom }

// Chars returns the number of sent and received characters.
func (c Contact) Chars() int64 { return c.LengthTo + c.LengthFrom }

// apply adds msg to the counters for its direction. Types other than sent
// and received leave the counters alone.
func (c *Contact) apply(msg *sms.Message) {
	n := int64(utf8.RuneCountInString(msg.Body))
	switch msg.Type {
	case sms.TypeSent:
		c.CountTo++
		c.LengthTo += n
	case sms.TypeReceived:
		c.CountFrom++
		c.LengthFrom += n
	}
}

// Ledger is an insertion-ordered set of contacts keyed by address. The most
// recently touched contact is always last.
type Ledger struct {
	contacts *orderedmap.OrderedMap[string, *Contact]
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{contacts: orderedmap.New[string, *Contact]()}
}

// Record applies msg to the contact for msg.Address, creating the contact on
// first sight, and moves that contact to the end of the ledger.
func (l *Ledger) Record(msg *sms.Message) {
	c, ok := l.contacts.Get(msg.Address)
	if !ok {
		c = &Contact{
			Address:     msg.Address,
			ContactName: msg.ContactName,
		}
		l.contacts.Set(msg.Address, c)
	} else {
		// The key is known to be present, so MoveToBack cannot fail.
		_ = l.contacts.MoveToBack(msg.Address)
	}
	c.apply(msg)
}

// Len returns the number of distinct addresses seen.
func (l *Ledger) Len() int { return l.contacts.Len() }

// Get returns a copy of the contact for address.
func (l *Ledger) Get(address string) (Contact, bool) {
	c, ok := l.contacts.Get(address)
	if !ok {
		return Contact{}, false
	}
	return *c, true
}

// Contacts returns copies of all contacts in ledger order, least recently
// touched first.
func (l *Ledger) Contacts() []Contact {
	out := make([]Contact, 0, l.contacts.Len())
	for pair := l.contacts.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, *pair.Value)
	}
	return out
}
