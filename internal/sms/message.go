// Package sms parses the line-oriented XML written by Android "SMS Backup &
// Restore" exports.
package sms

import (
	"strconv"
	"strings"
	"unicode"
)

// Message types as written by the exporter.
const (
	TypeReceived uint32 = 1 // other -> self
	TypeSent     uint32 = 2 // self -> other
)

// linePrefix marks a candidate record line.
const linePrefix = "<sms "

// Message is a single decoded <sms/> record.
type Message struct {
	Protocol      uint32
	Address       string // number the message was sent to or received from
	ContactName   string // "null" when the exporter had no contact
	Date          int64  // epoch milliseconds
	ReadableDate  string // e.g. "Sat, 18 Aug 2018 12:57:13 MST", not parsed
	Type          uint32
	Subject       string
	Body          string // entity-decoded
	TOA           string
	SCTOA         string
	ServiceCenter string
	Read          bool
	Status        int32
	Locked        bool
}

// Sent reports whether the message went from self to the other party.
func (m *Message) Sent() bool { return m.Type == TypeSent }

// Received reports whether the message came from the other party.
func (m *Message) Received() bool { return m.Type == TypeReceived }

// Field names every record must carry.
const (
	fieldProtocol      = "protocol"
	fieldAddress       = "address"
	fieldContactName   = "contact_name"
	fieldDate          = "date"
	fieldReadableDate  = "readable_date"
	fieldType          = "type"
	fieldSubject       = "subject"
	fieldBody          = "body"
	fieldTOA           = "toa"
	fieldSCTOA         = "sc_toa"
	fieldServiceCenter = "service_center"
	fieldRead          = "read"
	fieldStatus        = "status"
	fieldLocked        = "locked"
)

// RequiredFields lists the attributes ParseLine needs, in export order.
var RequiredFields = []string{
	fieldProtocol, fieldAddress, fieldContactName, fieldDate, fieldReadableDate,
	fieldType, fieldSubject, fieldBody, fieldTOA, fieldSCTOA, fieldServiceCenter,
	fieldRead, fieldStatus, fieldLocked,
}

// IsCandidate reports whether line looks like an <sms/> record. Only
// candidate lines should be handed to ParseLine.
func IsCandidate(line string) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(line, unicode.IsSpace), linePrefix)
}

// ParseLine turns one export line into a Message. Attributes are looked up by
// name, so their order on the line does not matter. A typical line:
//
//	<sms protocol="0" address="+12345678901" contact_name="John Smith" date="1234567890123" readable_date="Fri, 39 May 2015 04:13:14 MST" type="2" subject="null" body="Here&apos;s a message" toa="null" sc_toa="null" service_center="null" read="1" status="-1" locked="0" />
func ParseLine(line string) (*Message, error) {
	attrs := attributes(line)

	raw := make(map[string]string, len(RequiredFields))
	for _, name := range RequiredFields {
		v, ok := attrs[name]
		if !ok {
			return nil, missingField(name)
		}
		raw[name] = v
	}

	protocol, err := parseUint32(fieldProtocol, raw[fieldProtocol])
	if err != nil {
		return nil, err
	}
	date, err := strconv.ParseInt(raw[fieldDate], 10, 64)
	if err != nil {
		return nil, invalidNumber(fieldDate, raw[fieldDate], err)
	}
	typ, err := parseUint32(fieldType, raw[fieldType])
	if err != nil {
		return nil, err
	}
	status, err := strconv.ParseInt(raw[fieldStatus], 10, 32)
	if err != nil {
		return nil, invalidNumber(fieldStatus, raw[fieldStatus], err)
	}

	return &Message{
		Protocol:      protocol,
		Address:       raw[fieldAddress],
		ContactName:   raw[fieldContactName],
		Date:          date,
		ReadableDate:  raw[fieldReadableDate],
		Type:          typ,
		Subject:       raw[fieldSubject],
		Body:          Decode(raw[fieldBody]),
		TOA:           raw[fieldTOA],
		SCTOA:         raw[fieldSCTOA],
		ServiceCenter: raw[fieldServiceCenter],
		Read:          raw[fieldRead] == "1",
		Status:        int32(status),
		Locked:        raw[fieldLocked] == "1",
	}, nil
}

// attributes splits a record on '"' and pairs each name= token with the value
// token that follows it. The first occurrence of a name wins.
func attributes(line string) map[string]string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "<sms")

	tokens := strings.Split(line, `"`)
	attrs := make(map[string]string, len(tokens)/2)
	for i := 0; i+1 < len(tokens); i += 2 {
		name := strings.TrimSpace(tokens[i])
		name = strings.TrimSpace(strings.TrimSuffix(name, "="))
		if name == "" {
			continue
		}
		if _, seen := attrs[name]; seen {
			continue
		}
		attrs[name] = tokens[i+1]
	}
	return attrs
}

func parseUint32(field, raw string) (uint32, error) {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, invalidNumber(field, raw, err)
	}
	return uint32(v), nil
}
