package sms

import (
	"strings"
	"unicode/utf8"
)

// entities maps a buffered token (leading '&' included, ';' excluded) to its
// literal character.
var entities = map[string]rune{
	"&apos": '\'',
	"&amp":  '&',
	"&lt":   '<',
	"&gt":   '>',
	"&quot": '"',
}

// unknownEntity replaces any &...; token that is not one of the five named
// XML entities. Numeric references such as &#10; land here too.
const unknownEntity = '?'

// Decode desanitizes an attribute value, replacing the five standard XML
// entities with their literal characters.
//
//	&apos; -> '
//	&amp;  -> &
//	&lt;   -> <
//	&gt;   -> >
//	&quot; -> "
//
// An entity left open at the end of the input is dropped. Invalid UTF-8 bytes
// become U+FFFD.
func Decode(raw string) string {
	if strings.IndexByte(raw, '&') < 0 && utf8.ValidString(raw) {
		return raw
	}

	var out strings.Builder
	out.Grow(len(raw))

	var buf strings.Builder
	open := false

	for _, r := range raw {
		switch {
		case r == '&':
			// A new '&' restarts the token; the earlier partial is lost.
			buf.Reset()
			buf.WriteRune(r)
			open = true
		case r == ';' && open:
			if lit, ok := entities[buf.String()]; ok {
				out.WriteRune(lit)
			} else {
				out.WriteRune(unknownEntity)
			}
			buf.Reset()
			open = false
		case open:
			buf.WriteRune(r)
		default:
			out.WriteRune(r)
		}
	}

	return out.String()
}
