package sms

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is matched by ParseError values for absent attributes.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidNumber is matched by ParseError values for numeric attributes
	// that do not convert.
	ErrInvalidNumber = errors.New("invalid number")
)

// ErrorKind classifies a ParseError.
type ErrorKind string

const (
	KindMissingField  ErrorKind = "missing_field"
	KindInvalidNumber ErrorKind = "invalid_number"
)

// ParseError describes why a candidate line could not become a Message.
type ParseError struct {
	Kind  ErrorKind
	Field string
	Raw   string // offending value, InvalidNumber only
	Err   error  // conversion error, InvalidNumber only
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing field %q", e.Field)
	case KindInvalidNumber:
		return fmt.Sprintf("invalid number in field %q: %q", e.Field, e.Raw)
	default:
		return fmt.Sprintf("parse error in field %q", e.Field)
	}
}

// Is lets errors.Is match the package sentinels.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Kind == KindMissingField
	case ErrInvalidNumber:
		return e.Kind == KindInvalidNumber
	}
	return false
}

func (e *ParseError) Unwrap() error { return e.Err }

func missingField(name string) error {
	return &ParseError{Kind: KindMissingField, Field: name}
}

func invalidNumber(name, raw string, err error) error {
	return &ParseError{Kind: KindInvalidNumber, Field: name, Raw: raw, Err: err}
}

// KindOf returns the kind of a parse error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
