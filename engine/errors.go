package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the stages. Match with errors.Is.
var (
	// ErrInvalidRange reports malformed filter or threshold bounds.
	ErrInvalidRange = errors.New("invalid range")

	// ErrUnknownField reports grouping or sorting on a column the engine does not know.
	ErrUnknownField = errors.New("unknown field")

	// ErrEmptyInput is only returned when a caller explicitly requires data
	// (WithRequireData). Stages themselves return sentinel zero values.
	ErrEmptyInput = errors.New("empty input")
)

// RangeError names the offending bound pair.
type RangeError struct {
	Field string
	Lower string
	Upper string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range for %s: %s > %s", e.Field, e.Lower, e.Upper)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// FieldError names the offending column and what would have been accepted.
type FieldError struct {
	Field   string
	Allowed []string
}

func (e *FieldError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("unknown field %q", e.Field)
	}
	return fmt.Sprintf("unknown field %q (allowed: %s)", e.Field, strings.Join(e.Allowed, ", "))
}

func (e *FieldError) Unwrap() error { return ErrUnknownField }

// RecordError is returned by NewStore when a record breaks a store invariant.
type RecordError struct {
	Index   int
	OrderID string
	Reason  string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (order %q): %s", e.Index, e.OrderID, e.Reason)
}
