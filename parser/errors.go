package parser

import (
	"errors"
	"fmt"
)

var (
	errNegative        = errors.New("value cannot be negative")
	errNotFinite       = errors.New("value must be finite")
	errMissingValue    = errors.New("value is empty")
	errClickSeparator  = errors.New("expected exactly one '+' separator")
	err3BVSeparator    = errors.New("expected at most one '/' separator")
	errCompletedExceed = errors.New("completed 3BV exceeds board 3BV")
	errUnsolvedFull    = errors.New("unsolved board reports all 3BV completed")
)

// FieldMalformedError indicates a located field whose value could not be
// parsed as the expected type.
type FieldMalformedError struct {
	Field string
	Line  string
	Err   error
}

func (e *FieldMalformedError) Error() string {
	return fmt.Errorf("field_malformed: %s %q: %w", e.Field, e.Line, e.Err).Error()
}

func (e *FieldMalformedError) Unwrap() error {
	return e.Err
}

// AuthorshipMismatchError indicates the expected player is not named in the
// results text.
type AuthorshipMismatchError struct {
	Username string
}

func (e *AuthorshipMismatchError) Error() string {
	return fmt.Sprintf("authorship_mismatch: username %q not found in results", e.Username)
}

// DivisionError indicates an unsolved board reporting a zero board 3BV.
type DivisionError struct {
	Completed int
	Board     int
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("division: solve percentage undefined for %d / %d", e.Completed, e.Board)
}

func malformed(f Field, err error) error {
	return &FieldMalformedError{Field: f.Prefix, Line: f.Line, Err: err}
}

// ErrorKind returns a stable label for err, suitable for metrics.
func ErrorKind(err error) string {
	if err == nil {
		return "unknown"
	}
	var fieldErr *FieldMalformedError
	if errors.As(err, &fieldErr) {
		return "field_malformed"
	}
	var authorErr *AuthorshipMismatchError
	if errors.As(err, &authorErr) {
		return "authorship_mismatch"
	}
	var divErr *DivisionError
	if errors.As(err, &divErr) {
		return "division"
	}
	return "other"
}

// IsFatal reports whether err came from the engine. Retrying the same text
// can never succeed.
func IsFatal(err error) bool {
	switch ErrorKind(err) {
	case "field_malformed", "authorship_mismatch", "division":
		return true
	}
	return false
}
