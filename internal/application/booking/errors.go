package booking

import (
	"errors"
	"strings"
)

var (
	// ErrNotAnOption is returned by Select for an option outside the current result set.
	ErrNotAnOption = errors.New("option is not part of the current availability result")
	// ErrNotCancellable mirrors the server rule that only confirmed or seated reservations cancel.
	ErrNotCancellable = errors.New("only confirmed or seated reservations can be cancelled")
)

// ValidationError is a client-side, field-level rejection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Field returns the message recorded for field, if any.
func (v ValidationErrors) Field(field string) (string, bool) {
	for _, e := range v {
		if e.Field == field {
			return e.Message, true
		}
	}
	return "", false
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) add(field, msg string) {
	*v = append(*v, &ValidationError{Field: field, Message: msg})
}
