package service

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest rejects a sync call outright (empty or missing user id).
// Everything below it in the taxonomy is recovered locally.
var ErrInvalidRequest = errors.New("user id must not be empty")

// ConversionError marks a single malformed entity. The entity is skipped;
// the rest of its batch proceeds.
type ConversionError struct {
	Kind   string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s payload: %s", e.Kind, e.Reason)
}
