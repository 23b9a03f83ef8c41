package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by id or code finds nothing. Handlers
// surface it as a generic "not found" without distinguishing unknown syntax
// from genuinely absent records.
var ErrNotFound = errors.New("record not found")

// ValidationError carries field-level detail for malformed or
// out-of-enumeration input. Nothing is persisted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
