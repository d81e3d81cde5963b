package canonical

import (
	"errors"
	"fmt"
)

// SchemaViolation reports a value that cannot participate in canonical
// serialization: a non-finite float, a malformed timestamp, an invalid enum
// value, or an out-of-range scalar.
//
// SchemaViolation is raised synchronously at the serialize/validate call
// site and aborts the operation with no partial effect.
type SchemaViolation struct {
	// Field names the offending field or path when known.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *SchemaViolation) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema violation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("schema violation: %s", e.Message)
}

// Violation creates a SchemaViolation for the given field.
func Violation(field, format string, args ...any) *SchemaViolation {
	return &SchemaViolation{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsSchemaViolation returns true if the error is a SchemaViolation.
// Uses errors.As to handle wrapped errors.
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolation
	return errors.As(err, &sv)
}
