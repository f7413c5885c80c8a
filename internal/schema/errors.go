package schema

import (
	"errors"
	"fmt"
)

// ErrSchemaValidation is matched by every SchemaValidationError.
var ErrSchemaValidation = errors.New("schema validation failed")

// noSection is the Section index of errors that concern a page or the
// document rather than a single section.
const noSection = -1

// SchemaValidationError names the first invariant a canonical document
// violates.
type SchemaValidationError struct {
	// Page is the slug of the offending page, or "" for document-level
	// violations. Pages without a slug are named by their index.
	Page string

	// Section is the index of the offending section, or -1.
	Section int

	// Field is the missing or invalid field.
	Field string

	// Reason describes the violation.
	Reason string
}

func (e *SchemaValidationError) Error() string {
	switch {
	case e.Page == "":
		return fmt.Sprintf("schema validation: %s: %s", e.Field, e.Reason)
	case e.Section == noSection:
		return fmt.Sprintf("schema validation: page %s: %s: %s", e.Page, e.Field, e.Reason)
	default:
		return fmt.Sprintf("schema validation: page %s section %d: %s: %s", e.Page, e.Section, e.Field, e.Reason)
	}
}

// Is makes errors.Is(err, ErrSchemaValidation) true for any SchemaValidationError.
func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}
