package apperrors

import (
	"fmt"
	"strings"
)

// ValidationError reports one or more rejected input fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

func NewValidation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// ReferenceIntegrityError reports a partially failed cascade update.
// Updated lists the tables that were rewritten before the failure,
// Failures maps table name to the error encountered.
type ReferenceIntegrityError struct {
	Updated  []string
	Failures map[string]error
}

func (e *ReferenceIntegrityError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for table, err := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", table, err))
	}
	return "reference cleanup failed: " + strings.Join(parts, "; ")
}
