package calendar

import (
	"strings"
)

// FieldError describes a problem with a single draft field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned when a draft cannot become an event. The store
// is left unchanged.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(flds ...FieldError) error {
	return &ValidationError{Fields: flds}
}

func (err *ValidationError) Error() string {
	parts := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

// Field returns the message for field, or "" when the field is valid.
func (err *ValidationError) Field(name string) string {
	for _, f := range err.Fields {
		if f.Field == name {
			return f.Error
		}
	}
	return ""
}
