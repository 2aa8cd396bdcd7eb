package model

import (
	"fmt"
	"regexp"
	"strings"
)

// requestIDPattern matches allocated request identifiers, e.g. "R001".
var requestIDPattern = regexp.MustCompile(`^R[0-9]{3,}$`)

// IsRequestID reports whether s looks like an allocated request identifier.
func IsRequestID(s string) bool {
	return requestIDPattern.MatchString(s)
}

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateRequest checks a Request for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the request is valid.
func ValidateRequest(r *Request) error {
	var ve ValidationError

	if !IsRequestID(r.ID) {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "id",
			Message: fmt.Sprintf("invalid identifier %q", r.ID),
		})
	}

	if strings.TrimSpace(r.AuthorID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "author_id", Message: "is required"})
	}

	if !r.Status.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "status",
			Message: fmt.Sprintf("invalid value %q", r.Status),
		})
	}

	for i, attr := range r.Attrs {
		if strings.TrimSpace(attr.Key) == "" {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   fmt.Sprintf("attrs[%d].key", i),
				Message: "is required",
			})
		}
	}

	// ClosedAt consistency with Status.
	if r.Status == StatusClosed && r.ClosedAt == nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "closed_at",
			Message: "is required when status is closed",
		})
	}
	if r.Status != StatusClosed && r.ClosedAt != nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "closed_at",
			Message: "must be nil when status is not closed",
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
