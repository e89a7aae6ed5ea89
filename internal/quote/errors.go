package quote

import (
	"fmt"
	"strings"
)

// MalformedInputError reports a structurally invalid field value, such as a
// non-numeric guest count. It is fatal to the single operation.
type MalformedInputError struct {
	Field string
	Value string
	Msg   string
}

func (e *MalformedInputError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("malformed input for %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("malformed input for %s: %q: %s", e.Field, e.Value, e.Msg)
}

// FieldError is one business rule violation on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects field level violations. It is recoverable by
// re-submitting corrected values.
type ValidationError struct {
	Step   string       `json:"step,omitempty"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	prefix := "validation failed"
	if e.Step != "" {
		prefix = fmt.Sprintf("validation failed at %s", e.Step)
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

// Add appends a violation.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Has reports whether a field was flagged.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no violation was recorded, so callers can build the
// error unconditionally and return it at the end.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// ServiceUnavailableError means a collaborator (distance resolver, catalog or
// configuration provider) failed. It must never be read as a zero price.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// NotServedError is the definite outcome for a delivery distance above the
// configured maximum. No price is produced.
type NotServedError struct {
	PostalCode    string
	DistanceKm    float64
	MaxDistanceKm float64
}

func (e *NotServedError) Error() string {
	return fmt.Sprintf("postal code %s is not served: %.1f km exceeds the %.1f km maximum",
		e.PostalCode, e.DistanceKm, e.MaxDistanceKm)
}
