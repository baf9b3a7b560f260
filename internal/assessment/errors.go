package assessment

import (
	"errors"
	"fmt"
	"strings"
)

// FieldProblem is one invariant violation on a HealthProfileRequest.
type FieldProblem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned before any model call when the request breaks
// an invariant. No network resource has been used.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + " " + p.Reason
	}
	return "assessment: invalid request: " + strings.Join(parts, "; ")
}

// Fields returns the problems keyed by field name.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		out[p.Field] = p.Reason
	}
	return out
}

// TransportError wraps whatever the model collaborator returned: network
// failure, timeout, cancellation, or a non-success status. Unwrap exposes the
// original error so callers can match on context.DeadlineExceeded or
// *ai.StatusError.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("assessment: %s call failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError is returned when the model answered but the answer does not
// fit the result shape: not a single JSON object, a missing or mistyped
// field, or a value outside its declared range.
type SchemaError struct {
	// Field is the offending key, or empty when the whole body is unusable.
	Field  string
	Reason string

	// Raw is the start of the model's response, for diagnostics.
	Raw string

	Err error
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("assessment: malformed model response: %s (raw: %.200s)", e.Reason, e.Raw)
	}
	return fmt.Sprintf("assessment: malformed model response: %s %s (raw: %.200s)", e.Field, e.Reason, e.Raw)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Kind classifies err into "validation", "transport" or "schema", or returns
// "" for errors that did not come from Assess.
func Kind(err error) string {
	var (
		ve *ValidationError
		te *TransportError
		se *SchemaError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &se):
		return "schema"
	default:
		return ""
	}
}
