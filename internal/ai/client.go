// Package ai defines the interface for text-generation model calls and
// provides Gemini, Anthropic and OpenAI-compatible implementations.
package ai

import (
	"context"
	"fmt"
)

// FieldType is the JSON type a model is asked to produce for one field.
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldString FieldType = "string"
)

// Field describes one top-level key of the JSON object the model must return.
type Field struct {
	Name        string
	Type        FieldType
	Description string
}

// Shape is the target output shape: a single JSON object with these fields,
// in this order. Providers that support structured output turn it into a
// response schema; the others rely on the prompt text alone.
type Shape struct {
	Fields []Field
}

// Prompt is everything a Generator needs for one call.
type Prompt struct {
	// System sets the model's role. May be empty.
	System string

	// User is the rendered request text.
	User string

	// Shape is the JSON object shape the caller expects back.
	Shape Shape
}

// Generator is the narrow interface the assessment service uses to reach a
// model. One Generate call is exactly one outbound request; implementations
// never retry.
//
// The returned string is the model's raw text. Callers must treat it as
// untrusted input and validate it themselves.
//
// Implementations must be safe to call concurrently.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)

	// Name identifies the provider, e.g. "gemini". Used for audit records.
	Name() string
}

// StatusError is returned when the provider answered but refused the request:
// a non-2xx HTTP status or an error envelope in the body.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %.200s", e.Provider, e.StatusCode, e.Message)
}
