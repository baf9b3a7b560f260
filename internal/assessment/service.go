package assessment

import (
	"context"

	"github.com/nyashahama/vitalwatch-backend/internal/ai"
)

// Service runs risk assessments against one Generator. It has no mutable
// state, so a single Service is safe for any number of concurrent callers.
type Service struct {
	gen ai.Generator
}

// NewService returns a Service that submits prompts to gen.
func NewService(gen ai.Generator) *Service {
	return &Service{gen: gen}
}

// Provider reports the name of the underlying Generator.
func (s *Service) Provider() string { return s.gen.Name() }

// Assess validates req, makes exactly one Generate call, and parses the
// answer. Errors are *ValidationError (no call made), *TransportError, or
// *SchemaError. Timeouts and cancellation come from ctx; Assess imposes none.
func (s *Service) Assess(ctx context.Context, req HealthProfileRequest) (Result, error) {
	valid, err := req.Validate()
	if err != nil {
		return Result{}, err
	}

	raw, err := s.gen.Generate(ctx, BuildPrompt(valid))
	if err != nil {
		return Result{}, &TransportError{Provider: s.gen.Name(), Err: err}
	}

	return ParseResult(raw)
}

// Outcome is the single value delivered by Submit.
type Outcome struct {
	Result Result
	Err    error
}

// Submit runs Assess in its own goroutine and returns a channel that
// receives exactly one Outcome. The channel is buffered, so abandoning it
// leaks nothing once ctx ends the call.
func (s *Service) Submit(ctx context.Context, req HealthProfileRequest) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		res, err := s.Assess(ctx, req)
		out <- Outcome{Result: res, Err: err}
		close(out)
	}()
	return out
}
