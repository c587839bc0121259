package llm

import (
	"context"

	"github.com/drafthaus/cadindex/internal/domain"
)

// Mock is a scripted Generator for tests.
type Mock struct {
	// Responses are returned in order; after exhaustion the last one
	// repeats.
	Responses []string
	// Err, when set, is returned from every call.
	Err error
	// Unavailable forces Available() to report false.
	Unavailable bool

	// Calls records every prompt received.
	Calls []string
}

// Generate returns the next scripted response.
func (m *Mock) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m.Calls = append(m.Calls, prompt)
	if m.Unavailable {
		return "", domain.ErrAIUnavailable
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", domain.ErrAIUnavailable
	}
	idx := len(m.Calls) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Available reports the scripted availability.
func (m *Mock) Available() bool {
	return !m.Unavailable
}

var _ Generator = (*Mock)(nil)
