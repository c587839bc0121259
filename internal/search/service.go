// Package search exposes semantic queries and question answering over
// the stored drawing records.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/llm"
	"github.com/drafthaus/cadindex/internal/observability"
	"github.com/drafthaus/cadindex/internal/store"
)

// Querier is the store surface the service needs.
type Querier interface {
	Query(ctx context.Context, text string, k int, kindFilter domain.FileKind) ([]store.SearchResult, error)
}

// Answer is a question-answering response with its supporting records.
type Answer struct {
	Text    string
	Sources []store.SearchResult
}

// Service runs searches and grounded question answering.
type Service struct {
	querier Querier
	gen     llm.Generator
	logger  *observability.Logger
}

// NewService creates a search service. gen may be nil, limiting Ask to
// the deterministic summary answer.
func NewService(querier Querier, gen llm.Generator, logger *observability.Logger) *Service {
	return &Service{querier: querier, gen: gen, logger: logger.WithComponent("search")}
}

// Query returns up to k records ranked by similarity to text.
func (s *Service) Query(ctx context.Context, text string, k int, kind domain.FileKind) ([]store.SearchResult, error) {
	results, err := s.querier.Query(ctx, text, k, kind)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return results, nil
}

// Ask answers a question using the top-k matching drawings as context.
// When the model is unavailable the answer degrades to a listing of
// the matches, never an error, as long as the query itself succeeds.
func (s *Service) Ask(ctx context.Context, question string, k int) (*Answer, error) {
	results, err := s.querier.Query(ctx, question, k, "")
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	if len(results) == 0 {
		return &Answer{Text: "No matching drawings found."}, nil
	}

	if s.gen != nil && s.gen.Available() {
		text, err := s.gen.Generate(ctx, answerPrompt(question, results), llm.Options{Temperature: 0.2, MaxTokens: 500})
		if err == nil && strings.TrimSpace(text) != "" {
			return &Answer{Text: strings.TrimSpace(text), Sources: results}, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("Answer generation failed, falling back to listing")
		}
	}
	return &Answer{Text: listingAnswer(results), Sources: results}, nil
}

func answerPrompt(question string, results []store.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the drawing records below. ")
	sb.WriteString("If they do not contain the answer, say so.\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "Drawing %d (%s): %s\n", i+1, r.Record.Filename, r.Record.Description)
	}
	sb.WriteString("\nQuestion: " + question)
	return sb.String()
}

func listingAnswer(results []store.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Closest matching drawings:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, r.Record.Filename, r.Record.Description)
	}
	return sb.String()
}
