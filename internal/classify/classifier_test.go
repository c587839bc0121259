package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/llm"
	"github.com/drafthaus/cadindex/internal/observability"
)

func newTestClassifier(bias domain.InclusionBias, gen llm.Generator) *Classifier {
	return NewClassifier(Config{Bias: bias}, gen, observability.Nop())
}

func TestIsDrawing_PermissiveDefaultOnEmptyText(t *testing.T) {
	c := newTestClassifier(domain.BiasPermissive, nil)
	// Unreadable path: no vector signal either, so the bias decides.
	assert.True(t, c.IsDrawing(context.Background(), "/nonexistent.pdf", ""))
}

func TestIsDrawing_StrictDefaultOnEmptyText(t *testing.T) {
	c := newTestClassifier(domain.BiasStrict, nil)
	assert.False(t, c.IsDrawing(context.Background(), "/nonexistent.pdf", ""))
}

func TestIsDrawing_ModelVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		response string
		bias     domain.InclusionBias
		want     bool
	}{
		{"plain yes", "yes", domain.BiasStrict, true},
		{"uppercase yes", "YES", domain.BiasStrict, true},
		{"yes with trailing prose", "Yes, this is a mechanical drawing.", domain.BiasStrict, true},
		{"plain no", "no", domain.BiasPermissive, false},
		{"no with punctuation", "No.", domain.BiasPermissive, false},
		{"yes buried in a sentence", "It is a drawing, yes.", domain.BiasStrict, true},
		{"no buried in a sentence", "I believe the answer is no here.", domain.BiasPermissive, false},
		{"both words fall back to bias", "Hard to say, no strong signal, maybe yes.", domain.BiasStrict, false},
		{"garbage falls back to permissive", "maybe?", domain.BiasPermissive, true},
		{"garbage falls back to strict", "maybe?", domain.BiasStrict, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &llm.Mock{Responses: []string{tc.response}}
			c := newTestClassifier(tc.bias, gen)
			got := c.IsDrawing(context.Background(), "/nonexistent.pdf", "GENERAL ARRANGEMENT")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsDrawing_ModelFailureFallsBackToBias(t *testing.T) {
	gen := &llm.Mock{Err: errors.New("network down")}

	assert.True(t, newTestClassifier(domain.BiasPermissive, gen).
		IsDrawing(context.Background(), "/nonexistent.pdf", "some text"))
	assert.False(t, newTestClassifier(domain.BiasStrict, gen).
		IsDrawing(context.Background(), "/nonexistent.pdf", "some text"))
}

func TestIsDrawing_UnavailableModelUsesBias(t *testing.T) {
	gen := &llm.Mock{Unavailable: true}
	c := newTestClassifier(domain.BiasPermissive, gen)
	assert.True(t, c.IsDrawing(context.Background(), "/nonexistent.pdf", "some text"))
	assert.Empty(t, gen.Calls)
}

func TestCountVectorOps(t *testing.T) {
	stream := []byte("0 0 m\n10 0 l\n10 10 l\n0 0 10 10 re\nf\nBT (label) Tj ET\n")
	assert.Equal(t, 3, countVectorOps(stream))
}

func TestCountVectorOps_NoFalsePositives(t *testing.T) {
	// "l" and "re" must be standalone tokens, not substrings.
	stream := []byte("/Helvetica 12 Tf\n(re l) Tj\nrelease\n")
	assert.Equal(t, 0, countVectorOps(stream))
}
