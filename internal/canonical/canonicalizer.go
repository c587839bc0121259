// Package canonical turns a parsed drawing document into the single
// search-ready record the rest of the system stores and queries.
package canonical

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/drafthaus/cadindex/internal/cache"
	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/llm"
	"github.com/drafthaus/cadindex/internal/observability"
)

// rawTextExcerpt bounds how much recovered text goes into AI prompts.
const rawTextExcerpt = 1500

// descriptionTTL bounds how long cached AI descriptions survive.
const descriptionTTL = 30 * 24 * time.Hour

// Canonicalizer assembles canonical records. The language model is
// optional at every step: descriptions fall back to a deterministic
// template and spec extraction degrades to an empty map.
type Canonicalizer struct {
	gen    llm.Generator
	cache  cache.Client
	logger *observability.Logger
}

// NewCanonicalizer creates a canonicalizer. gen and descriptionCache
// may each be nil.
func NewCanonicalizer(gen llm.Generator, descriptionCache cache.Client, logger *observability.Logger) *Canonicalizer {
	return &Canonicalizer{gen: gen, cache: descriptionCache, logger: logger.WithComponent("canonical")}
}

// Canonicalize builds the canonical record for a document.
func (c *Canonicalizer) Canonicalize(ctx context.Context, doc *domain.DrawingDocument) domain.CanonicalRecord {
	abs, err := filepath.Abs(doc.SourcePath)
	if err != nil {
		abs = doc.SourcePath
	}

	contentID := doc.ContentID
	if contentID == "" {
		contentID = domain.ContentID(doc.SourcePath)
	}

	summary := Summary(doc)
	description := c.describe(ctx, contentID, doc, summary)
	specs := c.extractSpecs(ctx, doc.RawText)

	searchable := strings.TrimSpace(description + " " + summary + " " + doc.RawText)

	return domain.CanonicalRecord{
		ContentID:      contentID,
		Filename:       filepath.Base(abs),
		AbsolutePath:   abs,
		FileKind:       fileKind(doc.SourceFormat),
		Description:    description,
		SearchableText: searchable,
		Specs:          specs,
		CSVData:        FlattenCSV(doc),
		EntityCount:    len(doc.Entities),
		LayerCount:     len(doc.Layers),
		BlockCount:     len(doc.Blocks),
	}
}

func fileKind(format domain.SourceFormat) domain.FileKind {
	if format == domain.FormatPDF {
		return domain.KindPDF
	}
	return domain.KindDWG
}

// describe asks the model for a drawing description and falls back to
// the deterministic template on any failure. The result is never
// empty. Model responses are cached per content id so reprocessing a
// path skips the round trip.
func (c *Canonicalizer) describe(ctx context.Context, contentID string, doc *domain.DrawingDocument, summary string) string {
	cacheKey := "desc:" + contentID
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			return string(cached)
		}
	}

	if c.gen != nil && c.gen.Available() {
		text, err := c.gen.Generate(ctx, describePrompt(doc, summary), llm.Options{Temperature: 0.3, MaxTokens: 300})
		if err == nil && strings.TrimSpace(text) != "" {
			description := strings.TrimSpace(text)
			if c.cache != nil {
				if err := c.cache.Set(ctx, cacheKey, []byte(description), descriptionTTL); err != nil {
					c.logger.Debug().Err(err).Msg("Description cache write failed")
				}
			}
			return description
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("file", doc.SourcePath).Msg("Description generation failed, using template")
		}
	}
	return templateDescription(doc, summary)
}

func describePrompt(doc *domain.DrawingDocument, summary string) string {
	excerpt := doc.RawText
	if len(excerpt) > rawTextExcerpt {
		excerpt = excerpt[:rawTextExcerpt]
	}

	var sb strings.Builder
	sb.WriteString("Write a concise 2-3 sentence description of this technical drawing for a search index. ")
	sb.WriteString("Mention what the drawing likely depicts and its key dimensions if evident.\n\n")
	fmt.Fprintf(&sb, "Filename: %s\n", filepath.Base(doc.SourcePath))
	if summary != "" {
		fmt.Fprintf(&sb, "Entity summary: %s\n", summary)
	}
	if excerpt != "" {
		fmt.Fprintf(&sb, "Text found on drawing: %s\n", excerpt)
	}
	return sb.String()
}

// templateDescription is the deterministic fallback. It always yields
// a non-empty sentence, even for an empty document.
func templateDescription(doc *domain.DrawingDocument, summary string) string {
	name := filepath.Base(doc.SourcePath)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Technical drawing %s with %d entities across %d layers.", name, len(doc.Entities), len(doc.Layers))
	if summary != "" {
		sb.WriteString(" " + summary)
	}
	return sb.String()
}

// extractSpecs requests a key-value specification map from the model.
// Code fences around the JSON are tolerated. Any failure yields an
// empty map, never an error.
func (c *Canonicalizer) extractSpecs(ctx context.Context, rawText string) map[string]any {
	specs := map[string]any{}
	if c.gen == nil || !c.gen.Available() || strings.TrimSpace(rawText) == "" {
		return specs
	}

	excerpt := rawText
	if len(excerpt) > rawTextExcerpt {
		excerpt = excerpt[:rawTextExcerpt]
	}
	prompt := "Extract technical specifications from this drawing text as a flat JSON object " +
		"(keys like bore, rod, stroke, material, scale; values as strings). " +
		"Respond with JSON only.\n\nText:\n" + excerpt

	answer, err := c.gen.Generate(ctx, prompt, llm.Options{Temperature: 0, MaxTokens: 400})
	if err != nil {
		c.logger.Warn().Err(err).Msg("Spec extraction failed")
		return specs
	}

	cleaned := llm.StripCodeFences(answer)
	if err := json.Unmarshal([]byte(cleaned), &specs); err != nil {
		c.logger.Debug().Err(err).Msg("Spec extraction returned non-JSON")
		return map[string]any{}
	}
	return specs
}
