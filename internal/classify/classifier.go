// Package classify decides whether a PDF is a technical drawing or an
// ordinary document. Dense vector linework on the first page is
// decisive on its own; otherwise the recovered text is put to the
// language model, and when neither signal is available the inclusion
// bias settles it.
package classify

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/llm"
	"github.com/drafthaus/cadindex/internal/observability"
)

// Config controls classification.
type Config struct {
	// VectorThreshold is the first-page line/rect operator count at or
	// above which a PDF is accepted without consulting the model.
	VectorThreshold int
	// Bias resolves the undecidable cases.
	Bias domain.InclusionBias
	// TextPrefix caps how much recovered text is sent to the model.
	TextPrefix int
}

// Classifier applies the drawing/non-drawing decision.
type Classifier struct {
	cfg    Config
	gen    llm.Generator
	logger *observability.Logger
}

// NewClassifier creates a classifier. gen may be nil, in which case
// only the vector-density signal and the bias apply.
func NewClassifier(cfg Config, gen llm.Generator, logger *observability.Logger) *Classifier {
	if cfg.VectorThreshold <= 0 {
		cfg.VectorThreshold = 1800
	}
	if cfg.Bias == "" {
		cfg.Bias = domain.BiasPermissive
	}
	if cfg.TextPrefix <= 0 {
		cfg.TextPrefix = 2000
	}
	return &Classifier{cfg: cfg, gen: gen, logger: logger.WithComponent("classify")}
}

// IsDrawing reports whether the PDF at pdfPath should be treated as a
// technical drawing. text is the already-recovered document text.
func (c *Classifier) IsDrawing(ctx context.Context, pdfPath, text string) bool {
	if count := firstPageVectorOps(pdfPath); count >= c.cfg.VectorThreshold {
		c.logger.Debug().Str("file", pdfPath).Int("vector_ops", count).Msg("Accepted on vector density")
		return true
	}

	if strings.TrimSpace(text) == "" || c.gen == nil || !c.gen.Available() {
		return c.biasDefault()
	}

	verdict, err := c.askModel(ctx, text)
	if err != nil {
		c.logger.Warn().Err(err).Str("file", pdfPath).Msg("Classification query failed")
		return c.biasDefault()
	}
	return verdict
}

func (c *Classifier) biasDefault() bool {
	return c.cfg.Bias != domain.BiasStrict
}

// askModel poses a strict yes/no question over a bounded text prefix.
// Anything the model says that does not parse as yes or no falls back
// to the bias.
func (c *Classifier) askModel(ctx context.Context, text string) (bool, error) {
	prefix := text
	if len(prefix) > c.cfg.TextPrefix {
		prefix = prefix[:c.cfg.TextPrefix]
	}

	prompt := "You are looking at text extracted from a PDF file. Decide whether the file is a " +
		"technical or engineering drawing (CAD drawing, blueprint, mechanical part drawing, " +
		"assembly drawing) as opposed to an ordinary document such as a report, invoice or manual.\n\n" +
		"Answer with a single word: yes or no.\n\nExtracted text:\n" + prefix

	answer, err := c.gen.Generate(ctx, prompt, llm.Options{Temperature: 0, MaxTokens: 8})
	if err != nil {
		return false, err
	}

	normalized := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case strings.HasPrefix(normalized, "yes"), normalized == "y":
		return true, nil
	case strings.HasPrefix(normalized, "no"), normalized == "n":
		return false, nil
	}
	// The model sometimes wraps the verdict in a sentence. Scan for a
	// bare yes/no anywhere before giving up.
	hasYes := containsWord(normalized, "yes")
	hasNo := containsWord(normalized, "no")
	switch {
	case hasYes && !hasNo:
		return true, nil
	case hasNo && !hasYes:
		return false, nil
	}
	return c.biasDefault(), nil
}

func containsWord(s, word string) bool {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		if tok == word {
			return true
		}
	}
	return false
}

// firstPageVectorOps counts lineto and rectangle operators on the
// first page's content stream. CAD exports are mostly linework, so the
// count runs into the thousands where text documents stay near zero.
func firstPageVectorOps(pdfPath string) int {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil || ctx.PageCount == 0 {
		return 0
	}

	r, err := pdfcpu.ExtractPageContent(ctx, 1)
	if err != nil {
		return 0
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0
	}
	return countVectorOps(data)
}

// countVectorOps tallies standalone "l" and "re" tokens in a content
// stream.
func countVectorOps(data []byte) int {
	count := 0
	for _, tok := range bytes.Fields(data) {
		if bytes.Equal(tok, []byte("l")) || bytes.Equal(tok, []byte("re")) {
			count++
		}
	}
	return count
}
