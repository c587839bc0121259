// Package pdftext recovers text from PDF drawing sheets. Three
// strategies are tried in strict order, the first usable result
// winning: the MuPDF text layer, the pdfcpu content-stream reader, and
// finally OCR over rendered pages.
package pdftext

import (
	"context"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/drafthaus/cadindex/internal/observability"
)

// OCRRunner is the optical-character-recognition stage. It is only
// invoked when both embedded-text engines come up empty.
type OCRRunner interface {
	Available() bool
	Document(ctx context.Context, pdfPath string, maxPages int) (string, error)
}

// engine is one embedded-text recovery strategy.
type engine struct {
	name    string
	extract func(pdfPath string) string
}

// Extractor implements the text-recovery chain.
type Extractor struct {
	logger      *observability.Logger
	engines     []engine
	ocr         OCRRunner
	ocrMaxPages int
}

// NewExtractor creates a text extractor. ocr may be nil, disabling the
// OCR stage entirely.
func NewExtractor(logger *observability.Logger, ocr OCRRunner, ocrMaxPages int) *Extractor {
	if ocrMaxPages <= 0 {
		ocrMaxPages = 5
	}
	x := &Extractor{
		logger:      logger.WithComponent("pdftext"),
		ocr:         ocr,
		ocrMaxPages: ocrMaxPages,
	}
	x.engines = []engine{
		{name: "mupdf", extract: x.extractWithFitz},
		{name: "pdfcpu", extract: extractWithPDFCPU},
	}
	return x
}

// Extract returns the best available text for a PDF. It never fails:
// total failure yields an empty string.
func (x *Extractor) Extract(ctx context.Context, pdfPath string) string {
	for _, eng := range x.engines {
		if text := eng.extract(pdfPath); usable(text) {
			x.logger.Debug().Str("file", pdfPath).Str("engine", eng.name).Msg("Recovered embedded text")
			return text
		}
	}

	if x.ocr != nil && x.ocr.Available() {
		text, err := x.ocr.Document(ctx, pdfPath, x.ocrMaxPages)
		if err != nil {
			x.logger.Warn().Err(err).Str("file", pdfPath).Msg("OCR failed")
			return ""
		}
		if usable(text) {
			x.logger.Debug().Str("file", pdfPath).Str("engine", "ocr").Msg("Recovered text via OCR")
			return text
		}
	}

	return ""
}

// extractWithFitz reads the embedded text layer via MuPDF.
func (x *Extractor) extractWithFitz(pdfPath string) string {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		x.logger.Debug().Err(err).Str("file", pdfPath).Msg("MuPDF could not open document")
		return ""
	}
	defer doc.Close()

	var sb strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// usable reports whether recovered text is worth keeping.
func usable(text string) bool {
	return strings.TrimSpace(text) != ""
}
