// Package ocr rasterizes PDF pages and runs them through Tesseract.
// Engineering sheets defeat naive OCR: hatch shading, dimension leader
// lines and tiny annotation fonts all generate garbage unless the page
// is cleaned up first, so each page is preprocessed and then tried
// under several Tesseract segmentation modes, keeping the best-scoring
// result.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/drafthaus/cadindex/internal/observability"
)

// Segmentation modes tried per page, most promising first. 6 treats
// the page as a uniform block, 11 finds sparse text, 3 and 4 are the
// generic layouts.
var segmentationModes = []string{"6", "11", "3", "4"}

// charWhitelist restricts recognition to characters that occur on
// mechanical drawings, which suppresses most hatch-pattern noise.
const charWhitelist = `ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789.,:;()[]{}/-+=%#"'@ `

// Config controls the OCR engine.
type Config struct {
	// Path overrides binary discovery with an explicit tesseract path.
	Path string
	// Enabled gates the whole engine.
	Enabled bool
	// DPI is the render resolution for page rasterization.
	DPI int
	// ScoreThreshold stops scanning further pages once the best text
	// seen so far scores above it.
	ScoreThreshold int
}

// Engine runs Tesseract over rendered PDF pages.
type Engine struct {
	cfg    Config
	logger *observability.Logger

	// recognize is the per-page recognition step, replaceable in tests.
	recognize func(ctx context.Context, img image.Image) (string, int)

	detectOnce sync.Once
	binPath    string
}

// NewEngine creates an OCR engine. Binary discovery is deferred to the
// first Available or Document call.
func NewEngine(cfg Config, logger *observability.Logger) *Engine {
	if cfg.DPI <= 0 {
		cfg.DPI = 500
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 20
	}
	e := &Engine{cfg: cfg, logger: logger.WithComponent("ocr")}
	e.recognize = e.recognizePage
	return e
}

// Available reports whether a tesseract binary can be found.
func (e *Engine) Available() bool {
	if !e.cfg.Enabled {
		return false
	}
	e.detect()
	return e.binPath != ""
}

func (e *Engine) detect() {
	e.detectOnce.Do(func() {
		if e.cfg.Path != "" {
			if _, err := os.Stat(e.cfg.Path); err == nil {
				e.binPath = e.cfg.Path
				return
			}
			e.logger.Warn().Str("path", e.cfg.Path).Msg("Configured tesseract path does not exist")
		}
		if path, err := exec.LookPath("tesseract"); err == nil {
			e.binPath = path
		}
		if e.binPath == "" {
			e.logger.Info().Msg("Tesseract not found, OCR disabled")
		}
	})
}

// Document OCRs up to maxPages pages and returns the single
// highest-scoring text seen across all pages and segmentation modes.
// Scanning stops early once the running best clears the threshold.
// Pages that fail to render or recognize contribute nothing; the error
// return is reserved for the engine being unusable.
func (e *Engine) Document(ctx context.Context, pdfPath string, maxPages int) (string, error) {
	if !e.Available() {
		return "", fmt.Errorf("tesseract binary not available")
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open pdf for ocr: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	render := func(page int) (image.Image, error) {
		return doc.ImageDPI(page, float64(e.cfg.DPI))
	}
	return e.scan(ctx, render, pages), nil
}

// scan runs recognition page by page, retaining only the best text of
// the whole document. A page full of hatch garbage never dilutes a
// later page's clean title block.
func (e *Engine) scan(ctx context.Context, render func(page int) (image.Image, error), pages int) string {
	bestText, bestScore := "", 0
	for page := 0; page < pages; page++ {
		img, err := render(page)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", page+1).Msg("Page render failed")
			continue
		}
		text, score := e.recognize(ctx, prepare(img))
		e.logger.Debug().Int("page", page+1).Int("score", score).Msg("Page OCR complete")
		if score > bestScore || (bestText == "" && text != "" && score == bestScore) {
			bestText, bestScore = text, score
		}
		if bestScore > e.cfg.ScoreThreshold {
			break
		}
	}
	return strings.TrimSpace(bestText)
}

// recognizePage tries each segmentation mode and keeps the
// highest-scoring text. A mode that scores above the threshold wins
// immediately.
func (e *Engine) recognizePage(ctx context.Context, img image.Image) (string, int) {
	tmp, err := writeTempPNG(img)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Could not stage page image")
		return "", 0
	}
	defer os.Remove(tmp)

	bestText, bestScore := "", -1
	for _, psm := range segmentationModes {
		text, err := e.runTesseract(ctx, tmp, psm)
		if err != nil {
			continue
		}
		score := scoreText(text)
		if score > bestScore {
			bestText, bestScore = text, score
		}
		if score > e.cfg.ScoreThreshold {
			break
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return strings.TrimSpace(bestText), bestScore
}

func (e *Engine) runTesseract(ctx context.Context, imagePath, psm string) (string, error) {
	cmd := exec.CommandContext(ctx, e.binPath,
		imagePath, "stdout",
		"--psm", psm,
		"-c", "tessedit_char_whitelist="+charWhitelist,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract psm %s: %w: %s", psm, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func writeTempPNG(img image.Image) (string, error) {
	f, err := os.CreateTemp("", "ocr-page-*.png")
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}
