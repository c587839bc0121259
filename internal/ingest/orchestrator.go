// Package ingest sequences the pipeline per file: conversion,
// extraction, classification, canonicalization and persistence, with
// the idempotency and failure contract callers rely on.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/drafthaus/cadindex/internal/canonical"
	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/observability"
)

// Status is the per-file ingestion outcome.
type Status string

const (
	StatusAdded          Status = "added"
	StatusAlreadyPresent Status = "already_present"
	StatusSkipped        Status = "skipped"
	StatusFailed         Status = "failed"
)

// Result reports one file's ingestion outcome. Reason is set for
// skipped and failed results.
type Result struct {
	Path      string
	ContentID string
	Status    Status
	Reason    string
}

// Storage is the persistence surface the orchestrator needs.
type Storage interface {
	Exists(ctx context.Context, contentID string) (bool, error)
	Upsert(ctx context.Context, rec domain.CanonicalRecord) error
}

// Converter turns binary CAD files into the exchange format. The
// returned cleanup func removes the conversion's scratch artifacts and
// is safe to call exactly once.
type Converter interface {
	Available() bool
	Convert(ctx context.Context, path string) (string, func(), error)
}

// GeometryExtractor parses exchange-format files into documents.
type GeometryExtractor interface {
	ExtractFile(path string) (*domain.DrawingDocument, error)
}

// TextExtractor recovers text from PDFs, never failing.
type TextExtractor interface {
	Extract(ctx context.Context, pdfPath string) string
}

// Classifier decides whether a PDF is a technical drawing.
type Classifier interface {
	IsDrawing(ctx context.Context, pdfPath, text string) bool
}

// Orchestrator runs the ingestion state machine.
type Orchestrator struct {
	storage    Storage
	converter  Converter
	geometry   GeometryExtractor
	text       TextExtractor
	classifier Classifier
	canon      *canonical.Canonicalizer
	logger     *observability.Logger
}

// NewOrchestrator wires the pipeline. converter may be nil when DWG
// conversion is disabled.
func NewOrchestrator(
	storage Storage,
	converter Converter,
	geometry GeometryExtractor,
	text TextExtractor,
	classifier Classifier,
	canon *canonical.Canonicalizer,
	logger *observability.Logger,
) *Orchestrator {
	return &Orchestrator{
		storage:    storage,
		converter:  converter,
		geometry:   geometry,
		text:       text,
		classifier: classifier,
		canon:      canon,
		logger:     logger.WithComponent("ingest"),
	}
}

// Ingest processes one file. It never panics out: any failure becomes
// a Failed result so batch callers keep going.
func (o *Orchestrator) Ingest(ctx context.Context, path string) (result Result) {
	contentID := domain.ContentID(path)
	result = Result{Path: path, ContentID: contentID}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("file", path).Interface("panic", r).Msg("Ingestion panicked")
			result.Status = StatusFailed
			result.Reason = fmt.Sprintf("internal error: %v", r)
		}
	}()

	exists, err := o.storage.Exists(ctx, contentID)
	if err != nil {
		result.Status = StatusFailed
		result.Reason = "storage check failed: " + err.Error()
		return result
	}
	if exists {
		o.logger.Debug().Str("file", path).Msg("Already ingested")
		result.Status = StatusAlreadyPresent
		return result
	}

	var doc *domain.DrawingDocument
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".dwg", ".dxf":
		doc, err = o.extractCAD(ctx, path)
		if err != nil {
			result.Status = StatusFailed
			result.Reason = err.Error()
			return result
		}
	case ".pdf":
		var skip bool
		doc, skip = o.extractPDF(ctx, path)
		if skip {
			result.Status = StatusSkipped
			result.Reason = "not_a_drawing"
			return result
		}
	default:
		result.Status = StatusFailed
		result.Reason = "unsupported file type: " + ext
		return result
	}

	doc.ContentID = contentID
	rec := o.canon.Canonicalize(ctx, doc)
	if err := o.storage.Upsert(ctx, rec); err != nil {
		result.Status = StatusFailed
		result.Reason = "persist failed: " + err.Error()
		return result
	}

	o.logger.Info().Str("file", path).
		Int("entities", rec.EntityCount).
		Int("layers", rec.LayerCount).
		Msg("Ingested")
	result.Status = StatusAdded
	return result
}

// extractCAD parses a CAD file, converting from the binary format and
// retrying the parse once when the direct parse reports a format
// error. Conversion scratch files are removed on every exit path.
func (o *Orchestrator) extractCAD(ctx context.Context, path string) (*domain.DrawingDocument, error) {
	doc, err := o.geometry.ExtractFile(path)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, domain.ErrFormat) {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	if o.converter == nil || !o.converter.Available() {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrConversionUnavailable)
	}

	o.logger.Debug().Str("file", path).Msg("Direct parse failed, converting")
	converted, cleanup, err := o.converter.Convert(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}
	defer cleanup()

	doc, err = o.geometry.ExtractFile(converted)
	if err != nil {
		return nil, fmt.Errorf("parse of converted file failed: %w", err)
	}
	// The document should carry the identity of the original file, not
	// the scratch artifact.
	doc.SourcePath = path
	doc.SourceFormat = domain.FormatCADBinary
	return doc, nil
}

// extractPDF recovers text and classifies. skip is true when the
// classifier judges the file not to be a drawing.
func (o *Orchestrator) extractPDF(ctx context.Context, path string) (doc *domain.DrawingDocument, skip bool) {
	text := o.text.Extract(ctx, path)
	if !o.classifier.IsDrawing(ctx, path, text) {
		o.logger.Info().Str("file", path).Msg("Classifier rejected PDF")
		return nil, true
	}
	return &domain.DrawingDocument{
		SourcePath:     path,
		SourceFormat:   domain.FormatPDF,
		RawText:        text,
		Classification: domain.ClassificationAccepted,
	}, false
}

// IngestBatch processes many files sequentially, one Result per path.
// A failure on one file never aborts the rest. Cancelling the context
// skips the remaining files; the file in flight runs to completion.
func (o *Orchestrator) IngestBatch(ctx context.Context, paths []string, onResult func(Result)) []Result {
	batchID := uuid.NewString()
	logger := o.logger
	logger.Info().Str("batch_id", batchID).Int("files", len(paths)).Msg("Batch started")

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			logger.Warn().Str("batch_id", batchID).Msg("Batch cancelled")
			break
		}
		res := o.Ingest(ctx, path)
		results = append(results, res)
		if onResult != nil {
			onResult(res)
		}
	}

	logger.Info().Str("batch_id", batchID).Int("processed", len(results)).Msg("Batch finished")
	return results
}

// SupportedExtensions lists the file extensions the orchestrator
// accepts, used by directory scanning.
var SupportedExtensions = map[string]bool{
	".dwg": true,
	".dxf": true,
	".pdf": true,
}

// ScanDir walks root and returns the ingestable files in walk order.
func ScanDir(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return paths, nil
}
