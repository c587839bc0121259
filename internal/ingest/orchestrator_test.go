package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drafthaus/cadindex/internal/canonical"
	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/geometry"
	"github.com/drafthaus/cadindex/internal/observability"
)

type fakeStorage struct {
	records   map[string]domain.CanonicalRecord
	upsertErr error
	existsErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{records: map[string]domain.CanonicalRecord{}}
}

func (s *fakeStorage) Exists(ctx context.Context, contentID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.records[contentID]
	return ok, nil
}

func (s *fakeStorage) Upsert(ctx context.Context, rec domain.CanonicalRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.records[rec.ContentID] = rec
	return nil
}

type fakeConverter struct {
	available bool
	output    string
	err       error
	calls     int
	cleanups  int
}

func (c *fakeConverter) Available() bool { return c.available }

func (c *fakeConverter) Convert(ctx context.Context, path string) (string, func(), error) {
	c.calls++
	if c.err != nil {
		return "", nil, c.err
	}
	return c.output, func() { c.cleanups++ }, nil
}

type fakeTextExtractor struct {
	text string
}

func (f *fakeTextExtractor) Extract(ctx context.Context, pdfPath string) string {
	return f.text
}

type fakeClassifier struct {
	verdict bool
}

func (f *fakeClassifier) IsDrawing(ctx context.Context, pdfPath, text string) bool {
	return f.verdict
}

// writeDXF writes code/value pairs as a DXF file in dir.
func writeDXF(t *testing.T, dir, name string, pairs ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(pairs, "\n")+"\n"), 0o644))
	return path
}

// simpleDXF is a parseable document with one LINE entity.
var simpleDXF = []string{
	"0", "SECTION",
	"2", "ENTITIES",
	"0", "LINE",
	"8", "0",
	"10", "0", "20", "0",
	"11", "1", "21", "1",
	"0", "ENDSEC",
	"0", "EOF",
}

func newTestOrchestrator(storage Storage, conv Converter, classifier Classifier, text TextExtractor) *Orchestrator {
	logger := observability.Nop()
	return NewOrchestrator(
		storage,
		conv,
		geometry.NewExtractor(logger),
		text,
		classifier,
		canonical.NewCanonicalizer(nil, nil, logger),
		logger,
	)
}

func TestIngest_AddedThenAlreadyPresent(t *testing.T) {
	storage := newFakeStorage()
	o := newTestOrchestrator(storage, nil, &fakeClassifier{verdict: true}, &fakeTextExtractor{})
	path := writeDXF(t, t.TempDir(), "part.dxf", simpleDXF...)

	first := o.Ingest(context.Background(), path)
	assert.Equal(t, StatusAdded, first.Status)
	assert.Equal(t, domain.ContentID(path), first.ContentID)

	second := o.Ingest(context.Background(), path)
	assert.Equal(t, StatusAlreadyPresent, second.Status)
	assert.Len(t, storage.records, 1)
}

func TestIngest_UnsupportedExtension(t *testing.T) {
	o := newTestOrchestrator(newFakeStorage(), nil, &fakeClassifier{}, &fakeTextExtractor{})
	res := o.Ingest(context.Background(), "/data/notes.txt")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "unsupported file type")
}

func TestIngest_PDFRejectedByClassifier(t *testing.T) {
	storage := newFakeStorage()
	o := newTestOrchestrator(storage, nil, &fakeClassifier{verdict: false}, &fakeTextExtractor{text: "invoice"})

	res := o.Ingest(context.Background(), "/data/invoice.pdf")
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "not_a_drawing", res.Reason)
	assert.Empty(t, storage.records)
}

func TestIngest_PDFAccepted(t *testing.T) {
	storage := newFakeStorage()
	o := newTestOrchestrator(storage, nil, &fakeClassifier{verdict: true}, &fakeTextExtractor{text: "BORE 4.00"})

	res := o.Ingest(context.Background(), "/data/sheet.pdf")
	require.Equal(t, StatusAdded, res.Status)

	rec := storage.records[res.ContentID]
	assert.Equal(t, domain.KindPDF, rec.FileKind)
	assert.Contains(t, rec.SearchableText, "BORE 4.00")
}

func TestIngest_ConversionUnavailable(t *testing.T) {
	// A binary DWG cannot be parsed directly; without a converter the
	// file fails.
	dir := t.TempDir()
	path := filepath.Join(dir, "part.dwg")
	require.NoError(t, os.WriteFile(path, []byte("AC1032\x00binary"), 0o644))

	o := newTestOrchestrator(newFakeStorage(), nil, &fakeClassifier{}, &fakeTextExtractor{})
	res := o.Ingest(context.Background(), path)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "converter")
}

func TestIngest_ConversionRetrySucceeds(t *testing.T) {
	dir := t.TempDir()
	dwgPath := filepath.Join(dir, "part.dwg")
	require.NoError(t, os.WriteFile(dwgPath, []byte("AC1032\x00binary"), 0o644))
	converted := writeDXF(t, dir, "converted.dxf", simpleDXF...)

	storage := newFakeStorage()
	conv := &fakeConverter{available: true, output: converted}
	o := newTestOrchestrator(storage, conv, &fakeClassifier{}, &fakeTextExtractor{})

	res := o.Ingest(context.Background(), dwgPath)
	require.Equal(t, StatusAdded, res.Status)
	assert.Equal(t, 1, conv.calls)
	assert.Equal(t, 1, conv.cleanups, "conversion scratch must be cleaned up")

	// The record carries the original path's identity, not the scratch file.
	rec := storage.records[domain.ContentID(dwgPath)]
	assert.Equal(t, "part.dwg", rec.Filename)
	assert.Equal(t, domain.KindDWG, rec.FileKind)
}

func TestIngest_ConversionFails(t *testing.T) {
	dir := t.TempDir()
	dwgPath := filepath.Join(dir, "part.dwg")
	require.NoError(t, os.WriteFile(dwgPath, []byte("AC1032\x00binary"), 0o644))

	conv := &fakeConverter{available: true, err: domain.ErrConversionTimeout}
	o := newTestOrchestrator(newFakeStorage(), conv, &fakeClassifier{}, &fakeTextExtractor{})

	res := o.Ingest(context.Background(), dwgPath)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "conversion failed")
}

func TestIngest_StorageErrors(t *testing.T) {
	path := writeDXF(t, t.TempDir(), "part.dxf", simpleDXF...)

	t.Run("exists check fails", func(t *testing.T) {
		storage := newFakeStorage()
		storage.existsErr = errors.New("db locked")
		o := newTestOrchestrator(storage, nil, &fakeClassifier{}, &fakeTextExtractor{})
		res := o.Ingest(context.Background(), path)
		assert.Equal(t, StatusFailed, res.Status)
	})

	t.Run("upsert fails", func(t *testing.T) {
		storage := newFakeStorage()
		storage.upsertErr = errors.New("disk full")
		o := newTestOrchestrator(storage, nil, &fakeClassifier{}, &fakeTextExtractor{})
		res := o.Ingest(context.Background(), path)
		assert.Equal(t, StatusFailed, res.Status)
		assert.Contains(t, res.Reason, "persist failed")
	})
}

type panickingClassifier struct{}

func (panickingClassifier) IsDrawing(ctx context.Context, pdfPath, text string) bool {
	panic("classifier blew up")
}

func TestIngest_PanicBecomesFailed(t *testing.T) {
	o := newTestOrchestrator(newFakeStorage(), nil, panickingClassifier{}, &fakeTextExtractor{})
	res := o.Ingest(context.Background(), "/data/sheet.pdf")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "internal error")
}

func TestIngestBatch_FailureDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	good := writeDXF(t, dir, "good.dxf", simpleDXF...)
	bad := filepath.Join(dir, "missing.dxf")

	storage := newFakeStorage()
	o := newTestOrchestrator(storage, nil, &fakeClassifier{}, &fakeTextExtractor{})

	results := o.IngestBatch(context.Background(), []string{bad, good}, nil)
	require.Len(t, results, 2)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, StatusAdded, results[1].Status)
}

func TestIngest_EndToEndDXFScenario(t *testing.T) {
	// Two LINE entities on layer A, one CIRCLE on layer B, no blocks.
	path := writeDXF(t, t.TempDir(), "scenario.dxf",
		"0", "SECTION",
		"2", "TABLES",
		"0", "TABLE",
		"2", "LAYER",
		"0", "LAYER",
		"2", "A",
		"62", "1",
		"0", "LAYER",
		"2", "B",
		"62", "2",
		"0", "ENDTAB",
		"0", "ENDSEC",
		"0", "SECTION",
		"2", "ENTITIES",
		"0", "LINE",
		"8", "A",
		"10", "0", "20", "0",
		"11", "3", "21", "4",
		"0", "LINE",
		"8", "A",
		"10", "1", "20", "1",
		"11", "2", "21", "2",
		"0", "CIRCLE",
		"8", "B",
		"10", "0", "20", "0",
		"40", "2.5",
		"0", "ENDSEC",
		"0", "EOF",
	)

	storage := newFakeStorage()
	o := newTestOrchestrator(storage, nil, &fakeClassifier{}, &fakeTextExtractor{})

	res := o.Ingest(context.Background(), path)
	require.Equal(t, StatusAdded, res.Status)

	rec := storage.records[res.ContentID]
	assert.Equal(t, 3, rec.EntityCount)
	assert.Equal(t, 2, rec.LayerCount)
	assert.Equal(t, 0, rec.BlockCount)
	assert.Contains(t, rec.SearchableText, "2 line elements")
	assert.Contains(t, rec.SearchableText, "1 circle elements")
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writeDXF(t, dir, "a.dxf", simpleDXF...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.PDF"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeDXF(t, sub, "c.dxf", simpleDXF...)

	paths, err := ScanDir(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		assert.NotContains(t, p, "notes.txt")
	}
}
