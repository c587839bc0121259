// Package domain holds the core data model shared across the ingestion
// pipeline: drawing documents, entities, canonical records and the
// error taxonomy.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// SourceFormat identifies the on-disk format of an ingested file.
type SourceFormat string

const (
	FormatCADBinary   SourceFormat = "cad_binary"   // proprietary DWG
	FormatCADExchange SourceFormat = "cad_exchange" // DXF
	FormatPDF         SourceFormat = "pdf"
)

// FileKind is the coarse kind stored on canonical records.
type FileKind string

const (
	KindDWG FileKind = "dwg"
	KindPDF FileKind = "pdf"
)

// Classification is the outcome of the drawing classifier.
type Classification string

const (
	ClassificationAccepted Classification = "accepted"
	ClassificationRejected Classification = "rejected"
	// ClassificationUnknown is treated as accepted when no classifier ran.
	ClassificationUnknown Classification = "unknown"
)

// InclusionBias controls how inconclusive classification results are
// resolved. Permissive treats ambiguity as "yes, it is a drawing".
type InclusionBias string

const (
	BiasPermissive InclusionBias = "permissive"
	BiasStrict     InclusionBias = "strict"
)

// EntityType enumerates the supported drawable primitives. Anything
// outside this set is dropped silently during extraction.
type EntityType string

const (
	EntityLine       EntityType = "LINE"
	EntityCircle     EntityType = "CIRCLE"
	EntityArc        EntityType = "ARC"
	EntityLWPolyline EntityType = "LWPOLYLINE"
	EntityPolyline   EntityType = "POLYLINE"
	EntityText       EntityType = "TEXT"
	EntityMText      EntityType = "MTEXT"
	EntityInsert     EntityType = "INSERT"
	EntityDimension  EntityType = "DIMENSION"
	EntityHatch      EntityType = "HATCH"
)

// SupportedEntityTypes is the fixed set accepted by the geometry extractor.
var SupportedEntityTypes = map[EntityType]bool{
	EntityLine:       true,
	EntityCircle:     true,
	EntityArc:        true,
	EntityLWPolyline: true,
	EntityPolyline:   true,
	EntityText:       true,
	EntityMText:      true,
	EntityInsert:     true,
	EntityDimension:  true,
	EntityHatch:      true,
}

// DrawingEntity is one drawable primitive with type-specific attributes.
// Numeric attribute values are fixed-point strings with two fractional
// digits.
type DrawingEntity struct {
	Type       EntityType
	Layer      string
	Color      *int
	Attributes map[string]string
}

// Layer describes a layer referenced by at least one kept entity.
type Layer struct {
	Name     string
	Color    int
	Linetype string
	Visible  bool
}

// BlockDefinition describes a named block, excluding anonymous
// model/paper-space blocks.
type BlockDefinition struct {
	Name        string
	EntityCount int
}

// DrawingDocument is the transient per-ingestion representation of one
// drawing file.
type DrawingDocument struct {
	SourcePath     string
	SourceFormat   SourceFormat
	ContentID      string
	Entities       []DrawingEntity
	Layers         []Layer
	Blocks         []BlockDefinition
	RawText        string
	Classification Classification
	// DroppedEntities counts entities whose attribute extraction failed.
	DroppedEntities int
}

// CanonicalRecord is the persisted, search-ready unit for one file.
type CanonicalRecord struct {
	ContentID      string
	Filename       string
	AbsolutePath   string
	FileKind       FileKind
	Description    string
	SearchableText string
	Specs          map[string]any
	CSVData        string
	EntityCount    int
	LayerCount     int
	BlockCount     int
}

// ContentID derives the stable storage identity for a file path. The
// identity is path-based, not content-based: the same absolute path
// always yields the same id, and moving a file yields a new one.
func ContentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])
}
