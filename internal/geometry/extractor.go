// Package geometry turns parsed DXF documents into structured drawing
// records: supported entities with formatted attributes, used layers
// and named blocks.
package geometry

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/dxf"
	"github.com/drafthaus/cadindex/internal/observability"
)

// anonymousBlockPrefix marks model/paper-space and other system blocks.
const anonymousBlockPrefix = "*"

var errIncompleteEntity = errors.New("incomplete entity data")

// Extractor walks DXF documents and produces DrawingDocuments.
type Extractor struct {
	logger *observability.Logger
}

// NewExtractor creates a geometry extractor.
func NewExtractor(logger *observability.Logger) *Extractor {
	return &Extractor{logger: logger.WithComponent("geometry")}
}

// ExtractFile parses and extracts a DXF file. Format errors wrap
// domain.ErrFormat so the caller can attempt conversion and retry.
func (x *Extractor) ExtractFile(path string) (*domain.DrawingDocument, error) {
	dxfDoc, err := dxf.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return x.Extract(path, dxfDoc), nil
}

// Extract builds a DrawingDocument from an already-parsed DXF document.
// Extraction of one entity never aborts the pass: a failed entity is
// dropped and counted.
func (x *Extractor) Extract(sourcePath string, doc *dxf.Document) *domain.DrawingDocument {
	out := &domain.DrawingDocument{
		SourcePath:     sourcePath,
		SourceFormat:   domain.FormatCADExchange,
		ContentID:      domain.ContentID(sourcePath),
		Classification: domain.ClassificationUnknown,
	}

	var texts []string
	usedLayers := map[string]bool{}

	for i := range doc.Entities {
		raw := &doc.Entities[i]
		etype := domain.EntityType(raw.Type)
		if !domain.SupportedEntityTypes[etype] {
			continue
		}
		// Paper-space entities carry group 67 = 1.
		if ps, ok := raw.Int(67); ok && ps == 1 {
			continue
		}

		entity, err := extractEntity(etype, raw)
		if err != nil {
			out.DroppedEntities++
			continue
		}

		out.Entities = append(out.Entities, entity)
		if entity.Layer != "" {
			usedLayers[entity.Layer] = true
		}
		if etype == domain.EntityText || etype == domain.EntityMText {
			if text := entity.Attributes["text"]; strings.TrimSpace(text) != "" {
				texts = append(texts, text)
			}
		}
	}

	// Resolve only layers actually touched by kept entities. A used
	// name missing from the layer table is silently omitted.
	for _, rec := range doc.Layers {
		if !usedLayers[rec.Name] {
			continue
		}
		color := rec.Color
		if color < 0 {
			color = -color
		}
		out.Layers = append(out.Layers, domain.Layer{
			Name:     rec.Name,
			Color:    color,
			Linetype: rec.Linetype,
			Visible:  rec.Visible(),
		})
	}

	for _, rec := range doc.Blocks {
		if strings.HasPrefix(rec.Name, anonymousBlockPrefix) {
			continue
		}
		out.Blocks = append(out.Blocks, domain.BlockDefinition{
			Name:        rec.Name,
			EntityCount: rec.EntityCount,
		})
	}

	out.RawText = strings.Join(texts, " ")

	if x.logger != nil {
		x.logger.Debug().
			Str("file", sourcePath).
			Int("entities", len(out.Entities)).
			Int("dropped", out.DroppedEntities).
			Int("layers", len(out.Layers)).
			Int("blocks", len(out.Blocks)).
			Msg("Extracted drawing geometry")
	}

	return out
}

// extractEntity builds one DrawingEntity. Any missing required data
// yields an error and the entity is dropped by the caller.
func extractEntity(etype domain.EntityType, raw *dxf.Entity) (domain.DrawingEntity, error) {
	entity := domain.DrawingEntity{
		Type:       etype,
		Attributes: map[string]string{},
	}
	if layer, ok := raw.Value(8); ok {
		entity.Layer = layer
	}
	if c, ok := raw.Int(62); ok {
		entity.Color = &c
	}

	var err error
	switch etype {
	case domain.EntityLine:
		err = extractLine(raw, entity.Attributes)
	case domain.EntityCircle:
		err = extractCircle(raw, entity.Attributes)
	case domain.EntityArc:
		err = extractArc(raw, entity.Attributes)
	case domain.EntityText, domain.EntityMText:
		err = extractText(raw, entity.Attributes)
	case domain.EntityInsert:
		err = extractInsert(raw, entity.Attributes)
	case domain.EntityDimension:
		extractDimension(raw, entity.Attributes)
	case domain.EntityLWPolyline, domain.EntityPolyline:
		extractPolyline(raw, entity.Attributes)
	case domain.EntityHatch:
		extractHatch(raw, entity.Attributes)
	}
	if err != nil {
		return domain.DrawingEntity{}, err
	}
	return entity, nil
}

func extractLine(raw *dxf.Entity, attrs map[string]string) error {
	x1, ok1 := raw.Float(10)
	y1, ok2 := raw.Float(20)
	x2, ok3 := raw.Float(11)
	y2, ok4 := raw.Float(21)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return errIncompleteEntity
	}
	attrs["start"] = fpoint(x1, y1)
	attrs["end"] = fpoint(x2, y2)
	attrs["length"] = fnum(math.Hypot(x2-x1, y2-y1))
	return nil
}

func extractCircle(raw *dxf.Entity, attrs map[string]string) error {
	cx, ok1 := raw.Float(10)
	cy, ok2 := raw.Float(20)
	r, ok3 := raw.Float(40)
	if !ok1 || !ok2 || !ok3 {
		return errIncompleteEntity
	}
	attrs["center"] = fpoint(cx, cy)
	attrs["radius"] = fnum(r)
	attrs["diameter"] = fnum(r * 2)
	return nil
}

func extractArc(raw *dxf.Entity, attrs map[string]string) error {
	cx, ok1 := raw.Float(10)
	cy, ok2 := raw.Float(20)
	r, ok3 := raw.Float(40)
	if !ok1 || !ok2 || !ok3 {
		return errIncompleteEntity
	}
	attrs["center"] = fpoint(cx, cy)
	attrs["radius"] = fnum(r)
	if a, ok := raw.Float(50); ok {
		attrs["start_angle"] = fnum(a)
	}
	if a, ok := raw.Float(51); ok {
		attrs["end_angle"] = fnum(a)
	}
	return nil
}

func extractText(raw *dxf.Entity, attrs map[string]string) error {
	text, ok := raw.Value(1)
	if !ok {
		return errIncompleteEntity
	}
	attrs["text"] = text
	if h, ok := raw.Float(40); ok {
		attrs["height"] = fnum(h)
	}
	if x, okx := raw.Float(10); okx {
		if y, oky := raw.Float(20); oky {
			attrs["position"] = fpoint(x, y)
		}
	}
	return nil
}

func extractInsert(raw *dxf.Entity, attrs map[string]string) error {
	name, ok := raw.Value(2)
	if !ok {
		return errIncompleteEntity
	}
	attrs["block_name"] = name
	if x, okx := raw.Float(10); okx {
		if y, oky := raw.Float(20); oky {
			attrs["position"] = fpoint(x, y)
		}
	}
	if sx, okx := raw.Float(41); okx {
		sy, oky := raw.Float(42)
		if !oky {
			sy = sx
		}
		attrs["scale"] = fpoint(sx, sy)
	}
	return nil
}

func extractDimension(raw *dxf.Entity, attrs map[string]string) {
	if m, ok := raw.Float(42); ok {
		attrs["measurement"] = fnum(m)
	}
	if t, ok := raw.Value(1); ok && t != "" {
		attrs["text"] = t
	}
}

func extractPolyline(raw *dxf.Entity, attrs map[string]string) {
	if n, ok := raw.Int(90); ok {
		attrs["vertex_count"] = strconv.Itoa(n)
	}
	if f, ok := raw.Int(70); ok && f&1 == 1 {
		attrs["closed"] = "true"
	}
}

func extractHatch(raw *dxf.Entity, attrs map[string]string) {
	if p, ok := raw.Value(2); ok {
		attrs["pattern"] = p
	}
	if n, ok := raw.Int(91); ok {
		attrs["loop_count"] = strconv.Itoa(n)
	}
}

// fnum renders a number as a fixed-point string with exactly two
// fractional digits. This is a presentation contract the rest of the
// pipeline depends on.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fpoint(x, y float64) string {
	return fnum(x) + "," + fnum(y)
}
