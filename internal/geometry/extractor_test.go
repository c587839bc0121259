package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/dxf"
	"github.com/drafthaus/cadindex/internal/observability"
)

func newTestExtractor() *Extractor {
	return NewExtractor(observability.Nop())
}

func entity(etype string, tags ...dxf.Tag) dxf.Entity {
	return dxf.Entity{Type: etype, Tags: tags}
}

func tag(code int, value string) dxf.Tag {
	return dxf.Tag{Code: code, Value: value}
}

func TestExtract_LineFormatting(t *testing.T) {
	doc := &dxf.Document{
		Entities: []dxf.Entity{
			entity("LINE",
				tag(8, "0"),
				tag(10, "0"), tag(20, "0"),
				tag(11, "3"), tag(21, "4"),
			),
		},
	}

	out := newTestExtractor().Extract("/tmp/part.dxf", doc)
	require.Len(t, out.Entities, 1)

	attrs := out.Entities[0].Attributes
	assert.Equal(t, "0.00,0.00", attrs["start"])
	assert.Equal(t, "3.00,4.00", attrs["end"])
	assert.Equal(t, "5.00", attrs["length"])
}

func TestExtract_UnsupportedTypesDropped(t *testing.T) {
	doc := &dxf.Document{
		Entities: []dxf.Entity{
			entity("LINE",
				tag(10, "0"), tag(20, "0"), tag(11, "1"), tag(21, "1")),
			entity("SPLINE", tag(10, "0")),
			entity("3DFACE"),
		},
	}

	out := newTestExtractor().Extract("/tmp/part.dxf", doc)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, domain.EntityLine, out.Entities[0].Type)
	// Unsupported types are filtered, not counted as drops.
	assert.Equal(t, 0, out.DroppedEntities)
}

func TestExtract_IncompleteEntityDroppedNotFatal(t *testing.T) {
	doc := &dxf.Document{
		Entities: []dxf.Entity{
			entity("LINE", tag(10, "0"), tag(20, "0")), // no end point
			entity("CIRCLE", tag(10, "1"), tag(20, "1"), tag(40, "2.5")),
		},
	}

	out := newTestExtractor().Extract("/tmp/part.dxf", doc)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, domain.EntityCircle, out.Entities[0].Type)
	assert.Equal(t, 1, out.DroppedEntities)
}

func TestExtract_PaperSpaceSkipped(t *testing.T) {
	doc := &dxf.Document{
		Entities: []dxf.Entity{
			entity("LINE",
				tag(67, "1"),
				tag(10, "0"), tag(20, "0"), tag(11, "1"), tag(21, "1")),
		},
	}

	out := newTestExtractor().Extract("/tmp/part.dxf", doc)
	assert.Empty(t, out.Entities)
	assert.Equal(t, 0, out.DroppedEntities)
}

func TestExtract_UsedLayerFiltering(t *testing.T) {
	doc := &dxf.Document{
		Layers: []dxf.LayerRecord{
			{Name: "USED", Color: -4, Linetype: "CONTINUOUS", Flags: 1},
			{Name: "UNUSED", Color: 7, Linetype: "CONTINUOUS"},
		},
		Entities: []dxf.Entity{
			entity("CIRCLE",
				tag(8, "USED"),
				tag(10, "0"), tag(20, "0"), tag(40, "1")),
		},
	}

	out := newTestExtractor().Extract("/tmp/part.dxf", doc)
	require.Len(t, out.Layers, 1)

	layer := out.Layers[0]
	assert.Equal(t, "USED", layer.Name)
	// Negative color index means "off"; the magnitude is the color.
	assert.Equal(t, 4, layer.Color)
	assert.False(t, layer.Visible)
}

func TestExtract_AnonymousBlocksExcluded(t *testing.T) {
	doc := &dxf.Document{
		Blocks: []dxf.BlockRecord{
			{Name: "*Model_Space", EntityCount: 40},
			{Name: "*Paper_Space", EntityCount: 2},
			{Name: "TITLEBLOCK", EntityCount: 12},
		},
	}

	out := newTestExtractor().Extract("/tmp/part.dxf", doc)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "TITLEBLOCK", out.Blocks[0].Name)
	assert.Equal(t, 12, out.Blocks[0].EntityCount)
}

func TestExtract_RawTextFromTextEntities(t *testing.T) {
	doc := &dxf.Document{
		Entities: []dxf.Entity{
			entity("TEXT", tag(1, "BORE 4.00"), tag(40, "2.5")),
			entity("MTEXT", tag(1, "STROKE 12.00")),
			entity("TEXT", tag(1, "  ")),
		},
	}

	out := newTestExtractor().Extract("/tmp/part.dxf", doc)
	assert.Equal(t, "BORE 4.00 STROKE 12.00", out.RawText)
}

func TestExtract_EntityAttributes(t *testing.T) {
	tests := []struct {
		name  string
		in    dxf.Entity
		attrs map[string]string
	}{
		{
			name: "circle",
			in: entity("CIRCLE",
				tag(10, "1"), tag(20, "2"), tag(40, "2.5")),
			attrs: map[string]string{
				"center": "1.00,2.00", "radius": "2.50", "diameter": "5.00",
			},
		},
		{
			name: "arc with angles",
			in: entity("ARC",
				tag(10, "0"), tag(20, "0"), tag(40, "3"),
				tag(50, "0"), tag(51, "90")),
			attrs: map[string]string{
				"center": "0.00,0.00", "radius": "3.00",
				"start_angle": "0.00", "end_angle": "90.00",
			},
		},
		{
			name: "insert with uniform scale",
			in: entity("INSERT",
				tag(2, "BOLT"), tag(10, "5"), tag(20, "5"), tag(41, "2")),
			attrs: map[string]string{
				"block_name": "BOLT", "position": "5.00,5.00", "scale": "2.00,2.00",
			},
		},
		{
			name: "dimension",
			in: entity("DIMENSION",
				tag(42, "25.4"), tag(1, "<> TYP")),
			attrs: map[string]string{
				"measurement": "25.40", "text": "<> TYP",
			},
		},
		{
			name: "closed polyline",
			in: entity("LWPOLYLINE",
				tag(90, "4"), tag(70, "1")),
			attrs: map[string]string{
				"vertex_count": "4", "closed": "true",
			},
		},
		{
			name: "hatch",
			in: entity("HATCH",
				tag(2, "ANSI31"), tag(91, "2")),
			attrs: map[string]string{
				"pattern": "ANSI31", "loop_count": "2",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := &dxf.Document{Entities: []dxf.Entity{tc.in}}
			out := newTestExtractor().Extract("/tmp/part.dxf", doc)
			require.Len(t, out.Entities, 1)
			assert.Equal(t, tc.attrs, out.Entities[0].Attributes)
		})
	}
}
