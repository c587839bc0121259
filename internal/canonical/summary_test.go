package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drafthaus/cadindex/internal/domain"
)

func line(length string) domain.DrawingEntity {
	return domain.DrawingEntity{
		Type:       domain.EntityLine,
		Attributes: map[string]string{"length": length},
	}
}

func circle(radius string) domain.DrawingEntity {
	return domain.DrawingEntity{
		Type:       domain.EntityCircle,
		Attributes: map[string]string{"radius": radius},
	}
}

func textEntity(text string) domain.DrawingEntity {
	return domain.DrawingEntity{
		Type:       domain.EntityText,
		Attributes: map[string]string{"text": text},
	}
}

func TestSummary_TypeBreakdown(t *testing.T) {
	doc := &domain.DrawingDocument{
		Entities: []domain.DrawingEntity{line("3.00"), line("5.00"), circle("2.50")},
	}

	summary := Summary(doc)
	assert.Contains(t, summary, "2 line elements")
	assert.Contains(t, summary, "1 circle elements")
	assert.Contains(t, summary, "Line lengths range from 3.00 to 5.00")
	assert.Contains(t, summary, "Circle radii range from 2.50 to 2.50")
}

func TestSummary_SentencesEndWithPeriods(t *testing.T) {
	doc := &domain.DrawingDocument{
		Entities: []domain.DrawingEntity{line("1.00")},
		Layers:   []domain.Layer{{Name: "A"}, {Name: "B"}},
	}

	summary := Summary(doc)
	assert.Contains(t, summary, "Layers: A, B")
	assert.Equal(t, byte('.'), summary[len(summary)-1])
}

func TestSummary_ExcerptsCappedAtFive(t *testing.T) {
	doc := &domain.DrawingDocument{}
	for i := 0; i < 8; i++ {
		doc.Entities = append(doc.Entities, textEntity(string(rune('A'+i))))
		doc.Layers = append(doc.Layers, domain.Layer{Name: "L" + string(rune('0'+i))})
		doc.Blocks = append(doc.Blocks, domain.BlockDefinition{Name: "B" + string(rune('0'+i))})
	}

	summary := Summary(doc)
	assert.Contains(t, summary, "Text labels: A, B, C, D, E")
	assert.NotContains(t, summary, "F,")
	assert.Contains(t, summary, "Layers: L0, L1, L2, L3, L4")
	assert.Contains(t, summary, "Blocks: B0, B1, B2, B3, B4")
	assert.NotContains(t, summary, "B5")
}

func TestSummary_EmptyDocument(t *testing.T) {
	assert.Equal(t, "", Summary(&domain.DrawingDocument{}))
}

func TestSummary_BlankTextLabelsSkipped(t *testing.T) {
	doc := &domain.DrawingDocument{
		Entities: []domain.DrawingEntity{textEntity("  "), textEntity("SCALE 1:2")},
	}
	assert.Contains(t, Summary(doc), "Text labels: SCALE 1:2")
}
