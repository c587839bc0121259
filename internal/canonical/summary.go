package canonical

import (
	"strconv"
	"strings"

	"github.com/drafthaus/cadindex/internal/domain"
)

// summaryTypeOrder fixes the order entity types appear in the summary.
var summaryTypeOrder = []domain.EntityType{
	domain.EntityLine,
	domain.EntityCircle,
	domain.EntityArc,
	domain.EntityLWPolyline,
	domain.EntityPolyline,
	domain.EntityText,
	domain.EntityMText,
	domain.EntityInsert,
	domain.EntityDimension,
	domain.EntityHatch,
}

const excerptLimit = 5

// Summary builds the deterministic natural-language entity summary: a
// per-type count breakdown, observed ranges for circle radii and line
// lengths, and excerpts of text labels, layer names and block names.
// Every fragment becomes a period-terminated sentence.
func Summary(doc *domain.DrawingDocument) string {
	var sentences []string

	if breakdown := typeBreakdown(doc.Entities); breakdown != "" {
		sentences = append(sentences, "Drawing contains "+breakdown)
	}
	if lo, hi, ok := attributeRange(doc.Entities, domain.EntityLine, "length"); ok {
		sentences = append(sentences, "Line lengths range from "+fnum(lo)+" to "+fnum(hi))
	}
	if lo, hi, ok := attributeRange(doc.Entities, domain.EntityCircle, "radius"); ok {
		sentences = append(sentences, "Circle radii range from "+fnum(lo)+" to "+fnum(hi))
	}
	if labels := textLabels(doc.Entities); len(labels) > 0 {
		sentences = append(sentences, "Text labels: "+strings.Join(labels, ", "))
	}
	if names := layerNames(doc.Layers); len(names) > 0 {
		sentences = append(sentences, "Layers: "+strings.Join(names, ", "))
	}
	if names := blockNames(doc.Blocks); len(names) > 0 {
		sentences = append(sentences, "Blocks: "+strings.Join(names, ", "))
	}

	if len(sentences) == 0 {
		return ""
	}
	return strings.Join(sentences, ". ") + "."
}

// typeBreakdown renders counts as "2 line elements, 1 circle elements".
func typeBreakdown(entities []domain.DrawingEntity) string {
	counts := make(map[domain.EntityType]int)
	for _, e := range entities {
		counts[e.Type]++
	}

	var parts []string
	for _, t := range summaryTypeOrder {
		if n := counts[t]; n > 0 {
			parts = append(parts, strconv.Itoa(n)+" "+strings.ToLower(string(t))+" elements")
		}
	}
	return strings.Join(parts, ", ")
}

// attributeRange scans one numeric attribute across entities of a type.
func attributeRange(entities []domain.DrawingEntity, entityType domain.EntityType, attr string) (lo, hi float64, ok bool) {
	for _, e := range entities {
		if e.Type != entityType {
			continue
		}
		v, err := strconv.ParseFloat(e.Attributes[attr], 64)
		if err != nil {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// textLabels collects up to the first five non-empty TEXT/MTEXT strings.
func textLabels(entities []domain.DrawingEntity) []string {
	var labels []string
	for _, e := range entities {
		if e.Type != domain.EntityText && e.Type != domain.EntityMText {
			continue
		}
		text := strings.TrimSpace(e.Attributes["text"])
		if text == "" {
			continue
		}
		labels = append(labels, text)
		if len(labels) == excerptLimit {
			break
		}
	}
	return labels
}

func layerNames(layers []domain.Layer) []string {
	var names []string
	for _, l := range layers {
		names = append(names, l.Name)
		if len(names) == excerptLimit {
			break
		}
	}
	return names
}

func blockNames(blocks []domain.BlockDefinition) []string {
	var names []string
	for _, b := range blocks {
		names = append(names, b.Name)
		if len(names) == excerptLimit {
			break
		}
	}
	return names
}

// fnum formats with fixed two-decimal precision, matching entity
// attribute formatting.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
