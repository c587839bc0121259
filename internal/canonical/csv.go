package canonical

import (
	"encoding/csv"
	"sort"
	"strconv"
	"strings"

	"github.com/drafthaus/cadindex/internal/domain"
)

// FlattenCSV renders a document as a flat tabular record set: one row
// per entity attribute, followed by layer and block rows. Attribute
// keys within an entity are emitted in sorted order so output is
// stable.
func FlattenCSV(doc *domain.DrawingDocument) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write([]string{"Type", "Layer", "Color", "Property", "Value"})

	for _, e := range doc.Entities {
		color := ""
		if e.Color != nil {
			color = strconv.Itoa(*e.Color)
		}
		keys := make([]string, 0, len(e.Attributes))
		for k := range e.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) == 0 {
			w.Write([]string{string(e.Type), e.Layer, color, "", ""})
			continue
		}
		for _, k := range keys {
			w.Write([]string{string(e.Type), e.Layer, color, k, e.Attributes[k]})
		}
	}

	for _, l := range doc.Layers {
		w.Write([]string{"LAYER", l.Name, strconv.Itoa(l.Color), "linetype", l.Linetype})
	}
	for _, b := range doc.Blocks {
		w.Write([]string{"BLOCK", b.Name, "", "entity_count", strconv.Itoa(b.EntityCount)})
	}

	w.Flush()
	return sb.String()
}
