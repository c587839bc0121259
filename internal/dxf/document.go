// Package dxf implements a reader for the DXF drawing exchange format,
// covering the subset the ingestion pipeline consumes: the header
// version, the layer table, block definitions and model-space entities.
package dxf

import "strconv"

// Tag is one group-code/value pair from a DXF file.
type Tag struct {
	Code  int
	Value string
}

// Entity is a raw drawable entity: its DXF type name plus all tags that
// followed it, in file order. Interpretation of the tags is left to the
// caller.
type Entity struct {
	Type string
	Tags []Tag
}

// Value returns the first value for the given group code.
func (e *Entity) Value(code int) (string, bool) {
	for _, t := range e.Tags {
		if t.Code == code {
			return t.Value, true
		}
	}
	return "", false
}

// Values returns every value for the given group code, in order.
func (e *Entity) Values(code int) []string {
	var out []string
	for _, t := range e.Tags {
		if t.Code == code {
			out = append(out, t.Value)
		}
	}
	return out
}

// Float returns the first value for the group code parsed as a float.
func (e *Entity) Float(code int) (float64, bool) {
	v, ok := e.Value(code)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int returns the first value for the group code parsed as an int.
func (e *Entity) Int(code int) (int, bool) {
	v, ok := e.Value(code)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

// LayerRecord is one entry from the document's LAYER table. Color is
// the raw DXF color index; a negative value means the layer is off, and
// flag bit 0 marks it frozen.
type LayerRecord struct {
	Name     string
	Color    int
	Linetype string
	Flags    int
}

// Visible reports whether the layer is on and thawed.
func (l LayerRecord) Visible() bool {
	return l.Color >= 0 && l.Flags&1 == 0
}

// BlockRecord is one entry from the document's BLOCKS section.
type BlockRecord struct {
	Name        string
	EntityCount int
}

// Document is a parsed DXF file.
type Document struct {
	Version  string
	Layers   []LayerRecord
	Blocks   []BlockRecord
	Entities []Entity
}

// Layer looks up a layer table entry by name.
func (d *Document) Layer(name string) (LayerRecord, bool) {
	for _, l := range d.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return LayerRecord{}, false
}
