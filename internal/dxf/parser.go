package dxf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/drafthaus/cadindex/internal/domain"
)

// dwgMagic is the signature at the start of binary DWG files
// ("AC1015", "AC1032", ...). Such files must be converted before
// parsing.
var dwgMagic = []byte("AC10")

// ReadFile parses a DXF document from disk. A file that is not ASCII
// DXF (including binary DWG) yields an error wrapping domain.ErrFormat.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dxf: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a DXF document from a reader.
func Read(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)

	head, _ := br.Peek(6)
	if bytes.HasPrefix(head, dwgMagic) {
		return nil, fmt.Errorf("binary drawing file: %w", domain.ErrFormat)
	}

	tags, err := readTags(br)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("empty document: %w", domain.ErrFormat)
	}

	doc := &Document{}
	sections := 0

	i := 0
	for i < len(tags) {
		t := tags[i]
		if t.Code == 0 && t.Value == "SECTION" {
			if i+1 >= len(tags) || tags[i+1].Code != 2 {
				return nil, fmt.Errorf("section without name: %w", domain.ErrFormat)
			}
			name := tags[i+1].Value
			end := findSectionEnd(tags, i+2)
			body := tags[i+2 : end]
			sections++

			switch name {
			case "HEADER":
				parseHeader(doc, body)
			case "TABLES":
				parseTables(doc, body)
			case "BLOCKS":
				parseBlocks(doc, body)
			case "ENTITIES":
				doc.Entities = parseEntities(body)
			}

			i = end + 1
			continue
		}
		i++
	}

	if sections == 0 {
		return nil, fmt.Errorf("no sections found: %w", domain.ErrFormat)
	}

	return doc, nil
}

// readTags reads the whole tag stream. DXF alternates a group-code line
// with a value line.
func readTags(r *bufio.Reader) ([]Tag, error) {
	var tags []Tag
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var codeLine string
	haveCode := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !haveCode {
			codeLine = strings.TrimSpace(line)
			haveCode = true
			continue
		}
		code, err := strconv.Atoi(codeLine)
		if err != nil {
			return nil, fmt.Errorf("bad group code %q: %w", codeLine, domain.ErrFormat)
		}
		tags = append(tags, Tag{Code: code, Value: strings.TrimSpace(line)})
		haveCode = false
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dxf: %w", err)
	}
	return tags, nil
}

func findSectionEnd(tags []Tag, from int) int {
	for i := from; i < len(tags); i++ {
		if tags[i].Code == 0 && tags[i].Value == "ENDSEC" {
			return i
		}
	}
	return len(tags)
}

func parseHeader(doc *Document, tags []Tag) {
	for i, t := range tags {
		if t.Code == 9 && t.Value == "$ACADVER" && i+1 < len(tags) {
			doc.Version = tags[i+1].Value
			return
		}
	}
}

// parseTables extracts LAYER table entries; other tables are skipped.
func parseTables(doc *Document, tags []Tag) {
	i := 0
	for i < len(tags) {
		if tags[i].Code == 0 && tags[i].Value == "LAYER" {
			layer := LayerRecord{Linetype: "CONTINUOUS"}
			j := i + 1
			for j < len(tags) && tags[j].Code != 0 {
				switch tags[j].Code {
				case 2:
					layer.Name = tags[j].Value
				case 62:
					if c, err := strconv.Atoi(tags[j].Value); err == nil {
						layer.Color = c
					}
				case 6:
					layer.Linetype = tags[j].Value
				case 70:
					if f, err := strconv.Atoi(tags[j].Value); err == nil {
						layer.Flags = f
					}
				}
				j++
			}
			if layer.Name != "" {
				doc.Layers = append(doc.Layers, layer)
			}
			i = j
			continue
		}
		i++
	}
}

// parseBlocks walks BLOCK..ENDBLK groups, counting contained entities.
func parseBlocks(doc *Document, tags []Tag) {
	i := 0
	for i < len(tags) {
		if tags[i].Code == 0 && tags[i].Value == "BLOCK" {
			block := BlockRecord{}
			j := i + 1
			for j < len(tags) && tags[j].Code != 0 {
				if tags[j].Code == 2 && block.Name == "" {
					block.Name = tags[j].Value
				}
				j++
			}
			for j < len(tags) && !(tags[j].Code == 0 && tags[j].Value == "ENDBLK") {
				if tags[j].Code == 0 {
					block.EntityCount++
				}
				j++
			}
			doc.Blocks = append(doc.Blocks, block)
			i = j + 1
			continue
		}
		i++
	}
}

// parseEntities splits the ENTITIES section into raw entities. Every
// code-0 tag starts a new entity; its remaining tags are kept verbatim.
func parseEntities(tags []Tag) []Entity {
	var entities []Entity
	var cur *Entity
	for _, t := range tags {
		if t.Code == 0 {
			if cur != nil {
				entities = append(entities, *cur)
			}
			cur = &Entity{Type: t.Value}
			continue
		}
		if cur != nil {
			cur.Tags = append(cur.Tags, t)
		}
	}
	if cur != nil {
		entities = append(entities, *cur)
	}
	return entities
}
