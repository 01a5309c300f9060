// Package ifc reads IFC building models in the STEP physical file format
// (ISO 10303-21). It parses the header and data sections into an in-memory
// entity table with typed attribute access and schema-aware type lookups.
//
// The reader is deliberately tolerant: unknown entity types are kept as raw
// records, unknown schema identifiers only affect Header.Schema, and
// malformed values inside a single record fail that record, not the file.
package ifc

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// SchemaVersion identifies the IFC schema a file was authored against.
type SchemaVersion string

const (
	SchemaIFC2X3  SchemaVersion = "IFC2X3"
	SchemaIFC4    SchemaVersion = "IFC4"
	SchemaIFC4X3  SchemaVersion = "IFC4X3"
	SchemaUnknown SchemaVersion = "UNKNOWN"
)

// Header holds the fields of the STEP header section that matter to the
// pipeline. RawSchema keeps the untouched FILE_SCHEMA identifier so callers
// can log exactly what the authoring tool wrote.
type Header struct {
	Description []string
	FileName    string
	RawSchema   string
	Schema      SchemaVersion
}

// Model is a parsed IFC file: the header plus an instance table indexed by
// STEP id and by entity type.
type Model struct {
	Header Header

	entities map[int64]*Entity
	byType   map[string][]*Entity
	order    []int64
}

// Entity is a single instance record from the DATA section, e.g.
// #12=IFCBUILDING('2O2Fr$t4X7Zf8NOew3FLOH',#5,'Office',$,...). Type is
// upper-cased; Attrs are in declaration order.
type Entity struct {
	ID    int64
	Type  string
	Attrs []Value
}

// Get returns the entity with the given STEP id, or nil.
func (m *Model) Get(id int64) *Entity {
	return m.entities[id]
}

// Count returns the number of instance records in the model.
func (m *Model) Count() int {
	return len(m.entities)
}

// ByType returns all instances of the named type, including instances of its
// subtypes, in file order. The lookup is case-insensitive and returns an
// empty slice for types absent from the file or unknown to the schema table,
// which is how schema-version differences (e.g. IfcFurniture only existing
// in IFC4) stay non-fatal.
func (m *Model) ByType(name string) []*Entity {
	want := strings.ToUpper(name)

	var out []*Entity
	seen := make(map[int64]struct{})
	for typ, instances := range m.byType {
		if typ != want && !isSubtypeOf(typ, want) {
			continue
		}
		for _, e := range instances {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}

	// Map iteration order is random; restore file order.
	sortByFileOrder(out)
	return out
}

// ByExactType returns instances of exactly the named type, without subtypes.
func (m *Model) ByExactType(name string) []*Entity {
	instances := m.byType[strings.ToUpper(name)]
	out := make([]*Entity, len(instances))
	copy(out, instances)
	return out
}

func sortByFileOrder(entities []*Entity) {
	// STEP ids are assigned in file order by every authoring tool we care
	// about, so sorting by id restores deterministic extraction order.
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].ID < entities[j].ID
	})
}

// Open reads and parses an IFC file from disk.
func Open(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Decode(data)
}

// Decode parses an IFC file from memory.
func Decode(data []byte) (*Model, error) {
	p := newParser(data)
	return p.parse()
}

func parseSchemaVersion(raw string) SchemaVersion {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "IFC4X3"):
		return SchemaIFC4X3
	case strings.HasPrefix(s, "IFC4"):
		return SchemaIFC4
	case strings.HasPrefix(s, "IFC2X3"):
		return SchemaIFC2X3
	default:
		return SchemaUnknown
	}
}
