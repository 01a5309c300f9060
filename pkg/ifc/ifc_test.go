package ifc

import (
	"testing"
)

const sampleFile = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('ViewDefinition [CoordinationView]'),'2;1');
FILE_NAME('office.ifc','2024-03-01T10:00:00',('author'),('org'),'proc','app','');
FILE_SCHEMA(('IFC2X3'));
ENDSEC;
DATA;
#1=IFCBUILDING('2O2Fr$t4X7Zf8NOew3FLOH',$,'Main Office',$,$,$,$,$,$,$,$,$);
#2=IFCBUILDINGSTOREY('0Bsv$mKXr1fvIc9g4Hpkci',$,'Level 1',$,$,$,$,$,.ELEMENT.,0.);
#3=IFCWALLSTANDARDCASE('1FsTLN2yXCwvxLbCBt0wbb',$,'Wall A',IFCTEXT('load bearing'),$,$,$,$);
#4=IFCWALL('3cUkl32yn9qRSPvBJVyWYp',$,'Wall B',$,$,$,$,$);
#5=IFCDOOR('0t4JqStgnEYP9_n$bCwSxz',$,'Door 1',$,$,$,$,$,2.1,0.9);
#6=IFCRELCONTAINEDINSPATIALSTRUCTURE('2dFs$ZS1j4fQkM9E_ab012',$,$,$,(#3,#4,#5),#2);
#7=IFCRELAGGREGATES('1gHs$ZS1j4fQkM9E_ab013',$,$,$,#1,(#2));
ENDSEC;
END-ISO-10303-21;
`

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(sampleFile))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if m.Header.Schema != SchemaIFC2X3 {
		t.Errorf("schema = %q, want %q", m.Header.Schema, SchemaIFC2X3)
	}
	if m.Header.RawSchema != "IFC2X3" {
		t.Errorf("raw schema = %q, want IFC2X3", m.Header.RawSchema)
	}
	if m.Header.FileName != "office.ifc" {
		t.Errorf("file name = %q, want office.ifc", m.Header.FileName)
	}
	if m.Count() != 7 {
		t.Errorf("entity count = %d, want 7", m.Count())
	}

	b := m.Get(1)
	if b == nil || b.Type != "IFCBUILDING" {
		t.Fatalf("Get(1) = %+v, want IFCBUILDING", b)
	}
	if got := b.AttrString(0); got != "2O2Fr$t4X7Zf8NOew3FLOH" {
		t.Errorf("building guid = %q", got)
	}
	if got := b.AttrString(2); got != "Main Office" {
		t.Errorf("building name = %q", got)
	}
	if !b.Attrs[3].IsNull() {
		t.Errorf("building description should be null")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no marker", "HEADER;\nENDSEC;\n"},
		{"truncated data", "ISO-10303-21;\nDATA;\n#1=IFCWALL("},
		{"duplicate id", "ISO-10303-21;\nDATA;\n#1=IFCWALL($);\n#1=IFCSLAB($);\nENDSEC;\nEND-ISO-10303-21;"},
		{"missing end", "ISO-10303-21;\nDATA;\nENDSEC;\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Errorf("Decode succeeded, want error")
			}
		})
	}
}

func TestDecodeSkipsMalformedRecord(t *testing.T) {
	input := "ISO-10303-21;\nDATA;\n" +
		"#1=IFCWALL('2O2Fr$t4X7Zf8NOew3FLOH',$,'Wall A',$,$,$,$,$);\n" +
		"#2=IFCDOOR(@bad,'semi;colon inside',$);\n" +
		"#3=IFCSLAB('3cUkl32yn9qRSPvBJVyWYp',$,'Slab',$,$,$,$,$,.FLOOR.);\n" +
		"ENDSEC;\nEND-ISO-10303-21;"

	m, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if m.Count() != 2 {
		t.Errorf("entity count = %d, want 2", m.Count())
	}
	if m.Get(2) != nil {
		t.Errorf("malformed instance #2 should be dropped")
	}
	if e := m.Get(1); e == nil || e.Type != "IFCWALL" {
		t.Errorf("Get(1) = %+v, want IFCWALL", e)
	}
	if e := m.Get(3); e == nil || e.Type != "IFCSLAB" {
		t.Errorf("Get(3) = %+v, want IFCSLAB", e)
	}
}

func TestByType(t *testing.T) {
	m, err := Decode([]byte(sampleFile))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	tests := []struct {
		name string
		typ  string
		want int
	}{
		{"exact match", "IfcDoor", 1},
		{"subtype folded in", "IfcWall", 2},
		{"broad supertype", "IfcBuildingElement", 4},
		{"absent type", "IfcWindow", 0},
		{"unknown type", "IfcFurniture", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ByType(tt.typ)
			if len(got) != tt.want {
				t.Errorf("ByType(%q) returned %d instances, want %d", tt.typ, len(got), tt.want)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].ID >= got[i].ID {
					t.Errorf("ByType(%q) not in file order: #%d before #%d", tt.typ, got[i-1].ID, got[i].ID)
				}
			}
		})
	}

	if n := len(m.ByExactType("IfcWall")); n != 1 {
		t.Errorf("ByExactType(IfcWall) = %d instances, want 1", n)
	}
}

func TestAttributeAccess(t *testing.T) {
	m, err := Decode([]byte(sampleFile))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	door := m.Get(5)
	if h, ok := door.AttrFloat(8); !ok || h != 2.1 {
		t.Errorf("door height = %v, %v; want 2.1, true", h, ok)
	}
	if w, ok := door.AttrFloat(9); !ok || w != 0.9 {
		t.Errorf("door width = %v, %v; want 0.9, true", w, ok)
	}

	// Typed wrappers unwrap transparently.
	wall := m.Get(3)
	if got := wall.AttrString(3); got != "load bearing" {
		t.Errorf("wrapped description = %q, want %q", got, "load bearing")
	}

	rel := m.Get(6)
	refs := rel.AttrRefs(4)
	if len(refs) != 3 || refs[0] != 3 || refs[2] != 5 {
		t.Errorf("related elements = %v, want [3 4 5]", refs)
	}
	if structure, ok := rel.AttrRef(5); !ok || structure != 2 {
		t.Errorf("relating structure = %v, %v; want 2, true", structure, ok)
	}

	agg := m.Get(7)
	if parent, ok := agg.AttrRef(4); !ok || parent != 1 {
		t.Errorf("relating object = %v, %v; want 1, true", parent, ok)
	}

	// Out-of-range access is quiet.
	if got := door.AttrString(99); got != "" {
		t.Errorf("out-of-range AttrString = %q, want empty", got)
	}
	if _, ok := door.AttrFloat(-1); ok {
		t.Errorf("negative index AttrFloat should report false")
	}
}

func TestDecodeStepString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Wall", "Wall"},
		{"escaped backslash", `C:\\models\\a.ifc`, `C:\models\a.ifc`},
		{"x2 sequence", `\X2\90E85C4B\X0\ Room`, "\u90e8\u5c4b Room"},
		{"x byte", `caf\X\E9`, "caf\u00e9"},
		{"s escape", `\S\d`, "\u00e4"},
		{"dangling backslash", `a\b`, `a\b`},
		{"unterminated x2", `\X2\90E8`, `\X2\90E8`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeStepString(tt.input); got != tt.want {
				t.Errorf("decodeStepString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSchemaVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want SchemaVersion
	}{
		{"IFC2X3", SchemaIFC2X3},
		{"IFC4", SchemaIFC4},
		{"IFC4X3_ADD2", SchemaIFC4X3},
		{"ifc4", SchemaIFC4},
		{"STEP_MERGED_AP_SCHEMA", SchemaUnknown},
		{"", SchemaUnknown},
	}

	for _, tt := range tests {
		if got := parseSchemaVersion(tt.raw); got != tt.want {
			t.Errorf("parseSchemaVersion(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestStringQuoteEscape(t *testing.T) {
	input := "ISO-10303-21;\nDATA;\n#1=IFCBUILDING('g',$,'O''Brien Tower',$);\nENDSEC;\nEND-ISO-10303-21;"
	m, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := m.Get(1).AttrString(2); got != "O'Brien Tower" {
		t.Errorf("name = %q, want O'Brien Tower", got)
	}
}

func TestCommentsAndWhitespace(t *testing.T) {
	input := "ISO-10303-21;\n/* generated */\nDATA;\n/* wall\n   record */ #1 = IFCWALL ( 'g' , $ , 'W' , $ );\nENDSEC;\nEND-ISO-10303-21;"
	m, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.Count() != 1 {
		t.Fatalf("entity count = %d, want 1", m.Count())
	}
	if got := m.Get(1).AttrString(2); got != "W" {
		t.Errorf("name = %q, want W", got)
	}
}
