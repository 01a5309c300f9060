package graphstore

import (
	"strings"
	"testing"

	"github.com/buildscope/bimgraph/pkg/common"
)

func testBuildingModel() *common.BuildingModel {
	return &common.BuildingModel{
		SchemaVersion: "IFC4",
		Buildings:     []common.Building{{GUID: "b1", Name: "HQ"}},
		Storeys: []common.Storey{
			{GUID: "s1", Name: "L1", Elevation: 0, HasElevation: true},
			{GUID: "s2", Name: "L2", Elevation: 3.2, HasElevation: true},
		},
		Doors: []common.Opening{{GUID: "d1", Name: "D", Height: 2.0, HasHeight: true}},
		Elements: []common.Element{
			{GUID: "w1", ElementType: "IfcWall"},
			{GUID: "w2", ElementType: "IfcWall"},
			{GUID: "c1", ElementType: "IfcColumn"},
		},
		Materials: []common.Material{{Name: "Concrete"}},
		LayerSets: []common.MaterialLayerSet{{
			Name: "EW",
			Layers: []common.MaterialLayer{
				{MaterialName: "Concrete", Thickness: 0.2, HasThickness: true},
			},
		}},
		Containments: []common.Containment{
			{ContainerGUID: "b1", ElementGUID: "s1", Kind: common.ContainsStorey},
			{ContainerGUID: "s1", ElementGUID: "d1", Kind: common.Contains},
		},
		Aggregations:  []common.Aggregation{{ParentGUID: "s2", ChildGUID: "w2"}},
		MaterialLinks: []common.MaterialLink{{ElementGUID: "w1", LayerSetName: "EW"}},
	}
}

func TestPurgeStatement(t *testing.T) {
	stmt := PurgeStatement("sess-1")
	if !strings.Contains(stmt.Cypher, "DETACH DELETE") {
		t.Errorf("purge cypher = %q", stmt.Cypher)
	}
	if stmt.Params["session_id"] != "sess-1" {
		t.Errorf("purge params = %v", stmt.Params)
	}
}

func TestNodeStatements(t *testing.T) {
	stmts := NodeStatements("sess-1", testBuildingModel())

	// Buildings, storeys, doors, two element-type groups, materials, layer sets.
	if len(stmts) != 7 {
		t.Fatalf("got %d statements, want 7", len(stmts))
	}

	for _, stmt := range stmts {
		if stmt.Params["session_id"] != "sess-1" {
			t.Errorf("statement missing session param: %q", stmt.Cypher)
		}
		if !strings.Contains(stmt.Cypher, "MERGE") {
			t.Errorf("node statement must MERGE, got %q", stmt.Cypher)
		}
		if strings.Contains(stmt.Cypher, "CREATE") {
			t.Errorf("node statement must not CREATE, got %q", stmt.Cypher)
		}
	}

	var wallStmt, columnStmt bool
	for _, stmt := range stmts {
		if strings.Contains(stmt.Cypher, ":IfcElement:IfcWall ") {
			wallStmt = true
			rows := stmt.Params["rows"].([]map[string]any)
			if len(rows) != 2 {
				t.Errorf("wall batch has %d rows, want 2", len(rows))
			}
		}
		if strings.Contains(stmt.Cypher, ":IfcElement:IfcColumn ") {
			columnStmt = true
		}
	}
	if !wallStmt || !columnStmt {
		t.Errorf("missing per-type element batches (wall=%v column=%v)", wallStmt, columnStmt)
	}
}

func TestNodeStatementProps(t *testing.T) {
	m := &common.BuildingModel{
		Storeys: []common.Storey{
			{GUID: "s1", Name: "L1", Elevation: 2.5, HasElevation: true},
			{GUID: "s2", Name: "Roof"},
		},
	}
	stmts := NodeStatements("x", m)
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	rows := stmts[0].Params["rows"].([]map[string]any)

	props0 := rows[0]["props"].(map[string]any)
	if props0["elevation"] != 2.5 {
		t.Errorf("first storey props = %v", props0)
	}
	props1 := rows[1]["props"].(map[string]any)
	if props1["elevation"] != 0.0 {
		t.Errorf("unset elevation must default to 0.0, got %v", props1)
	}
}

func TestEdgeStatements(t *testing.T) {
	stmts := EdgeStatements("sess-1", testBuildingModel())

	// CONTAINS_STOREY, CONTAINS, DECOMPOSES, HAS_MATERIAL_LAYER_SET,
	// CONTAINS_LAYER.
	if len(stmts) != 5 {
		t.Fatalf("got %d statements, want 5", len(stmts))
	}

	wantRel := []string{
		"CONTAINS_STOREY", "CONTAINS", "DECOMPOSES",
		"HAS_MATERIAL_LAYER_SET", "CONTAINS_LAYER",
	}
	for i, rel := range wantRel {
		if !strings.Contains(stmts[i].Cypher, rel) {
			t.Errorf("statement %d = %q, want relationship %s", i, stmts[i].Cypher, rel)
		}
		if stmts[i].Params["session_id"] != "sess-1" {
			t.Errorf("statement %d missing session param", i)
		}
		// Both endpoints must be matched, never merged into existence.
		if strings.Count(stmts[i].Cypher, "MATCH") != 2 {
			t.Errorf("statement %d should MATCH both endpoints: %q", i, stmts[i].Cypher)
		}
	}
}

func TestEdgeStatementLayerThickness(t *testing.T) {
	stmts := EdgeStatements("x", testBuildingModel())
	last := stmts[len(stmts)-1]
	rows := last.Params["rows"].([]map[string]any)
	if len(rows) != 1 || rows[0]["thickness"] != 0.2 {
		t.Errorf("layer rows = %v", rows)
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements()
	if len(stmts) != 2*(len(CoreLabels)+2) {
		t.Fatalf("got %d schema statements", len(stmts))
	}
	for _, ddl := range stmts {
		if !strings.Contains(ddl, "IF NOT EXISTS") {
			t.Errorf("schema DDL must be idempotent: %q", ddl)
		}
	}
}

func TestCountModel(t *testing.T) {
	stats := CountModel(testBuildingModel())
	// 1 building + 2 storeys + 1 door + 3 elements + 1 material + 1 layer set.
	if stats.Nodes != 9 {
		t.Errorf("nodes = %d, want 9", stats.Nodes)
	}
	// 2 containments + 1 aggregation + 1 material link + 1 layer.
	if stats.Relationships != 5 {
		t.Errorf("relationships = %d, want 5", stats.Relationships)
	}
}
