package graphstore

import (
	"fmt"

	"github.com/buildscope/bimgraph/pkg/common"
)

// Statement is one parameterized Cypher statement.
type Statement struct {
	Cypher string
	Params map[string]any
}

// CoreLabels are the node labels that get guid+session uniqueness
// constraints. Materials and layer sets key on name instead and are handled
// separately in SchemaStatements.
var CoreLabels = []string{
	"IfcBuilding", "IfcBuildingStorey", "IfcSpace", "IfcDoor", "IfcWindow",
	"IfcBuildingElementProxy", "IfcFurnishingElement", "IfcElement",
}

// SchemaStatements returns the constraint and index DDL. Statements are
// independent; callers run each and tolerate individual failures.
func SchemaStatements() []string {
	var out []string
	for _, label := range CoreLabels {
		out = append(out,
			fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE (n.guid, n.session_id) IS UNIQUE", label),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.session_id)", label),
		)
	}
	for _, label := range []string{"IfcMaterial", "IfcMaterialLayerSet"} {
		out = append(out,
			fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE (n.name, n.session_id) IS UNIQUE", label),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.session_id)", label),
		)
	}
	return out
}

// PurgeStatement removes every node (and its relationships) of a session.
func PurgeStatement(sessionID string) Statement {
	return Statement{
		Cypher: "MATCH (n {session_id: $session_id}) DETACH DELETE n",
		Params: map[string]any{"session_id": sessionID},
	}
}

// mergeNodes builds one UNWIND batch that merges nodes of a fixed label set
// on (guid, session) and applies the per-row property map.
func mergeNodes(labels string, sessionID string, rows []map[string]any) Statement {
	return Statement{
		Cypher: "UNWIND $rows AS row " +
			"MERGE (n:" + labels + " {guid: row.guid, session_id: $session_id}) " +
			"SET n += row.props",
		Params: map[string]any{"session_id": sessionID, "rows": rows},
	}
}

func rootProps(name, description string) map[string]any {
	return map[string]any{"name": name, "description": description}
}

// NodeStatements builds the node batches for one model, one statement per
// label group. Statements are independent of each other and may run in
// parallel; every one of them must complete before any EdgeStatements run.
func NodeStatements(sessionID string, m *common.BuildingModel) []Statement {
	var out []Statement

	if rows := buildingRows(m.Buildings); len(rows) > 0 {
		out = append(out, mergeNodes("IfcBuilding", sessionID, rows))
	}
	if rows := storeyRows(m.Storeys); len(rows) > 0 {
		out = append(out, mergeNodes("IfcBuildingStorey", sessionID, rows))
	}
	if rows := spaceRows(m.Spaces); len(rows) > 0 {
		out = append(out, mergeNodes("IfcSpace", sessionID, rows))
	}
	if rows := openingRows(m.Doors); len(rows) > 0 {
		out = append(out, mergeNodes("IfcDoor", sessionID, rows))
	}
	if rows := openingRows(m.Windows); len(rows) > 0 {
		out = append(out, mergeNodes("IfcWindow", sessionID, rows))
	}
	if rows := elementRows(m.Proxies); len(rows) > 0 {
		out = append(out, mergeNodes("IfcBuildingElementProxy", sessionID, rows))
	}
	if rows := elementRows(m.Furniture); len(rows) > 0 {
		out = append(out, mergeNodes("IfcFurnishingElement", sessionID, rows))
	}

	// Generic elements carry their concrete type as a second label, which
	// cannot be parameterized, so each type becomes its own batch.
	for _, typ := range elementTypeOrder(m.Elements) {
		var group []common.Element
		for _, e := range m.Elements {
			if e.ElementType == typ {
				group = append(group, e)
			}
		}
		out = append(out, mergeNodes("IfcElement:"+typ, sessionID, elementRows(group)))
	}

	if rows := materialRows(m.Materials); len(rows) > 0 {
		out = append(out, Statement{
			Cypher: "UNWIND $rows AS row " +
				"MERGE (n:IfcMaterial {name: row.name, session_id: $session_id})",
			Params: map[string]any{"session_id": sessionID, "rows": rows},
		})
	}
	if rows := layerSetRows(m.LayerSets); len(rows) > 0 {
		out = append(out, Statement{
			Cypher: "UNWIND $rows AS row " +
				"MERGE (n:IfcMaterialLayerSet {name: row.name, session_id: $session_id})",
			Params: map[string]any{"session_id": sessionID, "rows": rows},
		})
	}

	return out
}

// EdgeStatements builds the relationship batches. Both endpoints are matched
// within the session, so an edge whose endpoint never materialized is a
// silent no-op rather than an orphan node.
func EdgeStatements(sessionID string, m *common.BuildingModel) []Statement {
	var out []Statement

	for _, kind := range []common.ContainmentKind{
		common.ContainsStorey, common.ContainsSpace, common.Contains,
	} {
		var rows []map[string]any
		for _, c := range m.Containments {
			if c.Kind != kind {
				continue
			}
			rows = append(rows, map[string]any{
				"container_guid": c.ContainerGUID,
				"element_guid":   c.ElementGUID,
			})
		}
		if len(rows) == 0 {
			continue
		}
		out = append(out, Statement{
			Cypher: "UNWIND $rows AS row " +
				"MATCH (a {guid: row.container_guid, session_id: $session_id}) " +
				"MATCH (b {guid: row.element_guid, session_id: $session_id}) " +
				"MERGE (a)-[:" + string(kind) + "]->(b)",
			Params: map[string]any{"session_id": sessionID, "rows": rows},
		})
	}

	if len(m.Aggregations) > 0 {
		var rows []map[string]any
		for _, a := range m.Aggregations {
			rows = append(rows, map[string]any{
				"parent_guid": a.ParentGUID,
				"child_guid":  a.ChildGUID,
			})
		}
		out = append(out, Statement{
			Cypher: "UNWIND $rows AS row " +
				"MATCH (a {guid: row.parent_guid, session_id: $session_id}) " +
				"MATCH (b {guid: row.child_guid, session_id: $session_id}) " +
				"MERGE (a)-[:DECOMPOSES]->(b)",
			Params: map[string]any{"session_id": sessionID, "rows": rows},
		})
	}

	var materialRows, layerSetLinkRows []map[string]any
	for _, l := range m.MaterialLinks {
		switch {
		case l.MaterialName != "":
			materialRows = append(materialRows, map[string]any{
				"element_guid":  l.ElementGUID,
				"material_name": l.MaterialName,
			})
		case l.LayerSetName != "":
			layerSetLinkRows = append(layerSetLinkRows, map[string]any{
				"element_guid": l.ElementGUID,
				"set_name":     l.LayerSetName,
			})
		}
	}
	if len(materialRows) > 0 {
		out = append(out, Statement{
			Cypher: "UNWIND $rows AS row " +
				"MATCH (e {guid: row.element_guid, session_id: $session_id}) " +
				"MATCH (m:IfcMaterial {name: row.material_name, session_id: $session_id}) " +
				"MERGE (e)-[:HAS_MATERIAL]->(m)",
			Params: map[string]any{"session_id": sessionID, "rows": materialRows},
		})
	}
	if len(layerSetLinkRows) > 0 {
		out = append(out, Statement{
			Cypher: "UNWIND $rows AS row " +
				"MATCH (e {guid: row.element_guid, session_id: $session_id}) " +
				"MATCH (s:IfcMaterialLayerSet {name: row.set_name, session_id: $session_id}) " +
				"MERGE (e)-[:HAS_MATERIAL_LAYER_SET]->(s)",
			Params: map[string]any{"session_id": sessionID, "rows": layerSetLinkRows},
		})
	}

	var layerRows []map[string]any
	for _, set := range m.LayerSets {
		for _, layer := range set.Layers {
			if layer.MaterialName == "" {
				continue
			}
			row := map[string]any{
				"set_name":      set.Name,
				"material_name": layer.MaterialName,
			}
			if layer.HasThickness {
				row["thickness"] = layer.Thickness
			} else {
				row["thickness"] = nil
			}
			layerRows = append(layerRows, row)
		}
	}
	if len(layerRows) > 0 {
		out = append(out, Statement{
			Cypher: "UNWIND $rows AS row " +
				"MATCH (s:IfcMaterialLayerSet {name: row.set_name, session_id: $session_id}) " +
				"MATCH (m:IfcMaterial {name: row.material_name, session_id: $session_id}) " +
				"MERGE (s)-[r:CONTAINS_LAYER]->(m) " +
				"SET r.thickness = row.thickness",
			Params: map[string]any{"session_id": sessionID, "rows": layerRows},
		})
	}

	return out
}

// CountModel reports how many nodes and relationships a model materializes,
// for the session registry.
func CountModel(m *common.BuildingModel) ImportStats {
	layerCount := 0
	for _, set := range m.LayerSets {
		for _, layer := range set.Layers {
			if layer.MaterialName != "" {
				layerCount++
			}
		}
	}
	return ImportStats{
		Nodes: len(m.Buildings) + len(m.Storeys) + len(m.Spaces) +
			len(m.Doors) + len(m.Windows) + len(m.Proxies) +
			len(m.Furniture) + len(m.Elements) + len(m.Materials) +
			len(m.LayerSets),
		Relationships: len(m.Containments) + len(m.Aggregations) +
			len(m.MaterialLinks) + layerCount,
	}
}

func buildingRows(in []common.Building) []map[string]any {
	rows := make([]map[string]any, 0, len(in))
	for _, b := range in {
		rows = append(rows, map[string]any{
			"guid":  b.GUID,
			"props": rootProps(b.Name, b.Description),
		})
	}
	return rows
}

func storeyRows(in []common.Storey) []map[string]any {
	rows := make([]map[string]any, 0, len(in))
	for _, s := range in {
		props := rootProps(s.Name, s.Description)
		// Always present so elevation filters see every storey; an unset
		// elevation reads as ground level.
		props["elevation"] = 0.0
		if s.HasElevation {
			props["elevation"] = s.Elevation
		}
		rows = append(rows, map[string]any{"guid": s.GUID, "props": props})
	}
	return rows
}

func spaceRows(in []common.Space) []map[string]any {
	rows := make([]map[string]any, 0, len(in))
	for _, s := range in {
		props := rootProps(s.Name, s.Description)
		if s.LongName != "" {
			props["long_name"] = s.LongName
		}
		rows = append(rows, map[string]any{"guid": s.GUID, "props": props})
	}
	return rows
}

func openingRows(in []common.Opening) []map[string]any {
	rows := make([]map[string]any, 0, len(in))
	for _, o := range in {
		props := rootProps(o.Name, o.Description)
		if o.HasHeight {
			props["overall_height"] = o.Height
		}
		if o.HasWidth {
			props["overall_width"] = o.Width
		}
		rows = append(rows, map[string]any{"guid": o.GUID, "props": props})
	}
	return rows
}

func elementRows(in []common.Element) []map[string]any {
	rows := make([]map[string]any, 0, len(in))
	for _, e := range in {
		props := rootProps(e.Name, e.Description)
		props["element_type"] = e.ElementType
		rows = append(rows, map[string]any{"guid": e.GUID, "props": props})
	}
	return rows
}

func materialRows(in []common.Material) []map[string]any {
	rows := make([]map[string]any, 0, len(in))
	for _, m := range in {
		rows = append(rows, map[string]any{"name": m.Name})
	}
	return rows
}

func layerSetRows(in []common.MaterialLayerSet) []map[string]any {
	rows := make([]map[string]any, 0, len(in))
	for _, s := range in {
		rows = append(rows, map[string]any{"name": s.Name})
	}
	return rows
}

// elementTypeOrder returns the distinct element types in first-seen order so
// batch order is deterministic across imports.
func elementTypeOrder(elements []common.Element) []string {
	var order []string
	seen := make(map[string]struct{})
	for _, e := range elements {
		if _, ok := seen[e.ElementType]; ok {
			continue
		}
		seen[e.ElementType] = struct{}{}
		order = append(order, e.ElementType)
	}
	return order
}
