package mediator

import "strings"

// fallbackRule maps question keywords to a canned query. Rules are checked
// in order; the first match wins.
type fallbackRule struct {
	keywords []string
	cypher   string
}

var fallbackRules = []fallbackRule{
	{
		keywords: []string{"何階", "floor", "階数"},
		cypher:   "MATCH (s:IfcBuildingStorey) WHERE s.session_id = $session_id RETURN count(s) as floor_count",
	},
	{
		keywords: []string{"部屋", "room", "space"},
		cypher:   "MATCH (sp:IfcSpace) WHERE sp.session_id = $session_id RETURN count(sp) as room_count",
	},
	{
		keywords: []string{"窓", "window"},
		cypher:   "MATCH (w:IfcWindow) WHERE w.session_id = $session_id RETURN count(w) as window_count",
	},
	{
		keywords: []string{"ドア", "door"},
		cypher:   "MATCH (d:IfcDoor) WHERE d.session_id = $session_id RETURN count(d) as door_count",
	},
	{
		keywords: []string{"家具", "furniture"},
		cypher:   "MATCH (f:IfcFurnishingElement) WHERE f.session_id = $session_id RETURN count(f) as furniture_count",
	},
	{
		keywords: []string{"壁", "wall"},
		cypher:   "MATCH (w:IfcWall) WHERE w.session_id = $session_id RETURN count(w) as wall_count",
	},
	{
		keywords: []string{"柱", "column"},
		cypher:   "MATCH (c:IfcColumn) WHERE c.session_id = $session_id RETURN count(c) as column_count",
	},
	{
		keywords: []string{"材質", "材料", "material"},
		cypher:   "MATCH (m:IfcMaterial) WHERE m.session_id = $session_id RETURN m.name as material_name",
	},
	{
		keywords: []string{"コンクリート", "concrete"},
		cypher:   "MATCH (e)-[:HAS_MATERIAL]->(m:IfcMaterial) WHERE e.session_id = $session_id AND m.name CONTAINS 'Concrete' RETURN e.element_type as element_type, count(e) as count",
	},
	{
		keywords: []string{"木材", "木", "wood", "timber"},
		cypher:   "MATCH (e)-[:HAS_MATERIAL]->(m:IfcMaterial) WHERE e.session_id = $session_id AND (m.name CONTAINS 'Wood' OR m.name CONTAINS '木' OR m.name CONTAINS 'Timber') RETURN e.element_type as element_type, count(e) as count",
	},
	{
		keywords: []string{"鋼", "金属", "steel", "metal"},
		cypher:   "MATCH (e)-[:HAS_MATERIAL]->(m:IfcMaterial) WHERE e.session_id = $session_id AND (m.name CONTAINS 'Steel' OR m.name CONTAINS 'Metal' OR m.name CONTAINS '鋼' OR m.name CONTAINS 'Aluminum') RETURN e.element_type as element_type, count(e) as count",
	},
}

// fallbackDefaultCypher is the per-label node census used when no keyword
// matches. It always yields something to talk about.
const fallbackDefaultCypher = "MATCH (n) WHERE n.session_id = $session_id RETURN labels(n) as type, count(n) as count ORDER BY count DESC"

// FallbackCypher returns a canned session-scoped query selected by keyword
// matching. Used when the model cannot produce a usable query.
func FallbackCypher(question string) string {
	q := strings.ToLower(question)

	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.cypher
			}
		}
	}

	return fallbackDefaultCypher
}
