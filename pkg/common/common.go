// Package common holds the flat record types the extraction pipeline emits
// and the graph writer consumes. Records carry GUIDs, never entity pointers,
// so the two sides stay decoupled.
package common

// BuildingModel is the complete extraction result for one model file. Slices
// are in model file order, which makes re-imports of the same file
// byte-for-byte reproducible.
type BuildingModel struct {
	SchemaVersion string `json:"schema_version"`
	SourceFile    string `json:"source_file"`

	Buildings []Building `json:"buildings"`
	Storeys   []Storey   `json:"storeys"`
	Spaces    []Space    `json:"spaces"`
	Doors     []Opening  `json:"doors"`
	Windows   []Opening  `json:"windows"`
	Proxies   []Element  `json:"proxies"`
	Furniture []Element  `json:"furniture"`
	Elements  []Element  `json:"elements"`

	Materials []Material         `json:"materials"`
	LayerSets []MaterialLayerSet `json:"layer_sets"`

	Containments  []Containment  `json:"containments"`
	Aggregations  []Aggregation  `json:"aggregations"`
	MaterialLinks []MaterialLink `json:"material_links"`
}

// Building is an IfcBuilding record.
type Building struct {
	GUID        string `json:"guid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Storey is an IfcBuildingStorey record. HasElevation distinguishes a real
// elevation of 0 from an unset one.
type Storey struct {
	GUID         string  `json:"guid"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Elevation    float64 `json:"elevation"`
	HasElevation bool    `json:"has_elevation"`
}

// Space is an IfcSpace record.
type Space struct {
	GUID        string `json:"guid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LongName    string `json:"long_name"`
}

// Opening is a door or window. Height and width are the overall dimensions
// when the authoring tool filled them in.
type Opening struct {
	GUID        string  `json:"guid"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Height      float64 `json:"height"`
	HasHeight   bool    `json:"has_height"`
	Width       float64 `json:"width"`
	HasWidth    bool    `json:"has_width"`
}

// Element is any other materialized product: proxies, furnishing and the
// generic element list. ElementType keeps the concrete entity type
// (e.g. "IfcWall") so the writer can attach it as a second label.
type Element struct {
	GUID        string `json:"guid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ElementType string `json:"element_type"`
}

// Material is an IfcMaterial. Materials carry no GUID in the schema, so the
// name is the identity within a session.
type Material struct {
	Name string `json:"name"`
}

// MaterialLayerSet groups ordered material layers under a set name.
type MaterialLayerSet struct {
	Name   string          `json:"name"`
	Layers []MaterialLayer `json:"layers"`
}

// MaterialLayer is one layer of a set: the material name plus its thickness.
type MaterialLayer struct {
	MaterialName string  `json:"material_name"`
	Thickness    float64 `json:"thickness"`
	HasThickness bool    `json:"has_thickness"`
}

// Containment links a spatial container to a contained product, both by GUID.
// Kind selects the relationship the writer materializes.
type Containment struct {
	ContainerGUID string          `json:"container_guid"`
	ElementGUID   string          `json:"element_guid"`
	Kind          ContainmentKind `json:"kind"`
}

// ContainmentKind is the flavor of spatial containment.
type ContainmentKind string

const (
	// ContainsStorey links a building to one of its storeys.
	ContainsStorey ContainmentKind = "CONTAINS_STOREY"
	// ContainsSpace links a storey to one of its spaces.
	ContainsSpace ContainmentKind = "CONTAINS_SPACE"
	// Contains links a spatial container to a product placed in it.
	Contains ContainmentKind = "CONTAINS"
)

// Aggregation is a whole/part decomposition edge (parent decomposed by child)
// that is not one of the spatial containment flavors above.
type Aggregation struct {
	ParentGUID string `json:"parent_guid"`
	ChildGUID  string `json:"child_guid"`
}

// MaterialLink associates a product with a material or a layer set. Exactly
// one of MaterialName and LayerSetName is set.
type MaterialLink struct {
	ElementGUID  string `json:"element_guid"`
	MaterialName string `json:"material_name,omitempty"`
	LayerSetName string `json:"layer_set_name,omitempty"`
}
