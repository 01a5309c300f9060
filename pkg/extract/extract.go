// Package extract walks a parsed IFC model and flattens the entities and
// relationships the graph cares about into pkg/common records. Extraction is
// tolerant per record: an entity missing its GUID is logged and skipped, the
// rest of the model still goes through.
package extract

import (
	"fmt"
	"strings"

	"github.com/buildscope/bimgraph/pkg/common"
	"github.com/buildscope/bimgraph/pkg/ifc"
	"github.com/buildscope/bimgraph/pkg/logger"
)

// Attribute positions shared by every IfcRoot subtype.
const (
	attrGUID        = 0
	attrName        = 2
	attrDescription = 3
)

// Type-specific attribute positions.
const (
	attrStoreyElevation = 9
	attrSpaceLongName   = 7
	attrOverallHeight   = 8
	attrOverallWidth    = 9
)

// genericElementTypes is the catch-all list of product types materialized as
// generic elements with a type tag. Doors, windows, proxies and furnishing
// are handled separately with richer attributes.
var genericElementTypes = []string{
	"IfcWall", "IfcSlab", "IfcRoof", "IfcColumn", "IfcBeam",
	"IfcStair", "IfcRamp", "IfcRailing", "IfcCurtainWall", "IfcPlate",
	"IfcMember", "IfcFooting", "IfcPile",
	"IfcFlowSegment", "IfcFlowFitting", "IfcFlowTerminal",
	"IfcFlowController", "IfcFlowMovingDevice", "IfcFlowStorageDevice",
	"IfcFlowTreatmentDevice", "IfcEnergyConversionDevice",
	"IfcTransportElement", "IfcVirtualElement", "IfcGeographicElement",
	"IfcSystemFurnitureElement", "IfcBuildingElementPart",
}

// FromModel extracts the building model records from a parsed file.
func FromModel(m *ifc.Model) *common.BuildingModel {
	x := &extractor{
		model: m,
		out: &common.BuildingModel{
			SchemaVersion: string(m.Header.Schema),
			SourceFile:    m.Header.FileName,
		},
		seen: make(map[string]struct{}),
	}

	x.extractBuildings()
	x.extractStoreys()
	x.extractSpaces()
	x.extractOpenings()
	x.extractProxies()
	x.extractFurniture()
	x.extractGenericElements()
	x.extractMaterials()
	x.extractRelationships()

	return x.out
}

type extractor struct {
	model *ifc.Model
	out   *common.BuildingModel

	// seen tracks GUIDs already materialized so a product captured by a
	// dedicated extractor is not duplicated by the generic element sweep
	// (IfcSystemFurnitureElement is both furnishing and on the generic list).
	seen map[string]struct{}
}

// rootAttrs pulls the IfcRoot triple. A missing GUID disqualifies the record.
func (x *extractor) rootAttrs(e *ifc.Entity) (guid, name, description string, ok bool) {
	guid = e.AttrString(attrGUID)
	if guid == "" {
		logger.Warn("skipping entity without GUID", "id", e.ID, "type", e.Type)
		return "", "", "", false
	}
	return guid, e.AttrString(attrName), e.AttrString(attrDescription), true
}

func (x *extractor) mark(guid string) bool {
	if _, dup := x.seen[guid]; dup {
		return false
	}
	x.seen[guid] = struct{}{}
	return true
}

func (x *extractor) extractBuildings() {
	for _, e := range x.model.ByType("IfcBuilding") {
		guid, name, desc, ok := x.rootAttrs(e)
		if !ok || !x.mark(guid) {
			continue
		}
		x.out.Buildings = append(x.out.Buildings, common.Building{
			GUID: guid, Name: name, Description: desc,
		})
	}
}

func (x *extractor) extractStoreys() {
	for _, e := range x.model.ByType("IfcBuildingStorey") {
		guid, name, desc, ok := x.rootAttrs(e)
		if !ok || !x.mark(guid) {
			continue
		}
		s := common.Storey{GUID: guid, Name: name, Description: desc}
		s.Elevation, s.HasElevation = e.AttrFloat(attrStoreyElevation)
		x.out.Storeys = append(x.out.Storeys, s)
	}
}

func (x *extractor) extractSpaces() {
	for _, e := range x.model.ByType("IfcSpace") {
		guid, name, desc, ok := x.rootAttrs(e)
		if !ok || !x.mark(guid) {
			continue
		}
		x.out.Spaces = append(x.out.Spaces, common.Space{
			GUID: guid, Name: name, Description: desc,
			LongName: e.AttrString(attrSpaceLongName),
		})
	}
}

func (x *extractor) extractOpenings() {
	x.out.Doors = x.openingsOf("IfcDoor")
	x.out.Windows = x.openingsOf("IfcWindow")
}

func (x *extractor) openingsOf(typ string) []common.Opening {
	var out []common.Opening
	for _, e := range x.model.ByType(typ) {
		guid, name, desc, ok := x.rootAttrs(e)
		if !ok || !x.mark(guid) {
			continue
		}
		o := common.Opening{GUID: guid, Name: name, Description: desc}
		o.Height, o.HasHeight = e.AttrFloat(attrOverallHeight)
		o.Width, o.HasWidth = e.AttrFloat(attrOverallWidth)
		out = append(out, o)
	}
	return out
}

func (x *extractor) extractProxies() {
	for _, e := range x.model.ByType("IfcBuildingElementProxy") {
		guid, name, desc, ok := x.rootAttrs(e)
		if !ok || !x.mark(guid) {
			continue
		}
		x.out.Proxies = append(x.out.Proxies, common.Element{
			GUID: guid, Name: name, Description: desc,
			ElementType: "IfcBuildingElementProxy",
		})
	}
}

// extractFurniture collects furnishing. IfcFurnishingElement covers IFC2X3;
// under IFC4 the subtype lookup also folds in IfcFurniture.
func (x *extractor) extractFurniture() {
	for _, e := range x.model.ByType("IfcFurnishingElement") {
		guid, name, desc, ok := x.rootAttrs(e)
		if !ok || !x.mark(guid) {
			continue
		}
		x.out.Furniture = append(x.out.Furniture, common.Element{
			GUID: guid, Name: name, Description: desc,
			ElementType: canonicalTypeName(e.Type),
		})
	}
}

func (x *extractor) extractGenericElements() {
	for _, typ := range genericElementTypes {
		for _, e := range x.model.ByType(typ) {
			guid, name, desc, ok := x.rootAttrs(e)
			if !ok || !x.mark(guid) {
				continue
			}
			x.out.Elements = append(x.out.Elements, common.Element{
				GUID: guid, Name: name, Description: desc,
				ElementType: typ,
			})
		}
	}
}

// canonicalTypeName converts the parser's upper-case entity type to the
// conventional IfcCamelCase spelling used for labels and type tags.
func canonicalTypeName(upper string) string {
	for _, typ := range genericElementTypes {
		if strings.EqualFold(typ, upper) {
			return typ
		}
	}
	switch upper {
	case "IFCFURNISHINGELEMENT":
		return "IfcFurnishingElement"
	case "IFCFURNITURE":
		return "IfcFurniture"
	case "IFCBUILDINGELEMENTPROXY":
		return "IfcBuildingElementProxy"
	}
	// Fallback keeps the Ifc prefix and title-cases the remainder.
	if len(upper) > 3 && strings.HasPrefix(upper, "IFC") {
		rest := strings.ToLower(upper[3:])
		return "Ifc" + strings.ToUpper(rest[:1]) + rest[1:]
	}
	return upper
}

func (x *extractor) extractMaterials() {
	seenMaterial := make(map[string]struct{})
	addMaterial := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seenMaterial[name]; dup {
			return
		}
		seenMaterial[name] = struct{}{}
		x.out.Materials = append(x.out.Materials, common.Material{Name: name})
	}

	for _, e := range x.model.ByExactType("IfcMaterial") {
		name := e.AttrString(0)
		if name == "" {
			logger.Warn("skipping unnamed material", "id", e.ID)
			continue
		}
		addMaterial(name)
	}

	for _, e := range x.model.ByExactType("IfcMaterialLayerSet") {
		set := common.MaterialLayerSet{Name: layerSetName(e)}
		for _, layerID := range e.AttrRefs(0) {
			layerEnt := x.model.Get(layerID)
			if layerEnt == nil || layerEnt.Type != "IFCMATERIALLAYER" {
				continue
			}
			layer := common.MaterialLayer{}
			if matID, ok := layerEnt.AttrRef(0); ok {
				if mat := x.model.Get(matID); mat != nil {
					layer.MaterialName = mat.AttrString(0)
					addMaterial(layer.MaterialName)
				}
			}
			layer.Thickness, layer.HasThickness = layerEnt.AttrFloat(1)
			if layer.MaterialName == "" && !layer.HasThickness {
				continue
			}
			set.Layers = append(set.Layers, layer)
		}
		x.out.LayerSets = append(x.out.LayerSets, set)
	}
}

// layerSetName falls back to a synthetic name when LayerSetName is unset,
// since the name is the set's identity within a session.
func layerSetName(e *ifc.Entity) string {
	if name := e.AttrString(1); name != "" {
		return name
	}
	return fmt.Sprintf("LayerSet_%d", e.ID)
}
