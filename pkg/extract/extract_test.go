package extract

import (
	"testing"

	"github.com/buildscope/bimgraph/pkg/common"
	"github.com/buildscope/bimgraph/pkg/ifc"
)

const testModel = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
FILE_NAME('tower.ifc','2024-01-01T00:00:00',(''),(''),'','','');
FILE_SCHEMA(('IFC2X3'));
ENDSEC;
DATA;
#1=IFCBUILDING('bldg-guid',$,'Tower',$,$,$,$,$,$,$,$,$);
#2=IFCBUILDINGSTOREY('storey-guid',$,'Level 1','ground floor',$,$,$,$,.ELEMENT.,0.);
#3=IFCSPACE('space-guid',$,'101',$,$,$,$,'Meeting Room',$,$,$);
#4=IFCDOOR('door-guid',$,'D1',$,$,$,$,$,2.1,0.9);
#5=IFCWALLSTANDARDCASE('wall-guid',$,'W1',$,$,$,$,$);
#6=IFCFURNISHINGELEMENT('chair-guid',$,'Chair',$,$,$,$,$);
#7=IFCRELAGGREGATES('agg1',$,$,$,#1,(#2));
#8=IFCRELAGGREGATES('agg2',$,$,$,#2,(#3));
#9=IFCRELCONTAINEDINSPATIALSTRUCTURE('cont1',$,$,$,(#4,#5,#6),#2);
#10=IFCMATERIAL('Concrete');
#11=IFCMATERIAL('Insulation');
#12=IFCMATERIALLAYER(#10,0.2,$);
#13=IFCMATERIALLAYER(#11,0.05,$);
#14=IFCMATERIALLAYERSET((#12,#13),'Exterior Wall');
#15=IFCMATERIALLAYERSETUSAGE(#14,.AXIS2.,.POSITIVE.,0.);
#16=IFCRELASSOCIATESMATERIAL('mat1',$,$,$,(#5),#15);
#17=IFCRELASSOCIATESMATERIAL('mat2',$,$,$,(#6),#10);
ENDSEC;
END-ISO-10303-21;
`

func decodeTestModel(t *testing.T) *common.BuildingModel {
	t.Helper()
	m, err := ifc.Decode([]byte(testModel))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return FromModel(m)
}

func TestFromModelEntities(t *testing.T) {
	bm := decodeTestModel(t)

	if bm.SchemaVersion != "IFC2X3" {
		t.Errorf("schema version = %q, want IFC2X3", bm.SchemaVersion)
	}

	if len(bm.Buildings) != 1 || bm.Buildings[0].GUID != "bldg-guid" || bm.Buildings[0].Name != "Tower" {
		t.Errorf("buildings = %+v", bm.Buildings)
	}

	if len(bm.Storeys) != 1 {
		t.Fatalf("storeys = %+v", bm.Storeys)
	}
	s := bm.Storeys[0]
	if !s.HasElevation || s.Elevation != 0 {
		t.Errorf("storey elevation = %v (set=%v), want 0 set", s.Elevation, s.HasElevation)
	}
	if s.Description != "ground floor" {
		t.Errorf("storey description = %q", s.Description)
	}

	if len(bm.Spaces) != 1 || bm.Spaces[0].LongName != "Meeting Room" {
		t.Errorf("spaces = %+v", bm.Spaces)
	}

	if len(bm.Doors) != 1 {
		t.Fatalf("doors = %+v", bm.Doors)
	}
	d := bm.Doors[0]
	if !d.HasHeight || d.Height != 2.1 || !d.HasWidth || d.Width != 0.9 {
		t.Errorf("door dimensions = %+v", d)
	}

	// The wall arrives via the subtype lookup and keeps the base type tag.
	if len(bm.Elements) != 1 {
		t.Fatalf("elements = %+v", bm.Elements)
	}
	if bm.Elements[0].ElementType != "IfcWall" || bm.Elements[0].GUID != "wall-guid" {
		t.Errorf("generic element = %+v", bm.Elements[0])
	}

	if len(bm.Furniture) != 1 || bm.Furniture[0].ElementType != "IfcFurnishingElement" {
		t.Errorf("furniture = %+v", bm.Furniture)
	}
}

func TestFromModelContainment(t *testing.T) {
	bm := decodeTestModel(t)

	byKind := make(map[common.ContainmentKind][]common.Containment)
	for _, c := range bm.Containments {
		byKind[c.Kind] = append(byKind[c.Kind], c)
	}

	storeys := byKind[common.ContainsStorey]
	if len(storeys) != 1 || storeys[0].ContainerGUID != "bldg-guid" || storeys[0].ElementGUID != "storey-guid" {
		t.Errorf("CONTAINS_STOREY edges = %+v", storeys)
	}

	spaces := byKind[common.ContainsSpace]
	if len(spaces) != 1 || spaces[0].ContainerGUID != "storey-guid" || spaces[0].ElementGUID != "space-guid" {
		t.Errorf("CONTAINS_SPACE edges = %+v", spaces)
	}

	contains := byKind[common.Contains]
	if len(contains) != 3 {
		t.Fatalf("CONTAINS edges = %+v", contains)
	}
	for _, c := range contains {
		if c.ContainerGUID != "storey-guid" {
			t.Errorf("CONTAINS container = %q, want storey-guid", c.ContainerGUID)
		}
	}

	if len(bm.Aggregations) != 0 {
		t.Errorf("aggregations = %+v, want none (all classified as containment)", bm.Aggregations)
	}
}

func TestFromModelMaterials(t *testing.T) {
	bm := decodeTestModel(t)

	names := make(map[string]bool)
	for _, m := range bm.Materials {
		names[m.Name] = true
	}
	if !names["Concrete"] || !names["Insulation"] || len(bm.Materials) != 2 {
		t.Errorf("materials = %+v", bm.Materials)
	}

	if len(bm.LayerSets) != 1 {
		t.Fatalf("layer sets = %+v", bm.LayerSets)
	}
	set := bm.LayerSets[0]
	if set.Name != "Exterior Wall" || len(set.Layers) != 2 {
		t.Fatalf("layer set = %+v", set)
	}
	if set.Layers[0].MaterialName != "Concrete" || set.Layers[0].Thickness != 0.2 {
		t.Errorf("first layer = %+v", set.Layers[0])
	}

	if len(bm.MaterialLinks) != 2 {
		t.Fatalf("material links = %+v", bm.MaterialLinks)
	}
	for _, l := range bm.MaterialLinks {
		switch l.ElementGUID {
		case "wall-guid":
			// The usage indirection resolves to its layer set.
			if l.LayerSetName != "Exterior Wall" || l.MaterialName != "" {
				t.Errorf("wall link = %+v", l)
			}
		case "chair-guid":
			if l.MaterialName != "Concrete" || l.LayerSetName != "" {
				t.Errorf("chair link = %+v", l)
			}
		default:
			t.Errorf("unexpected link %+v", l)
		}
	}
}

func TestFromModelSkipsRecordsWithoutGUID(t *testing.T) {
	input := `ISO-10303-21;
DATA;
#1=IFCBUILDING($,$,'No Guid',$,$,$,$,$,$,$,$,$);
#2=IFCBUILDING('ok-guid',$,'Fine',$,$,$,$,$,$,$,$,$);
ENDSEC;
END-ISO-10303-21;
`
	m, err := ifc.Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	bm := FromModel(m)
	if len(bm.Buildings) != 1 || bm.Buildings[0].GUID != "ok-guid" {
		t.Errorf("buildings = %+v, want only ok-guid", bm.Buildings)
	}
}

func TestCanonicalTypeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"IFCWALL", "IfcWall"},
		{"IFCFLOWSEGMENT", "IfcFlowSegment"},
		{"IFCFURNITURE", "IfcFurniture"},
		{"IFCCOVERING", "IfcCovering"},
		{"ODDBALL", "ODDBALL"},
	}
	for _, tt := range tests {
		if got := canonicalTypeName(tt.in); got != tt.want {
			t.Errorf("canonicalTypeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
