package extract

import (
	"github.com/buildscope/bimgraph/pkg/common"
	"github.com/buildscope/bimgraph/pkg/logger"
)

// Attribute positions of the objectified relationship entities.
const (
	attrRelRelatedElements  = 4 // IfcRelContainedInSpatialStructure
	attrRelRelatingStruct   = 5
	attrRelRelatingObject   = 4 // IfcRelAggregates
	attrRelRelatedObjects   = 5
	attrRelAssocObjects     = 4 // IfcRelAssociatesMaterial
	attrRelRelatingMaterial = 5
)

// extractRelationships resolves the objectified relationship instances into
// GUID-keyed edges. Edges to products the node extractors never materialized
// are still emitted; the writer's MATCH-then-MERGE simply finds no node.
func (x *extractor) extractRelationships() {
	x.resolveAggregations()
	x.resolveContainment()
	x.resolveMaterialAssociations()
}

// resolveAggregations classifies IfcRelAggregates by the parent/child types:
// building to storey and storey to space get their dedicated containment
// flavors, everything else is a plain decomposition edge.
func (x *extractor) resolveAggregations() {
	for _, rel := range x.model.ByType("IfcRelAggregates") {
		parentID, ok := rel.AttrRef(attrRelRelatingObject)
		if !ok {
			logger.Warn("aggregation without relating object", "id", rel.ID)
			continue
		}
		parent := x.model.Get(parentID)
		if parent == nil {
			logger.Warn("aggregation references missing parent", "id", rel.ID, "parent", parentID)
			continue
		}
		parentGUID := parent.AttrString(attrGUID)
		if parentGUID == "" {
			continue
		}

		for _, childID := range rel.AttrRefs(attrRelRelatedObjects) {
			child := x.model.Get(childID)
			if child == nil {
				continue
			}
			childGUID := child.AttrString(attrGUID)
			if childGUID == "" {
				continue
			}

			switch {
			case parent.Type == "IFCBUILDING" && child.Type == "IFCBUILDINGSTOREY":
				x.out.Containments = append(x.out.Containments, common.Containment{
					ContainerGUID: parentGUID,
					ElementGUID:   childGUID,
					Kind:          common.ContainsStorey,
				})
			case parent.Type == "IFCBUILDINGSTOREY" && child.Type == "IFCSPACE":
				x.out.Containments = append(x.out.Containments, common.Containment{
					ContainerGUID: parentGUID,
					ElementGUID:   childGUID,
					Kind:          common.ContainsSpace,
				})
			default:
				x.out.Aggregations = append(x.out.Aggregations, common.Aggregation{
					ParentGUID: parentGUID,
					ChildGUID:  childGUID,
				})
			}
		}
	}
}

func (x *extractor) resolveContainment() {
	for _, rel := range x.model.ByType("IfcRelContainedInSpatialStructure") {
		containerID, ok := rel.AttrRef(attrRelRelatingStruct)
		if !ok {
			logger.Warn("containment without relating structure", "id", rel.ID)
			continue
		}
		container := x.model.Get(containerID)
		if container == nil {
			continue
		}
		containerGUID := container.AttrString(attrGUID)
		if containerGUID == "" {
			continue
		}

		for _, elemID := range rel.AttrRefs(attrRelRelatedElements) {
			elem := x.model.Get(elemID)
			if elem == nil {
				continue
			}
			elemGUID := elem.AttrString(attrGUID)
			if elemGUID == "" {
				continue
			}
			x.out.Containments = append(x.out.Containments, common.Containment{
				ContainerGUID: containerGUID,
				ElementGUID:   elemGUID,
				Kind:          common.Contains,
			})
		}
	}
}

// resolveMaterialAssociations follows IfcRelAssociatesMaterial to a material,
// a layer set, or a layer set usage (which points at its set).
func (x *extractor) resolveMaterialAssociations() {
	for _, rel := range x.model.ByType("IfcRelAssociatesMaterial") {
		materialID, ok := rel.AttrRef(attrRelRelatingMaterial)
		if !ok {
			continue
		}
		target := x.model.Get(materialID)
		if target == nil {
			logger.Warn("material association references missing definition", "id", rel.ID, "material", materialID)
			continue
		}

		var link common.MaterialLink
		switch target.Type {
		case "IFCMATERIAL":
			link.MaterialName = target.AttrString(0)
		case "IFCMATERIALLAYERSET":
			link.LayerSetName = layerSetName(target)
		case "IFCMATERIALLAYERSETUSAGE":
			setID, ok := target.AttrRef(0)
			if !ok {
				continue
			}
			set := x.model.Get(setID)
			if set == nil || set.Type != "IFCMATERIALLAYERSET" {
				continue
			}
			link.LayerSetName = layerSetName(set)
		default:
			logger.Debug("unhandled material definition", "id", rel.ID, "type", target.Type)
			continue
		}
		if link.MaterialName == "" && link.LayerSetName == "" {
			continue
		}

		for _, objID := range rel.AttrRefs(attrRelAssocObjects) {
			obj := x.model.Get(objID)
			if obj == nil {
				continue
			}
			objGUID := obj.AttrString(attrGUID)
			if objGUID == "" {
				continue
			}
			l := link
			l.ElementGUID = objGUID
			x.out.MaterialLinks = append(x.out.MaterialLinks, l)
		}
	}
}
