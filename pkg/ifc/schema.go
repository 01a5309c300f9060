package ifc

// superTypeOf maps an entity type to its immediate supertype. The table is a
// merged cut of the IFC2X3 and IFC4 hierarchies covering the subtrees the
// extraction pipeline queries; it does not try to be the full schema. Types
// missing here are treated as roots of their own, which keeps files authored
// against newer schema editions readable.
var superTypeOf = map[string]string{
	// Spatial structure.
	"IFCPROJECT":           "IFCOBJECT",
	"IFCSITE":              "IFCSPATIALSTRUCTUREELEMENT",
	"IFCBUILDING":          "IFCSPATIALSTRUCTUREELEMENT",
	"IFCBUILDINGSTOREY":    "IFCSPATIALSTRUCTUREELEMENT",
	"IFCSPACE":             "IFCSPATIALSTRUCTUREELEMENT",
	"IFCSPATIALSTRUCTUREELEMENT": "IFCSPATIALELEMENT",
	"IFCSPATIALZONE":       "IFCSPATIALELEMENT",
	"IFCSPATIALELEMENT":    "IFCPRODUCT",

	// Built elements.
	"IFCWALL":                 "IFCBUILDINGELEMENT",
	"IFCWALLSTANDARDCASE":     "IFCWALL",
	"IFCWALLELEMENTEDCASE":    "IFCWALL",
	"IFCSLAB":                 "IFCBUILDINGELEMENT",
	"IFCSLABSTANDARDCASE":     "IFCSLAB",
	"IFCSLABELEMENTEDCASE":    "IFCSLAB",
	"IFCROOF":                 "IFCBUILDINGELEMENT",
	"IFCCOLUMN":               "IFCBUILDINGELEMENT",
	"IFCCOLUMNSTANDARDCASE":   "IFCCOLUMN",
	"IFCBEAM":                 "IFCBUILDINGELEMENT",
	"IFCBEAMSTANDARDCASE":     "IFCBEAM",
	"IFCSTAIR":                "IFCBUILDINGELEMENT",
	"IFCSTAIRFLIGHT":          "IFCBUILDINGELEMENT",
	"IFCRAMP":                 "IFCBUILDINGELEMENT",
	"IFCRAMPFLIGHT":           "IFCBUILDINGELEMENT",
	"IFCRAILING":              "IFCBUILDINGELEMENT",
	"IFCCURTAINWALL":          "IFCBUILDINGELEMENT",
	"IFCPLATE":                "IFCBUILDINGELEMENT",
	"IFCPLATESTANDARDCASE":    "IFCPLATE",
	"IFCMEMBER":               "IFCBUILDINGELEMENT",
	"IFCMEMBERSTANDARDCASE":   "IFCMEMBER",
	"IFCFOOTING":              "IFCBUILDINGELEMENT",
	"IFCPILE":                 "IFCBUILDINGELEMENT",
	"IFCCOVERING":             "IFCBUILDINGELEMENT",
	"IFCDOOR":                 "IFCBUILDINGELEMENT",
	"IFCDOORSTANDARDCASE":     "IFCDOOR",
	"IFCWINDOW":               "IFCBUILDINGELEMENT",
	"IFCWINDOWSTANDARDCASE":   "IFCWINDOW",
	"IFCBUILDINGELEMENTPROXY": "IFCBUILDINGELEMENT",
	"IFCBUILDINGELEMENTPART":  "IFCELEMENTCOMPONENT",
	"IFCBUILDINGELEMENT":      "IFCELEMENT",
	"IFCELEMENTCOMPONENT":     "IFCELEMENT",

	// Distribution (MEP) elements.
	"IFCFLOWSEGMENT":             "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCFLOWFITTING":             "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCFLOWTERMINAL":            "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCFLOWCONTROLLER":          "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCFLOWMOVINGDEVICE":        "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCFLOWSTORAGEDEVICE":       "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCFLOWTREATMENTDEVICE":     "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCENERGYCONVERSIONDEVICE":  "IFCDISTRIBUTIONFLOWELEMENT",
	"IFCDISTRIBUTIONFLOWELEMENT": "IFCDISTRIBUTIONELEMENT",
	"IFCDISTRIBUTIONELEMENT":     "IFCELEMENT",

	// Furnishing. IfcFurniture and IfcSystemFurnitureElement are IFC4
	// subtypes of IfcFurnishingElement; in IFC2X3 everything is the parent.
	"IFCFURNITURE":               "IFCFURNISHINGELEMENT",
	"IFCSYSTEMFURNITUREELEMENT":  "IFCFURNISHINGELEMENT",
	"IFCFURNISHINGELEMENT":       "IFCELEMENT",

	// Remaining element subtrees the generic extraction list touches.
	"IFCTRANSPORTELEMENT":  "IFCELEMENT",
	"IFCVIRTUALELEMENT":    "IFCELEMENT",
	"IFCGEOGRAPHICELEMENT": "IFCELEMENT",
	"IFCELEMENT":           "IFCPRODUCT",
	"IFCPRODUCT":           "IFCOBJECT",
	"IFCOBJECT":            "IFCROOT",

	// Objectified relationships.
	"IFCRELCONTAINEDINSPATIALSTRUCTURE": "IFCRELCONNECTS",
	"IFCRELAGGREGATES":                  "IFCRELDECOMPOSES",
	"IFCRELNESTS":                       "IFCRELDECOMPOSES",
	"IFCRELASSOCIATESMATERIAL":          "IFCRELASSOCIATES",
	"IFCRELCONNECTS":                    "IFCRELATIONSHIP",
	"IFCRELDECOMPOSES":                  "IFCRELATIONSHIP",
	"IFCRELASSOCIATES":                  "IFCRELATIONSHIP",
	"IFCRELATIONSHIP":                   "IFCROOT",

	// Materials have no IfcRoot ancestry.
	"IFCMATERIAL":              "IFCMATERIALDEFINITION",
	"IFCMATERIALLAYER":         "IFCMATERIALDEFINITION",
	"IFCMATERIALLAYERSET":      "IFCMATERIALDEFINITION",
	"IFCMATERIALLAYERSETUSAGE": "IFCMATERIALUSAGEDEFINITION",
}

// isSubtypeOf reports whether typ is a strict subtype of want. Both arguments
// are upper-case type names.
func isSubtypeOf(typ, want string) bool {
	for i := 0; i < 32; i++ { // bound against accidental cycles in the table
		parent, ok := superTypeOf[typ]
		if !ok {
			return false
		}
		if parent == want {
			return true
		}
		typ = parent
	}
	return false
}
