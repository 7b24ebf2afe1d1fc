package ifc

// Entity type tags used by the normalization engine. Records of any other
// type are carried through the document untouched.
const (
	TypeWall                   = "IFCWALL"
	TypeWallStandardCase       = "IFCWALLSTANDARDCASE"
	TypePropertySet            = "IFCPROPERTYSET"
	TypePropertySingleValue    = "IFCPROPERTYSINGLEVALUE"
	TypeRelDefinesByProperties = "IFCRELDEFINESBYPROPERTIES"
)

// Record is one entity in the document arena. All cross-references are
// stored as express IDs rather than direct pointers; they are resolved on
// demand through Document.Line. Only the fields that apply to the record's
// type are populated.
type Record struct {
	ExpressID int
	Type      string

	// Rooted entity attributes (walls, property sets, relationships).
	GlobalID string
	Name     string

	// IFCPROPERTYSINGLEVALUE
	NominalValue *Value

	// IFCPROPERTYSET
	HasProperties []int

	// IFCRELDEFINESBYPROPERTIES
	RelatedObjects             []int
	RelatingPropertyDefinition int

	// IsDefinedBy lists the IDs of relationship records whose RelatedObjects
	// include this record. It is an inverse attribute computed when the
	// document is opened and maintained by WriteLine.
	IsDefinedBy []int

	// raw holds the original source line for records decoded from a file.
	// It is cleared when the record is rewritten so encoding regenerates it.
	raw string
}

// IsElement reports whether the record is a targeted model element type.
func (r *Record) IsElement() bool {
	return r.Type == TypeWall || r.Type == TypeWallStandardCase
}

// clone returns a shallow copy with its own reference slices, so callers
// holding a returned record cannot mutate the arena's indexes.
func (r *Record) clone() *Record {
	c := *r
	c.HasProperties = append([]int(nil), r.HasProperties...)
	c.RelatedObjects = append([]int(nil), r.RelatedObjects...)
	c.IsDefinedBy = append([]int(nil), r.IsDefinedBy...)
	if r.NominalValue != nil {
		v := *r.NominalValue
		c.NominalValue = &v
	}
	return &c
}
