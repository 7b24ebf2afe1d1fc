package ifc

import (
	"github.com/google/uuid"
)

// CreatePropertySet writes a new empty property set with a fresh express ID
// and a generated GlobalId, and returns it.
func (d *Document) CreatePropertySet(name string) (*Record, error) {
	rec := &Record{
		ExpressID: d.MaxID() + 1,
		Type:      TypePropertySet,
		GlobalID:  uuid.NewString(),
		Name:      name,
	}
	if err := d.WriteLine(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LinkPropertySet attaches a property set to an element through a new
// relationship record and returns the relationship.
func (d *Document) LinkPropertySet(elementID, psetID int) (*Record, error) {
	rel := &Record{
		ExpressID:                  d.MaxID() + 1,
		Type:                       TypeRelDefinesByProperties,
		GlobalID:                   uuid.NewString(),
		RelatedObjects:             []int{elementID},
		RelatingPropertyDefinition: psetID,
	}
	if err := d.WriteLine(rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// AddSingleValue writes a new single-value property and appends it to the
// property set's member list.
func (d *Document) AddSingleValue(psetID int, name string, value Value) (*Record, error) {
	prop := &Record{
		ExpressID:    d.MaxID() + 1,
		Type:         TypePropertySingleValue,
		Name:         name,
		NominalValue: &value,
	}
	if err := d.WriteLine(prop); err != nil {
		return nil, err
	}

	pset, err := d.Line(psetID)
	if err != nil {
		return nil, err
	}
	pset.HasProperties = append(pset.HasProperties, prop.ExpressID)
	if err := d.WriteLine(pset); err != nil {
		return nil, err
	}
	return prop, nil
}
