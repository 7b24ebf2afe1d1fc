package engine

import (
	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/ifc"
)

// Property is one single-value property gathered from an element's
// property sets.
type Property struct {
	ID    int
	Name  string
	Value *ifc.Value
}

// PropertySet is a property set attached to an element together with its
// collected single values.
type PropertySet struct {
	ID         int
	Name       string
	Properties []Property
}

// FindProperty returns the property with the given raw name, or nil.
func (ps *PropertySet) FindProperty(name string) *Property {
	for i := range ps.Properties {
		if ps.Properties[i].Name == name {
			return &ps.Properties[i]
		}
	}
	return nil
}

// CollectPropertySets walks an element's IsDefinedBy relationships and
// gathers every attached property set with its single values. Dangling
// references, non-property definitions and sets missing a GUID or name
// are skipped so a partially broken document still yields what it can.
func CollectPropertySets(doc *ifc.Document, elementID int) ([]PropertySet, error) {
	element, err := doc.Line(elementID)
	if err != nil {
		return nil, err
	}
	if !element.IsElement() {
		return nil, errors.NewDocumentError("collect", elementID, "record is not an element", nil)
	}

	var sets []PropertySet
	for _, relID := range element.IsDefinedBy {
		rel, err := doc.Line(relID)
		if err != nil || rel.Type != ifc.TypeRelDefinesByProperties {
			continue
		}
		psetID := rel.RelatingPropertyDefinition
		if psetID == 0 {
			continue
		}
		pset, err := doc.Line(psetID)
		if err != nil || pset.Type != ifc.TypePropertySet {
			continue
		}
		// A set without a GUID or name is malformed; treat it like a
		// dangling reference.
		if pset.GlobalID == "" || pset.Name == "" {
			continue
		}

		set := PropertySet{ID: psetID, Name: pset.Name}
		for _, psvID := range pset.HasProperties {
			psv, err := doc.Line(psvID)
			if err != nil || psv.Type != ifc.TypePropertySingleValue {
				continue
			}
			set.Properties = append(set.Properties, Property{
				ID:    psvID,
				Name:  psv.Name,
				Value: psv.NominalValue,
			})
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// AllProperties flattens the collected sets into one property slice in
// document order.
func AllProperties(sets []PropertySet) []Property {
	var all []Property
	for _, set := range sets {
		all = append(all, set.Properties...)
	}
	return all
}
