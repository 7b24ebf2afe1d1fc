// Package ifc provides an in-memory document handle for ISO-10303-21 (STEP)
// building models. The document is an arena of records addressed by express
// ID; entity types the normalization engine does not understand are kept as
// opaque lines and round-tripped verbatim.
package ifc

import (
	"sort"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
)

// Document is an opened building model. It is not safe for concurrent
// mutation; each normalization job owns its document exclusively.
type Document struct {
	schema  string
	header  []string
	records map[int]*Record
	order   []int
	byType  map[string][]int
	maxID   int
	closed  bool
}

// Open decodes a STEP document into an arena. It fails with a DocumentError
// if the payload is not a readable ISO-10303-21 file.
func Open(data []byte) (*Document, error) {
	return decode(data)
}

// Close releases the document. Subsequent operations fail.
func (d *Document) Close() {
	d.closed = true
	d.records = nil
	d.order = nil
	d.byType = nil
}

// Schema returns the FILE_SCHEMA identifier from the header.
func (d *Document) Schema() string {
	return d.schema
}

// Len returns the number of records in the arena.
func (d *Document) Len() int {
	return len(d.records)
}

// MaxID returns the highest express ID in use.
func (d *Document) MaxID() int {
	return d.maxID
}

// Line resolves a record by express ID. Unknown IDs are a DocumentError:
// a reference the document cannot answer means the model is inconsistent.
func (d *Document) Line(id int) (*Record, error) {
	if d.closed {
		return nil, errors.NewDocumentError("line", id, "document is closed", nil)
	}
	rec, ok := d.records[id]
	if !ok {
		return nil, errors.NewDocumentError("line", id, "no such express ID", nil)
	}
	return rec.clone(), nil
}

// IDsOfType returns the express IDs of all records with the given entity
// type, in document order.
func (d *Document) IDsOfType(entityType string) []int {
	if d.closed {
		return nil
	}
	return append([]int(nil), d.byType[entityType]...)
}

// WriteLine inserts or replaces a record in the arena. The record's raw
// source line, if any, is discarded so encoding regenerates it. Inverse
// IsDefinedBy references are maintained for relationship records.
func (d *Document) WriteLine(rec *Record) error {
	if d.closed {
		return errors.NewDocumentError("write", rec.ExpressID, "document is closed", nil)
	}
	if rec.ExpressID <= 0 {
		return errors.NewDocumentError("write", rec.ExpressID, "express ID must be positive", nil)
	}

	stored := rec.clone()
	stored.raw = ""

	prev, existed := d.records[stored.ExpressID]
	d.records[stored.ExpressID] = stored

	if !existed {
		d.order = append(d.order, stored.ExpressID)
		d.byType[stored.Type] = append(d.byType[stored.Type], stored.ExpressID)
		if stored.ExpressID > d.maxID {
			d.maxID = stored.ExpressID
		}
	} else if prev.Type != stored.Type {
		d.byType[prev.Type] = removeID(d.byType[prev.Type], stored.ExpressID)
		d.byType[stored.Type] = insertSorted(d.byType[stored.Type], stored.ExpressID, d.order)
	}

	if stored.Type == TypeRelDefinesByProperties {
		for _, objID := range stored.RelatedObjects {
			if target, ok := d.records[objID]; ok && !containsID(target.IsDefinedBy, stored.ExpressID) {
				target.IsDefinedBy = append(target.IsDefinedBy, stored.ExpressID)
			}
		}
	}

	return nil
}

// Bytes encodes the document back to STEP form.
func (d *Document) Bytes() ([]byte, error) {
	if d.closed {
		return nil, errors.NewDocumentError("encode", 0, "document is closed", nil)
	}
	return encode(d)
}

// linkInverses computes IsDefinedBy for every record from the relationship
// records present in the arena. Called once after decoding.
func (d *Document) linkInverses() {
	for _, id := range d.byType[TypeRelDefinesByProperties] {
		rel := d.records[id]
		for _, objID := range rel.RelatedObjects {
			if target, ok := d.records[objID]; ok {
				target.IsDefinedBy = append(target.IsDefinedBy, id)
			}
		}
	}
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// insertSorted keeps a byType slice in document order when a record
// changes type, using the position of the ID in the overall order.
func insertSorted(ids []int, id int, order []int) []int {
	pos := make(map[int]int, len(order))
	for i, v := range order {
		pos[v] = i
	}
	ids = append(ids, id)
	sort.Slice(ids, func(i, j int) bool { return pos[ids[i]] < pos[ids[j]] })
	return ids
}
