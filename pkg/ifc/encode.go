package ifc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// encode renders the document back to ISO-10303-21 form. Records that still
// carry their original source line are emitted verbatim; rewritten and newly
// written records are regenerated from their fields.
func encode(d *Document) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(stepMagic + ";\n")
	sb.WriteString("HEADER;\n")
	if len(d.header) > 0 {
		for _, line := range d.header {
			sb.WriteString(line)
			sb.WriteString(";\n")
		}
	} else {
		fmt.Fprintf(&sb, "FILE_DESCRIPTION((''),'2;1');\n")
		fmt.Fprintf(&sb, "FILE_NAME('','%s',(''),(''),'','ifc-normalizer','');\n",
			time.Now().UTC().Format("2006-01-02T15:04:05"))
		fmt.Fprintf(&sb, "FILE_SCHEMA(('%s'));\n", escapeString(d.schema))
	}
	sb.WriteString(sectionEnd + ";\n")
	sb.WriteString(sectionData + ";\n")

	for _, id := range d.order {
		rec := d.records[id]
		if rec.raw != "" {
			sb.WriteString(rec.raw)
		} else {
			sb.WriteString(encodeRecord(rec))
		}
		sb.WriteString(";\n")
	}

	sb.WriteString(sectionEnd + ";\n")
	sb.WriteString(stepEnd + ";\n")
	return []byte(sb.String()), nil
}

// encodeRecord renders one entity instance. Only the entity types the engine
// creates or rewrites are supported; anything else keeps its raw line.
func encodeRecord(r *Record) string {
	switch r.Type {
	case TypePropertySet:
		return fmt.Sprintf("#%d=%s(%s,$,%s,$,%s)", r.ExpressID, r.Type,
			quoted(r.GlobalID), quoted(r.Name), refList(r.HasProperties))
	case TypePropertySingleValue:
		return fmt.Sprintf("#%d=%s(%s,$,%s,$)", r.ExpressID, r.Type,
			quoted(r.Name), typedValue(r.NominalValue))
	case TypeRelDefinesByProperties:
		return fmt.Sprintf("#%d=%s(%s,$,%s,$,%s,#%d)", r.ExpressID, r.Type,
			quoted(r.GlobalID), quoted(r.Name), refList(r.RelatedObjects),
			r.RelatingPropertyDefinition)
	case TypeWall, TypeWallStandardCase:
		return fmt.Sprintf("#%d=%s(%s,$,%s,$,$,$,$,$)", r.ExpressID, r.Type,
			quoted(r.GlobalID), quoted(r.Name))
	default:
		return fmt.Sprintf("#%d=%s()", r.ExpressID, r.Type)
	}
}

func quoted(s string) string {
	if s == "" {
		return "$"
	}
	return "'" + escapeString(s) + "'"
}

func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func refList(ids []int) string {
	if len(ids) == 0 {
		return "()"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "#" + strconv.Itoa(id)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func typedValue(v *Value) string {
	if v == nil {
		return "$"
	}
	switch v.Kind {
	case Boolean:
		if v.Bool {
			return "IFCBOOLEAN(.T.)"
		}
		return "IFCBOOLEAN(.F.)"
	case Real:
		return fmt.Sprintf("IFCREAL(%s)", formatReal(v.Real))
	default:
		return fmt.Sprintf("IFCLABEL(%s)", quoted(v.Label))
	}
}

// formatReal renders a real with a decimal point, as STEP requires.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += "."
	}
	return s
}
