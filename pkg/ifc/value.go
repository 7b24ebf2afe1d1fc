package ifc

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the primitive kind of a property value.
type ValueKind int

const (
	// Label is a string value (IfcLabel).
	Label ValueKind = iota
	// Real is a floating-point value (IfcReal).
	Real
	// Boolean is a true/false value (IfcBoolean).
	Boolean
)

// String returns the IFC type name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case Boolean:
		return "IfcBoolean"
	case Real:
		return "IfcReal"
	default:
		return "IfcLabel"
	}
}

// Value is a nominal property value tagged with its primitive kind.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Real  float64
	Label string
}

// NewLabel returns a label value.
func NewLabel(s string) Value { return Value{Kind: Label, Label: s} }

// NewReal returns a real value.
func NewReal(f float64) Value { return Value{Kind: Real, Real: f} }

// NewBool returns a boolean value.
func NewBool(b bool) Value { return Value{Kind: Boolean, Bool: b} }

// Interface returns the value as a plain Go value for serialization.
func (v Value) Interface() any {
	switch v.Kind {
	case Boolean:
		return v.Bool
	case Real:
		return v.Real
	default:
		return v.Label
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.Kind {
	case Boolean:
		return strconv.FormatBool(v.Bool)
	case Real:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	default:
		return v.Label
	}
}

// ValueFromDataType builds a Value for a raw default using the data type
// reported by the portal definition. A data type containing "bool" maps to
// IfcBoolean, one containing "number", "real" or "float" maps to IfcReal,
// anything else becomes an IfcLabel.
func ValueFromDataType(dataType string, raw any) Value {
	dt := strings.ToLower(dataType)
	switch {
	case strings.Contains(dt, "bool"):
		return NewBool(truthy(raw))
	case strings.Contains(dt, "number"), strings.Contains(dt, "real"), strings.Contains(dt, "float"):
		return NewReal(toFloat(raw))
	default:
		return NewLabel(fmt.Sprintf("%v", raw))
	}
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "false" && v != "0"
	case float64:
		return v != 0
	case int:
		return v != 0
	case nil:
		return false
	default:
		return true
	}
}

func toFloat(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
