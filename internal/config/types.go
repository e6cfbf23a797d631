package config

import "fmt"

// Type is a configuration key's declared value type.
type Type int

// Supported value types.
const (
	TypeString Type = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeList
	TypeMap
)

// String returns the type name as used in manifests and mod scripts.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	default:
		return "unknown"
	}
}

// ParseType converts a type name to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "int", "integer":
		return TypeInt, nil
	case "float", "number":
		return TypeFloat, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "list", "array":
		return TypeList, nil
	case "map", "object":
		return TypeMap, nil
	default:
		return TypeString, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Accepts reports whether the runtime type of value matches t.
// A nil value never matches; absence is handled by Key.Validate.
func (t Type) Accepts(value any) bool {
	if value == nil {
		return false
	}

	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInt:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case TypeFloat:
		// Integer values are acceptable where a float is declared.
		switch value.(type) {
		case float32, float64, int, int32, int64:
			return true
		}
		return false
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeList:
		switch value.(type) {
		case []any, []string, []int, []int64, []float64:
			return true
		}
		return false
	case TypeMap:
		_, ok := value.(map[string]any)
		return ok
	default:
		return false
	}
}
