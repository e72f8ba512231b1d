package schema

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// Type defines the contract for literal validation.
type Type interface {
	// Name returns the manifest name of the type (e.g., "string", "integer").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return string(domain.TypeString) }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// IntegerType validates integer values.
type IntegerType struct{}

func (t *IntegerType) Name() string { return string(domain.TypeInteger) }

func (t *IntegerType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		// Accept floats that are whole numbers (from JSON unmarshaling)
		if v == math.Trunc(v) {
			return nil
		}
		return fmt.Errorf("expected integer, got float (not a whole number)")
	case json.Number:
		if _, err := v.Int64(); err != nil {
			return fmt.Errorf("expected integer, got %q", v.String())
		}
		return nil
	default:
		return fmt.Errorf("expected integer, got %T", value)
	}
}

// BooleanType validates boolean values.
type BooleanType struct{}

func (t *BooleanType) Name() string { return string(domain.TypeBoolean) }

func (t *BooleanType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

// ObjectType validates object values (maps and lists decoded from YAML/JSON).
type ObjectType struct{}

func (t *ObjectType) Name() string { return string(domain.TypeObject) }

func (t *ObjectType) Validate(value any) error {
	switch value.(type) {
	case map[string]any, map[any]any, []any:
		return nil
	default:
		return fmt.Errorf("expected object, got %T", value)
	}
}

// String creates a string type validator.
func String() Type { return &StringType{} }

// Integer creates an integer type validator.
func Integer() Type { return &IntegerType{} }

// Boolean creates a boolean type validator.
func Boolean() Type { return &BooleanType{} }

// Object creates an object type validator.
func Object() Type { return &ObjectType{} }

// ForValueType returns the validator for a declared value type.
func ForValueType(vt domain.ValueType) (Type, error) {
	switch vt {
	case domain.TypeString:
		return String(), nil
	case domain.TypeInteger:
		return Integer(), nil
	case domain.TypeBoolean:
		return Boolean(), nil
	case domain.TypeObject:
		return Object(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %q", vt)
	}
}
