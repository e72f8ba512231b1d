// Package schema checks manifest literals against declared variable value types.
//
// The type system is deliberately small: string, integer, boolean and object. Values
// decoded from YAML or JSON arrive as a mix of Go types (int, int64, float64,
// json.Number, map[string]any, map[any]any), so each Type accepts every
// representation a decoder can legitimately produce.
//
//	t, _ := schema.ForValueType(domain.TypeBoolean)
//	if err := t.Validate(true); err != nil {
//	    // literal does not fit the declared type
//	}
package schema
