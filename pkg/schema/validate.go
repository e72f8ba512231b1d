package schema

import "github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"

// Check validates value against the declared value type.
// A nil value is always rejected: manifests must not declare null literals.
func Check(vt domain.ValueType, value any) error {
	t, err := ForValueType(vt)
	if err != nil {
		return err
	}
	if value == nil {
		return &TypeError{Type: t.Name(), Reason: "value is null"}
	}
	if err := t.Validate(value); err != nil {
		return &TypeError{Type: t.Name(), Reason: err.Error(), Value: value}
	}
	return nil
}

// NormalizeObject converts map[any]any trees (older YAML decoders) into map[string]any.
func NormalizeObject(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if ks, ok := k.(string); ok {
				out[ks] = NormalizeObject(val)
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = NormalizeObject(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = NormalizeObject(val)
		}
		return out
	default:
		return value
	}
}
