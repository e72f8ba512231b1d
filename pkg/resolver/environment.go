package resolver

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

func (r *Resolver) resolveEnvironment(def domain.VariableDefinition, src domain.EnvironmentSource) (any, string, error) {
	raw, ok := r.lookupEnv(src.EnvKey)
	if ok {
		return Coerce(def.Type, raw), OutcomeResolved, nil
	}
	if src.Default != nil {
		return src.Default, OutcomeDefaulted, nil
	}
	if src.Required {
		return nil, "", &domain.SourceResolutionError{
			Variable: def.Name,
			Kind:     domain.SourceEnvironment,
			Reason:   "environment variable " + src.EnvKey + " is not set and has no default",
		}
	}
	return def.Type.Zero(), OutcomeDefaulted, nil
}

// Coerce converts a raw environment string to the declared type.
// Booleans accept exactly 1/true/yes/on (case-insensitive). Integers and objects
// fail soft to 0 and an empty object.
func Coerce(vt domain.ValueType, raw string) any {
	switch vt {
	case domain.TypeBoolean:
		return domain.ParseFlag(raw)
	case domain.TypeInteger:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return 0
		}
		return n
	case domain.TypeObject:
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
			return map[string]any{}
		}
		return obj
	default:
		return raw
	}
}
