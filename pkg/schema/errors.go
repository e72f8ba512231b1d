package schema

import "fmt"

// TypeError reports a literal that does not fit its declared type.
type TypeError struct {
	Type   string // Declared type name
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *TypeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %T)", e.Type, e.Reason, e.Value)
}
