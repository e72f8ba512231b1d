package domain

import (
	"reflect"
)

// ContextDiff represents the changes between two views of a session context.
// It is designed to be serialized to JSON for verbose logging and change streams.
type ContextDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Changed contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Changed map[string]any `json:"changed,omitempty"`
}

// Diff calculates the difference between two value maps.
// A nil old map means "initial load": every key in new is reported.
// Returns nil when nothing changed.
func Diff(sessionID string, old, new map[string]any) *ContextDiff {
	delta := DiffContext(old, new)
	if delta == nil {
		return nil
	}
	return &ContextDiff{SessionID: sessionID, Changed: delta}
}

// DiffContext returns the added, modified and deleted keys between old and new.
func DiffContext(old, new map[string]any) map[string]any {
	delta := make(map[string]any)

	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any changes.
func (d *ContextDiff) IsEmpty() bool {
	return d == nil || len(d.Changed) == 0
}
