package domain

import "strings"

// Mode is the deployment mode governing the production gate.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// ParseMode maps a deployment flag to a Mode. Only "production" (any case) selects production.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeProduction)) {
		return ModeProduction
	}
	return ModeDevelopment
}

// Sentinel marks a value that stands in for data that could not be fetched.
type Sentinel string

// Unavailable replaces a RecordSource value whose fetch failed.
const Unavailable Sentinel = "__unavailable__"

// IsUnavailable reports whether v is the Unavailable sentinel.
func IsUnavailable(v any) bool {
	s, ok := v.(Sentinel)
	return ok && s == Unavailable
}

// Resolved is a variable value tagged with the kind of source that produced it.
type Resolved struct {
	Value any        `json:"value"`
	Kind  SourceKind `json:"source"`
}

// ResolvedSet is the bootstrap output keyed by variable name.
type ResolvedSet map[string]Resolved

// Clone returns a shallow copy of the set.
func (s ResolvedSet) Clone() ResolvedSet {
	out := make(ResolvedSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Values projects the set to plain name -> value.
func (s ResolvedSet) Values() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v.Value
	}
	return out
}

// DerivedState is the per-variable state of a derived variable.
// The only transition is pending -> satisfied.
type DerivedState string

const (
	DerivedPending   DerivedState = "pending"
	DerivedSatisfied DerivedState = "satisfied"
)

// SessionInputs identifies a session and carries the caller-supplied lookup values.
type SessionInputs struct {
	SessionID       string
	EnterpriseScope string
	// Values feeds "$name" lookup keys of record sources.
	Values map[string]string
}

// Lookup resolves a session input by name. The reserved names session_id and
// enterprise_id map to the identifying fields when not overridden in Values.
func (in SessionInputs) Lookup(name string) (string, bool) {
	if v, ok := in.Values[name]; ok && v != "" {
		return v, true
	}
	switch name {
	case KeySessionID:
		return in.SessionID, in.SessionID != ""
	case KeyEnterpriseID:
		return in.EnterpriseScope, in.EnterpriseScope != ""
	}
	return "", false
}
