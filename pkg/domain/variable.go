package domain

// ValueType is the declared type of a variable.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeInteger ValueType = "integer"
	TypeBoolean ValueType = "boolean"
	TypeObject  ValueType = "object"
)

// Valid reports whether t is one of the known value types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean, TypeObject:
		return true
	}
	return false
}

// Zero returns the empty value for the type ("" / 0 / false / empty object).
func (t ValueType) Zero() any {
	switch t {
	case TypeInteger:
		return 0
	case TypeBoolean:
		return false
	case TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}

// SourceKind discriminates the Source union.
type SourceKind string

const (
	SourceStatic      SourceKind = "static"
	SourceEnvironment SourceKind = "environment"
	SourceRecord      SourceKind = "record"
	SourceDerived     SourceKind = "derived"
)

// Source is the origin strategy of a variable. The set of implementations is closed.
type Source interface {
	Kind() SourceKind
	isSource()
}

// StaticSource is a value fixed at manifest-authoring time.
type StaticSource struct {
	Value any
}

// EnvironmentSource reads the process environment at session start.
type EnvironmentSource struct {
	EnvKey string
	// Default is used when EnvKey is unset. Nil means no default was declared.
	Default any
	// Required makes an unset key without Default a fatal resolution error.
	Required bool
}

// RecordSource reads one field of a document held in an external keyed store.
type RecordSource struct {
	Store      string
	Collection string
	// LookupKey is either a literal key or "$name", read from the session inputs.
	LookupKey string
	// Field may be a dotted path into nested objects.
	Field string
}

// DerivedSource starts at Default and only changes through the trigger engine.
type DerivedSource struct {
	Default  any
	Triggers []Trigger
}

func (StaticSource) Kind() SourceKind      { return SourceStatic }
func (EnvironmentSource) Kind() SourceKind { return SourceEnvironment }
func (RecordSource) Kind() SourceKind      { return SourceRecord }
func (DerivedSource) Kind() SourceKind     { return SourceDerived }

func (StaticSource) isSource()      {}
func (EnvironmentSource) isSource() {}
func (RecordSource) isSource()      {}
func (DerivedSource) isSource()     {}

// VariableDefinition is one entry of a validated manifest.
type VariableDefinition struct {
	Name        string
	Type        ValueType
	Description string
	Source      Source
}

// Kind is a shorthand for d.Source.Kind().
func (d VariableDefinition) Kind() SourceKind {
	if d.Source == nil {
		return ""
	}
	return d.Source.Kind()
}
