package manifest

import (
	"fmt"
	"sort"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/condition"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// Top-level manifest sections. Any other top-level key is ignored with a warning.
const (
	SectionDefinitions = "definitions"
	SectionAgents      = "agents"
)

// Manifest is a validated variable manifest. It is immutable once built.
type Manifest struct {
	definitions map[string]domain.VariableDefinition
	order       []string
	agents      map[string]Agent

	// Warnings lists non-fatal issues (e.g. unknown top-level sections).
	Warnings []domain.Issue
}

// Agent is the exposure entry of one agent.
type Agent struct {
	Name      string
	Variables []string
	Handoffs  []Handoff
}

// Handoff is a routing edge guarded by a condition.
type Handoff struct {
	To        string
	Condition *condition.Expr
}

// Empty returns a manifest with no variables and no agents.
// It is the safe fallback when validation fails.
func Empty() *Manifest {
	return &Manifest{
		definitions: map[string]domain.VariableDefinition{},
		agents:      map[string]Agent{},
	}
}

func newManifest(defs map[string]domain.VariableDefinition, agents map[string]Agent, warnings []domain.Issue) *Manifest {
	order := make([]string, 0, len(defs))
	for name := range defs {
		order = append(order, name)
	}
	sort.Strings(order)
	return &Manifest{definitions: defs, order: order, agents: agents, Warnings: warnings}
}

// Len returns the number of variable definitions.
func (m *Manifest) Len() int { return len(m.definitions) }

// Names returns every variable name in sorted order.
func (m *Manifest) Names() []string {
	return append([]string(nil), m.order...)
}

// Lookup returns the definition of a variable.
func (m *Manifest) Lookup(name string) (domain.VariableDefinition, bool) {
	d, ok := m.definitions[name]
	return d, ok
}

// Definitions returns all definitions in name order.
func (m *Manifest) Definitions() []domain.VariableDefinition {
	out := make([]domain.VariableDefinition, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.definitions[name])
	}
	return out
}

// ByKind returns the definitions whose source is of the given kind, in name order.
func (m *Manifest) ByKind(kind domain.SourceKind) []domain.VariableDefinition {
	var out []domain.VariableDefinition
	for _, name := range m.order {
		if d := m.definitions[name]; d.Kind() == kind {
			out = append(out, d)
		}
	}
	return out
}

// Agents returns the agent names in sorted order.
func (m *Manifest) Agents() []string {
	names := make([]string, 0, len(m.agents))
	for name := range m.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Agent returns the exposure entry of an agent.
func (m *Manifest) Agent(name string) (Agent, bool) {
	a, ok := m.agents[name]
	return a, ok
}

// CompileCondition parses a routing condition and checks that every operand is an
// environment or derived variable of this manifest.
func (m *Manifest) CompileCondition(expr string) (*condition.Expr, error) {
	e, err := condition.Parse(expr)
	if err != nil {
		return nil, err
	}
	for _, name := range e.Variables() {
		def, ok := m.definitions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q: unknown variable %q", domain.ErrIllegalCondition, e.Source, name)
		}
		switch def.Kind() {
		case domain.SourceEnvironment, domain.SourceDerived:
		default:
			return nil, fmt.Errorf("%w: %q: %s variable %q cannot be used in a condition",
				domain.ErrIllegalCondition, e.Source, def.Kind(), name)
		}
	}
	return e, nil
}
