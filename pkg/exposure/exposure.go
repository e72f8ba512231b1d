// Package exposure projects a session context into per-agent views.
package exposure

import (
	"sort"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
)

// Builder answers "who can see what". The name lists are fixed when the
// builder is created; the values behind them are read live from the store.
type Builder struct {
	ctx        *store.Context
	visibility map[string][]string // by normalized agent name
	agents     []string
}

// New computes the visibility lists of every agent declared in the manifest.
func New(m *manifest.Manifest, ctx *store.Context) *Builder {
	b := &Builder{
		ctx:        ctx,
		visibility: make(map[string][]string),
	}
	for _, name := range m.Agents() {
		a, _ := m.Agent(name)
		b.visibility[domain.NormalizeName(name)] = append([]string(nil), a.Variables...)
		b.agents = append(b.agents, name)
	}
	return b
}

// Agents returns the declared agent names, sorted.
func (b *Builder) Agents() []string {
	return append([]string(nil), b.agents...)
}

// Variables returns the names an agent is allowed to see, in declaration order.
// Agent names compare case-insensitively.
func (b *Builder) Variables(agent string) []string {
	return append([]string(nil), b.visibility[domain.NormalizeName(agent)]...)
}

// VisibleTo returns the current values of the agent's variables. Variables
// absent from the store (e.g. suppressed by the production gate) are omitted.
// An undeclared agent sees nothing.
func (b *Builder) VisibleTo(agent string) map[string]any {
	names := b.visibility[domain.NormalizeName(agent)]
	out := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := b.ctx.Get(name); ok {
			out[name] = v
		}
	}
	return out
}

// Audience returns the agents that can see a variable, sorted.
func (b *Builder) Audience(variable string) []string {
	var out []string
	for _, agent := range b.agents {
		for _, name := range b.visibility[domain.NormalizeName(agent)] {
			if name == variable {
				out = append(out, agent)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
