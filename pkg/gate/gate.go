// Package gate implements the production gate: the policy that keeps
// environment-sourced variables (in production) and, optionally, record-sourced
// variables out of a session context. Static and derived variables are never gated.
package gate

import (
	"context"
	"log/slog"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// Phase is the enforcement point of a gate pass.
type Phase string

const (
	// PhasePre runs before values enter the session context. Suppressions are expected.
	PhasePre Phase = "pre"
	// PhasePost re-checks the assembled context. A suppression here means an
	// upstream code path re-added a gated variable.
	PhasePost Phase = "post"
)

// Gate filters resolved variables by source kind.
type Gate struct {
	mode           domain.Mode
	includeRecords bool
	logger         *slog.Logger
	hooks          domain.LifecycleHooks
}

// Option configures a Gate.
type Option func(*Gate)

// WithIncludeRecordSourced controls whether record-sourced variables are kept.
// It is independent of the mode. Default true.
func WithIncludeRecordSourced(include bool) Option {
	return func(g *Gate) { g.includeRecords = include }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithHooks sets the hooks notified of every suppression.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(g *Gate) { g.hooks = h }
}

// New creates a gate for the deployment mode.
func New(mode domain.Mode, opts ...Option) *Gate {
	g := &Gate{
		mode:           mode,
		includeRecords: true,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mode returns the deployment mode of the gate.
func (g *Gate) Mode() domain.Mode { return g.mode }

// Suppresses reports whether variables of the given source kind are gated.
func (g *Gate) Suppresses(kind domain.SourceKind) bool {
	switch kind {
	case domain.SourceEnvironment:
		return g.mode == domain.ModeProduction
	case domain.SourceRecord:
		return !g.includeRecords
	}
	return false
}

// Filter drops gated definitions before they are resolved, so that a gated
// source is never read. It is the definition-level form of Apply(PhasePre).
func (g *Gate) Filter(ctx context.Context, sessionID string, defs []domain.VariableDefinition) []domain.VariableDefinition {
	out := make([]domain.VariableDefinition, 0, len(defs))
	for _, def := range defs {
		if g.Suppresses(def.Kind()) {
			g.suppressed(ctx, sessionID, def.Name, def.Kind(), PhasePre)
			continue
		}
		out = append(out, def)
	}
	return out
}

// Apply returns a copy of set without gated variables. It never modifies set,
// and applying it to its own output is a no-op.
func (g *Gate) Apply(ctx context.Context, sessionID string, set domain.ResolvedSet, phase Phase) domain.ResolvedSet {
	out := make(domain.ResolvedSet, len(set))
	for name, v := range set {
		if g.Suppresses(v.Kind) {
			g.suppressed(ctx, sessionID, name, v.Kind, phase)
			continue
		}
		out[name] = v
	}
	return out
}

func (g *Gate) suppressed(ctx context.Context, sessionID, name string, kind domain.SourceKind, phase Phase) {
	level := slog.LevelInfo
	msg := "variable suppressed"
	if phase == PhasePost {
		level = slog.LevelWarn
		msg = "gated variable survived to post-check; suppressed"
	}
	g.logger.Log(ctx, level, msg,
		"session_id", sessionID,
		"variable", name,
		"source", kind,
		"mode", g.mode,
		"phase", phase,
	)
	if g.hooks.OnSuppressed != nil {
		g.hooks.OnSuppressed(ctx, &domain.SuppressionEvent{
			SessionID: sessionID,
			Variable:  name,
			Kind:      kind,
			Phase:     string(phase),
		})
	}
}
