package store

import (
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// state is an immutable view. It is never modified after being published.
type state struct {
	values    domain.ResolvedSet
	derived   map[string]domain.DerivedState
	satisfied map[string]map[string]struct{}
}

// Context is the read-only view of a session context.
type Context struct {
	sessionID string
	scope     string
	cur       atomic.Pointer[state]

	logger   *slog.Logger
	verbose  bool
	redactor *Redactor
	limits   Limits
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithVerbose logs a redacted diff of every mutation.
func WithVerbose(v bool) Option {
	return func(c *Context) { c.verbose = v }
}

// WithRedactor replaces the default secret-name redactor.
func WithRedactor(r *Redactor) Option {
	return func(c *Context) {
		if r != nil {
			c.redactor = r
		}
	}
}

// WithLimits bounds snapshots.
func WithLimits(l Limits) Option {
	return func(c *Context) { c.limits = l }
}

// New seeds a session context and returns it with its only Writer.
// Every derived variable of the seed starts pending.
func New(sessionID, scope string, seed domain.ResolvedSet, opts ...Option) (*Context, *Writer) {
	c := &Context{
		sessionID: sessionID,
		scope:     scope,
		logger:    logging.NewNop(),
		redactor:  DefaultRedactor(),
		limits:    DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}

	st := &state{
		values:    seed.Clone(),
		derived:   make(map[string]domain.DerivedState),
		satisfied: make(map[string]map[string]struct{}),
	}
	for name, v := range st.values {
		if v.Kind == domain.SourceDerived {
			st.derived[name] = domain.DerivedPending
		}
	}
	c.cur.Store(st)

	if c.verbose {
		c.logDiff(nil, st.values)
	}
	return c, &Writer{ctx: c}
}

// Empty returns a context with no values. It is the safe fallback of a failed bootstrap.
func Empty(sessionID, scope string) *Context {
	c, _ := New(sessionID, scope, nil)
	return c
}

// SessionID returns the id of the owning session.
func (c *Context) SessionID() string { return c.sessionID }

// Scope returns the tenant scope of the owning session.
func (c *Context) Scope() string { return c.scope }

// Get returns the current value of a variable.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.cur.Load().values[name]
	return v.Value, ok
}

// Lookup returns the value together with its source kind.
func (c *Context) Lookup(name string) (domain.Resolved, bool) {
	v, ok := c.cur.Load().values[name]
	return v, ok
}

// Len returns the number of variables present.
func (c *Context) Len() int { return len(c.cur.Load().values) }

// Names returns the present variable names in sorted order.
func (c *Context) Names() []string {
	values := c.cur.Load().values
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of every current value.
func (c *Context) Values() map[string]any {
	return c.cur.Load().values.Values()
}

// Resolved returns a copy of every value with its source kind.
func (c *Context) Resolved() domain.ResolvedSet {
	return c.cur.Load().values.Clone()
}

// State returns the derived state of a variable.
// The second result is false for variables that are not derived.
func (c *Context) State(name string) (domain.DerivedState, bool) {
	s, ok := c.cur.Load().derived[name]
	return s, ok
}

// Satisfied returns the trigger ids recorded as satisfied for a variable, sorted.
func (c *Context) Satisfied(name string) []string {
	set := c.cur.Load().satisfied[name]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Context) logDiff(old, new domain.ResolvedSet) {
	var before map[string]any
	if old != nil {
		before = old.Values()
	}
	diff := domain.Diff(c.sessionID, before, new.Values())
	if diff.IsEmpty() {
		return
	}
	c.logger.Info("context changed",
		"session_id", c.sessionID,
		"scope", c.scope,
		"changed", c.redactor.Redact(diff.Changed),
	)
}
