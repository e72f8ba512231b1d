package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/exposure"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/gate"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/resolver"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/trigger"
)

// Session is one live conversation context: the store, its trigger engine and
// the agent exposure lists. It is safe for concurrent use.
type Session struct {
	inputs   domain.SessionInputs
	manifest *manifest.Manifest
	ctx      *store.Context
	writer   *store.Writer
	engine   *trigger.Engine
	exposure *exposure.Builder

	cancel  context.CancelFunc
	loop    chan struct{}
	endOnce sync.Once
}

type options struct {
	resolver *resolver.Resolver
	gate     *gate.Gate
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	verbose  bool
	queue    int
	limits   store.Limits
}

// Option configures Start.
type Option func(*options)

// WithResolver sets the source resolver. Default: process environment, no record store.
func WithResolver(r *resolver.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithGate sets the production gate. Default: development mode, records included.
func WithGate(g *gate.Gate) Option {
	return func(o *options) { o.gate = g }
}

// WithLogger sets the logger of the session and its components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHooks sets the lifecycle hooks of the trigger engine and bootstrap.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithVerbose logs a diff of every context change.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// WithQueueCapacity preallocates the event queue.
func WithQueueCapacity(n int) Option {
	return func(o *options) { o.queue = n }
}

// WithLimits bounds snapshots.
func WithLimits(l store.Limits) Option {
	return func(o *options) { o.limits = l }
}

// Start bootstraps a session from a validated manifest. On a fatal error it
// returns an empty session and the error; the empty session is usable and
// must still be ended.
func Start(ctx context.Context, m *manifest.Manifest, in domain.SessionInputs, opts ...Option) (*Session, error) {
	o := &options{
		logger: logging.NewNop(),
		limits: store.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = resolver.New(resolver.WithLogger(o.logger), resolver.WithHooks(o.hooks))
	}
	if o.gate == nil {
		o.gate = gate.New(domain.ModeDevelopment, gate.WithLogger(o.logger), gate.WithHooks(o.hooks))
	}

	begin := time.Now()
	log := o.logger.With("session_id", in.SessionID, "scope", in.EnterpriseScope)

	defs := o.gate.Filter(ctx, in.SessionID, m.Definitions())
	set, err := o.resolver.Resolve(ctx, defs, in)
	if err != nil {
		log.Error("session bootstrap failed; starting with an empty context", "err", err)
		if o.hooks.OnBootstrap != nil {
			o.hooks.OnBootstrap(ctx, time.Since(begin), err)
		}
		return newSession(manifest.Empty(), in, nil, o), err
	}
	set = o.gate.Apply(ctx, in.SessionID, set, gate.PhasePre)

	s := newSession(m, in, set, o)
	s.postCheck(ctx, o.gate)

	log.Info("session started", "variables", s.ctx.Len(), "duration", time.Since(begin))
	if o.hooks.OnBootstrap != nil {
		o.hooks.OnBootstrap(ctx, time.Since(begin), nil)
	}
	return s, nil
}

func newSession(m *manifest.Manifest, in domain.SessionInputs, set domain.ResolvedSet, o *options) *Session {
	c, w := store.New(in.SessionID, in.EnterpriseScope, set,
		store.WithLogger(o.logger),
		store.WithVerbose(o.verbose),
		store.WithLimits(o.limits),
	)
	engine := trigger.New(w, m.Definitions(),
		trigger.WithLogger(o.logger),
		trigger.WithHooks(o.hooks),
		trigger.WithQueueCapacity(o.queue),
	)

	// The loop belongs to the session, not to the bootstrap request.
	loopCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		inputs:   in,
		manifest: m,
		ctx:      c,
		writer:   w,
		engine:   engine,
		exposure: exposure.New(m, c),
		cancel:   cancel,
		loop:     make(chan struct{}),
	}
	go func() {
		defer close(s.loop)
		_ = engine.Run(loopCtx)
	}()
	return s
}

// postCheck removes any gated variable that survived into the store.
func (s *Session) postCheck(ctx context.Context, g *gate.Gate) {
	all := s.ctx.Resolved()
	kept := g.Apply(ctx, s.inputs.SessionID, all, gate.PhasePost)
	for name := range all {
		if _, ok := kept[name]; !ok {
			s.writer.Remove(name)
		}
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.inputs.SessionID }

// Scope returns the tenant scope.
func (s *Session) Scope() string { return s.inputs.EnterpriseScope }

// Inputs returns the inputs the session was started with.
func (s *Session) Inputs() domain.SessionInputs { return s.inputs }

// Manifest returns the manifest of the session (empty after a failed bootstrap).
func (s *Session) Manifest() *manifest.Manifest { return s.manifest }

// Context returns the read-only view of the session context.
func (s *Session) Context() *store.Context { return s.ctx }

// Get returns the current value of a variable.
func (s *Session) Get(name string) (any, bool) { return s.ctx.Get(name) }

// VisibleTo returns the variables an agent may see with their current values.
func (s *Session) VisibleTo(agent string) map[string]any { return s.exposure.VisibleTo(agent) }

// Exposure returns the agent exposure builder.
func (s *Session) Exposure() *exposure.Builder { return s.exposure }

// Snapshot returns a redacted, length-limited copy of the context.
func (s *Session) Snapshot() store.Snapshot { return s.ctx.Snapshot() }

// Evaluate compiles and evaluates a routing condition against current values.
// Conditions over static or record variables are rejected with ErrIllegalCondition.
func (s *Session) Evaluate(expr string) (bool, error) {
	e, err := s.manifest.CompileCondition(expr)
	if err != nil {
		return false, err
	}
	return e.Evaluate(s.ctx.Get), nil
}

// Handoffs returns the targets of an agent's handoffs whose conditions currently
// hold, in declaration order. A handoff without a condition always holds.
func (s *Session) Handoffs(agent string) []string {
	a, ok := s.manifest.Agent(agent)
	if !ok {
		return nil
	}
	var out []string
	for _, h := range a.Handoffs {
		if h.Condition == nil || h.Condition.Evaluate(s.ctx.Get) {
			out = append(out, h.To)
		}
	}
	return out
}

// Publish hands an event to the session's trigger loop without blocking.
func (s *Session) Publish(ev domain.Event) error { return s.engine.Publish(ev) }

// Process applies an event synchronously, bypassing the queue. Used for replay.
func (s *Session) Process(ctx context.Context, ev domain.Event) ([]trigger.Flip, error) {
	return s.engine.Process(ctx, ev)
}

// ApplyUIResponse satisfies a UI response trigger. See trigger.Engine.ApplyUIResponse.
func (s *Session) ApplyUIResponse(ctx context.Context, variable, toolID string, payload map[string]any) (bool, error) {
	return s.engine.ApplyUIResponse(ctx, variable, toolID, payload)
}

// End stops the trigger loop and waits for it to exit. Calls in flight complete;
// later mutation calls return ErrEngineClosed. Safe to call more than once.
func (s *Session) End() {
	s.endOnce.Do(func() {
		s.engine.Close()
		s.cancel()
		<-s.loop
	})
}

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.loop }
