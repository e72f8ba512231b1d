package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
)

// Flip reports a derived variable that transitioned to satisfied. Value is the
// ui_response payload when one was applied and true otherwise.
type Flip struct {
	Variable string `json:"variable"`
	Value    any    `json:"value"`
}

type variable struct {
	name     string
	triggers []domain.Trigger
	ui       map[string]domain.UIResponseTrigger // by normalized tool id

	payload    any
	hasPayload bool
}

type binding struct {
	variable *variable
	trigger  domain.AgentTextTrigger
}

// Engine observes one session's events and flips its derived variables.
type Engine struct {
	sessionID string
	ctx       *store.Context
	w         *store.Writer
	vars      map[string]*variable
	order     []string
	byAgent   map[string][]binding

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	// process serializes event handling and UI responses.
	process sync.Mutex

	mu      sync.Mutex
	queue   []domain.Event
	notify  chan struct{}
	closed  bool
	closeCh chan struct{}
	once    sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithQueueCapacity preallocates the event queue. The queue still grows unbounded.
func WithQueueCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queue = make([]domain.Event, 0, n)
		}
	}
}

// New registers the triggers of every derived definition present in the store.
// Agent text triggers become subscriptions; UI response triggers become
// mutation endpoints for ApplyUIResponse.
func New(w *store.Writer, defs []domain.VariableDefinition, opts ...Option) *Engine {
	c := w.Context()
	e := &Engine{
		sessionID: c.SessionID(),
		ctx:       c,
		w:         w,
		vars:      make(map[string]*variable),
		byAgent:   make(map[string][]binding),
		logger:    logging.NewNop(),
		notify:    make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	sorted := append([]domain.VariableDefinition(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, def := range sorted {
		src, ok := def.Source.(domain.DerivedSource)
		if !ok {
			continue
		}
		if _, present := c.State(def.Name); !present {
			continue
		}
		v := &variable{
			name:     def.Name,
			triggers: src.Triggers,
			ui:       make(map[string]domain.UIResponseTrigger),
		}
		for _, t := range src.Triggers {
			switch t := t.(type) {
			case domain.AgentTextTrigger:
				agent := domain.NormalizeName(t.AgentName)
				e.byAgent[agent] = append(e.byAgent[agent], binding{variable: v, trigger: t})
			case domain.UIResponseTrigger:
				v.ui[domain.NormalizeName(t.ToolID)] = t
			}
		}
		e.vars[def.Name] = v
		e.order = append(e.order, def.Name)
	}
	return e
}

// Context returns the store the engine writes to.
func (e *Engine) Context() *store.Context { return e.ctx }

// Publish enqueues an event for the loop. It never blocks.
func (e *Engine) Publish(ev domain.Event) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrEngineClosed
	}
	e.queue = append(e.queue, ev)
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued, unprocessed events.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Run consumes queued events in arrival order until ctx is done or Close is
// called. Malformed events are logged and skipped; they never stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	for {
		for {
			ev, ok := e.next()
			if !ok {
				break
			}
			_, _ = e.Process(ctx, ev)
		}

		select {
		case <-ctx.Done():
			e.Close()
			return ctx.Err()
		case <-e.closeCh:
			return nil
		case <-e.notify:
		}
	}
}

func (e *Engine) next() (domain.Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || len(e.queue) == 0 {
		return domain.Event{}, false
	}
	ev := e.queue[0]
	e.queue[0] = domain.Event{}
	e.queue = e.queue[1:]
	return ev, true
}

// Close stops the loop. Subsequent Publish, Process and ApplyUIResponse calls
// return ErrEngineClosed; a call already in progress completes. Safe to call
// more than once.
func (e *Engine) Close() {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		dropped := len(e.queue)
		e.queue = nil
		e.mu.Unlock()
		close(e.closeCh)

		// Wait for an in-flight Process or ApplyUIResponse.
		e.process.Lock()
		defer e.process.Unlock()
		if dropped > 0 {
			e.logger.Debug("trigger engine closed with queued events", "session_id", e.sessionID, "dropped", dropped)
		}
	})
}

// Done is closed once the engine is closed.
func (e *Engine) Done() <-chan struct{} { return e.closeCh }

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Process handles one event synchronously and returns the variables it flipped.
// A malformed event returns a MalformedEventError and changes nothing.
func (e *Engine) Process(ctx context.Context, ev domain.Event) ([]Flip, error) {
	e.process.Lock()
	defer e.process.Unlock()
	if e.isClosed() {
		return nil, domain.ErrEngineClosed
	}

	if err := ev.Validate(); err != nil {
		e.logger.Warn("skipping malformed event", "session_id", e.sessionID, "err", err)
		if e.hooks.OnMalformedEvent != nil {
			e.hooks.OnMalformedEvent(ctx, err)
		}
		return nil, err
	}

	for _, b := range e.byAgent[domain.NormalizeName(ev.SenderName)] {
		if st, _ := e.ctx.State(b.variable.name); st != domain.DerivedPending {
			continue
		}
		if !b.trigger.Matches(ev.TextContent) {
			continue
		}
		e.satisfy(ctx, b.variable, b.trigger.ID())
	}
	return e.complete(ctx), nil
}

// ApplyUIResponse satisfies the UI response trigger of variable for toolID with
// payload[responseKey], then runs the completion check. It returns whether the
// variable flipped. An undeclared variable/tool pair is an UnknownTriggerError;
// a payload without the response key is ErrInvalidPayload.
func (e *Engine) ApplyUIResponse(ctx context.Context, name, toolID string, payload map[string]any) (bool, error) {
	e.process.Lock()
	defer e.process.Unlock()
	if e.isClosed() {
		return false, domain.ErrEngineClosed
	}

	v, ok := e.vars[name]
	if !ok {
		return false, &domain.UnknownTriggerError{Variable: name, ToolID: toolID}
	}
	t, ok := v.ui[domain.NormalizeName(toolID)]
	if !ok {
		return false, &domain.UnknownTriggerError{Variable: name, ToolID: toolID}
	}
	value, ok := payload[t.ResponseKey]
	if !ok {
		return false, fmt.Errorf("%w: missing key %q for tool %q", domain.ErrInvalidPayload, t.ResponseKey, toolID)
	}

	if st, _ := e.ctx.State(name); st != domain.DerivedPending {
		return false, nil
	}
	v.payload, v.hasPayload = value, true
	e.satisfy(ctx, v, t.ID())

	for _, f := range e.complete(ctx) {
		if f.Variable == name {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) satisfy(ctx context.Context, v *variable, triggerID string) {
	if !e.w.MarkSatisfied(v.name, triggerID) {
		return
	}
	e.logger.Debug("trigger satisfied", "session_id", e.sessionID, "variable", v.name, "trigger", triggerID)
	if e.hooks.OnTriggerSatisfied != nil {
		e.hooks.OnTriggerSatisfied(ctx, &domain.TriggerEvent{
			SessionID: e.sessionID,
			Scope:     e.ctx.Scope(),
			Variable:  v.name,
			TriggerID: triggerID,
		})
	}
}

// complete flips every pending variable whose declared triggers are all satisfied.
func (e *Engine) complete(ctx context.Context) []Flip {
	var flips []Flip
	for _, name := range e.order {
		v := e.vars[name]
		if len(v.triggers) == 0 {
			continue
		}
		if st, _ := e.ctx.State(name); st != domain.DerivedPending {
			continue
		}
		if !e.allSatisfied(v) {
			continue
		}

		var value any = true
		if v.hasPayload {
			value = v.payload
		}
		if !e.w.Flip(name, value) {
			continue
		}
		flips = append(flips, Flip{Variable: name, Value: value})
		e.logger.Info("derived variable satisfied", "session_id", e.sessionID, "variable", name)
		if e.hooks.OnFlip != nil {
			e.hooks.OnFlip(ctx, &domain.TriggerEvent{
				SessionID: e.sessionID,
				Scope:     e.ctx.Scope(),
				Variable:  name,
				Value:     value,
			})
		}
	}
	return flips
}

func (e *Engine) allSatisfied(v *variable) bool {
	got := e.ctx.Satisfied(v.name)
	set := make(map[string]bool, len(got))
	for _, id := range got {
		set[id] = true
	}
	for _, t := range v.triggers {
		if !set[t.ID()] {
			return false
		}
	}
	return true
}
