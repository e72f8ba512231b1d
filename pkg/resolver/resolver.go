package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// Resolution outcomes reported through LifecycleHooks.OnResolved.
const (
	OutcomeResolved    = "resolved"
	OutcomeDefaulted   = "defaulted"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// LookupEnv reads one environment variable.
type LookupEnv func(key string) (string, bool)

// Resolver resolves variable definitions into a ResolvedSet.
type Resolver struct {
	records   ports.RecordStore
	lookupEnv LookupEnv
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	timeout   time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRecordStore sets the backend of record-sourced variables.
// Without one, every record variable resolves to domain.Unavailable.
func WithRecordStore(s ports.RecordStore) Option {
	return func(r *Resolver) { r.records = s }
}

// WithEnv replaces the process environment lookup.
func WithEnv(lookup LookupEnv) Option {
	return func(r *Resolver) {
		if lookup != nil {
			r.lookupEnv = lookup
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHooks sets the lifecycle hooks notified per resolved variable.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Resolver) { r.hooks = h }
}

// WithTimeout bounds a whole Resolve call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// New creates a Resolver reading the process environment.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		lookupEnv: os.LookupEnv,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces the initial value of every definition.
// It fails fast on a fatal SourceResolutionError and returns ErrBootstrapTimeout
// when the deadline passes before every source has answered. Record fetch
// failures are absorbed into domain.Unavailable.
func (r *Resolver) Resolve(ctx context.Context, defs []domain.VariableDefinition, in domain.SessionInputs) (domain.ResolvedSet, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var (
		mu       sync.Mutex
		out      = make(domain.ResolvedSet, len(defs))
		closed   bool
		firstErr error
	)
	// put reports false once Resolve has returned; late answers are discarded.
	put := func(name string, v domain.Resolved) bool {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return false
		}
		out[name] = v
		return true
	}
	abandon := func() {
		mu.Lock()
		closed = true
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	run := func(fn func() error) {
		g.Go(func() error {
			err := fn()
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return err
		})
	}
	var records []domain.VariableDefinition

	for _, def := range defs {
		switch src := def.Source.(type) {
		case domain.StaticSource:
			run(func() error {
				if put(def.Name, domain.Resolved{Value: src.Value, Kind: domain.SourceStatic}) {
					r.report(gctx, in, def, OutcomeResolved)
				}
				return nil
			})
		case domain.EnvironmentSource:
			run(func() error {
				v, outcome, err := r.resolveEnvironment(def, src)
				if err != nil {
					r.report(gctx, in, def, OutcomeFailed)
					return err
				}
				if put(def.Name, domain.Resolved{Value: v, Kind: domain.SourceEnvironment}) {
					r.report(gctx, in, def, outcome)
				}
				return nil
			})
		case domain.DerivedSource:
			run(func() error {
				if put(def.Name, domain.Resolved{Value: src.Default, Kind: domain.SourceDerived}) {
					r.report(gctx, in, def, OutcomeDefaulted)
				}
				return nil
			})
		case domain.RecordSource:
			records = append(records, def)
		default:
			abandon()
			return nil, &domain.SourceResolutionError{Variable: def.Name, Kind: def.Kind(), Reason: "unsupported source"}
		}
	}

	batches, err := planBatches(records, in)
	if err != nil {
		abandon()
		return nil, err
	}
	for _, b := range batches {
		run(func() error {
			return r.resolveBatch(gctx, ctx, in, b, put)
		})
	}

	// Record stores may ignore their context; the deadline holds regardless.
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	finish := func(err error) (domain.ResolvedSet, error) {
		mu.Lock()
		defer mu.Unlock()
		closed = true
		switch {
		case err != nil:
			return nil, err
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, r.timeoutError()
		}
		return out, nil
	}

	select {
	case err := <-done:
		return finish(err)
	case <-gctx.Done():
	}

	mu.Lock()
	err = firstErr
	mu.Unlock()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		abandon()
		return nil, r.timeoutError()
	case ctx.Err() != nil:
		abandon()
		return nil, ctx.Err()
	case err != nil:
		abandon()
		return nil, err
	}
	// The group context is also cancelled when Wait returns.
	return finish(<-done)
}

func (r *Resolver) timeoutError() error {
	return fmt.Errorf("%w after %s", domain.ErrBootstrapTimeout, r.timeout)
}

func (r *Resolver) report(ctx context.Context, in domain.SessionInputs, def domain.VariableDefinition, outcome string) {
	if r.hooks.OnResolved != nil {
		r.hooks.OnResolved(ctx, &domain.ResolutionEvent{
			SessionID: in.SessionID,
			Variable:  def.Name,
			Kind:      def.Kind(),
			Outcome:   outcome,
		})
	}
}
