package mozaiks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/gate"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/resolver"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/session"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
)

// Version is the engine release.
const Version = "0.4.0"

// DefaultBootstrapTimeout bounds source resolution when no timeout is configured.
const DefaultBootstrapTimeout = 10 * time.Second

// Engine is the high-level entry point of the library.
// It owns a validated manifest and the registry of live sessions.
type Engine struct {
	manifest *manifest.Manifest
	sessions *session.Manager

	records        ports.RecordStore
	env            resolver.LookupEnv
	locker         ports.DistributedLocker
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	mode           domain.Mode
	includeRecords bool
	timeout        time.Duration
	verbose        bool
	queue          int
	limits         store.Limits

	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithManifest injects an already validated manifest, bypassing file loading.
func WithManifest(m *manifest.Manifest) Option {
	return func(e *Engine) {
		e.manifest = m
	}
}

// WithRecordStore sets the backend for record-sourced variables. Without one,
// record variables resolve to the Unavailable sentinel.
func WithRecordStore(s ports.RecordStore) Option {
	return func(e *Engine) {
		e.records = s
	}
}

// WithEnv replaces the process environment as the source of environment variables.
func WithEnv(lookup resolver.LookupEnv) Option {
	return func(e *Engine) {
		e.env = lookup
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMode sets the deployment mode (default: development).
func WithMode(mode domain.Mode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithIncludeRecords controls whether record-sourced variables are seeded (default: true).
func WithIncludeRecords(include bool) Option {
	return func(e *Engine) {
		e.includeRecords = include
	}
}

// WithBootstrapTimeout bounds the resolution phase of Start.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithVerbose logs a diff of every context change.
func WithVerbose(verbose bool) Option {
	return func(e *Engine) {
		e.verbose = verbose
	}
}

// WithQueueSize preallocates each session's event queue.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		e.queue = n
	}
}

// WithSnapshotLimits bounds the snapshots of every session.
func WithSnapshotLimits(l store.Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithLocker serializes session bootstrap across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// New loads and validates the manifest at manifestPath and returns an Engine.
// If WithManifest is provided, manifestPath can be empty and nothing is read.
func New(manifestPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		mode:           domain.ModeDevelopment,
		includeRecords: true,
		timeout:        DefaultBootstrapTimeout,
		limits:         store.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.manifest == nil {
		if manifestPath == "" {
			return nil, fmt.Errorf("manifestPath is required when no manifest is provided")
		}
		m, err := manifest.LoadFile(manifestPath)
		if err != nil {
			return nil, err
		}
		eng.manifest = m
	}
	if manifestPath != "" {
		eng.Name = filepath.Base(manifestPath)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("manifest", eng.Name)
	}
	for _, w := range eng.manifest.Warnings {
		eng.logger.Warn("manifest warning", "path", w.Path, "reason", w.Reason)
	}

	var mgrOpts []session.ManagerOption
	mgrOpts = append(mgrOpts, session.WithManagerLogger(eng.logger))
	if eng.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(eng.locker, 2*eng.timeout))
	}
	eng.sessions = session.NewManager(eng.bootstrap, mgrOpts...)
	return eng, nil
}

// Load validates a manifest document and returns an Engine for it.
func Load(data []byte, opts ...Option) (*Engine, error) {
	m, err := manifest.Load(data)
	if err != nil {
		return nil, err
	}
	return New("", append([]Option{WithManifest(m)}, opts...)...)
}

// Validate checks a manifest document without creating an engine.
func Validate(data []byte) (*manifest.Manifest, error) {
	return manifest.Load(data)
}

func (e *Engine) bootstrap(ctx context.Context, in domain.SessionInputs) (*session.Session, error) {
	resolverOpts := []resolver.Option{
		resolver.WithLogger(e.logger),
		resolver.WithHooks(e.hooks),
		resolver.WithTimeout(e.timeout),
	}
	if e.records != nil {
		resolverOpts = append(resolverOpts, resolver.WithRecordStore(e.records))
	}
	if e.env != nil {
		resolverOpts = append(resolverOpts, resolver.WithEnv(e.env))
	}

	return session.Start(ctx, e.manifest, in,
		session.WithResolver(resolver.New(resolverOpts...)),
		session.WithGate(gate.New(e.mode,
			gate.WithIncludeRecordSourced(e.includeRecords),
			gate.WithLogger(e.logger),
			gate.WithHooks(e.hooks),
		)),
		session.WithLogger(e.logger),
		session.WithHooks(e.hooks),
		session.WithVerbose(e.verbose),
		session.WithQueueCapacity(e.queue),
		session.WithLimits(e.limits),
	)
}

// Start bootstraps the session identified by in, or returns it if it is
// already live. On a fatal bootstrap error the returned session is an empty,
// usable context and the error says why.
func (e *Engine) Start(ctx context.Context, in domain.SessionInputs) (*session.Session, error) {
	return e.sessions.Open(ctx, in)
}

// Session returns a live session.
func (e *Engine) Session(scope, sessionID string) (*session.Session, error) {
	return e.sessions.Get(scope, sessionID)
}

// End stops a live session and forgets it.
func (e *Engine) End(ctx context.Context, scope, sessionID string) error {
	return e.sessions.End(ctx, scope, sessionID)
}

// Sessions lists the live sessions.
func (e *Engine) Sessions() []session.Key {
	return e.sessions.List()
}

// Close ends every live session.
func (e *Engine) Close() {
	e.sessions.Close()
}

// Manifest returns the validated manifest.
func (e *Engine) Manifest() *manifest.Manifest {
	return e.manifest
}

// Mode returns the deployment mode.
func (e *Engine) Mode() domain.Mode {
	return e.mode
}
