package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
)

// StartFunc bootstraps one session. It follows Start's contract: on error it
// still returns a usable empty session.
type StartFunc func(ctx context.Context, in domain.SessionInputs) (*Session, error)

// Key identifies a session. Sessions of different scopes never share state,
// even with equal ids.
type Key struct {
	Scope     string `json:"scope"`
	SessionID string `json:"session_id"`
}

func (k Key) String() string { return k.Scope + "/" + k.SessionID }

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager is the registry of live sessions.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	start StartFunc

	mu       sync.Mutex         // Global lock for the maps
	locks    map[Key]*lockEntry // Map of active locks
	sessions map[Key]*Session   // Live sessions

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLocker enables distributed locking around bootstrap.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithManagerLogger configures a logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a registry that bootstraps sessions with start.
func NewManager(start StartFunc, opts ...ManagerOption) *Manager {
	m := &Manager{
		start:    start,
		locks:    make(map[Key]*lockEntry),
		sessions: make(map[Key]*Session),
		lockTTL:  30 * time.Second,
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key Key) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes a function while holding the lock for the session key.
func (m *Manager) WithLock(ctx context.Context, key Key, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key.String(), m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", key.SessionID,
					"scope", key.Scope,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Open returns the live session for the inputs, bootstrapping it on first use.
// Concurrent opens of the same key bootstrap once. A failed bootstrap registers
// the empty fallback session and returns it with the error.
func (m *Manager) Open(ctx context.Context, in domain.SessionInputs) (*Session, error) {
	key := Key{Scope: in.EnterpriseScope, SessionID: in.SessionID}
	var s *Session
	var startErr error
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		if existing, ok := m.lookup(key); ok {
			s = existing
			return nil
		}
		s, startErr = m.start(ctx, in)
		if s == nil {
			return startErr
		}
		m.mu.Lock()
		m.sessions[key] = s
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, startErr
}

func (m *Manager) lookup(key Key) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return s, ok
}

// Get returns a live session.
func (m *Manager) Get(scope, sessionID string) (*Session, error) {
	if s, ok := m.lookup(Key{Scope: scope, SessionID: sessionID}); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", domain.ErrSessionNotFound, scope, sessionID)
}

// End stops a session and removes it from the registry.
func (m *Manager) End(ctx context.Context, scope, sessionID string) error {
	key := Key{Scope: scope, SessionID: sessionID}
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		m.mu.Lock()
		s, ok := m.sessions[key]
		delete(m.sessions, key)
		m.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
		}
		s.End()
		return nil
	})
}

// List returns the keys of live sessions, sorted.
func (m *Manager) List() []Key {
	m.mu.Lock()
	keys := make([]Key, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	m.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Close ends every live session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[Key]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.End()
	}
}
