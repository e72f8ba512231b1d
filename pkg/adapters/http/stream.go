package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // scope/session -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

func streamKey(scope, sessionID string) string { return scope + "/" + sessionID }

// Subscribe registers a channel for one session's messages. The returned
// function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(scope, sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := streamKey(scope, sessionID)
	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[key]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, key)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of the session. Slow clients drop messages.
func (sm *StreamManager) Broadcast(scope, sessionID, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[streamKey(scope, sessionID)] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID, "scope", scope)
		}
	}
}

// Close disconnects every subscriber of the session.
func (sm *StreamManager) Close(scope, sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := streamKey(scope, sessionID)
	for ch := range sm.subscribers[key] {
		close(ch)
	}
	delete(sm.subscribers, key)
}

// Hooks broadcasts every flip to the subscribers of its session.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlip: func(_ context.Context, e *domain.TriggerEvent) {
			data, err := json.Marshal(map[string]any{"variable": e.Variable, "value": e.Value})
			if err != nil {
				return
			}
			sm.Broadcast(e.Scope, e.SessionID, string(data))
		},
	}
}
