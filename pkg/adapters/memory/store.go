package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
)

// Store implements ports.RecordStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[docKey]map[string]any
	mu   sync.RWMutex

	// fetches counts Fetch calls, for asserting batching.
	fetches int
}

type docKey struct {
	scope, store, collection, key string
}

// NewStore creates a new in-memory record store.
func NewStore() *Store {
	return &Store{
		data: make(map[docKey]map[string]any),
	}
}

// Put stores a document. The document is copied to ensure isolation.
func (s *Store) Put(ctx context.Context, scope, store, collection, key string, doc map[string]any) error {
	copied := make(map[string]any, len(doc))
	for k, v := range doc {
		copied[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[docKey{scope, store, collection, key}] = copied
	return nil
}

// Fetch projects the requested fields of the scoped document.
func (s *Store) Fetch(ctx context.Context, scope string, req ports.RecordRequest) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++

	doc, ok := s.data[docKey{scope, req.Store, req.Collection, req.LookupKey}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", domain.ErrRecordNotFound, req.Store, req.Collection, req.LookupKey)
	}
	return ports.Project(doc, req.Fields), nil
}

// Fetches returns how many Fetch calls were served.
func (s *Store) Fetches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches
}
