package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.RecordStore using Redis.
// Each document is a hash whose fields hold JSON-encoded top-level values.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for documents written through Put.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for documents.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis record store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis record store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "ctxvars:record:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// key builds the tenant-scoped document key. Segments are escaped so that a
// separator inside one segment can never address another scope's document.
func (s *Store) key(scope, store, collection, lookup string) string {
	parts := []string{scope, store, collection, lookup}
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return s.prefix + strings.Join(parts, ":")
}

// Put writes a document, replacing any previous version.
func (s *Store) Put(ctx context.Context, scope, store, collection, key string, doc map[string]any) error {
	values := make(map[string]any, len(doc))
	for field, v := range doc {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal field %s: %w", field, err)
		}
		values[field] = data
	}

	k := s.key(scope, store, collection, key)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, k)
	if len(values) > 0 {
		pipe.HSet(ctx, k, values)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, k, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Fetch reads only the hash fields needed by the requested paths, in one round trip.
func (s *Store) Fetch(ctx context.Context, scope string, req ports.RecordRequest) (map[string]any, error) {
	k := s.key(scope, req.Store, req.Collection, req.LookupKey)

	roots := make([]string, 0, len(req.Fields))
	seen := make(map[string]bool)
	for _, f := range req.Fields {
		root, _, _ := strings.Cut(f, ".")
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}

	pipe := s.client.Pipeline()
	exists := pipe.Exists(ctx, k)
	var fields *backend.SliceCmd
	if len(roots) > 0 {
		fields = pipe.HMGet(ctx, k, roots...)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != backend.Nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	if exists.Val() == 0 {
		return nil, fmt.Errorf("%w: %s/%s/%s", domain.ErrRecordNotFound, req.Store, req.Collection, req.LookupKey)
	}
	if fields == nil {
		return map[string]any{}, nil
	}

	doc := make(map[string]any, len(roots))
	for i, raw := range fields.Val() {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(str), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal field %s: %w", roots[i], err)
		}
		doc[roots[i]] = v
	}
	return ports.Project(doc, req.Fields), nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Locker returns a distributed locker sharing the store's client and prefix.
func (s *Store) Locker() *Locker {
	return NewLocker(s.client, s.prefix)
}
