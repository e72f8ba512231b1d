package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/redis"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports/tests"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *redis.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, redis.NewFromClient(client, opts...)
}

func TestRedisStore_Contract(t *testing.T) {
	_, store := newStore(t)
	tests.RunRecordStoreContract(t, store, store)
}

func TestRedisStore_NotFound(t *testing.T) {
	_, store := newStore(t)
	_, err := store.Fetch(context.Background(), "t", ports.RecordRequest{
		Store: "s", Collection: "c", LookupKey: "missing", Fields: []string{"f"},
	})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, store := newStore(t, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Put(ctx, "tenant", "agents", "Concepts", "ent-1", map[string]any{"overview": "x"})
	require.NoError(t, err)

	// Key should be "custom:app:<scope>:<store>:<collection>:<key>"
	assert.True(t, mr.Exists("custom:app:tenant:agents:Concepts:ent-1"), "Expected key with custom prefix to exist")
	assert.Equal(t, `"x"`, mr.HGet("custom:app:tenant:agents:Concepts:ent-1", "overview"))
}

func TestRedisStore_ScopeSeparatorCannotCrossTenants(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", "b:c", "d", "k", map[string]any{"f": "tenant a"}))

	_, err := store.Fetch(ctx, "a:b", ports.RecordRequest{Store: "c", Collection: "d", LookupKey: "k", Fields: []string{"f"}})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestRedisStore_PreservesTypes(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "t", "s", "c", "k", map[string]any{
		"count":   3,
		"enabled": true,
		"nested":  map[string]any{"level": "deep"},
	}))

	got, err := store.Fetch(ctx, "t", ports.RecordRequest{
		Store: "s", Collection: "c", LookupKey: "k",
		Fields: []string{"count", "enabled", "nested.level", "nested"},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, true, got["enabled"])
	assert.Equal(t, "deep", got["nested.level"])
	assert.Equal(t, map[string]any{"level": "deep"}, got["nested"])
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, store := newStore(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "t", "s", "c", "k", map[string]any{"f": "v"}))
	_, err := store.Fetch(ctx, "t", ports.RecordRequest{Store: "s", Collection: "c", LookupKey: "k", Fields: []string{"f"}})
	require.NoError(t, err)

	// Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	_, err = store.Fetch(ctx, "t", ports.RecordRequest{Store: "s", Collection: "c", LookupKey: "k", Fields: []string{"f"}})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}
