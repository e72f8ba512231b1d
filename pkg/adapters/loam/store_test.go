package loam_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/loam"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports/tests"
	loamlib "github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *loam.Store {
	t.Helper()

	// Loam sometimes prefers absolute paths, though t.TempDir usually returns one.
	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	store, err := loam.Open(absPath, loamlib.WithForceTemp(false))
	require.NoError(t, err, "Failed to init loam repo")
	return store
}

func TestLoamStore_Contract(t *testing.T) {
	store := openStore(t)
	tests.RunRecordStoreContract(t, store, store)
}

func TestLoamStore_DocumentID(t *testing.T) {
	assert.Equal(t, "tenant/agents/Concepts/ent-1", loam.DocumentID("tenant", "agents", "Concepts", "ent-1"))
	assert.Equal(t, "a%2Fb/s/c/k", loam.DocumentID("a/b", "s", "c", "k"))
	assert.Equal(t, "..%2F/s/c/k", loam.DocumentID("../", "s", "c", "k"))
	assert.Equal(t, "%2E%2E/s/c/k", loam.DocumentID("..", "s", "c", "k"))
}

func TestLoamStore_SlashInScopeCannotCrossTenants(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", "b", "c", "k", map[string]any{"f": "tenant a"}))

	_, err := store.Fetch(ctx, "a/b", ports.RecordRequest{Store: "c", Collection: "k", LookupKey: "k", Fields: []string{"f"}})
	assert.Error(t, err)
}
