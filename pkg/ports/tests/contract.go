package tests

import (
	"context"
	"testing"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordStoreContract is a reusable test suite that verifies if an adapter
// complies with ports.RecordStore. The writer must seed the same backend.
func RunRecordStoreContract(t *testing.T, store ports.RecordStore, writer ports.RecordWriter) {
	t.Helper()
	ctx := context.Background()

	concept := map[string]any{
		"overview": "An app for planning",
		"status":   "draft",
		"meta":     map[string]any{"owner": "alice"},
	}
	require.NoError(t, writer.Put(ctx, "tenant-a", "agents", "Concepts", "ent-1", concept))
	require.NoError(t, writer.Put(ctx, "tenant-b", "agents", "Concepts", "ent-1", map[string]any{
		"overview": "Another tenant's app",
	}))

	t.Run("Fetch_Projects_Fields", func(t *testing.T) {
		got, err := store.Fetch(ctx, "tenant-a", ports.RecordRequest{
			Store: "agents", Collection: "Concepts", LookupKey: "ent-1",
			Fields: []string{"overview", "status"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"overview": "An app for planning", "status": "draft"}, got)
	})

	t.Run("Fetch_Dotted_Path", func(t *testing.T) {
		got, err := store.Fetch(ctx, "tenant-a", ports.RecordRequest{
			Store: "agents", Collection: "Concepts", LookupKey: "ent-1",
			Fields: []string{"meta.owner"},
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", got["meta.owner"])
	})

	t.Run("Fetch_Missing_Field_Omitted", func(t *testing.T) {
		got, err := store.Fetch(ctx, "tenant-a", ports.RecordRequest{
			Store: "agents", Collection: "Concepts", LookupKey: "ent-1",
			Fields: []string{"overview", "nope"},
		})
		require.NoError(t, err)
		assert.Contains(t, got, "overview")
		assert.NotContains(t, got, "nope")
	})

	t.Run("Tenant_Isolation", func(t *testing.T) {
		got, err := store.Fetch(ctx, "tenant-b", ports.RecordRequest{
			Store: "agents", Collection: "Concepts", LookupKey: "ent-1",
			Fields: []string{"overview", "status"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"overview": "Another tenant's app"}, got)

		_, err = store.Fetch(ctx, "tenant-c", ports.RecordRequest{
			Store: "agents", Collection: "Concepts", LookupKey: "ent-1",
			Fields: []string{"overview"},
		})
		assert.Error(t, err, "unknown scope must not resolve another tenant's document")
	})

	t.Run("Fetch_Unknown_Key", func(t *testing.T) {
		_, err := store.Fetch(ctx, "tenant-a", ports.RecordRequest{
			Store: "agents", Collection: "Concepts", LookupKey: "missing",
			Fields: []string{"overview"},
		})
		assert.Error(t, err)
	})
}
