package mozaiks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	mozaiks "github.com/BlocUnited-LLC/mozaiks-ai-sub000"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/memory"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/observability"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/resolver"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestDoc = `
definitions:
  context_aware:
    type: boolean
    source: {type: environment, env_var: CONTEXT_AWARE, default: false}
  concept_overview:
    type: string
    source: {type: record, store: agents, collection: Concepts, lookup_key: $enterprise_id, field: overview}
  app_name:
    type: string
    source: {type: static, value: Mozaiks}
agents:
  InterviewAgent:
    variables: [context_aware, concept_overview, app_name]
`

func TestNew_RequiresManifest(t *testing.T) {
	_, err := mozaiks.New("")
	assert.Error(t, err)
}

func TestNew_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestDoc), 0o644))

	eng, err := mozaiks.New(path)
	require.NoError(t, err)
	defer eng.Close()
	assert.Equal(t, "workflow.yaml", eng.Name)
	assert.Equal(t, 3, eng.Manifest().Len())
}

func TestNew_InvalidManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`definitions: {x: {type: nope, source: {type: static, value: 1}}}`), 0o644))

	_, err := mozaiks.New(path)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidate(t *testing.T) {
	m, err := mozaiks.Validate([]byte(manifestDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"InterviewAgent"}, m.Agents())
}

func newEngine(t *testing.T, opts ...mozaiks.Option) *mozaiks.Engine {
	t.Helper()
	records := memory.NewStore()
	require.NoError(t, records.Put(context.Background(), "ent-1", "agents", "Concepts", "ent-1",
		map[string]any{"overview": "overview"}))
	base := []mozaiks.Option{
		mozaiks.WithRecordStore(records),
		mozaiks.WithEnv(resolver.MapEnv(map[string]string{"CONTEXT_AWARE": "yes"})),
	}
	eng, err := mozaiks.Load([]byte(manifestDoc), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestEngine_ProductionMode(t *testing.T) {
	metrics := observability.NewMetrics()
	eng := newEngine(t, mozaiks.WithMode(domain.ModeProduction), mozaiks.WithLifecycleHooks(metrics.Hooks()))

	s, err := eng.Start(context.Background(), domain.SessionInputs{SessionID: "s", EnterpriseScope: "ent-1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"concept_overview": "overview", "app_name": "Mozaiks"}, s.VisibleTo("InterviewAgent"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Suppressions.WithLabelValues("environment", "pre")))
}

func TestEngine_DevelopmentExcludingRecords(t *testing.T) {
	eng := newEngine(t, mozaiks.WithIncludeRecords(false))

	s, err := eng.Start(context.Background(), domain.SessionInputs{SessionID: "s", EnterpriseScope: "ent-1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"context_aware": true, "app_name": "Mozaiks"}, s.VisibleTo("InterviewAgent"))
}

func TestEngine_SessionRegistry(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	in := domain.SessionInputs{SessionID: "s", EnterpriseScope: "ent-1"}

	s, err := eng.Start(ctx, in)
	require.NoError(t, err)
	again, err := eng.Start(ctx, in)
	require.NoError(t, err)
	assert.Same(t, s, again)

	got, err := eng.Session("ent-1", "s")
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Len(t, eng.Sessions(), 1)

	require.NoError(t, eng.End(ctx, "ent-1", "s"))
	_, err = eng.Session("ent-1", "s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type stuckStore struct{}

func (stuckStore) Fetch(ctx context.Context, _ string, _ ports.RecordRequest) (map[string]any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngine_BootstrapTimeoutYieldsEmptySession(t *testing.T) {
	eng, err := mozaiks.Load([]byte(manifestDoc),
		mozaiks.WithRecordStore(stuckStore{}),
		mozaiks.WithBootstrapTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)
	defer eng.Close()

	s, err := eng.Start(context.Background(), domain.SessionInputs{SessionID: "s", EnterpriseScope: "ent-1"})
	assert.ErrorIs(t, err, domain.ErrBootstrapTimeout)
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Context().Len())
}
