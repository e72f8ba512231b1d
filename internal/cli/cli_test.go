package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/cli"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/memory"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestDoc = `
definitions:
  interview_complete:
    type: boolean
    source:
      type: derived
      default: false
      triggers:
        - {type: agent_text, agent: InterviewAgent, value: NEXT}
        - {type: agent_text, agent: ReviewAgent, match: regex, value: "^approved"}
  concept_overview:
    type: string
    source: {type: record, store: agents, collection: Concepts, lookup_key: $enterprise_id, field: overview}
  region:
    type: string
    source: {type: environment, env_var: CLI_TEST_REGION}
agents:
  PlannerAgent:
    variables: [interview_complete, concept_overview, region]
`

const seedDoc = `
- scope: acme
  store: agents
  collection: Concepts
  key: acme
  doc: {overview: Plants}
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedRecords(t *testing.T) {
	dir := t.TempDir()
	st := memory.NewStore()

	n, err := cli.SeedRecords(context.Background(), st, write(t, dir, "seed.yaml", seedDoc))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := st.Fetch(context.Background(), "acme", ports.RecordRequest{
		Store: "agents", Collection: "Concepts", LookupKey: "acme", Fields: []string{"overview"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Plants", doc["overview"])

	_, err = cli.SeedRecords(context.Background(), st, write(t, dir, "bad.yaml", "- {scope: acme}"))
	assert.Error(t, err)
}

func TestOpenRecords_Selection(t *testing.T) {
	logger := logging.NewNop()

	r, err := cli.OpenRecords(cli.RecordOptions{}, logger)
	require.NoError(t, err)
	assert.Equal(t, cli.BackendMemory, r.Name)
	assert.Nil(t, r.Locker)

	r, err = cli.OpenRecords(cli.RecordOptions{RedisAddr: "localhost:0"}, logger)
	require.NoError(t, err)
	assert.Equal(t, cli.BackendRedis, r.Name)
	assert.NotNil(t, r.Locker)
	assert.NoError(t, r.Close())

	_, err = cli.OpenRecords(cli.RecordOptions{Backend: cli.BackendLoam}, logger)
	assert.Error(t, err)

	_, err = cli.OpenRecords(cli.RecordOptions{Backend: "postgres"}, logger)
	assert.Error(t, err)
}

func newEngine(t *testing.T, mode domain.Mode) *cli.Engine {
	t.Helper()
	dir := t.TempDir()
	eng, err := cli.CreateEngine(context.Background(), cli.EngineOptions{
		Manifests:      []string{write(t, dir, "workflow.yaml", manifestDoc)},
		EnvFiles:       []string{write(t, dir, ".env", "CLI_TEST_REGION=eu\n")},
		Mode:           mode,
		IncludeRecords: true,
		SeedFile:       write(t, dir, "seed.yaml", seedDoc),
	}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestCreateEngine(t *testing.T) {
	eng := newEngine(t, domain.ModeDevelopment)
	assert.Equal(t, "workflow.yaml", eng.Name)

	s, err := eng.Start(context.Background(), domain.SessionInputs{SessionID: "s", EnterpriseScope: "acme"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"interview_complete": false,
		"concept_overview":   "Plants",
		"region":             "eu",
	}, s.VisibleTo("PlannerAgent"))

	prod := newEngine(t, domain.ModeProduction)
	s, err = prod.Start(context.Background(), domain.SessionInputs{SessionID: "s", EnterpriseScope: "acme"})
	require.NoError(t, err)
	assert.NotContains(t, s.VisibleTo("PlannerAgent"), "region")
}

func TestCreateEngine_RequiresManifest(t *testing.T) {
	_, err := cli.CreateEngine(context.Background(), cli.EngineOptions{}, logging.NewNop())
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	eng := newEngine(t, domain.ModeDevelopment)
	s, err := eng.Start(context.Background(), domain.SessionInputs{SessionID: "s", EnterpriseScope: "acme"})
	require.NoError(t, err)

	log := strings.Join([]string{
		`{"sender":"InterviewAgent","content":"NEXT"}`,
		``,
		`{"sender":"","content":"orphan"}`,
		`{"sender":"ReviewAgent","content":"Approved, ship it"}`,
	}, "\n")

	var steps []cli.ReplayStep
	require.NoError(t, cli.Replay(context.Background(), s, strings.NewReader(log), func(st cli.ReplayStep) {
		steps = append(steps, st)
	}))

	require.Len(t, steps, 3)
	assert.Empty(t, steps[0].Flips, "one of two triggers satisfied")
	assert.Equal(t, 3, steps[1].Line)
	assert.Contains(t, steps[1].Err, "malformed")
	require.Len(t, steps[2].Flips, 1)
	assert.Equal(t, "interview_complete", steps[2].Flips[0].Variable)
	assert.Equal(t, 4, steps[2].Line)
}

func TestReplay_InvalidJSON(t *testing.T) {
	eng := newEngine(t, domain.ModeDevelopment)
	s, err := eng.Start(context.Background(), domain.SessionInputs{SessionID: "s", EnterpriseScope: "acme"})
	require.NoError(t, err)

	err = cli.Replay(context.Background(), s, strings.NewReader("{not json"), func(cli.ReplayStep) {})
	assert.ErrorContains(t, err, "line 1")
}

func TestPrinter_PlainWhenPiped(t *testing.T) {
	var buf bytes.Buffer
	p := cli.NewPrinter(&buf, false)
	assert.False(t, p.Pretty())

	require.NoError(t, p.Step(cli.ReplayStep{Line: 1, Event: domain.Event{SenderName: "a", TextContent: "b"}}))
	assert.JSONEq(t, `{"line":1,"event":{"sender":"a","content":"b","timestamp":"0001-01-01T00:00:00Z"}}`, buf.String())
}
