package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/memory"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/gate"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/resolver"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const workflow = `
definitions:
  interview_complete:
    type: boolean
    source:
      type: derived
      default: false
      triggers:
        - {type: agent_text, agent: InterviewAgent, match: equals, value: NEXT}
  action_plan_acceptance:
    type: string
    source:
      type: derived
      default: pending
      triggers:
        - {type: ui_response, tool: action_plan, response_key: plan_acceptance}
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
    handoffs:
      - to: PlannerAgent
        condition: interview_complete == true
      - to: HelpAgent
  PlannerAgent:
    variables: [interview_complete, action_plan_acceptance]
`

func load(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load([]byte(workflow))
	require.NoError(t, err)
	return m
}

func inputs() domain.SessionInputs {
	return domain.SessionInputs{SessionID: "s-1", EnterpriseScope: "ent-1"}
}

func records(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.NewStore()
	require.NoError(t, st.Put(context.Background(), "ent-1", "agents", "Concepts", "ent-1",
		map[string]any{"overview": "A marketplace"}))
	return st
}

func start(t *testing.T, mode domain.Mode, opts ...session.Option) *session.Session {
	t.Helper()
	base := []session.Option{
		session.WithResolver(resolver.New(
			resolver.WithRecordStore(records(t)),
			resolver.WithEnv(resolver.MapEnv(map[string]string{"CONTEXT_AWARE": "true"})),
		)),
		session.WithGate(gate.New(mode)),
	}
	s, err := session.Start(context.Background(), load(t), inputs(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.End)
	return s
}

func TestStart_Development(t *testing.T) {
	s := start(t, domain.ModeDevelopment)

	assert.Equal(t, "s-1", s.ID())
	assert.Equal(t, "ent-1", s.Scope())
	assert.Equal(t, map[string]any{
		"interview_complete":     false,
		"action_plan_acceptance": "pending",
		"context_aware":          true,
		"concept_overview":       "A marketplace",
		"app_name":               "Mozaiks",
	}, s.Context().Values())
}

func TestStart_ProductionGate(t *testing.T) {
	s := start(t, domain.ModeProduction)

	_, ok := s.Get("context_aware")
	assert.False(t, ok, "environment variables are absent in production")

	visible := s.VisibleTo("InterviewAgent")
	assert.Equal(t, map[string]any{"concept_overview": "A marketplace", "app_name": "Mozaiks"}, visible)
}

func TestStart_ValidationFailureNeverReachesStart(t *testing.T) {
	_, err := manifest.Load([]byte(`definitions: {x: {type: float, source: {type: static, value: 1}}}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStart_FailedBootstrapYieldsEmptySession(t *testing.T) {
	m, err := manifest.Load([]byte(`
definitions:
  token:
    type: string
    source: {type: environment, env_var: API_TOKEN, required: true}
`))
	require.NoError(t, err)

	var bootErr error
	s, err := session.Start(context.Background(), m, inputs(),
		session.WithResolver(resolver.New(resolver.WithEnv(resolver.MapEnv(nil)))),
		session.WithHooks(domain.LifecycleHooks{
			OnBootstrap: func(_ context.Context, _ time.Duration, err error) { bootErr = err },
		}),
	)
	require.ErrorIs(t, err, domain.ErrSourceResolution)
	require.NotNil(t, s)
	defer s.End()

	assert.ErrorIs(t, bootErr, domain.ErrSourceResolution)
	assert.Equal(t, 0, s.Context().Len())
	assert.Equal(t, 0, s.Manifest().Len())
	assert.Empty(t, s.VisibleTo("anyone"))
	assert.NoError(t, s.Publish(domain.Event{SenderName: "a", TextContent: "b"}))
}

func TestSession_PublishFlipsDerived(t *testing.T) {
	s := start(t, domain.ModeDevelopment)

	assert.Equal(t, []string{"HelpAgent"}, s.Handoffs("InterviewAgent"))
	ok, err := s.Evaluate("interview_complete == true")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Publish(domain.Event{SenderName: "InterviewAgent", TextContent: "NEXT"}))
	assert.Eventually(t, func() bool {
		v, _ := s.Get("interview_complete")
		return v == true
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"PlannerAgent", "HelpAgent"}, s.Handoffs("InterviewAgent"))
	ok, err = s.Evaluate("interview_complete == true")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSession_EvaluateRejectsIllegalOperands(t *testing.T) {
	s := start(t, domain.ModeDevelopment)

	_, err := s.Evaluate("app_name == Mozaiks")
	assert.ErrorIs(t, err, domain.ErrIllegalCondition)
	assert.Nil(t, s.Handoffs("NoSuchAgent"))
}

func TestSession_ApplyUIResponse(t *testing.T) {
	s := start(t, domain.ModeDevelopment)
	ctx := context.Background()

	flipped, err := s.ApplyUIResponse(ctx, "action_plan_acceptance", "action_plan", map[string]any{"plan_acceptance": "accepted"})
	require.NoError(t, err)
	assert.True(t, flipped)
	v, _ := s.Get("action_plan_acceptance")
	assert.Equal(t, "accepted", v)

	_, err = s.ApplyUIResponse(ctx, "action_plan_acceptance", "other_tool", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrUnknownTrigger)
}

func TestSession_ProcessIsSynchronous(t *testing.T) {
	s := start(t, domain.ModeDevelopment)

	flips, err := s.Process(context.Background(), domain.Event{SenderName: "interviewagent", TextContent: " next "})
	require.NoError(t, err)
	require.Len(t, flips, 1)
	assert.Equal(t, "interview_complete", flips[0].Variable)

	_, err = s.Process(context.Background(), domain.Event{SenderName: "", TextContent: "x"})
	assert.ErrorIs(t, err, domain.ErrMalformedEvent)
}

func TestSession_End(t *testing.T) {
	s := start(t, domain.ModeDevelopment)
	s.End()
	s.End()

	select {
	case <-s.Done():
	default:
		t.Fatal("session loop still running after End")
	}
	err := s.Publish(domain.Event{SenderName: "InterviewAgent", TextContent: "NEXT"})
	assert.True(t, errors.Is(err, domain.ErrEngineClosed))

	v, _ := s.Get("interview_complete")
	assert.Equal(t, false, v, "reads keep working after End")
}

func TestSession_SnapshotRedacts(t *testing.T) {
	m, err := manifest.Load([]byte(`
definitions:
  api_token: {type: string, source: {type: static, value: sk-123}}
  app_name: {type: string, source: {type: static, value: Mozaiks}}
`))
	require.NoError(t, err)
	s, err := session.Start(context.Background(), m, inputs())
	require.NoError(t, err)
	defer s.End()

	snap := s.Snapshot()
	assert.Equal(t, "***", snap.Values["api_token"])
	assert.Equal(t, "Mozaiks", snap.Values["app_name"])
}
