package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mozaiks "github.com/BlocUnited-LLC/mozaiks-ai-sub000"
	httpadapter "github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/http"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/observability"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
definitions:
  interview_complete:
    type: boolean
    source:
      type: derived
      default: false
      triggers: [{type: agent_text, agent: InterviewAgent, value: NEXT}]
  action_plan_acceptance:
    type: string
    source:
      type: derived
      default: pending
      triggers: [{type: ui_response, tool: action_plan, response_key: plan_acceptance}]
  context_aware:
    type: boolean
    source: {type: environment, env_var: CONTEXT_AWARE}
  app_name:
    type: string
    source: {type: static, value: Mozaiks}
agents:
  InterviewAgent:
    variables: [context_aware, app_name]
    handoffs:
      - to: PlannerAgent
        condition: interview_complete == true
`

type fixture struct {
	srv     *httptest.Server
	streams *httpadapter.StreamManager
}

func setup(t *testing.T, mode domain.Mode) *fixture {
	t.Helper()
	streams := httpadapter.NewStreamManager(nil)
	metrics := observability.NewMetrics()
	eng, err := mozaiks.Load([]byte(doc),
		mozaiks.WithMode(mode),
		mozaiks.WithEnv(resolver.MapEnv(map[string]string{"CONTEXT_AWARE": "on"})),
		mozaiks.WithLifecycleHooks(metrics.Hooks().Merge(streams.Hooks())),
	)
	require.NoError(t, err)

	h := httpadapter.NewHandler(eng,
		httpadapter.WithStreams(streams),
		httpadapter.WithMetricsHandler(metrics.Handler()),
	)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		eng.Close()
	})
	return &fixture{srv: srv, streams: streams}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func (f *fixture) start(t *testing.T) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/sessions", httpadapter.StartRequest{Scope: "ent-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out httpadapter.StartResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.SessionID)
	assert.Empty(t, out.Error)
	return "/sessions/ent-1/" + out.SessionID
}

func TestServer_Lifecycle(t *testing.T) {
	f := setup(t, domain.ModeDevelopment)
	base := f.start(t)

	resp, body := f.do(t, http.MethodGet, base+"/agents/InterviewAgent/variables", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"context_aware": true, "app_name": "Mozaiks"}`, string(body))

	resp, body = f.do(t, http.MethodGet, base+"/agents/InterviewAgent/handoffs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = f.do(t, http.MethodPost, base+"/events", domain.Event{SenderName: "InterviewAgent", TextContent: "NEXT"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Eventually(t, func() bool {
		_, body := f.do(t, http.MethodGet, base+"/variables/interview_complete", nil)
		return strings.Contains(string(body), `"value":true`)
	}, time.Second, 10*time.Millisecond)

	resp, body = f.do(t, http.MethodPost, base+"/evaluate", httpadapter.EvaluateRequest{Condition: "interview_complete == true"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result": true}`, string(body))

	resp, body = f.do(t, http.MethodGet, base+"/agents/InterviewAgent/handoffs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["PlannerAgent"]`, string(body))

	resp, body = f.do(t, http.MethodPost, base+"/ui-responses", httpadapter.UIResponseRequest{
		Variable: "action_plan_acceptance",
		Tool:     "action_plan",
		Payload:  map[string]any{"plan_acceptance": "accepted"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"flipped": true}`, string(body))

	resp, body = f.do(t, http.MethodGet, base+"/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"action_plan_acceptance":"accepted"`)

	resp, _ = f.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, base+"/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ctxvars_flips_total{variable="interview_complete"} 1`)
}

func TestServer_ProductionHidesEnvironment(t *testing.T) {
	f := setup(t, domain.ModeProduction)
	base := f.start(t)

	resp, body := f.do(t, http.MethodGet, base+"/agents/InterviewAgent/variables", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"app_name": "Mozaiks"}`, string(body))

	resp, _ = f.do(t, http.MethodGet, base+"/variables/context_aware", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Errors(t *testing.T) {
	f := setup(t, domain.ModeDevelopment)
	base := f.start(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"missing scope", http.MethodPost, "/sessions", httpadapter.StartRequest{}, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/sessions/ent-1/nope/snapshot", nil, http.StatusNotFound},
		{"other tenant", http.MethodGet, strings.Replace(base, "ent-1", "ent-2", 1) + "/snapshot", nil, http.StatusNotFound},
		{"illegal condition", http.MethodPost, base + "/evaluate", httpadapter.EvaluateRequest{Condition: "app_name == Mozaiks"}, http.StatusBadRequest},
		{"unknown trigger", http.MethodPost, base + "/ui-responses", httpadapter.UIResponseRequest{Variable: "x", Tool: "y"}, http.StatusNotFound},
		{"invalid payload", http.MethodPost, base + "/ui-responses", httpadapter.UIResponseRequest{
			Variable: "action_plan_acceptance", Tool: "action_plan", Payload: map[string]any{},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode, string(body))
		})
	}
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := setup(t, domain.ModeDevelopment)
	base := f.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+base+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	require.Equal(t, "event: ping", <-lines)

	r, _ := f.do(t, http.MethodPost, base+"/events", domain.Event{SenderName: "InterviewAgent", TextContent: "NEXT"})
	require.Equal(t, http.StatusAccepted, r.StatusCode)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed before flip")
			if strings.HasPrefix(line, "data: {") {
				assert.JSONEq(t, `{"variable":"interview_complete","value":true}`, strings.TrimPrefix(line, "data: "))
				return
			}
		case <-deadline:
			t.Fatal("no flip received")
		}
	}
}

func TestStreamManager_CloseThenUnsubscribe(t *testing.T) {
	sm := httpadapter.NewStreamManager(nil)
	ch, unsubscribe := sm.Subscribe("e", "s")
	sm.Close("e", "s")
	_, open := <-ch
	assert.False(t, open)
	unsubscribe()
	sm.Broadcast("e", "s", "ignored")
}
