package mcp

import (
	"context"
	"testing"
	"time"

	mozaiks "github.com/BlocUnited-LLC/mozaiks-ai-sub000"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/resolver"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
definitions:
  done:
    type: boolean
    source:
      type: derived
      default: false
      triggers: [{type: agent_text, agent: Writer, match: contains, value: finished}]
  choice:
    type: string
    source:
      type: derived
      default: pending
      triggers: [{type: ui_response, tool: picker, response_key: pick}]
  region:
    type: string
    source: {type: environment, env_var: REGION, default: eu}
agents:
  Writer:
    variables: [region, done]
    handoffs:
      - to: Reviewer
        condition: done == true
`

func newServer(t *testing.T) *Server {
	t.Helper()
	eng, err := mozaiks.Load([]byte(doc), mozaiks.WithEnv(resolver.MapEnv(nil)))
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return NewServer(eng, nil)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestServer_SessionTools(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{"scope": "acme", "session_id": "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", started.SessionID)
	assert.Empty(t, started.Error)

	ids := map[string]any{"scope": "acme", "session_id": "s1"}
	with := func(kv ...string) map[string]any {
		out := map[string]any{"scope": "acme", "session_id": "s1"}
		for i := 0; i+1 < len(kv); i += 2 {
			out[kv[i]] = kv[i+1]
		}
		return out
	}

	visible, err := s.handleVisibleTo(ctx, mcp.CallToolRequest{}, with("agent", "writer"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"region": "eu", "done": false}, visible.Values)

	res, err := s.handlePublish(ctx, call(with("sender", "Writer", "content", "All finished here")))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Eventually(t, func() bool {
		res, _ := s.handleGet(ctx, call(with("name", "done")))
		return !res.IsError && text(t, res) == `{"name":"done","value":true}`
	}, timeout, tick)

	res, err = s.handleEvaluate(ctx, call(with("condition", "done == true")))
	require.NoError(t, err)
	assert.Equal(t, `{"result":true}`, text(t, res))

	res, err = s.handleHandoffs(ctx, call(with("agent", "Writer")))
	require.NoError(t, err)
	assert.Equal(t, `["Reviewer"]`, text(t, res))

	res, err = s.handleUIResponse(ctx, call(with("variable", "choice", "tool", "picker", "payload", `{"pick":"b"}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"flipped":true}`, text(t, res))

	snap, err := s.handleSnapshot(ctx, mcp.CallToolRequest{}, ids)
	require.NoError(t, err)
	assert.Equal(t, "b", snap.Values["choice"])

	res, err = s.handleEnd(ctx, call(ids))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGet(ctx, call(with("name", "done")))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_ToolErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	assert.Error(t, err)

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{"scope": "acme"})
	require.NoError(t, err)
	assert.NotEmpty(t, started.SessionID, "session id is generated")

	args := func(kv ...string) map[string]any {
		out := map[string]any{"scope": "acme", "session_id": started.SessionID}
		for i := 0; i+1 < len(kv); i += 2 {
			out[kv[i]] = kv[i+1]
		}
		return out
	}

	res, err := s.handleEvaluate(ctx, call(args("condition", "region == eu")))
	require.NoError(t, err)
	assert.False(t, res.IsError, "environment variables are legal condition operands")

	res, err = s.handleUIResponse(ctx, call(args("variable", "choice", "tool", "picker", "payload", "not json")))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleUIResponse(ctx, call(args("variable", "choice", "tool", "other", "payload", `{}`)))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), domain.ErrUnknownTrigger.Error())

	res, err = s.handlePublish(ctx, call(args("sender", "", "content", "x")))
	require.NoError(t, err)
	assert.False(t, res.IsError, "malformed events are queued and skipped by the loop")

	res, err = s.handleGet(ctx, call(map[string]any{"scope": "other", "session_id": started.SessionID, "name": "region"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)
