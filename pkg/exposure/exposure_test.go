package exposure_test

import (
	"testing"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/exposure"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
definitions:
  app_name: {type: string, source: {type: static, value: Mozaiks}}
  context_aware: {type: boolean, source: {type: environment, env_var: CONTEXT_AWARE, default: true}}
  done: {type: boolean, source: {type: derived, default: false}}
agents:
  InterviewAgent: {variables: [app_name, context_aware, done]}
  PlannerAgent: {variables: [done]}
  SilentAgent:
`

func TestVisibleTo(t *testing.T) {
	m, err := manifest.Load([]byte(doc))
	require.NoError(t, err)

	// context_aware was suppressed by the gate.
	c, w := store.New("s", "t", domain.ResolvedSet{
		"app_name": {Value: "Mozaiks", Kind: domain.SourceStatic},
		"done":     {Value: false, Kind: domain.SourceDerived},
	})
	b := exposure.New(m, c)

	assert.Equal(t, map[string]any{"app_name": "Mozaiks", "done": false}, b.VisibleTo("InterviewAgent"))
	assert.Equal(t, map[string]any{"done": false}, b.VisibleTo("planneragent"))
	assert.Empty(t, b.VisibleTo("SilentAgent"))
	assert.Empty(t, b.VisibleTo("Stranger"))

	// Values are live, the name lists are not.
	w.Flip("done", true)
	assert.Equal(t, map[string]any{"done": true}, b.VisibleTo("PlannerAgent"))

	assert.Equal(t, []string{"app_name", "context_aware", "done"}, b.Variables("InterviewAgent"))
	assert.Equal(t, []string{"InterviewAgent", "PlannerAgent", "SilentAgent"}, b.Agents())
	assert.Equal(t, []string{"InterviewAgent", "PlannerAgent"}, b.Audience("done"))
}
