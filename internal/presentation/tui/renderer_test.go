package tui_test

import (
	"bytes"
	"testing"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/presentation/tui"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/trigger"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotMarkdown(t *testing.T) {
	md := tui.SnapshotMarkdown(store.Snapshot{
		SessionID: "s-1",
		Scope:     "acme",
		Values: map[string]any{
			"done":     false,
			"app_name": "a|b",
			"meta":     map[string]any{"k": 1},
		},
		Derived: map[string]domain.DerivedState{"done": domain.DerivedPending},
		Omitted: 2,
	})

	assert.Contains(t, md, "## Session `s-1` (acme)")
	assert.Contains(t, md, "| `app_name` | a\\|b |  |")
	assert.Contains(t, md, "| `done` | false | pending |")
	assert.Contains(t, md, `| `+"`meta`"+` | {"k":1} |  |`)
	assert.Contains(t, md, "_2 more variables omitted._")
	assert.Less(t, bytes.Index([]byte(md), []byte("app_name")), bytes.Index([]byte(md), []byte("done")))
}

func TestSnapshotMarkdown_Empty(t *testing.T) {
	assert.Contains(t, tui.SnapshotMarkdown(store.Snapshot{SessionID: "s"}), "_No variables._")
}

func TestFlipsMarkdown(t *testing.T) {
	md := tui.FlipsMarkdown(3, "InterviewAgent", []trigger.Flip{{Variable: "done", Value: true}})
	assert.Contains(t, md, "**#3** `InterviewAgent`")
	assert.Contains(t, md, "- `done` → true")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.NotEmpty(t, buf.String())
	assert.Contains(t, tui.Status(true, "ok"), "ok")
}
