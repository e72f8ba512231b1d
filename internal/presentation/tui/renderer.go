package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/trigger"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// SnapshotMarkdown formats a snapshot as a markdown table, one row per variable.
func SnapshotMarkdown(snap store.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Session `%s` (%s)\n\n", snap.SessionID, snap.Scope)
	if len(snap.Values) == 0 {
		b.WriteString("_No variables._\n")
		return b.String()
	}

	names := make([]string, 0, len(snap.Values))
	for name := range snap.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("| Variable | Value | State |\n|---|---|---|\n")
	for _, name := range names {
		state := ""
		if st, ok := snap.Derived[name]; ok {
			state = string(st)
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", name, cell(snap.Values[name]), state)
	}
	if snap.Omitted > 0 {
		fmt.Fprintf(&b, "\n_%d more variables omitted._\n", snap.Omitted)
	}
	return b.String()
}

// FlipsMarkdown lists the flips produced by one replayed event.
func FlipsMarkdown(line int, sender string, flips []trigger.Flip) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**#%d** `%s`\n\n", line, sender)
	for _, f := range flips {
		fmt.Fprintf(&b, "- `%s` → %s\n", f.Variable, cell(f.Value))
	}
	return b.String()
}

func cell(v any) string {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprint(v)
		} else {
			s = string(data)
		}
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
