package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/presentation/tui"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/store"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes styled markdown to terminals and JSON everywhere else.
type Printer struct {
	w      io.Writer
	pretty bool
	render func(string) (string, error)
}

// NewPrinter creates a Printer. Styled output is used only when w is a terminal
// and plain is false.
func NewPrinter(w io.Writer, plain bool) *Printer {
	p := &Printer{w: w, pretty: !plain && IsTerminal(w)}
	if p.pretty {
		p.render = tui.NewRenderer()
	}
	return p
}

// Pretty reports whether the printer renders markdown.
func (p *Printer) Pretty() bool { return p.pretty }

// Snapshot prints a session snapshot.
func (p *Printer) Snapshot(snap store.Snapshot) error {
	if !p.pretty {
		return p.JSON(snap)
	}
	return p.markdown(tui.SnapshotMarkdown(snap))
}

// Step prints one replay step. Steps without flips or errors are only shown as JSON.
func (p *Printer) Step(step ReplayStep) error {
	if !p.pretty {
		return p.JSON(step)
	}
	if step.Err != "" {
		_, err := fmt.Fprintln(p.w, tui.Status(false, fmt.Sprintf("line %d: %s", step.Line, step.Err)))
		return err
	}
	if len(step.Flips) == 0 {
		return nil
	}
	return p.markdown(tui.FlipsMarkdown(step.Line, step.Event.SenderName, step.Flips))
}

// Value prints any value: JSON when piped, indented JSON on a terminal.
func (p *Printer) Value(v any) error {
	if !p.pretty {
		return p.JSON(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

// JSON writes v as one JSON line.
func (p *Printer) JSON(v any) error {
	return json.NewEncoder(p.w).Encode(v)
}

func (p *Printer) markdown(md string) error {
	out, err := p.render(md)
	if err != nil {
		out = md
	}
	_, err = fmt.Fprint(p.w, out)
	return err
}
