package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/trigger"
)

// Processor applies one event synchronously. *session.Session satisfies it.
type Processor interface {
	Process(ctx context.Context, ev domain.Event) ([]trigger.Flip, error)
}

// ReplayStep is the outcome of one line of an event log.
type ReplayStep struct {
	Line  int            `json:"line"`
	Event domain.Event   `json:"event"`
	Flips []trigger.Flip `json:"flips,omitempty"`
	Err   string         `json:"error,omitempty"`
}

// maxLine bounds a single event log line.
const maxLine = 1 << 20

// Replay feeds a JSONL event log through p in order, calling emit for every
// event. Blank lines are skipped. A malformed event is reported in its step and
// replay continues; a line that is not JSON stops the replay.
func Replay(ctx context.Context, p Processor, r io.Reader, emit func(ReplayStep)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var ev domain.Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return fmt.Errorf("line %d: invalid event: %w", line, err)
		}

		step := ReplayStep{Line: line, Event: ev}
		flips, err := p.Process(ctx, ev)
		switch {
		case errors.Is(err, domain.ErrMalformedEvent):
			step.Err = err.Error()
		case err != nil:
			return fmt.Errorf("line %d: %w", line, err)
		}
		step.Flips = flips
		emit(step)
	}
	return sc.Err()
}
