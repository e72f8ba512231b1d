package store

import (
	"fmt"
	"sync"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// Writer is the write capability of one Context. Its methods are serialized.
type Writer struct {
	mu  sync.Mutex
	ctx *Context
}

// Context returns the context this writer mutates.
func (w *Writer) Context() *Context { return w.ctx }

// mutate copies the current state, applies fn and publishes the copy if fn
// reports a change.
func (w *Writer) mutate(fn func(next *state) bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur := w.ctx.cur.Load()
	next := &state{
		values:    cur.values.Clone(),
		derived:   make(map[string]domain.DerivedState, len(cur.derived)),
		satisfied: make(map[string]map[string]struct{}, len(cur.satisfied)),
	}
	for k, v := range cur.derived {
		next.derived[k] = v
	}
	for k, v := range cur.satisfied {
		next.satisfied[k] = v // copied on write in MarkSatisfied
	}

	if !fn(next) {
		return false
	}
	w.ctx.cur.Store(next)
	if w.ctx.verbose {
		w.ctx.logDiff(cur.values, next.values)
	}
	return true
}

// Set replaces the value of an existing variable, keeping its source kind.
func (w *Writer) Set(name string, value any) error {
	var err error
	w.mutate(func(next *state) bool {
		v, ok := next.values[name]
		if !ok {
			err = fmt.Errorf("cannot set undeclared variable %q", name)
			return false
		}
		v.Value = value
		next.values[name] = v
		return true
	})
	return err
}

// MarkSatisfied records a trigger id as satisfied for a variable.
// It reports whether the id was newly added.
func (w *Writer) MarkSatisfied(name, triggerID string) bool {
	return w.mutate(func(next *state) bool {
		prev := next.satisfied[name]
		if _, done := prev[triggerID]; done {
			return false
		}
		set := make(map[string]struct{}, len(prev)+1)
		for id := range prev {
			set[id] = struct{}{}
		}
		set[triggerID] = struct{}{}
		next.satisfied[name] = set
		return true
	})
}

// Flip sets a pending derived variable to value and transitions it to satisfied
// in one step. It is a no-op for satisfied or unknown variables and reports
// whether the flip happened.
func (w *Writer) Flip(name string, value any) bool {
	return w.mutate(func(next *state) bool {
		if next.derived[name] != domain.DerivedPending {
			return false
		}
		v, ok := next.values[name]
		if !ok {
			return false
		}
		v.Value = value
		next.values[name] = v
		next.derived[name] = domain.DerivedSatisfied
		return true
	})
}

// Remove deletes a variable. Used by the defensive post-check of the gate.
func (w *Writer) Remove(name string) bool {
	return w.mutate(func(next *state) bool {
		if _, ok := next.values[name]; !ok {
			return false
		}
		delete(next.values, name)
		delete(next.derived, name)
		delete(next.satisfied, name)
		return true
	})
}
