package domain

import (
	"context"
	"strings"
	"time"
)

// Event is one agent utterance observed on the conversation stream.
type Event struct {
	SenderName  string    `json:"sender"`
	TextContent string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// Validate reports a MalformedEventError for events missing a sender or text.
func (e Event) Validate() error {
	if strings.TrimSpace(e.SenderName) == "" {
		return &MalformedEventError{Reason: "missing sender"}
	}
	if strings.TrimSpace(e.TextContent) == "" {
		return &MalformedEventError{Reason: "missing text content"}
	}
	return nil
}

// ResolutionEvent reports the outcome of resolving one variable at bootstrap.
type ResolutionEvent struct {
	SessionID string
	Variable  string
	Kind      SourceKind
	// Outcome is "resolved", "defaulted", "unavailable" or "failed".
	Outcome string
}

// SuppressionEvent reports a variable removed by the production gate.
type SuppressionEvent struct {
	SessionID string
	Variable  string
	Kind      SourceKind
	// Phase is "pre" or "post". A post suppression indicates an upstream bug.
	Phase string
}

// TriggerEvent reports a trigger marked satisfied or a variable flip.
type TriggerEvent struct {
	SessionID string
	Scope     string
	Variable  string
	TriggerID string
	Value     any
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnResolved         func(context.Context, *ResolutionEvent)
	OnSuppressed       func(context.Context, *SuppressionEvent)
	OnTriggerSatisfied func(context.Context, *TriggerEvent)
	OnFlip             func(context.Context, *TriggerEvent)
	OnMalformedEvent   func(context.Context, error)
	OnBootstrap        func(context.Context, time.Duration, error)
}

// Merge combines two hook sets; both callbacks run, h first.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnResolved:         chain(h.OnResolved, o.OnResolved),
		OnSuppressed:       chain(h.OnSuppressed, o.OnSuppressed),
		OnTriggerSatisfied: chain(h.OnTriggerSatisfied, o.OnTriggerSatisfied),
		OnFlip:             chain(h.OnFlip, o.OnFlip),
		OnMalformedEvent:   chain(h.OnMalformedEvent, o.OnMalformedEvent),
		OnBootstrap: func(ctx context.Context, d time.Duration, err error) {
			if h.OnBootstrap != nil {
				h.OnBootstrap(ctx, d, err)
			}
			if o.OnBootstrap != nil {
				o.OnBootstrap(ctx, d, err)
			}
		},
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
