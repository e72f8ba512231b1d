package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is returned when a manifest is malformed. The session does not start.
var ErrValidation = errors.New("invalid manifest")

// ErrSourceResolution is returned when a required source has no value and no default.
var ErrSourceResolution = errors.New("source resolution failed")

// ErrSourceUnavailable marks a record fetch that failed and was replaced by Unavailable.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrUnknownTrigger is returned by ApplyUIResponse for an undeclared variable/tool pair.
var ErrUnknownTrigger = errors.New("unknown trigger")

// ErrMalformedEvent is reported for events missing a sender or text.
var ErrMalformedEvent = errors.New("malformed event")

// ErrBootstrapTimeout is returned when source resolution exceeds the bootstrap deadline.
var ErrBootstrapTimeout = errors.New("bootstrap timed out")

// ErrEngineClosed is returned by the trigger engine after its session has ended.
var ErrEngineClosed = errors.New("trigger engine closed")

// ErrSessionNotFound is returned when a session cannot be found in the registry.
var ErrSessionNotFound = errors.New("session not found")

// ErrRecordNotFound is returned by record stores when no document matches the lookup.
var ErrRecordNotFound = errors.New("record not found")

// ErrInvalidPayload is returned when a UI response payload lacks the declared response key.
var ErrInvalidPayload = errors.New("invalid ui response payload")

// ErrIllegalCondition is returned for conditions that are malformed or use illegal operands.
var ErrIllegalCondition = errors.New("illegal condition")

// Issue is a single manifest validation failure or warning.
type Issue struct {
	Path   string // e.g. "definitions.foo.source.env_var"
	Reason string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Reason
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Reason)
}

// ValidationError aggregates every fatal issue found in a manifest.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Issues[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d issues:\n", ErrValidation, len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, issue)
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SourceResolutionError is a fatal bootstrap failure for one variable.
type SourceResolutionError struct {
	Variable string
	Kind     SourceKind
	Reason   string
}

func (e *SourceResolutionError) Error() string {
	return fmt.Sprintf("%s: %s variable %q: %s", ErrSourceResolution, e.Kind, e.Variable, e.Reason)
}

func (e *SourceResolutionError) Is(target error) bool { return target == ErrSourceResolution }

// UnknownTriggerError is returned synchronously to ApplyUIResponse callers.
type UnknownTriggerError struct {
	Variable string
	ToolID   string
}

func (e *UnknownTriggerError) Error() string {
	return fmt.Sprintf("%s: variable %q has no ui_response trigger for tool %q", ErrUnknownTrigger, e.Variable, e.ToolID)
}

func (e *UnknownTriggerError) Is(target error) bool { return target == ErrUnknownTrigger }

// MalformedEventError describes why an inbound event was skipped.
type MalformedEventError struct {
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedEvent, e.Reason)
}

func (e *MalformedEventError) Is(target error) bool { return target == ErrMalformedEvent }
