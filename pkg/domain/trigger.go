package domain

import (
	"regexp"
	"strings"
)

// TriggerKind discriminates the Trigger union.
type TriggerKind string

const (
	TriggerAgentText  TriggerKind = "agent_text"
	TriggerUIResponse TriggerKind = "ui_response"
)

// MatchKind selects how an AgentTextTrigger compares text.
type MatchKind string

const (
	MatchEquals   MatchKind = "equals"
	MatchContains MatchKind = "contains"
	MatchRegex    MatchKind = "regex"
)

// Trigger is a declared condition that contributes to flipping a derived variable.
type Trigger interface {
	// ID is unique within the manifest ("<variable>#<index>").
	ID() string
	Kind() TriggerKind
	isTrigger()
}

// AgentTextTrigger is satisfied passively by an observed agent utterance.
type AgentTextTrigger struct {
	TriggerID  string
	AgentName  string
	Match      MatchKind
	MatchValue string

	// Pattern is the compiled MatchValue when Match is MatchRegex.
	Pattern *regexp.Regexp
}

// UIResponseTrigger is satisfied only through an explicit UI response.
type UIResponseTrigger struct {
	TriggerID   string
	ToolID      string
	ResponseKey string
}

func (t AgentTextTrigger) ID() string  { return t.TriggerID }
func (t UIResponseTrigger) ID() string { return t.TriggerID }

func (AgentTextTrigger) Kind() TriggerKind  { return TriggerAgentText }
func (UIResponseTrigger) Kind() TriggerKind { return TriggerUIResponse }

func (AgentTextTrigger) isTrigger()  {}
func (UIResponseTrigger) isTrigger() {}

// NormalizeName trims and lower-cases an agent or tool name for comparison.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches evaluates the trigger's match kind against text.
// Comparison is on trimmed, case-insensitive text.
func (t AgentTextTrigger) Matches(text string) bool {
	text = strings.TrimSpace(text)
	switch t.Match {
	case MatchEquals:
		return strings.EqualFold(text, strings.TrimSpace(t.MatchValue))
	case MatchContains:
		return strings.Contains(strings.ToLower(text), strings.ToLower(strings.TrimSpace(t.MatchValue)))
	case MatchRegex:
		if t.Pattern == nil {
			return false
		}
		return t.Pattern.MatchString(text)
	}
	return false
}

// CompileMatchPattern compiles a regex trigger value case-insensitively.
func CompileMatchPattern(value string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + value)
}
