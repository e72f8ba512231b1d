package store

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// Mask replaces the value of a redacted variable.
const Mask = "***"

// DefaultSecretPatterns match variable names whose values are never shown.
var DefaultSecretPatterns = []string{
	`(?i)secret`,
	`(?i)token`,
	`(?i)passw(or)?d`,
	`(?i)api_?key`,
	`(?i)credential`,
	`(?i)private_?key`,
}

// Limits bounds the size of a snapshot.
type Limits struct {
	// MaxString is the rune length beyond which strings are truncated.
	MaxString int
	// MaxKeys caps the number of top-level variables.
	MaxKeys int
}

// DefaultLimits returns 256 runes per string and 200 keys.
func DefaultLimits() Limits {
	return Limits{MaxString: 256, MaxKeys: 200}
}

// Redactor masks values whose keys match any pattern, at any depth.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles the patterns. It panics on an invalid pattern.
func NewRedactor(patterns []string) *Redactor {
	r := &Redactor{patterns: make([]*regexp.Regexp, len(patterns))}
	for i, p := range patterns {
		r.patterns[i] = regexp.MustCompile(p)
	}
	return r
}

// DefaultRedactor uses DefaultSecretPatterns.
func DefaultRedactor() *Redactor {
	return NewRedactor(DefaultSecretPatterns)
}

// Matches reports whether a key is considered secret.
func (r *Redactor) Matches(key string) bool {
	for _, p := range r.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of m with secret keys masked at any depth,
// including maps held in lists. m is not modified.
func (r *Redactor) Redact(m map[string]any) map[string]any {
	out := deepCopyMap(m)
	r.maskMap(out)
	return out
}

func (r *Redactor) maskMap(m map[string]any) {
	for k, v := range m {
		if r.Matches(k) {
			m[k] = Mask
			continue
		}
		r.mask(v)
	}
}

func (r *Redactor) mask(v any) {
	switch t := v.(type) {
	case map[string]any:
		r.maskMap(t)
	case []any:
		for _, item := range t {
			r.mask(item)
		}
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	}
	return v
}

// Snapshot is an immutable, redacted and size-limited copy of a context.
type Snapshot struct {
	SessionID string                         `json:"session_id"`
	Scope     string                         `json:"scope"`
	Values    map[string]any                 `json:"values"`
	Derived   map[string]domain.DerivedState `json:"derived,omitempty"`
	// Omitted counts variables dropped by the key cap.
	Omitted int `json:"omitted,omitempty"`
}

// Snapshot returns a redacted, length-limited copy of the current state.
func (c *Context) Snapshot() Snapshot {
	st := c.cur.Load()

	names := make([]string, 0, len(st.values))
	for name := range st.values {
		names = append(names, name)
	}
	sort.Strings(names)

	snap := Snapshot{SessionID: c.sessionID, Scope: c.scope}
	if c.limits.MaxKeys > 0 && len(names) > c.limits.MaxKeys {
		snap.Omitted = len(names) - c.limits.MaxKeys
		names = names[:c.limits.MaxKeys]
	}

	raw := make(map[string]any, len(names))
	for _, name := range names {
		raw[name] = st.values[name].Value
	}
	snap.Values = c.redactor.Redact(raw)
	for k, v := range snap.Values {
		snap.Values[k] = truncate(v, c.limits.MaxString)
	}

	if len(st.derived) > 0 {
		snap.Derived = make(map[string]domain.DerivedState, len(st.derived))
		for k, v := range st.derived {
			snap.Derived[k] = v
		}
	}
	return snap
}

// truncate shortens strings (at any depth of the already copied value).
func truncate(v any, max int) any {
	if max <= 0 {
		return v
	}
	switch t := v.(type) {
	case string:
		if utf8.RuneCountInString(t) <= max {
			return t
		}
		return string([]rune(t)[:max]) + "…"
	case map[string]any:
		for k, sub := range t {
			t[k] = truncate(sub, max)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = truncate(sub, max)
		}
		return out
	}
	return v
}
