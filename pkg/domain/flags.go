package domain

import "strings"

// ParseFlag reports whether s is one of "1", "true", "yes", "on" (case-insensitive,
// trimmed). Every other string, including "2" and "nope", is false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
