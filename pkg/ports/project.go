package ports

import "strings"

// LookupPath walks a dotted path ("a.b.c") through nested objects.
func LookupPath(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Project returns the requested fields of doc keyed by their path.
// Missing fields are omitted.
func Project(doc map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := LookupPath(doc, f); ok {
			out[f] = v
		}
	}
	return out
}
