package manifest

import (
	"fmt"
	"os"
	"sort"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Load parses and validates a single manifest document (YAML or JSON).
func Load(data []byte) (*Manifest, error) {
	return ParseLayers(data)
}

// LoadFile reads and validates the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	return LoadFiles(path)
}

// LoadFiles reads and validates layered manifests, in order.
func LoadFiles(paths ...string) (*Manifest, error) {
	layers := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", p, err)
		}
		layers = append(layers, data)
	}
	return ParseLayers(layers...)
}

// ParseLayers merges several manifest documents into one and validates the result.
// A variable name declared in more than one layer is a validation error: no
// precedence order is applied between layers. Agent entries merge by union.
func ParseLayers(layers ...[]byte) (*Manifest, error) {
	var issues, warnings []domain.Issue

	defs := make(map[string]any)
	origin := make(map[string]int)
	agents := make(map[string]any)

	for li, data := range layers {
		top, dup, err := parseDocument(data)
		if err != nil {
			issues = append(issues, domain.Issue{Path: layerPath(li, len(layers), ""), Reason: err.Error()})
			continue
		}
		for _, name := range dup {
			issues = append(issues, domain.Issue{
				Path:   layerPath(li, len(layers), SectionDefinitions+"."+name),
				Reason: "duplicate variable name",
			})
		}

		for _, key := range sortedKeys(top) {
			switch key {
			case SectionDefinitions, SectionAgents:
			default:
				warnings = append(warnings, domain.Issue{
					Path:   layerPath(li, len(layers), key),
					Reason: "unknown top-level section ignored",
				})
			}
		}

		if raw, ok := top[SectionDefinitions]; ok && raw != nil {
			section, ok := raw.(map[string]any)
			if !ok {
				issues = append(issues, domain.Issue{
					Path:   layerPath(li, len(layers), SectionDefinitions),
					Reason: fmt.Sprintf("expected a map of variables, got %T", raw),
				})
			}
			for _, name := range sortedKeys(section) {
				if prev, seen := origin[name]; seen {
					issues = append(issues, domain.Issue{
						Path:   layerPath(li, len(layers), SectionDefinitions+"."+name),
						Reason: fmt.Sprintf("variable already declared in layer %d", prev),
					})
					continue
				}
				origin[name] = li
				defs[name] = section[name]
			}
		}

		if raw, ok := top[SectionAgents]; ok && raw != nil {
			section, ok := raw.(map[string]any)
			if !ok {
				issues = append(issues, domain.Issue{
					Path:   layerPath(li, len(layers), SectionAgents),
					Reason: fmt.Sprintf("expected a map of agents, got %T", raw),
				})
			}
			for name, entry := range section {
				agents[name] = mergeAgent(agents[name], entry)
			}
		}
	}

	if len(issues) > 0 {
		return nil, &domain.ValidationError{Issues: issues}
	}
	return validate(defs, agents, warnings)
}

// Validate checks an already-decoded manifest document.
func Validate(doc map[string]any) (*Manifest, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, &domain.ValidationError{Issues: []domain.Issue{{Reason: err.Error()}}}
	}
	return ParseLayers(data)
}

// parseDocument decodes one layer and reports duplicated variable names, which a
// plain map decode would either reject opaquely or silently collapse.
func parseDocument(data []byte) (map[string]any, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(root.Content) == 0 {
		return map[string]any{}, nil, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("manifest must be a mapping")
	}

	var dup []string
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != SectionDefinitions || doc.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		defs := doc.Content[i+1]
		seen := make(map[string]bool)
		var kept []*yaml.Node
		for j := 0; j+1 < len(defs.Content); j += 2 {
			name := defs.Content[j].Value
			if seen[name] {
				dup = append(dup, name)
				continue
			}
			seen[name] = true
			kept = append(kept, defs.Content[j], defs.Content[j+1])
		}
		defs.Content = kept
	}

	top := make(map[string]any)
	if err := doc.Decode(&top); err != nil {
		return nil, nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return top, dup, nil
}

func mergeAgent(prev, next any) any {
	p, ok1 := prev.(map[string]any)
	n, ok2 := next.(map[string]any)
	if !ok1 || !ok2 {
		return next
	}
	out := make(map[string]any, len(p)+len(n))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range n {
		pl, okp := out[k].([]any)
		nl, okn := v.([]any)
		if okp && okn {
			out[k] = append(append([]any(nil), pl...), nl...)
			continue
		}
		out[k] = v
	}
	return out
}

func layerPath(layer, total int, path string) string {
	if total <= 1 {
		return path
	}
	if path == "" {
		return fmt.Sprintf("layer[%d]", layer)
	}
	return fmt.Sprintf("layer[%d].%s", layer, path)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
