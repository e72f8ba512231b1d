package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type rawDefinition struct {
	Type        string         `mapstructure:"type"`
	Description string         `mapstructure:"description"`
	Source      map[string]any `mapstructure:"source"`
}

type rawStatic struct {
	Value any `mapstructure:"value"`
}

type rawEnvironment struct {
	EnvVar   string `mapstructure:"env_var"`
	Default  any    `mapstructure:"default"`
	Required bool   `mapstructure:"required"`
}

type rawRecord struct {
	Store      string `mapstructure:"store"`
	Collection string `mapstructure:"collection"`
	LookupKey  string `mapstructure:"lookup_key"`
	Field      string `mapstructure:"field"`
}

type rawDerived struct {
	Default  any              `mapstructure:"default"`
	Triggers []map[string]any `mapstructure:"triggers"`
}

type rawTrigger struct {
	Type        string `mapstructure:"type"`
	Agent       string `mapstructure:"agent"`
	Match       string `mapstructure:"match"`
	Value       string `mapstructure:"value"`
	Tool        string `mapstructure:"tool"`
	ResponseKey string `mapstructure:"response_key"`
}

type rawAgent struct {
	Variables []string     `mapstructure:"variables"`
	Handoffs  []rawHandoff `mapstructure:"handoffs"`
}

type rawHandoff struct {
	To        string `mapstructure:"to"`
	Condition string `mapstructure:"condition"`
}

// collector accumulates issues while walking a manifest.
type collector struct {
	issues   []domain.Issue
	warnings []domain.Issue
}

func (c *collector) fail(path, format string, args ...any) {
	c.issues = append(c.issues, domain.Issue{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (c *collector) warn(path, format string, args ...any) {
	c.warnings = append(c.warnings, domain.Issue{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func validate(defs map[string]any, agents map[string]any, warnings []domain.Issue) (*Manifest, error) {
	c := &collector{warnings: warnings}

	out := make(map[string]domain.VariableDefinition, len(defs))
	for _, name := range sortedKeys(defs) {
		path := SectionDefinitions + "." + name
		if !namePattern.MatchString(name) {
			c.fail(path, "invalid variable name (must match %s)", namePattern)
			continue
		}
		if def, ok := c.definition(path, name, defs[name]); ok {
			out[name] = def
		}
	}

	// Agents reference definitions, so they are checked against the partial result;
	// any definition issue already makes the manifest fatal.
	m := newManifest(out, nil, nil)
	exposure := make(map[string]Agent, len(agents))
	for _, name := range sortedKeys(agents) {
		if a, ok := c.agent(m, SectionAgents+"."+name, name, agents[name]); ok {
			exposure[name] = a
		}
	}

	if len(c.issues) > 0 {
		return nil, &domain.ValidationError{Issues: c.issues}
	}
	return newManifest(out, exposure, c.warnings), nil
}

func (c *collector) definition(path, name string, raw any) (domain.VariableDefinition, bool) {
	var rd rawDefinition
	if !c.decode(path, raw, &rd) {
		return domain.VariableDefinition{}, false
	}

	vt := domain.ValueType(strings.ToLower(strings.TrimSpace(rd.Type)))
	if !vt.Valid() {
		c.fail(path+".type", "unknown value type %q", rd.Type)
		return domain.VariableDefinition{}, false
	}
	if rd.Source == nil {
		c.fail(path+".source", "missing source")
		return domain.VariableDefinition{}, false
	}

	srcPath := path + ".source"
	kind, _ := rd.Source["type"].(string)
	body := make(map[string]any, len(rd.Source))
	for k, v := range rd.Source {
		if k != "type" {
			body[k] = v
		}
	}

	def := domain.VariableDefinition{Name: name, Type: vt, Description: rd.Description}
	switch domain.SourceKind(strings.ToLower(strings.TrimSpace(kind))) {
	case domain.SourceStatic:
		var rs rawStatic
		if !c.decode(srcPath, body, &rs) {
			return def, false
		}
		if err := schema.Check(vt, rs.Value); err != nil {
			c.fail(srcPath+".value", "%v", err)
			return def, false
		}
		def.Source = domain.StaticSource{Value: schema.NormalizeObject(rs.Value)}

	case domain.SourceEnvironment:
		var re rawEnvironment
		if !c.decode(srcPath, body, &re) {
			return def, false
		}
		if strings.TrimSpace(re.EnvVar) == "" {
			c.fail(srcPath+".env_var", "required")
			return def, false
		}
		if re.Default != nil {
			if err := schema.Check(vt, re.Default); err != nil {
				c.fail(srcPath+".default", "%v", err)
				return def, false
			}
		}
		def.Source = domain.EnvironmentSource{
			EnvKey:   strings.TrimSpace(re.EnvVar),
			Default:  schema.NormalizeObject(re.Default),
			Required: re.Required,
		}

	case domain.SourceRecord:
		var rr rawRecord
		if !c.decode(srcPath, body, &rr) {
			return def, false
		}
		ok := true
		for _, f := range [][2]string{
			{"store", rr.Store}, {"collection", rr.Collection}, {"lookup_key", rr.LookupKey}, {"field", rr.Field},
		} {
			if strings.TrimSpace(f[1]) == "" {
				c.fail(srcPath+"."+f[0], "required")
				ok = false
			}
		}
		if rr.LookupKey == domain.LookupInputPrefix {
			c.fail(srcPath+".lookup_key", "input reference is missing a name")
			ok = false
		}
		if !ok {
			return def, false
		}
		def.Source = domain.RecordSource{
			Store:      rr.Store,
			Collection: rr.Collection,
			LookupKey:  rr.LookupKey,
			Field:      rr.Field,
		}

	case domain.SourceDerived:
		src, ok := c.derived(srcPath, name, vt, body)
		if !ok {
			return def, false
		}
		def.Source = src

	default:
		c.fail(srcPath+".type", "unknown source type %q", kind)
		return def, false
	}
	return def, true
}

func (c *collector) derived(path, name string, vt domain.ValueType, body map[string]any) (domain.DerivedSource, bool) {
	var rd rawDerived
	if !c.decode(path, body, &rd) {
		return domain.DerivedSource{}, false
	}
	if rd.Default == nil {
		c.fail(path+".default", "required")
		return domain.DerivedSource{}, false
	}
	if err := schema.Check(vt, rd.Default); err != nil {
		c.fail(path+".default", "%v", err)
		return domain.DerivedSource{}, false
	}

	src := domain.DerivedSource{Default: schema.NormalizeObject(rd.Default)}
	tools := make(map[string]bool)
	hasUI := false
	ok := true
	for i, raw := range rd.Triggers {
		tpath := fmt.Sprintf("%s.triggers[%d]", path, i)
		id := fmt.Sprintf("%s#%d", name, i)

		var rt rawTrigger
		if !c.decode(tpath, raw, &rt) {
			ok = false
			continue
		}
		switch domain.TriggerKind(strings.ToLower(strings.TrimSpace(rt.Type))) {
		case domain.TriggerAgentText:
			t, valid := c.agentText(tpath, id, rt)
			if !valid {
				ok = false
				continue
			}
			src.Triggers = append(src.Triggers, t)
		case domain.TriggerUIResponse:
			if strings.TrimSpace(rt.Tool) == "" || strings.TrimSpace(rt.ResponseKey) == "" {
				c.fail(tpath, "ui_response trigger requires tool and response_key")
				ok = false
				continue
			}
			key := domain.NormalizeName(rt.Tool)
			if tools[key] {
				c.fail(tpath+".tool", "duplicate ui_response trigger for tool %q", rt.Tool)
				ok = false
				continue
			}
			tools[key] = true
			hasUI = true
			src.Triggers = append(src.Triggers, domain.UIResponseTrigger{
				TriggerID:   id,
				ToolID:      strings.TrimSpace(rt.Tool),
				ResponseKey: strings.TrimSpace(rt.ResponseKey),
			})
		default:
			c.fail(tpath+".type", "unknown trigger type %q", rt.Type)
			ok = false
		}
	}

	if ok && len(src.Triggers) == 0 {
		c.warn(path+".triggers", "derived variable has no triggers and will keep its default")
	}
	// Without a ui_response payload the flipped value is boolean true.
	if ok && len(src.Triggers) > 0 && !hasUI && vt != domain.TypeBoolean {
		c.fail(path+".triggers", "agent_text triggers can only flip a boolean variable, got %s", vt)
		return src, false
	}
	return src, ok
}

func (c *collector) agentText(path, id string, rt rawTrigger) (domain.AgentTextTrigger, bool) {
	if strings.TrimSpace(rt.Agent) == "" {
		c.fail(path+".agent", "required")
		return domain.AgentTextTrigger{}, false
	}
	if strings.TrimSpace(rt.Value) == "" {
		c.fail(path+".value", "required")
		return domain.AgentTextTrigger{}, false
	}
	match := domain.MatchKind(strings.ToLower(strings.TrimSpace(rt.Match)))
	if match == "" {
		match = domain.MatchEquals
	}
	t := domain.AgentTextTrigger{
		TriggerID:  id,
		AgentName:  strings.TrimSpace(rt.Agent),
		Match:      match,
		MatchValue: rt.Value,
	}
	switch match {
	case domain.MatchEquals, domain.MatchContains:
	case domain.MatchRegex:
		re, err := domain.CompileMatchPattern(rt.Value)
		if err != nil {
			c.fail(path+".value", "invalid regex: %v", err)
			return t, false
		}
		t.Pattern = re
	default:
		c.fail(path+".match", "unknown match kind %q", rt.Match)
		return t, false
	}
	return t, true
}

func (c *collector) agent(m *Manifest, path, name string, raw any) (Agent, bool) {
	if raw == nil {
		return Agent{Name: name}, true
	}
	var ra rawAgent
	if !c.decode(path, raw, &ra) {
		return Agent{}, false
	}
	a := Agent{Name: name}
	ok := true
	seen := make(map[string]bool)
	for i, v := range ra.Variables {
		if _, defined := m.Lookup(v); !defined {
			c.fail(fmt.Sprintf("%s.variables[%d]", path, i), "unknown variable %q", v)
			ok = false
			continue
		}
		if !seen[v] {
			seen[v] = true
			a.Variables = append(a.Variables, v)
		}
	}
	for i, h := range ra.Handoffs {
		hpath := fmt.Sprintf("%s.handoffs[%d]", path, i)
		if strings.TrimSpace(h.To) == "" {
			c.fail(hpath+".to", "required")
			ok = false
			continue
		}
		handoff := Handoff{To: strings.TrimSpace(h.To)}
		if strings.TrimSpace(h.Condition) != "" {
			expr, err := m.CompileCondition(h.Condition)
			if err != nil {
				c.fail(hpath+".condition", "%v", err)
				ok = false
				continue
			}
			handoff.Condition = expr
		}
		a.Handoffs = append(a.Handoffs, handoff)
	}
	return a, ok
}

// decode runs mapstructure with unknown keys treated as structural errors.
func (c *collector) decode(path string, raw any, out any) bool {
	if raw == nil {
		c.fail(path, "entry is empty")
		return false
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: false,
		Result:           out,
	})
	if err != nil {
		c.fail(path, "%v", err)
		return false
	}
	if err := dec.Decode(raw); err != nil {
		c.fail(path, "%v", err)
		return false
	}
	return true
}
