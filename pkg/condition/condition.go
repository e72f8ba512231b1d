// Package condition implements the routing condition language:
//
//	variable == literal
//	variableA == literalA AND variableB == literalB
//
// At most one conjunction is allowed and there is no negation, disjunction or grouping.
// Literals are true/false, integers, quoted strings or bare words (read as strings).
package condition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// MaxClauses is the maximum number of equality clauses in one expression.
const MaxClauses = 2

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Clause is a single "variable == literal" comparison.
type Clause struct {
	Variable string
	Literal  any
}

// Expr is a parsed condition.
type Expr struct {
	Source  string
	Clauses []Clause
}

// Lookup returns the current value of a variable and whether it exists.
type Lookup func(name string) (any, bool)

// Parse compiles an expression. Errors wrap domain.ErrIllegalCondition.
func Parse(expr string) (*Expr, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, illegal(expr, err.Error())
	}
	if len(toks) == 0 {
		return nil, illegal(expr, "empty expression")
	}

	out := &Expr{Source: strings.TrimSpace(expr)}
	for i := 0; i < len(toks); {
		if len(out.Clauses) > 0 {
			if toks[i].kind == tokWord && strings.EqualFold(toks[i].text, "or") {
				return nil, illegal(expr, "OR is not supported")
			}
			if toks[i].kind != tokWord || !strings.EqualFold(toks[i].text, "and") {
				return nil, illegal(expr, fmt.Sprintf("expected AND, got %q", toks[i].text))
			}
			i++
		}
		if len(out.Clauses) == MaxClauses {
			return nil, illegal(expr, "at most one AND is allowed")
		}
		if i+2 >= len(toks) {
			return nil, illegal(expr, "incomplete comparison")
		}
		name, eq, lit := toks[i], toks[i+1], toks[i+2]
		if name.kind != tokWord || !identPattern.MatchString(name.text) || isKeyword(name.text) {
			return nil, illegal(expr, fmt.Sprintf("invalid variable name %q", name.text))
		}
		if eq.kind != tokEq {
			return nil, illegal(expr, fmt.Sprintf("expected == after %q", name.text))
		}
		if lit.kind == tokEq {
			return nil, illegal(expr, "missing literal")
		}
		if lit.kind == tokWord && isKeyword(lit.text) {
			return nil, illegal(expr, fmt.Sprintf("unexpected keyword %q", lit.text))
		}
		out.Clauses = append(out.Clauses, Clause{Variable: name.text, Literal: literal(lit)})
		i += 3
	}
	return out, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(expr string) *Expr {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Variables lists the operands in order of appearance.
func (e *Expr) Variables() []string {
	names := make([]string, len(e.Clauses))
	for i, c := range e.Clauses {
		names[i] = c.Variable
	}
	return names
}

// Evaluate reports whether every clause holds. Missing variables are false.
func (e *Expr) Evaluate(lookup Lookup) bool {
	for _, c := range e.Clauses {
		v, ok := lookup(c.Variable)
		if !ok || !Equal(v, c.Literal) {
			return false
		}
	}
	return true
}

func (e *Expr) String() string { return e.Source }

// Equal compares a context value with a condition literal.
// Numbers compare by value regardless of representation; the Unavailable sentinel equals nothing.
func Equal(actual, lit any) bool {
	if domain.IsUnavailable(actual) {
		return false
	}
	switch l := lit.(type) {
	case bool:
		b, ok := actual.(bool)
		return ok && b == l
	case int64:
		n, ok := toInt64(actual)
		return ok && n == l
	case string:
		s, ok := actual.(string)
		return ok && s == l
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func literal(t token) any {
	if t.kind == tokQuoted {
		return t.text
	}
	switch strings.ToLower(t.text) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(t.text, 10, 64); err == nil {
		return n
	}
	return t.text
}

func isKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "and", "or", "not":
		return true
	}
	return false
}

func illegal(expr, reason string) error {
	return fmt.Errorf("%w: %q: %s", domain.ErrIllegalCondition, strings.TrimSpace(expr), reason)
}
