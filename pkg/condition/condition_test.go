package condition_test

import (
	"testing"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/condition"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		expr    string
		clauses []condition.Clause
	}{
		{"interview_complete == true", []condition.Clause{{Variable: "interview_complete", Literal: true}}},
		{"retries == 3", []condition.Clause{{Variable: "retries", Literal: int64(3)}}},
		{"plan == 'accepted'", []condition.Clause{{Variable: "plan", Literal: "accepted"}}},
		{`plan == "with space"`, []condition.Clause{{Variable: "plan", Literal: "with space"}}},
		{"plan == accepted", []condition.Clause{{Variable: "plan", Literal: "accepted"}}},
		{"a == TRUE and b == 'x and y'", []condition.Clause{
			{Variable: "a", Literal: true},
			{Variable: "b", Literal: "x and y"},
		}},
		{"a==false AND b==1", []condition.Clause{
			{Variable: "a", Literal: false},
			{Variable: "b", Literal: int64(1)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := condition.Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.clauses, e.Clauses)
		})
	}
}

func TestParse_Illegal(t *testing.T) {
	exprs := []string{
		"",
		"a",
		"a ==",
		"a = true",
		"a != true",
		"!a",
		"NOT a == true",
		"a == true OR b == true",
		"a == true AND b == true AND c == true",
		"(a == true)",
		"a == true b == false",
		"a == 'unterminated",
		"1abc == true",
		"a == and",
	}
	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			_, err := condition.Parse(expr)
			assert.ErrorIs(t, err, domain.ErrIllegalCondition)
		})
	}
}

func TestEvaluate(t *testing.T) {
	values := map[string]any{
		"interview_complete": true,
		"context_aware":      false,
		"count":              float64(2),
		"plan":               "accepted",
		"concept":            domain.Unavailable,
	}
	lookup := func(name string) (any, bool) {
		v, ok := values[name]
		return v, ok
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"interview_complete == true", true},
		{"interview_complete == false", false},
		{"context_aware == false", true},
		{"count == 2", true},
		{"plan == accepted", true},
		{"plan == 'Accepted'", false},
		{"interview_complete == true AND plan == accepted", true},
		{"interview_complete == true AND context_aware == true", false},
		{"missing == true", false},
		{"concept == '__unavailable__'", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, condition.MustParse(tt.expr).Evaluate(lookup))
		})
	}
}

func TestVariables(t *testing.T) {
	e := condition.MustParse("a == 1 AND b == 'x'")
	assert.Equal(t, []string{"a", "b"}, e.Variables())
	assert.Equal(t, "a == 1 AND b == 'x'", e.String())
}
