package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateWeightedFormula(t *testing.T) {
	values := map[string]float64{"P1": 14, "P2": 16, "TRABALHO": 18}
	v, err := Evaluate("0.30*P1 + 0.30*P2 + 0.40*TRABALHO", values)
	require.NoError(t, err)
	assert.Equal(t, 16.20, v)
}

func TestEvaluatePrecedenceAndAssociativity(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"20 - 5 - 3", 12},
		{"20 / 2 / 5", 2},
		{"P1 - P2 + 1", 9},
	}
	values := map[string]float64{"P1": 12, "P2": 4}
	for _, tc := range cases {
		v, err := Evaluate(tc.expr, values)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, v, tc.expr)
	}
}

func TestEvaluateMissingValue(t *testing.T) {
	_, err := Evaluate("P1 + P2", map[string]float64{"P1": 10})
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "P2", evalErr.Code)
}

func TestEvaluateRuntimeDivisionByZero(t *testing.T) {
	_, err := Evaluate("P1 / (P2 - P2)", map[string]float64{"P1": 10, "P2": 5})
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Contains(t, evalErr.Reason, "division by zero")
}

func TestEvaluateMalformedExpression(t *testing.T) {
	_, err := Evaluate("P1 + * P2", map[string]float64{"P1": 10, "P2": 5})
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
}

func TestEvaluateCodePrefixesDoNotCollide(t *testing.T) {
	// P1 and P10 are distinct identifiers; lexing makes substitution
	// collisions impossible
	v, err := Evaluate("P1 + P10", map[string]float64{"P1": 1, "P10": 10})
	require.NoError(t, err)
	assert.Equal(t, 11.0, v)
}

func TestEvaluateDeterminism(t *testing.T) {
	values := map[string]float64{"P1": 13.37, "P2": 17.77, "TRABALHO": 9.99}
	first, err := Evaluate("(0.25*P1 + 0.25*P2 + 0.50*TRABALHO) / 1", values)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		v, err := Evaluate("(0.25*P1 + 0.25*P2 + 0.50*TRABALHO) / 1", values)
		require.NoError(t, err)
		assert.Equal(t, first, v)
	}
}

func TestRound2HalfUp(t *testing.T) {
	assert.Equal(t, 16.13, Round2(16.125))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 14.0, Round2(14.0))
	assert.Equal(t, 13.99, Round2(13.994))
}
