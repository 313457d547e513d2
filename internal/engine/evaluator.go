package engine

import "math"

// Round2 rounds to two decimal places, half up. All grade values that leave
// the engine pass through this so the UI, batch and trigger paths agree bit
// for bit.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// Evaluate computes a formula over a component-code → value map. The
// expression is parsed into the restricted grammar and walked directly; no
// general-purpose interpreter is involved, and identifiers are resolved by
// the lexer, so a short code can never match inside a longer one.
//
// A missing value, malformed arithmetic or runtime division by zero returns
// an *EvaluationError, never a silent zero. The result is rounded to two
// decimals half-up. Identical inputs always produce identical output: the
// walk order is fixed by the expression tree, not by map iteration.
func Evaluate(expression string, values map[string]float64) (float64, error) {
	root, err := parseExpression(expression)
	if err != nil {
		return 0, &EvaluationError{Reason: err.Error()}
	}
	v, err := evalNode(root, values)
	if err != nil {
		return 0, err
	}
	return Round2(v), nil
}

func evalNode(n node, values map[string]float64) (float64, error) {
	switch t := n.(type) {
	case *numberNode:
		return t.value, nil
	case *identNode:
		v, ok := values[t.code]
		if !ok {
			return 0, &EvaluationError{Reason: "no value for component", Code: t.code}
		}
		return v, nil
	case *binaryNode:
		left, err := evalNode(t.left, values)
		if err != nil {
			return 0, err
		}
		right, err := evalNode(t.right, values)
		if err != nil {
			return 0, err
		}
		switch t.op {
		case '+':
			return left + right, nil
		case '-':
			return left - right, nil
		case '*':
			return left * right, nil
		case '/':
			if right == 0 {
				return 0, &EvaluationError{Reason: "division by zero"}
			}
			return left / right, nil
		}
	}
	return 0, &EvaluationError{Reason: "malformed expression tree"}
}
