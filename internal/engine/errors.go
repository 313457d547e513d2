package engine

import (
	"fmt"
	"strings"
)

// ParseError reports a formula that does not conform to the restricted
// arithmetic grammar. Position is a zero-based byte offset into the
// expression; Token is the offending text when one exists.
type ParseError struct {
	Message  string
	Token    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse error at offset %d near %q: %s", e.Position, e.Token, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// UnknownComponentError reports identifiers that do not resolve to any
// registered component. Codes lists every unknown identifier so a teacher can
// fix all of them in one pass.
type UnknownComponentError struct {
	Codes []string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown component code(s): %s", strings.Join(e.Codes, ", "))
}

// CycleError reports a dependency cycle among calculated components. Cycle
// holds the component codes along the cycle, closing on the first code.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// EvaluationError reports a failure while computing a formula value: a
// referenced component without a value, malformed arithmetic, or a runtime
// division by zero.
type EvaluationError struct {
	Reason string
	Code   string
}

func (e *EvaluationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("evaluation failed for %s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("evaluation failed: %s", e.Reason)
}

// MissingComponentError reports required components with no resolvable value
// at final-grade time. Every missing code is listed.
type MissingComponentError struct {
	Codes []string
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("required component(s) without a grade: %s", strings.Join(e.Codes, ", "))
}
