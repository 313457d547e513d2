package engine

import (
	"strconv"
	"strings"
)

// node is an expression tree node.
type node interface{}

type numberNode struct {
	value float64
}

type identNode struct {
	code string
}

type binaryNode struct {
	op    byte // one of + - * /
	left  node
	right node
}

// parser is a recursive-descent parser over the token stream.
//
//	expr   := term  (('+'|'-') term)*
//	term   := factor (('*'|'/') factor)*
//	factor := NUMBER | IDENT | '(' expr ')'
//
// Function calls, comparisons, assignment, strings and unary operators are
// not part of the grammar and fail at the factor level.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func parseExpression(expression string) (node, error) {
	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &ParseError{Message: "unexpected trailing input", Token: t.text, Position: t.pos}
	}
	return root, nil
}

func (p *parser) expr() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], left: left, right: right}
	}
}

func (p *parser) term() (node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokStar && t.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], left: left, right: right}
	}
}

func (p *parser) factor() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &ParseError{Message: "malformed number", Token: t.text, Position: t.pos}
		}
		return &numberNode{value: v}, nil
	case tokIdent:
		return &identNode{code: t.text}, nil
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokRParen {
			return nil, &ParseError{Message: "missing closing parenthesis", Token: closing.text, Position: closing.pos}
		}
		return inner, nil
	case tokRParen:
		return nil, &ParseError{Message: "unbalanced parenthesis", Token: ")", Position: t.pos}
	case tokEOF:
		return nil, &ParseError{Message: "unexpected end of expression", Position: t.pos}
	default:
		return nil, &ParseError{Message: "unexpected token", Token: t.text, Position: t.pos}
	}
}

// ValidationResult carries the outcome of validating a formula expression.
// UsedCodes lists referenced component codes in first-reference order.
type ValidationResult struct {
	UsedCodes []string
}

// Validate checks an expression against the restricted grammar and a set of
// known component codes. It returns every unknown code at once and rejects
// division by a literal zero (runtime zero from computed values stays an
// evaluation-time concern).
func Validate(expression string, knownCodes map[string]struct{}) (*ValidationResult, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &ParseError{Message: "empty expression"}
	}
	root, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}
	if div := findLiteralZeroDivision(root); div != nil {
		return nil, &ParseError{Message: "division by literal zero"}
	}

	used := make([]string, 0, 4)
	seen := make(map[string]struct{})
	collectIdents(root, &used, seen)

	var unknown []string
	for _, code := range used {
		if _, ok := knownCodes[code]; !ok {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownComponentError{Codes: unknown}
	}
	return &ValidationResult{UsedCodes: used}, nil
}

// UsedCodes extracts referenced component codes without checking them against
// a catalog. Callers that only need the reference list (e.g. dependency
// bookkeeping) use this.
func UsedCodes(expression string) ([]string, error) {
	root, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}
	used := make([]string, 0, 4)
	collectIdents(root, &used, make(map[string]struct{}))
	return used, nil
}

func collectIdents(n node, out *[]string, seen map[string]struct{}) {
	switch t := n.(type) {
	case *identNode:
		if _, ok := seen[t.code]; !ok {
			seen[t.code] = struct{}{}
			*out = append(*out, t.code)
		}
	case *binaryNode:
		collectIdents(t.left, out, seen)
		collectIdents(t.right, out, seen)
	}
}

func findLiteralZeroDivision(n node) *binaryNode {
	switch t := n.(type) {
	case *binaryNode:
		if t.op == '/' {
			if num, ok := t.right.(*numberNode); ok && num.value == 0 {
				return t
			}
		}
		if d := findLiteralZeroDivision(t.left); d != nil {
			return d
		}
		return findLiteralZeroDivision(t.right)
	}
	return nil
}
