package engine

import "fmt"

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_' }

// lex splits an expression into tokens of the restricted grammar: word-bounded
// identifiers, decimal literals, + - * / and parentheses. Anything else is a
// ParseError, which is what keeps teacher-authored formulas data rather than
// code.
func lex(expression string) ([]token, error) {
	tokens := make([]token, 0, len(expression)/2+1)
	i := 0
	for i < len(expression) {
		b := expression[i]
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			i++
		case b == '+':
			tokens = append(tokens, token{tokPlus, "+", i})
			i++
		case b == '-':
			tokens = append(tokens, token{tokMinus, "-", i})
			i++
		case b == '*':
			tokens = append(tokens, token{tokStar, "*", i})
			i++
		case b == '/':
			tokens = append(tokens, token{tokSlash, "/", i})
			i++
		case b == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case b == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case isDigit(b) || b == '.':
			start := i
			dots := 0
			for i < len(expression) && (isDigit(expression[i]) || expression[i] == '.') {
				if expression[i] == '.' {
					dots++
				}
				i++
			}
			text := expression[start:i]
			if dots > 1 || text == "." {
				return nil, &ParseError{Message: "malformed number", Token: text, Position: start}
			}
			// a literal immediately followed by a letter (e.g. "2P1") is
			// neither a number nor an identifier
			if i < len(expression) && isLetter(expression[i]) {
				return nil, &ParseError{Message: "number runs into identifier", Token: text, Position: start}
			}
			tokens = append(tokens, token{tokNumber, text, start})
		case isLetter(b):
			start := i
			for i < len(expression) && (isLetter(expression[i]) || isDigit(expression[i])) {
				i++
			}
			tokens = append(tokens, token{tokIdent, expression[start:i], start})
		default:
			return nil, &ParseError{Message: fmt.Sprintf("invalid character %q", string(b)), Token: string(b), Position: i}
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(expression)})
	return tokens, nil
}
