// Package formula evaluates derived-stat formulas over attribute values.
//
// The grammar is deliberately closed because formula strings can originate
// from imported, untrusted document text: integer literals, the four
// arithmetic operators, parentheses, a floor function, and identifiers
// resolved case-insensitively against attribute ids or abbreviations.
// There is no general-purpose code evaluation.
package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Vars maps attribute ids or abbreviations to their current values. Lookup
// is case-insensitive.
type Vars map[string]int

// Eval parses and evaluates one formula. The result is floored to an
// integer.
func Eval(expr string, vars Vars) (int, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	folded := make(map[string]int, len(vars))
	for name, value := range vars {
		folded[strings.ToLower(name)] = value
	}
	p := &parser{tokens: tokens, vars: folded}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return 0, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}
	return int(math.Floor(value)), nil
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenIdent
	tokenOperator
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r >= '0' && r <= '9':
			start := i
			for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(runes[start:i]), pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i]), pos: start})
		case r == '+' || r == '-' || r == '*' || r == '/':
			tokens = append(tokens, token{kind: tokenOperator, text: string(r), pos: i})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		default:
			return nil, fmt.Errorf("invalid character %q at position %d", r, i)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(runes)})
	return tokens, nil
}

type parser struct {
	tokens []token
	idx    int
	vars   map[string]int
}

func (p *parser) peek() token {
	return p.tokens[p.idx]
}

func (p *parser) next() token {
	tok := p.tokens[p.idx]
	if tok.kind != tokenEOF {
		p.idx++
	}
	return tok
}

// parseExpr handles addition and subtraction.
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

// parseTerm handles multiplication and division.
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if tok.text == "*" {
			left *= right
			continue
		}
		if right == 0 {
			return 0, fmt.Errorf("division by zero at position %d", tok.pos)
		}
		left /= right
	}
}

func (p *parser) parseFactor() (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		value, err := strconv.Atoi(tok.text)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q at position %d", tok.text, tok.pos)
		}
		return float64(value), nil
	case tokenIdent:
		name := strings.ToLower(tok.text)
		if name == "floor" && p.peek().kind == tokenLParen {
			p.next()
			inner, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			if closing := p.next(); closing.kind != tokenRParen {
				return 0, fmt.Errorf("expected ) at position %d", closing.pos)
			}
			return math.Floor(inner), nil
		}
		value, ok := p.vars[name]
		if !ok {
			return 0, fmt.Errorf("unknown identifier %q at position %d", tok.text, tok.pos)
		}
		return float64(value), nil
	case tokenLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return 0, fmt.Errorf("expected ) at position %d", closing.pos)
		}
		return inner, nil
	case tokenEOF:
		return 0, fmt.Errorf("unexpected end of formula")
	default:
		return 0, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}
}
