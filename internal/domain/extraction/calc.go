package extraction

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// evalFormula evaluates a small arithmetic formula over named fields, e.g.
// "weight_kg / ((height_cm / 100) * (height_cm / 100))". Supported syntax:
// identifiers, numeric literals, + - * / and parentheses. Formulas are data
// stored on a mapping, never code.
func evalFormula(formula string, fields map[string]interface{}) (float64, error) {
	tokens, err := tokenizeFormula(formula)
	if err != nil {
		return 0, err
	}
	p := &formulaParser{tokens: tokens, fields: fields}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("unexpected token %q in formula", p.tokens[p.pos])
	}
	return v, nil
}

func tokenizeFormula(formula string) ([]string, error) {
	var tokens []string
	runes := []rune(formula)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("+-*/()", r):
			tokens = append(tokens, string(r))
			i++
		case unicode.IsDigit(r) || r == '.':
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in formula", r)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty formula")
	}
	return tokens, nil
}

type formulaParser struct {
	tokens []string
	pos    int
	fields map[string]interface{}
}

func (p *formulaParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *formulaParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case "+":
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case "-":
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *formulaParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case "*":
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case "/":
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero in formula")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *formulaParser) parseFactor() (float64, error) {
	tok := p.peek()
	switch {
	case tok == "":
		return 0, fmt.Errorf("unexpected end of formula")
	case tok == "(":
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ")" {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case tok == "-":
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case unicode.IsDigit(rune(tok[0])) || tok[0] == '.':
		p.pos++
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("bad numeric literal %q", tok)
		}
		return v, nil
	default:
		p.pos++
		raw, ok := p.fields[tok]
		if !ok {
			return 0, fmt.Errorf("formula references unresolved field %q", tok)
		}
		v, err := coerceNumber(raw)
		if err != nil {
			return 0, fmt.Errorf("field %q is not numeric: %v", tok, err)
		}
		return v, nil
	}
}
