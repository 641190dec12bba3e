package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Arithmetic.

func init() {
	addBuiltinFns(map[string]BuiltinFn{
		"math": math,
	})
}

// math evaluates an integer expression made of its arguments joined with
// spaces. It supports + - * x / % and parentheses; "x" is accepted for
// multiplication since a bare * is a glob.
func math(fm *Frame, args []string) uint8 {
	if len(args) == 0 {
		return fm.usage("math", "expression needed")
	}
	result, err := evalMath(strings.Join(args, " "))
	if err != nil {
		return fm.failf("math", "%v", err)
	}
	fmt.Fprintln(fm.Stdout(), result)
	return 0
}

var errDivByZero = errors.New("division by zero")

type mathParser struct {
	tokens []string
	pos    int
}

func evalMath(expr string) (int64, error) {
	tokens, err := tokenizeMath(expr)
	if err != nil {
		return 0, err
	}
	p := &mathParser{tokens: tokens}
	v, err := p.sum()
	if err != nil {
		return 0, err
	}
	if p.pos < len(p.tokens) {
		return 0, fmt.Errorf("unexpected %q", p.tokens[p.pos])
	}
	return v, nil
}

func tokenizeMath(expr string) ([]string, error) {
	var tokens []string
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case strings.IndexByte("+-*x/%()", c) >= 0:
			tokens = append(tokens, string(c))
			i++
		case '0' <= c && c <= '9':
			j := i
			for j < len(expr) && '0' <= expr[j] && expr[j] <= '9' {
				j++
			}
			tokens = append(tokens, expr[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return tokens, nil
}

func (p *mathParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *mathParser) sum() (int64, error) {
	v, err := p.product()
	if err != nil {
		return 0, err
	}
	for op := p.peek(); op == "+" || op == "-"; op = p.peek() {
		p.pos++
		w, err := p.product()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			v += w
		} else {
			v -= w
		}
	}
	return v, nil
}

func (p *mathParser) product() (int64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for op := p.peek(); op == "*" || op == "x" || op == "/" || op == "%"; op = p.peek() {
		p.pos++
		w, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*", "x":
			v *= w
		case "/", "%":
			if w == 0 {
				return 0, errDivByZero
			}
			if op == "/" {
				v /= w
			} else {
				v %= w
			}
		}
	}
	return v, nil
}

func (p *mathParser) unary() (int64, error) {
	switch p.peek() {
	case "-":
		p.pos++
		v, err := p.unary()
		return -v, err
	case "+":
		p.pos++
		return p.unary()
	case "(":
		p.pos++
		v, err := p.sum()
		if err != nil {
			return 0, err
		}
		if p.peek() != ")" {
			return 0, errors.New("missing )")
		}
		p.pos++
		return v, nil
	case "":
		return 0, errors.New("unexpected end of expression")
	}
	tok := p.tokens[p.pos]
	p.pos++
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", tok)
	}
	return v, nil
}
