// Package calculator provides an arithmetic expression tool so the
// model does not have to do mental math inside its reasoning text.
package calculator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chronicler-ai/chronicler/tool"
)

// New returns the calculator tool. It evaluates plain arithmetic
// expressions: + - * /, parentheses, unary minus, and a trailing %
// meaning division by 100 (so "25% * 1847" works).
func New() tool.Tool {
	return tool.NewFunctionTool(
		"calculator",
		"Evaluate an arithmetic expression (+, -, *, /, parentheses, percentages)",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "Arithmetic expression to evaluate, e.g. \"0.25 * 1847\"",
				},
			},
			"required": []string{"expression"},
		},
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{"type": "string"},
				"result":     map[string]any{"type": "number"},
			},
			"required": []string{"expression", "result"},
		},
		func(_ context.Context, args map[string]any) (map[string]any, error) {
			expr, _ := args["expression"].(string)
			result, err := Eval(expr)
			if err != nil {
				return nil, tool.NewToolError("calculator", err.Error(), tool.CodeExecutionError)
			}
			return map[string]any{"expression": expr, "result": result}, nil
		},
	)
}

// Eval evaluates an arithmetic expression.
func Eval(expr string) (float64, error) {
	p := &parser{input: expr}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return result, nil
}

// parser is a small recursive-descent evaluator:
//
//	expr   = term (('+'|'-') term)*
//	term   = factor (('*'|'/') factor)*
//	factor = '-' factor | primary ['%']
//	primary = number | '(' expr ')'
type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '+' && c != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if c == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '*' && c != '/') {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if c == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

func (p *parser) parseFactor() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if c == '-' {
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	}
	v, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	if c, ok := p.peek(); ok && c == '%' {
		p.pos++
		v /= 100
	}
	return v, nil
}

func (p *parser) parsePrimary() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if c, ok := p.peek(); !ok || c != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected number at position %d", p.pos)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
