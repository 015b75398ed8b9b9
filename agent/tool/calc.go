package tool

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// CalculatorTool evaluates arithmetic expressions.
//
// Input parameters:
//   - expression: infix arithmetic expression (required, string)
//
// Supported: + - * / ^, parentheses, unary minus, decimal numbers.
// Division by zero and malformed expressions return an error.
type CalculatorTool struct{}

// NewCalculatorTool creates a calculator tool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// Name implements Tool.
func (c *CalculatorTool) Name() string {
	return "calculator"
}

// Call implements Tool.
func (c *CalculatorTool) Call(ctx context.Context, input map[string]interface{}) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	expr, ok := input["expression"].(string)
	if !ok || strings.TrimSpace(expr) == "" {
		return "", fmt.Errorf("expression parameter required (string)")
	}

	result, err := evaluate(expr)
	if err != nil {
		return "", fmt.Errorf("cannot evaluate %q: %w", expr, err)
	}

	return strconv.FormatFloat(result, 'g', -1, 64), nil
}

type calcToken struct {
	kind  byte // 'n' number, 'o' operator, '(' or ')'
	value float64
	op    byte
}

// evaluate parses and computes an infix expression with the
// shunting-yard algorithm.
func evaluate(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty expression")
	}

	var output []calcToken
	var ops []calcToken

	for _, tok := range tokens {
		switch tok.kind {
		case 'n':
			output = append(output, tok)
		case 'o':
			for len(ops) > 0 && ops[len(ops)-1].kind == 'o' &&
				shouldPop(ops[len(ops)-1].op, tok.op) {
				output = append(output, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, tok)
		case '(':
			ops = append(ops, tok)
		case ')':
			for len(ops) > 0 && ops[len(ops)-1].kind != '(' {
				output = append(output, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			if len(ops) == 0 {
				return 0, fmt.Errorf("unbalanced parentheses")
			}
			ops = ops[:len(ops)-1]
		}
	}

	for len(ops) > 0 {
		top := ops[len(ops)-1]
		if top.kind == '(' {
			return 0, fmt.Errorf("unbalanced parentheses")
		}
		output = append(output, top)
		ops = ops[:len(ops)-1]
	}

	return evalRPN(output)
}

func precedence(op byte) int {
	switch op {
	case '+', '-':
		return 1
	case '*', '/':
		return 2
	case '^':
		return 3
	case 'm': // unary minus
		return 4
	}
	return 0
}

func shouldPop(stackOp, incoming byte) bool {
	// '^' and unary minus are right-associative.
	if incoming == '^' || incoming == 'm' {
		return precedence(stackOp) > precedence(incoming)
	}
	return precedence(stackOp) >= precedence(incoming)
}

func tokenize(expr string) ([]calcToken, error) {
	var tokens []calcToken
	runes := []rune(expr)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || r == '.':
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			val, err := strconv.ParseFloat(string(runes[i:j]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", string(runes[i:j]))
			}
			tokens = append(tokens, calcToken{kind: 'n', value: val})
			i = j
		case r == '(' || r == ')':
			tokens = append(tokens, calcToken{kind: byte(r)})
			i++
		case strings.ContainsRune("+-*/^", r):
			op := byte(r)
			// A minus at expression start, after an operator, or after
			// an opening parenthesis is unary.
			if op == '-' && (len(tokens) == 0 ||
				tokens[len(tokens)-1].kind == 'o' ||
				tokens[len(tokens)-1].kind == '(') {
				op = 'm'
			}
			tokens = append(tokens, calcToken{kind: 'o', op: op})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}

	return tokens, nil
}

func evalRPN(tokens []calcToken) (float64, error) {
	var stack []float64

	pop := func() (float64, bool) {
		if len(stack) == 0 {
			return 0, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	for _, tok := range tokens {
		if tok.kind == 'n' {
			stack = append(stack, tok.value)
			continue
		}

		if tok.op == 'm' {
			v, ok := pop()
			if !ok {
				return 0, fmt.Errorf("malformed expression")
			}
			stack = append(stack, -v)
			continue
		}

		right, ok1 := pop()
		left, ok2 := pop()
		if !ok1 || !ok2 {
			return 0, fmt.Errorf("malformed expression")
		}

		switch tok.op {
		case '+':
			stack = append(stack, left+right)
		case '-':
			stack = append(stack, left-right)
		case '*':
			stack = append(stack, left*right)
		case '/':
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			stack = append(stack, left/right)
		case '^':
			stack = append(stack, math.Pow(left, right))
		}
	}

	if len(stack) != 1 {
		return 0, fmt.Errorf("malformed expression")
	}
	return stack[0], nil
}
