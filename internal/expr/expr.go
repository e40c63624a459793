// Package expr evaluates user-authored task-ID expressions. Expressions are
// parsed with go/parser and validated against an explicit node allow-list
// before any evaluation, so they can never call functions, reach attributes,
// or touch anything beyond the four context bindings.
package expr

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"encoding/json"
)

// Context holds the only bindings visible to an expression.
type Context struct {
	RowIndex int            // 0-based data row ordinal
	ExcelRow int            // 1-based row number including the header row
	Seq      int            // pre-incremented batch-scoped counter
	Row      map[string]any // raw record, subscriptable by constant string keys
}

var allowedNames = map[string]bool{
	"row_index": true,
	"excel_row": true,
	"seq":       true,
	"row":       true,
}

// Evaluate parses, validates, and evaluates an expression against ctx.
// Any disallowed construct fails during validation, before evaluation.
func Evaluate(text string, ctx *Context) (any, error) {
	node, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return eval(node, ctx)
}

// Parse parses the expression and validates every node against the allow-list.
func Parse(text string) (ast.Expr, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty expression")
	}
	node, err := parser.ParseExpr(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	if err := validate(node); err != nil {
		return nil, err
	}
	return node, nil
}

// validate walks the tree rejecting any node kind outside the allow-list:
// literals, arithmetic, parens, the four context names, and row["key"].
func validate(root ast.Expr) error {
	var firstErr error
	ast.Inspect(root, func(n ast.Node) bool {
		if n == nil || firstErr != nil {
			return firstErr == nil
		}
		switch node := n.(type) {
		case *ast.BasicLit:
			switch node.Kind {
			case token.INT, token.FLOAT, token.STRING, token.CHAR:
			default:
				firstErr = fmt.Errorf("expression uses unsupported literal %s", node.Kind)
			}
		case *ast.BinaryExpr:
			switch node.Op {
			case token.ADD, token.SUB, token.MUL, token.QUO, token.REM:
			default:
				firstErr = fmt.Errorf("expression uses unsupported operator '%s'", node.Op)
			}
		case *ast.UnaryExpr:
			if node.Op != token.ADD && node.Op != token.SUB {
				firstErr = fmt.Errorf("expression uses unsupported operator '%s'", node.Op)
			}
		case *ast.ParenExpr:
		case *ast.Ident:
			if !allowedNames[node.Name] {
				firstErr = fmt.Errorf("name '%s' is not allowed in expressions", node.Name)
			}
		case *ast.IndexExpr:
			ident, ok := node.X.(*ast.Ident)
			if !ok || ident.Name != "row" {
				firstErr = fmt.Errorf("only row[...] subscripts are allowed")
				return false
			}
			key, ok := node.Index.(*ast.BasicLit)
			if !ok || key.Kind != token.STRING {
				firstErr = fmt.Errorf("row[...] subscripts must use constant string keys")
				return false
			}
		case *ast.SelectorExpr:
			firstErr = fmt.Errorf("attribute access is not allowed in expressions")
		case *ast.CallExpr:
			firstErr = fmt.Errorf("function calls are not allowed in expressions")
		default:
			firstErr = fmt.Errorf("expression uses unsupported element %T", node)
		}
		return firstErr == nil
	})
	return firstErr
}

func eval(node ast.Expr, ctx *Context) (any, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		return evalLiteral(n)
	case *ast.ParenExpr:
		return eval(n.X, ctx)
	case *ast.Ident:
		switch n.Name {
		case "row_index":
			return int64(ctx.RowIndex), nil
		case "excel_row":
			return int64(ctx.ExcelRow), nil
		case "seq":
			return int64(ctx.Seq), nil
		case "row":
			return nil, fmt.Errorf("row must be subscripted with a column name")
		}
		return nil, fmt.Errorf("name '%s' is not allowed in expressions", n.Name)
	case *ast.IndexExpr:
		key, err := evalLiteral(n.Index.(*ast.BasicLit))
		if err != nil {
			return nil, err
		}
		column := key.(string)
		value, ok := ctx.Row[column]
		if !ok {
			return nil, fmt.Errorf("row has no column '%s'", column)
		}
		return value, nil
	case *ast.UnaryExpr:
		return evalUnary(n, ctx)
	case *ast.BinaryExpr:
		return evalBinary(n, ctx)
	}
	return nil, fmt.Errorf("expression uses unsupported element %T", node)
}

func evalLiteral(lit *ast.BasicLit) (any, error) {
	switch lit.Kind {
	case token.INT:
		v, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %s", lit.Value)
		}
		return v, nil
	case token.FLOAT:
		v, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %s", lit.Value)
		}
		return v, nil
	case token.STRING, token.CHAR:
		v, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid string literal %s", lit.Value)
		}
		return v, nil
	}
	return nil, fmt.Errorf("expression uses unsupported literal %s", lit.Kind)
}

func evalUnary(node *ast.UnaryExpr, ctx *Context) (any, error) {
	operand, err := eval(node.X, ctx)
	if err != nil {
		return nil, err
	}
	i, f, isFloat, err := toNumber(operand)
	if err != nil {
		return nil, err
	}
	if node.Op == token.SUB {
		if isFloat {
			return -f, nil
		}
		return -i, nil
	}
	if isFloat {
		return f, nil
	}
	return i, nil
}

// evalBinary applies arithmetic. Addition with a string operand concatenates,
// standing in for the source language's string interpolation. Division always
// yields a float, matching the original evaluator.
func evalBinary(node *ast.BinaryExpr, ctx *Context) (any, error) {
	left, err := eval(node.X, ctx)
	if err != nil {
		return nil, err
	}
	right, err := eval(node.Y, ctx)
	if err != nil {
		return nil, err
	}

	if node.Op == token.ADD {
		if _, ok := left.(string); ok {
			return left.(string) + stringify(right), nil
		}
		if _, ok := right.(string); ok {
			return stringify(left) + right.(string), nil
		}
	}

	li, lf, lFloat, err := toNumber(left)
	if err != nil {
		return nil, err
	}
	ri, rf, rFloat, err := toNumber(right)
	if err != nil {
		return nil, err
	}

	if lFloat || rFloat || node.Op == token.QUO {
		a, b := lf, rf
		if !lFloat {
			a = float64(li)
		}
		if !rFloat {
			b = float64(ri)
		}
		switch node.Op {
		case token.ADD:
			return a + b, nil
		case token.SUB:
			return a - b, nil
		case token.MUL:
			return a * b, nil
		case token.QUO:
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return a / b, nil
		case token.REM:
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return math.Mod(a, b), nil
		}
	}

	switch node.Op {
	case token.ADD:
		return li + ri, nil
	case token.SUB:
		return li - ri, nil
	case token.MUL:
		return li * ri, nil
	case token.REM:
		if ri == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return li % ri, nil
	}
	return nil, fmt.Errorf("expression uses unsupported operator '%s'", node.Op)
}

// toNumber coerces an evaluated value to int64 or float64.
func toNumber(v any) (int64, float64, bool, error) {
	switch val := v.(type) {
	case int64:
		return val, 0, false, nil
	case int:
		return int64(val), 0, false, nil
	case float64:
		return 0, val, true, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, 0, false, nil
		}
		if f, err := val.Float64(); err == nil {
			return 0, f, true, nil
		}
		return 0, 0, false, fmt.Errorf("value %q is not numeric", val.String())
	case string:
		return 0, 0, false, fmt.Errorf("cannot use string %q as a number", val)
	case nil:
		return 0, 0, false, fmt.Errorf("cannot use empty value as a number")
	default:
		return 0, 0, false, fmt.Errorf("cannot use %T as a number", v)
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
