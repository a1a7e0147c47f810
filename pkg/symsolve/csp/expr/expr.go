package expr

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"
)

// Expr is a node of a constraint expression. The set of node kinds is closed:
// Ident, Lit, Unary, Binary, Chain and Call.
type Expr interface {
	Eval(env Env) (Value, error)
	String() string
}

// Env binds variable names to values.
type Env map[string]Value

type Ident struct{ Name string }

type Lit struct{ Value Value }

type Unary struct {
	Op string // "-", "+", "not"
	X  Expr
}

type Binary struct {
	Op   string // + - * / // % and or
	X, Y Expr
}

// Chain is a comparison chain: a < b <= c holds when every link holds.
type Chain struct {
	Ops      []string
	Operands []Expr
}

type Call struct {
	Fn   string // abs, min, max
	Args []Expr
}

func (e Ident) String() string { return e.Name }
func (e Lit) String() string   { return e.Value.String() }
func (e Unary) String() string {
	if e.Op == "not" {
		return "not " + e.X.String()
	}
	return e.Op + e.X.String()
}
func (e Binary) String() string { return "(" + e.X.String() + " " + e.Op + " " + e.Y.String() + ")" }
func (e Chain) String() string {
	var b strings.Builder
	b.WriteString(e.Operands[0].String())
	for i, op := range e.Ops {
		fmt.Fprintf(&b, " %s %s", op, e.Operands[i+1])
	}
	return b.String()
}
func (e Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Fn + "(" + strings.Join(args, ", ") + ")"
}

func (e Ident) Eval(env Env) (Value, error) {
	v, ok := env[e.Name]
	if !ok {
		return Value{}, fmt.Errorf("unbound variable %s", e.Name)
	}
	return v, nil
}

func (e Lit) Eval(Env) (Value, error) { return e.Value, nil }

func (e Unary) Eval(env Env) (Value, error) {
	x, err := e.X.Eval(env)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case "not":
		return Bool(!x.Truthy()), nil
	case "+":
		if !x.numeric() {
			return Value{}, fmt.Errorf("unary + on %s", x.Kind)
		}
		return x, nil
	case "-":
		switch x.Kind {
		case KindInt:
			return Int(-x.I), nil
		case KindFloat:
			return Float(-x.F), nil
		case KindBool:
			i, _ := x.integral()
			return Int(-i), nil
		}
		return Value{}, fmt.Errorf("unary - on %s", x.Kind)
	}
	return Value{}, fmt.Errorf("unknown unary operator %s", e.Op)
}

func (e Binary) Eval(env Env) (Value, error) {
	x, err := e.X.Eval(env)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case "and":
		if !x.Truthy() {
			return Bool(false), nil
		}
		y, err := e.Y.Eval(env)
		if err != nil {
			return Value{}, err
		}
		return Bool(y.Truthy()), nil
	case "or":
		if x.Truthy() {
			return Bool(true), nil
		}
		y, err := e.Y.Eval(env)
		if err != nil {
			return Value{}, err
		}
		return Bool(y.Truthy()), nil
	}
	y, err := e.Y.Eval(env)
	if err != nil {
		return Value{}, err
	}
	return arith(e.Op, x, y)
}

func arith(op string, x, y Value) (Value, error) {
	if op == "+" && x.Kind == KindString && y.Kind == KindString {
		return Str(x.S + y.S), nil
	}
	if !x.numeric() || !y.numeric() {
		return Value{}, fmt.Errorf("%s %s %s: operands must be numbers", x.Kind, op, y.Kind)
	}
	xi, xInt := x.integral()
	yi, yInt := y.integral()
	ints := xInt && yInt
	switch op {
	case "+":
		if ints {
			return Int(xi + yi), nil
		}
		return Float(x.float() + y.float()), nil
	case "-":
		if ints {
			return Int(xi - yi), nil
		}
		return Float(x.float() - y.float()), nil
	case "*":
		if ints {
			return Int(xi * yi), nil
		}
		return Float(x.float() * y.float()), nil
	case "/":
		if y.float() == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return Float(x.float() / y.float()), nil
	case "//":
		if y.float() == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		if ints {
			q := xi / yi
			if (xi%yi != 0) && ((xi < 0) != (yi < 0)) {
				q--
			}
			return Int(q), nil
		}
		return Float(math.Floor(x.float() / y.float())), nil
	case "%":
		if y.float() == 0 {
			return Value{}, fmt.Errorf("modulo by zero")
		}
		if ints {
			m := xi % yi
			if m != 0 && ((m < 0) != (yi < 0)) {
				m += yi
			}
			return Int(m), nil
		}
		m := math.Mod(x.float(), y.float())
		if m != 0 && ((m < 0) != (y.float() < 0)) {
			m += y.float()
		}
		return Float(m), nil
	}
	return Value{}, fmt.Errorf("unknown operator %s", op)
}

func (e Chain) Eval(env Env) (Value, error) {
	left, err := e.Operands[0].Eval(env)
	if err != nil {
		return Value{}, err
	}
	for i, op := range e.Ops {
		right, err := e.Operands[i+1].Eval(env)
		if err != nil {
			return Value{}, err
		}
		ok, err := compare(op, left, right)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Bool(false), nil
		}
		left = right
	}
	return Bool(true), nil
}

func compare(op string, x, y Value) (bool, error) {
	switch op {
	case "==":
		return Equal(x, y), nil
	case "!=":
		return !Equal(x, y), nil
	}
	c, err := Compare(x, y)
	if err != nil {
		return false, fmt.Errorf("%s %s %s: %w", x, op, y, err)
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison %s", op)
}

func (e Call) Eval(env Env) (Value, error) {
	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := a.Eval(env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	switch e.Fn {
	case "abs":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("abs takes one argument")
		}
		x := args[0]
		if i, ok := x.integral(); ok {
			if i < 0 {
				i = -i
			}
			return Int(i), nil
		}
		if x.Kind == KindFloat {
			return Float(math.Abs(x.F)), nil
		}
		return Value{}, fmt.Errorf("abs of %s", x.Kind)
	case "min", "max":
		if len(args) == 0 {
			return Value{}, fmt.Errorf("%s needs arguments", e.Fn)
		}
		best := args[0]
		for _, a := range args[1:] {
			c, err := Compare(a, best)
			if err != nil {
				return Value{}, err
			}
			if (e.Fn == "min" && c < 0) || (e.Fn == "max" && c > 0) {
				best = a
			}
		}
		return best, nil
	}
	return Value{}, fmt.Errorf("unknown function %s", e.Fn)
}

var functions = map[string]bool{"abs": true, "min": true, "max": true}

var comparisons = map[token.Token]string{
	token.EQL: "==", token.NEQ: "!=",
	token.LSS: "<", token.LEQ: "<=",
	token.GTR: ">", token.GEQ: ">=",
}

var operators = map[token.Token]string{
	token.ADD: "+", token.SUB: "-", token.MUL: "*", token.QUO: "/", token.REM: "%",
	token.AND_NOT: "//",
	token.LAND:    "and", token.LOR: "or",
}

// Parse builds an expression from constraint text written with Python-style
// operators (and, or, not, True, False, //). It returns the free variables
// in first-occurrence order.
func Parse(text string) (Expr, []string, error) {
	src, err := normalize(text)
	if err != nil {
		return nil, nil, err
	}
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %q: %w", text, err)
	}
	c := &converter{seen: make(map[string]bool)}
	e, err := c.convert(node)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %q: %w", text, err)
	}
	return e, c.vars, nil
}

type converter struct {
	vars []string
	seen map[string]bool
}

func (c *converter) convert(node ast.Expr) (Expr, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return c.convert(n.X)
	case *ast.Ident:
		switch n.Name {
		case "true":
			return Lit{Bool(true)}, nil
		case "false":
			return Lit{Bool(false)}, nil
		}
		if !c.seen[n.Name] {
			c.seen[n.Name] = true
			c.vars = append(c.vars, n.Name)
		}
		return Ident{n.Name}, nil
	case *ast.BasicLit:
		return convertLit(n)
	case *ast.UnaryExpr:
		x, err := c.convert(n.X)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.NOT:
			return Unary{Op: "not", X: x}, nil
		case token.SUB:
			return Unary{Op: "-", X: x}, nil
		case token.ADD:
			return Unary{Op: "+", X: x}, nil
		}
		return nil, fmt.Errorf("unsupported unary operator %s", n.Op)
	case *ast.BinaryExpr:
		if n.Op != token.LAND && n.Op != token.LOR {
			// not binds looser than comparisons and arithmetic.
			if parent, un := leftmostNot(n); un != nil {
				parent.X = un.X
				inner, err := c.convert(n)
				if err != nil {
					return nil, err
				}
				return Unary{Op: "not", X: inner}, nil
			}
		}
		if op, ok := comparisons[n.Op]; ok {
			return c.convertChain(n, op)
		}
		op, ok := operators[n.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %s", n.Op)
		}
		x, err := c.convert(n.X)
		if err != nil {
			return nil, err
		}
		y, err := c.convert(n.Y)
		if err != nil {
			return nil, err
		}
		return Binary{Op: op, X: x, Y: y}, nil
	case *ast.CallExpr:
		fn, ok := n.Fun.(*ast.Ident)
		if !ok || !functions[fn.Name] {
			return nil, fmt.Errorf("unsupported call %s", exprText(n.Fun))
		}
		if n.Ellipsis.IsValid() {
			return nil, fmt.Errorf("variadic call not supported")
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			e, err := c.convert(a)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		return Call{Fn: fn.Name, Args: args}, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", node)
}

// leftmostNot finds a negation at the leftmost operand of an arithmetic or
// comparison expression, returning it with the node that holds it.
func leftmostNot(n *ast.BinaryExpr) (*ast.BinaryExpr, *ast.UnaryExpr) {
	cur := n
	for {
		switch x := cur.X.(type) {
		case *ast.UnaryExpr:
			if x.Op == token.NOT {
				return cur, x
			}
			return nil, nil
		case *ast.BinaryExpr:
			if x.Op == token.LAND || x.Op == token.LOR {
				return nil, nil
			}
			cur = x
		default:
			return nil, nil
		}
	}
}

// convertChain flattens unparenthesised comparisons: a < b < c.
func (c *converter) convertChain(n *ast.BinaryExpr, op string) (Expr, error) {
	var left Expr
	var ops []string
	var operands []Expr
	if inner, ok := n.X.(*ast.BinaryExpr); ok {
		if innerOp, isCmp := comparisons[inner.Op]; isCmp {
			chained, err := c.convertChain(inner, innerOp)
			if err != nil {
				return nil, err
			}
			ch := chained.(Chain)
			ops, operands = ch.Ops, ch.Operands
		}
	}
	if operands == nil {
		var err error
		left, err = c.convert(n.X)
		if err != nil {
			return nil, err
		}
		operands = []Expr{left}
	}
	right, err := c.convert(n.Y)
	if err != nil {
		return nil, err
	}
	return Chain{Ops: append(ops, op), Operands: append(operands, right)}, nil
}

func convertLit(n *ast.BasicLit) (Expr, error) {
	switch n.Kind {
	case token.INT:
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, err
		}
		return Lit{Int(i)}, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, err
		}
		return Lit{Float(f)}, nil
	case token.STRING:
		s, err := strconv.Unquote(n.Value)
		if err != nil {
			return nil, err
		}
		return Lit{Str(s)}, nil
	}
	return nil, fmt.Errorf("unsupported literal %s", n.Value)
}

func exprText(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return fmt.Sprintf("%T", e)
}

// normalize rewrites Python spellings into Go expression syntax. Single
// quoted strings become double quoted and floor division is carried as &^.
func normalize(text string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(text) {
		ch := text[i]
		switch {
		case ch == '\'' || ch == '"':
			j := i + 1
			for j < len(text) && text[j] != ch {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(text) {
				return "", fmt.Errorf("unterminated string in %q", text)
			}
			b.WriteString(strconv.Quote(text[i+1 : j]))
			i = j + 1
		case strings.HasPrefix(text[i:], "//"):
			b.WriteString("&^")
			i += 2
		case strings.HasPrefix(text[i:], "**"):
			return "", fmt.Errorf("exponentiation is not supported in %q", text)
		case strings.HasPrefix(text[i:], "&^"):
			return "", fmt.Errorf("unsupported operator &^ in %q", text)
		case isIdentStart(ch):
			j := i
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			switch word := text[i:j]; word {
			case "and":
				b.WriteString("&&")
			case "or":
				b.WriteString("||")
			case "not":
				b.WriteString("!")
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			default:
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String(), nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
