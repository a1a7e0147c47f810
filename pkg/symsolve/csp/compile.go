package csp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/symsolve/pkg/symsolve/csp/expr"
	"github.com/cognicore/symsolve/pkg/symsolve/csp/fd"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/segment"
)

// DomainMarker separates a variable name from its domain literal.
const DomainMarker = "[IN]"

const allDifferentName = "AllDifferentConstraint"

var (
	identPattern        = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	allDifferentPattern = regexp.MustCompile(`^AllDifferentConstraint\(\s*\[(.*)\]\s*\)$`)
	optionPattern       = regexp.MustCompile(`^(\w+)\)\s*(.*)$`)
	optionExprPattern   = regexp.MustCompile(`([A-Za-z_]\w*)\s*==\s*("[^"]*"|'[^']*'|[-+]?[\w.]+)`)
)

// Variable is a declared variable with its finite domain.
type Variable struct {
	Name   string
	Domain []expr.Value
	Line   segment.Line
}

// ConstraintKind distinguishes the two constraint shapes.
type ConstraintKind int

const (
	KindAllDifferent ConstraintKind = iota
	KindPredicate
)

// Constraint is a compiled constraint line.
type Constraint struct {
	Index int
	Kind  ConstraintKind
	// Scope lists the variables in first-occurrence order; for predicates
	// these are the positional parameters of Expr.
	Scope []string
	Expr  expr.Expr // nil for all-different
	Line  segment.Line
}

// Option is one parsed answer option "X) var == value".
type Option struct {
	Letter   string
	Variable string
	Value    expr.Value
	Line     segment.Line
}

// ParseVariable compiles "name [IN] domain".
func ParseVariable(line segment.Line) (Variable, error) {
	name, domain, found := strings.Cut(line.Logic, DomainMarker)
	if !found {
		return Variable{}, fmt.Errorf("%w: variable %q has no %s marker", internalerr.ErrTranslation, line.Logic, DomainMarker)
	}
	name = strings.TrimSpace(name)
	if !identPattern.MatchString(name) {
		return Variable{}, fmt.Errorf("%w: invalid variable name %q", internalerr.ErrTranslation, name)
	}
	values, err := expr.ParseDomain(domain)
	if err != nil {
		return Variable{}, fmt.Errorf("%w: variable %s: %v", internalerr.ErrTranslation, name, err)
	}
	return Variable{Name: name, Domain: values, Line: line}, nil
}

// ParseConstraint compiles one constraint line against the declared
// variables.
func ParseConstraint(index int, line segment.Line, declared map[string]bool) (Constraint, error) {
	text := line.Logic
	if strings.HasPrefix(text, allDifferentName) {
		vars, err := parseAllDifferent(text, declared)
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Index: index, Kind: KindAllDifferent, Scope: vars, Line: line}, nil
	}

	e, vars, err := expr.Parse(text)
	if err != nil {
		return Constraint{}, fmt.Errorf("%w: constraint %d: %v", internalerr.ErrTranslation, index, err)
	}
	for _, v := range vars {
		if !declared[v] {
			return Constraint{}, fmt.Errorf("%w: constraint %d (%s): unknown identifier %s", internalerr.ErrTranslation, index, text, v)
		}
	}
	return Constraint{Index: index, Kind: KindPredicate, Scope: vars, Expr: e, Line: line}, nil
}

func parseAllDifferent(text string, declared map[string]bool) ([]string, error) {
	m := allDifferentPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: malformed %s: %q", internalerr.ErrTranslation, allDifferentName, text)
	}
	if strings.ContainsAny(m[1], "[](){}") {
		return nil, fmt.Errorf("%w: %s takes one flat list of variables: %q", internalerr.ErrTranslation, allDifferentName, text)
	}
	seen := make(map[string]bool)
	var vars []string
	for _, part := range strings.Split(m[1], ",") {
		name := strings.TrimSpace(part)
		switch {
		case name == "":
			return nil, fmt.Errorf("%w: empty variable name in %q", internalerr.ErrTranslation, text)
		case !declared[name]:
			return nil, fmt.Errorf("%w: unknown variable %s in %q", internalerr.ErrTranslation, name, text)
		case seen[name]:
			return nil, fmt.Errorf("%w: variable %s repeated in %q", internalerr.ErrTranslation, name, text)
		}
		seen[name] = true
		vars = append(vars, name)
	}
	return vars, nil
}

// ParseOption compiles an answer option. The line must start with "X)" and
// contain a "var == value" equation; the first equation is used and any text
// around it is ignored. ok is false otherwise.
func ParseOption(line segment.Line) (Option, bool) {
	m := optionPattern.FindStringSubmatch(line.Logic)
	if m == nil {
		return Option{}, false
	}
	e := optionExprPattern.FindStringSubmatch(strings.TrimSpace(m[2]))
	if e == nil {
		return Option{}, false
	}
	v, err := expr.ParseLiteral(e[2])
	if err != nil {
		return Option{}, false
	}
	return Option{Letter: m[1], Variable: e[1], Value: v, Line: line}, true
}

// fdConstraint turns c into a solver constraint.
func (c Constraint) fdConstraint() fd.Constraint {
	if c.Kind == KindAllDifferent {
		return fd.AllDifferent(c.Index, c.Line.Logic, c.Scope)
	}
	scope := c.Scope
	e := c.Expr
	return fd.Constraint{
		Index: c.Index,
		Text:  c.Line.Logic,
		Scope: append([]string(nil), scope...),
		Check: func(values []expr.Value) (bool, error) {
			env := make(expr.Env, len(scope))
			for i, name := range scope {
				env[name] = values[i]
			}
			v, err := e.Eval(env)
			if err != nil {
				return false, err
			}
			return v.Truthy(), nil
		},
	}
}
