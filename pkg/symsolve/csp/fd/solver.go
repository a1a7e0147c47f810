// Package fd is a finite-domain constraint solver that enumerates every
// solution by backtracking over the variables in declaration order.
package fd

import (
	"context"
	"fmt"

	"github.com/cognicore/symsolve/pkg/symsolve/csp/expr"
)

// Solution assigns a value to every variable.
type Solution map[string]expr.Value

// Constraint restricts the values of the variables in Scope.
type Constraint struct {
	Index int    // position in the source program
	Text  string // source text, for traces
	Scope []string
	// Check receives the values of Scope in order.
	Check func(values []expr.Value) (bool, error)
}

// AllDifferent returns a constraint requiring pairwise distinct values.
func AllDifferent(index int, text string, vars []string) Constraint {
	return Constraint{
		Index: index,
		Text:  text,
		Scope: append([]string(nil), vars...),
		Check: func(values []expr.Value) (bool, error) {
			for i := range values {
				for j := i + 1; j < len(values); j++ {
					if expr.Equal(values[i], values[j]) {
						return false, nil
					}
				}
			}
			return true, nil
		},
	}
}

// EventKind classifies search events.
type EventKind int

const (
	EventAssign EventKind = iota
	EventFail
	EventSolution
)

// Event is one step of the search.
type Event struct {
	Kind       EventKind
	Depth      int
	Var        string
	Value      expr.Value
	Constraint *Constraint // set on EventFail
	Reason     string
	Solution   Solution // set on EventSolution
}

// Tracer observes the search.
type Tracer interface {
	Event(e Event)
}

type variable struct {
	name   string
	domain []expr.Value
}

// Problem is a set of variables with finite domains and constraints over them.
type Problem struct {
	vars        []variable
	index       map[string]int
	constraints []Constraint

	// MaxSolutions stops the search after that many solutions; 0 means all.
	MaxSolutions int
}

// NewProblem creates an empty problem.
func NewProblem() *Problem {
	return &Problem{index: make(map[string]int)}
}

// AddVariable declares a variable with a non-empty domain.
func (p *Problem) AddVariable(name string, domain []expr.Value) error {
	if _, dup := p.index[name]; dup {
		return fmt.Errorf("variable %s declared twice", name)
	}
	if len(domain) == 0 {
		return fmt.Errorf("variable %s has an empty domain", name)
	}
	p.index[name] = len(p.vars)
	p.vars = append(p.vars, variable{name: name, domain: append([]expr.Value(nil), domain...)})
	return nil
}

// AddConstraint registers c. Every variable in its scope must be declared.
func (p *Problem) AddConstraint(c Constraint) error {
	for _, v := range c.Scope {
		if _, ok := p.index[v]; !ok {
			return fmt.Errorf("constraint %d (%s): unknown variable %s", c.Index, c.Text, v)
		}
	}
	if c.Check == nil {
		return fmt.Errorf("constraint %d (%s): no check", c.Index, c.Text)
	}
	p.constraints = append(p.constraints, c)
	return nil
}

// Variables returns the declared names in order.
func (p *Problem) Variables() []string {
	out := make([]string, len(p.vars))
	for i, v := range p.vars {
		out[i] = v.name
	}
	return out
}

// Solutions enumerates all solutions. Each constraint is checked as soon as
// the last variable of its scope is assigned. tr may be nil.
func (p *Problem) Solutions(ctx context.Context, tr Tracer) ([]Solution, error) {
	s := &search{p: p, ctx: ctx, tr: tr, values: make([]expr.Value, len(p.vars))}
	s.byDepth = make([][]*Constraint, len(p.vars))
	for i := range p.constraints {
		c := &p.constraints[i]
		last := -1
		for _, v := range c.Scope {
			if idx := p.index[v]; idx > last {
				last = idx
			}
		}
		if last < 0 {
			ok, err := c.Check(nil)
			if err != nil {
				return nil, fmt.Errorf("constraint %d (%s): %w", c.Index, c.Text, err)
			}
			if !ok {
				s.emit(Event{Kind: EventFail, Constraint: c, Reason: "constant constraint is false"})
				return nil, nil
			}
			continue
		}
		s.byDepth[last] = append(s.byDepth[last], c)
	}
	if len(p.vars) == 0 {
		return nil, nil
	}
	if err := s.walk(0); err != nil {
		return s.solutions, err
	}
	return s.solutions, nil
}

type search struct {
	p         *Problem
	ctx       context.Context
	tr        Tracer
	values    []expr.Value
	byDepth   [][]*Constraint
	solutions []Solution
	done      bool
}

func (s *search) emit(e Event) {
	if s.tr != nil {
		s.tr.Event(e)
	}
}

func (s *search) walk(depth int) error {
	if depth == len(s.p.vars) {
		sol := make(Solution, len(s.values))
		for i, v := range s.p.vars {
			sol[v.name] = s.values[i]
		}
		s.solutions = append(s.solutions, sol)
		s.emit(Event{Kind: EventSolution, Depth: depth, Solution: sol})
		if s.p.MaxSolutions > 0 && len(s.solutions) >= s.p.MaxSolutions {
			s.done = true
		}
		return nil
	}
	v := s.p.vars[depth]
	for _, val := range v.domain {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		s.values[depth] = val
		s.emit(Event{Kind: EventAssign, Depth: depth, Var: v.name, Value: val})
		ok, err := s.consistent(depth, v.name, val)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := s.walk(depth + 1); err != nil {
			return err
		}
		if s.done {
			return nil
		}
	}
	return nil
}

func (s *search) consistent(depth int, name string, val expr.Value) (bool, error) {
	for _, c := range s.byDepth[depth] {
		args := make([]expr.Value, len(c.Scope))
		for i, v := range c.Scope {
			args[i] = s.values[s.p.index[v]]
		}
		ok, err := c.Check(args)
		if err != nil {
			return false, fmt.Errorf("constraint %d (%s): %w", c.Index, c.Text, err)
		}
		if !ok {
			s.emit(Event{
				Kind:       EventFail,
				Depth:      depth,
				Var:        name,
				Value:      val,
				Constraint: c,
				Reason:     fmt.Sprintf("%s = %s violates %s", name, val, c.Text),
			})
			return false, nil
		}
	}
	return true, nil
}
