package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainTransitive(t *testing.T) {
	base := []Atom{NewAtom("Big", "Anne", "True")}
	rules := []Rule{
		{Name: "r1", Premises: []Atom{{Predicate: "Big", Args: []Term{Var("x"), Const("True")}}},
			Conclusions: []Atom{{Predicate: "Red", Args: []Term{Var("x"), Const("True")}}}},
		{Name: "r2", Premises: []Atom{{Predicate: "Red", Args: []Term{Var("x"), Const("True")}}},
			Conclusions: []Atom{{Predicate: "Kind", Args: []Term{Var("x"), Const("False")}}}},
	}

	var trace []Derivation
	derived, err := Chain(context.Background(), base, rules, ChainOptions{
		Tracer: TracerFunc(func(d Derivation) { trace = append(trace, d) }),
	})
	require.NoError(t, err)
	assert.Equal(t, []Atom{NewAtom("Red", "Anne", "True"), NewAtom("Kind", "Anne", "False")}, derived)
	require.Len(t, trace, 2)
	assert.Equal(t, "r2", trace[1].Rule.Name)
	assert.Equal(t, []Atom{NewAtom("Red", "Anne", "True")}, trace[1].Premises)
}

func TestChainJoinSharesVariables(t *testing.T) {
	base := []Atom{
		NewAtom("Round", "Bob", "True"),
		NewAtom("Quiet", "Erin", "True"),
		NewAtom("Round", "Erin", "True"),
	}
	rule := Rule{
		Name: "r",
		Premises: []Atom{
			{Predicate: "Round", Args: []Term{Var("x"), Const("True")}},
			{Predicate: "Quiet", Args: []Term{Var("x"), Const("True")}},
		},
		Conclusions: []Atom{{Predicate: "Blue", Args: []Term{Var("x"), Const("True")}}},
	}
	derived, err := Chain(context.Background(), base, []Rule{rule}, ChainOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Atom{NewAtom("Blue", "Erin", "True")}, derived)
}

func TestChainAdmitFilter(t *testing.T) {
	base := []Atom{NewAtom("A", "x", "True")}
	rule := Rule{
		Premises:    []Atom{{Predicate: "A", Args: []Term{Var("s"), Const("True")}}},
		Conclusions: []Atom{{Predicate: "B", Args: []Term{Var("s"), Const("True")}}},
	}
	derived, err := Chain(context.Background(), base, []Rule{rule}, ChainOptions{
		Admit: func(Atom) bool { return false },
	})
	require.NoError(t, err)
	assert.Empty(t, derived)
}

func TestRuleValidateRangeRestriction(t *testing.T) {
	r := Rule{
		Name:        "bad",
		Premises:    []Atom{NewAtom("A", "Bob", "True")},
		Conclusions: []Atom{{Predicate: "B", Args: []Term{Var("x"), Const("True")}}},
	}
	assert.Error(t, r.Validate())

	r.Premises = []Atom{{Predicate: "A", Args: []Term{Var("x"), Const("True")}}}
	assert.NoError(t, r.Validate())
}

func TestSelect(t *testing.T) {
	atoms := []Atom{NewAtom("White", "Bob", "True"), NewAtom("White", "Anne", "False"), NewAtom("White", "Bob", "False")}
	got := Select(atoms, Atom{Predicate: "White", Args: []Term{Const("Bob"), Var("v")}})
	assert.Equal(t, []Binding{{"v": "True"}, {"v": "False"}}, got)
}
