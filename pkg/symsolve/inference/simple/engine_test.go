package simple

import (
	"context"
	"testing"

	"github.com/cognicore/symsolve/pkg/symsolve/inference"
)

func rule(name string, prem, concl inference.Atom) inference.Rule {
	return inference.Rule{Name: name, Premises: []inference.Atom{prem}, Conclusions: []inference.Atom{concl}}
}

func varAtom(pred, value string) inference.Atom {
	return inference.Atom{Predicate: pred, Args: []inference.Term{inference.Var("x"), inference.Const(value)}}
}

func TestBasicFacts(t *testing.T) {
	e := New()
	if err := e.Assert(inference.NewAtom("Big", "Anne", "True")); err != nil {
		t.Fatalf("Assert: %v", err)
	}
	if err := e.Activate(context.Background(), nil); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	got, err := e.Prove(inference.Facts, inference.Atom{
		Predicate: "Big",
		Args:      []inference.Term{inference.Const("Anne"), inference.Var("v")},
	})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(got) != 1 || got[0]["v"] != "True" {
		t.Fatalf("unexpected bindings: %v", got)
	}
}

func TestRulesStoreHoldsDerivations(t *testing.T) {
	e := New()
	_ = e.Assert(inference.NewAtom("Big", "Anne", "True"))
	if err := e.AddRule(rule("r1", varAtom("Big", "True"), varAtom("Red", "True"))); err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	var fired int
	if err := e.Activate(context.Background(), inference.TracerFunc(func(inference.Derivation) { fired++ })); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if fired != 1 {
		t.Errorf("expected 1 derivation, got %d", fired)
	}

	pattern := inference.Atom{Predicate: "Red", Args: []inference.Term{inference.Const("Anne"), inference.Var("v")}}
	facts, _ := e.Prove(inference.Facts, pattern)
	if len(facts) != 0 {
		t.Errorf("derived atom leaked into fact store: %v", facts)
	}
	derived, _ := e.Prove(inference.Rules, pattern)
	if len(derived) != 1 || derived[0]["v"] != "True" {
		t.Errorf("unexpected derived bindings: %v", derived)
	}
}

func TestAssertRejectsVariables(t *testing.T) {
	e := New()
	if err := e.Assert(varAtom("Big", "True")); err == nil {
		t.Fatal("expected error for non-ground fact")
	}
}

func TestAddRuleRejectsUnboundConclusion(t *testing.T) {
	e := New()
	r := rule("r", inference.NewAtom("Big", "Anne", "True"), varAtom("Red", "True"))
	if err := e.AddRule(r); err == nil {
		t.Fatal("expected range restriction error")
	}
}
