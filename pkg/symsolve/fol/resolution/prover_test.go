package resolution

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/symsolve/pkg/symsolve/fol"
)

func parseAll(t *testing.T, texts ...string) []*fol.Formula {
	t.Helper()
	out := make([]*fol.Formula, len(texts))
	for i, text := range texts {
		f, err := fol.Parse(text)
		require.NoError(t, err, text)
		out[i] = f
	}
	return out
}

func prove(t *testing.T, goal string, premises ...string) fol.Proof {
	t.Helper()
	g := parseAll(t, goal)[0]
	proof, err := New(Options{}).Prove(context.Background(), g, parseAll(t, premises...))
	require.NoError(t, err)
	return proof
}

func TestModusPonens(t *testing.T) {
	proof := prove(t, "Mortal(socrates)", "∀x (Man(x) → Mortal(x))", "Man(socrates)")
	require.True(t, proof.Proved)
	assert.Contains(t, proof.Proof, "$F.")
	assert.Contains(t, proof.Proof, "[deny(3)].")
	assert.Contains(t, proof.Proof, "[assumption].")
	assert.NotContains(t, proof.Proof, "given #")
	assert.Contains(t, proof.Log, "THEOREM PROVED")
	assert.Contains(t, proof.Log, "given #1")
}

func TestExistentialWitness(t *testing.T) {
	proof := prove(t, "∃x (Movie(x) ∧ ¬HappyEnding(x))",
		"¬∀x (Movie(x) → HappyEnding(x))",
		"Movie(titanic)",
		"¬HappyEnding(titanic)",
		"Movie(lionKing)",
		"HappyEnding(lionKing)")
	assert.True(t, proof.Proved)
}

func TestSkolemFunctions(t *testing.T) {
	proof := prove(t, "∃y Loves(alice, y)", "∀x ∃y Loves(x, y)")
	assert.True(t, proof.Proved)
}

func TestExclusiveOr(t *testing.T) {
	assert.True(t, prove(t, "¬Jokes(rina)", "Drinks(rina) ⊕ Jokes(rina)", "Drinks(rina)").Proved)
	assert.False(t, prove(t, "Jokes(rina)", "Drinks(rina) ⊕ Jokes(rina)", "Drinks(rina)").Proved)
}

func TestBiconditional(t *testing.T) {
	assert.True(t, prove(t, "Q(a)", "P(a) ↔ Q(a)", "P(a)").Proved)
	assert.True(t, prove(t, "¬P(a)", "P(a) ↔ Q(a)", "¬Q(a)").Proved)
}

func TestUndeterminedConclusion(t *testing.T) {
	premises := []string{
		"∀x (Listed(x) → ¬NegativeReviews(x))",
		"∀x (GreaterThanNine(x) → Listed(x))",
		"∃x (¬TakeOut(x) ∧ NegativeReviews(x))",
		"∀x (Popular(x) → GreaterThanNine(x))",
		"GreaterThanNine(subway) ∨ Popular(subway)",
	}
	goal := "TakeOut(subway) ∧ ¬NegativeReviews(subway)"

	direct := prove(t, goal, premises...)
	assert.False(t, direct.Proved)
	assert.Contains(t, direct.Log, "SEARCH FAILED")
	assert.Contains(t, direct.Log, "sos_empty")
	assert.Empty(t, direct.Proof)

	negated := prove(t, "¬("+goal+")", premises...)
	assert.False(t, negated.Proved)

	assert.True(t, prove(t, "¬NegativeReviews(subway)", premises...).Proved)
}

func TestSearchLimits(t *testing.T) {
	goal := parseAll(t, "Q(a)")[0]
	premises := parseAll(t,
		"∀x ∃y R(x, y)",
		"∀x ∀y ∀z (R(x, y) ∧ R(y, z) → R(x, z))",
		"P(a)")
	proof, err := New(Options{MaxGiven: 3}).Prove(context.Background(), goal, premises)
	require.NoError(t, err)
	assert.False(t, proof.Proved)
	assert.Contains(t, proof.Log, "max_given")
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	premises := parseAll(t, "∀x (Man(x) → Mortal(x))", "Man(socrates)")
	_, err := New(Options{}).Prove(ctx, parseAll(t, "Mortal(plato)")[0], premises)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProofLinesAreNumbered(t *testing.T) {
	proof := prove(t, "Mortal(socrates)", "∀x (Man(x) → Mortal(x))", "Man(socrates)")
	lines := fol.Summarize(proof.Proof)
	require.NotEmpty(t, lines)
	for i, l := range lines {
		assert.True(t, strings.HasPrefix(l, strconv.Itoa(i+1)+" "), l)
	}
	assert.Equal(t, strconv.Itoa(len(lines))+" $F.", strings.SplitN(lines[len(lines)-1], "  ", 2)[0])
}

func TestUnify(t *testing.T) {
	x := term{v: 0}
	fx := term{fn: "f", args: []term{x}}
	s := subst{}
	assert.False(t, s.unify(x, fx), "occurs check")

	s = subst{}
	a := term{fn: "a"}
	require.True(t, s.unify(term{fn: "g", args: []term{x, a}}, term{fn: "g", args: []term{a, term{v: 1}}}))
	assert.True(t, equalTerms(s.apply(x), a))
	assert.True(t, equalTerms(s.apply(term{v: 1}), a))
}

func TestSubsumes(t *testing.T) {
	px := literal{pred: "P", args: []term{{v: 0}}}
	pa := literal{pred: "P", args: []term{{fn: "a"}}}
	qb := literal{pred: "Q", args: []term{{fn: "b"}}}
	assert.True(t, subsumes([]literal{px}, []literal{pa, qb}))
	assert.False(t, subsumes([]literal{pa}, []literal{px}))
	assert.False(t, subsumes([]literal{px, qb}, []literal{pa}))
}

func TestNormalizeDropsTautologies(t *testing.T) {
	pa := literal{pred: "P", args: []term{{fn: "a"}}}
	npa := literal{neg: true, pred: "P", args: []term{{fn: "a"}}}
	_, _, taut := normalize([]literal{pa, npa})
	assert.True(t, taut)

	out, nvars, taut := normalize([]literal{
		{pred: "R", args: []term{{v: 7}, {v: 3}}},
		{pred: "R", args: []term{{v: 7}, {v: 3}}},
	})
	assert.False(t, taut)
	assert.Equal(t, 2, nvars)
	assert.Equal(t, "R(x,y)", formatClause(out))
}
