package fol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrecedence(t *testing.T) {
	cases := map[string]string{
		"∀x (Drinks(x) → Dependent(x))":   "(all x (Drinks(x) -> Dependent(x)))",
		"A ∧ B ∨ C":                       "(A & B) | C",
		"A ∨ B ∧ C":                       "A | (B & C)",
		"A → B → C":                       "A -> (B -> C)",
		"A ↔ B → C":                       "A <-> (B -> C)",
		"A ⊕ B ∨ C":                       "-(A <-> (B | C))",
		"¬P(a) ∧ Q(a)":                    "-P(a) & Q(a)",
		"¬(P(a) ∧ Q(a))":                  "-(P(a) & Q(a))",
		"¬∀x (Movie(x) → Happy(x))":       "-(all x (Movie(x) -> Happy(x)))",
		"∃x P(x) ∧ Q(x)":                  "(exists x (P(x) & Q(x)))",
		"Publish(book, year1946)":         "Publish(book,c_year1946)",
		"∀x ∃z (¬C(x) ∨ (W(x,z) ∧ M(z)))": "(all x (exists z (-C(x) | (W(x,z) & M(z)))))",
	}
	for in, want := range cases {
		f, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, f.Prover9(), in)
	}
}

func TestParseBindsVariables(t *testing.T) {
	f, err := Parse("∀x (Love(x, music) → Musician(x))")
	require.NoError(t, err)
	love := f.L.L
	require.Equal(t, OpAtom, love.Op)
	assert.Equal(t, []Term{Var("x"), Const("music")}, love.Args)
	assert.Equal(t, []string{"music"}, f.Constants())

	free, err := Parse("Love(x, music)")
	require.NoError(t, err)
	assert.False(t, free.Args[0].Var)
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"P(a) = Q(b)",
		"P(f(a))",
		"∀ (P(x))",
		"P(a",
		"P(a) ∧",
		"P(a,)",
		"P(a) Q(b)",
	} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestString(t *testing.T) {
	f, err := Parse("∀x (Drinks(x) → Dependent(x) ∧ ¬Unaware(x))")
	require.NoError(t, err)
	assert.Equal(t, "∀x (Drinks(x) → (Dependent(x) ∧ ¬Unaware(x)))", f.String())
}

func TestArities(t *testing.T) {
	ar := map[string]int{}
	f, _ := Parse("Author(a, b) ∧ Book(b)")
	require.NoError(t, f.Arities(ar))
	assert.Equal(t, map[string]int{"Author": 2, "Book": 1}, ar)

	g, _ := Parse("Book(a, b)")
	assert.Error(t, g.Arities(ar))
}

func TestProver9Input(t *testing.T) {
	goal, _ := Parse("Mortal(socrates)")
	prem, _ := Parse("∀x (Man(x) → Mortal(x))")
	want := "assign(max_seconds, 10).\n\n" +
		"formulas(assumptions).\n(all x (Man(x) -> Mortal(x))).\nend_of_list.\n\n" +
		"formulas(goals).\nMortal(socrates).\nend_of_list.\n"
	assert.Equal(t, want, Prover9Input(goal, []*Formula{prem}, 10))
}

func TestSummarize(t *testing.T) {
	log := `============================== SEARCH ================================
% Predicate symbol precedence:  predicate_order([ P, Q ]).
given #1 (I,wt=2): 1 P(a).  [assumption].
1 P(a).  [assumption].
4 -P(x) | Q(x).  [clausify(1)].
6 -Q(a).  [deny(2)].
8 -P(x)   |  Q(x).  [clausify(1)].
9 Q(a).  [resolve(8,a,1,a)].
12 $F.  [resolve(9,a,6,a)].
============================== end of search =========================`

	assert.Equal(t, []string{
		"1 P(a).  [assumption].",
		"2 -P(x) | Q(x).  [clausify(1)].",
		"3 -Q(a).  [deny(2)].",
		"4 Q(a).  [resolve(2,a,1,a)].",
		"5 $F.  [resolve(4,a,3,a)].",
	}, Summarize(log))
}
