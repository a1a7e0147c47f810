package lp

import (
	"context"
	"strings"
	"testing"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/parse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/symsolve/pkg/symsolve/answer"
	"github.com/cognicore/symsolve/pkg/symsolve/inference"
	"github.com/cognicore/symsolve/pkg/symsolve/inference/simple"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/segment"
	"github.com/cognicore/symsolve/pkg/symsolve/staging"
)

const bobProgram = `Predicates:
    Round($x, bool) ::: Is x round?
    Red($x, bool) ::: Is x red?
    Smart($x, bool) ::: Is x smart?
    Furry($x, bool) ::: Is x furry?
    Rough($x, bool) ::: Is x rough?
    Big($x, bool) ::: Is x big?
    White($x, bool) ::: Is x white?

    Facts:
    Round(Anne, True) ::: Anne is round.
    Red(Bob, True) ::: Bob is red.
    Smart(Bob, True) ::: Bob is smart.
    Furry(Erin, True) ::: Erin is furry.
    Red(Erin, True) ::: Erin is red.
    Rough(Erin, True) ::: Erin is rough.
    Smart(Erin, True) ::: Erin is smart.
    Big(Fiona, True) ::: Fiona is big.
    Furry(Fiona, True) ::: Fiona is furry.
    Smart(Fiona, True) ::: Fiona is smart.

    Rules:
    Smart($x, True) >>> Furry($x, True) ::: All smart things are furry.
    Furry($x, True) >>> Red($x, True) ::: All furry things are red.
    Round($x, True) >>> Rough($x, True) ::: All round things are rough.
    White(Bob, True) >>> Furry(Bob, True) ::: If Bob is white then Bob is furry.
    Red($x, True) && Rough($x, True) >>> Big($x, True) ::: All red, rough things are big.
    Rough($x, True) >>> Smart($x, True) ::: All rough things are smart.
    Furry(Fiona, True) >>> Red(Fiona, True) ::: If Fiona is furry then Fiona is red.
    Round(Bob, True) && Big(Bob, True) >>> Furry(Bob, True) ::: If Bob is round and Bob is big then Bob is furry.
    Red(Fiona, True) && White(Fiona, True) >>> Smart(Fiona, True) ::: If Fiona is red and Fiona is white then Fiona is smart.

    Query:
    White(Bob, False) ::: Bob is not white.`

const harryProgram = `Predicates:
Furry($x, bool) ::: Is x furry?
Nice($x, bool) ::: Is x nice?
Smart($x, bool) ::: Is x smart?
Young($x, bool) ::: Is x young?
Green($x, bool) ::: Is x green?
Big($x, bool) ::: Is x big?
Round($x, bool) ::: Is x round?

Facts:
Furry(Anne, True) ::: Anne is furry.
Nice(Anne, True) ::: Anne is nice.
Smart(Anne, True) ::: Anne is smart.
Young(Bob, True) ::: Bob is young.
Nice(Erin, True) ::: Erin is nice.
Smart(Harry, True) ::: Harry is smart.
Young(Harry, True) ::: Harry is young.

Rules:
Young($x, True) >>> Furry($x, True) ::: Young things are furry.
Nice($x, True) && Furry($x, True) >>> Green($x, True) ::: Nice, furry things are green.
Green($x, True) >>> Nice($x, True) ::: All green things are nice.
Nice($x, True) && Green($x, True) >>> Big($x, True) ::: Nice, green things are big.
Green($x, True) >>> Smart($x, True) ::: All green things are smart.
Big($x, True) && Young($x, True) >>> Round($x, True) ::: If something is big and young then it is round.
Green($x, True) >>> Big($x, True) ::: All green things are big.
Young(Harry, True) >>> Furry(Harry, True) ::: If Harry is young then Harry is furry.
Furry($x, True) && Smart($x, True) >>> Nice($x, True) ::: Furry, smart things are nice.

Query:
Green(Harry, False) ::: Harry is not green.`

func nice(query string) string {
	return "Predicates:\nFurry($x, bool) ::: Is x furry?\nNice($x, bool) ::: Is x nice?\n\n" +
		"Facts:\nFurry(Anne, True) ::: Anne is furry.\n\n" +
		"Rules:\nFurry($x, True) >>> Nice($x, True) ::: All furry things are nice.\n\n" +
		"Query:\n" + query
}

var engines = map[string]EngineFactory{
	"mangle": MangleEngine,
	"simple": func() inference.Engine { return simple.New() },
}

func opts(t *testing.T, dataset answer.Dataset, factory EngineFactory) Options {
	return Options{Dataset: dataset, NewEngine: factory, Staging: staging.Options{Dir: t.TempDir()}}
}

func TestBobIsNotWhiteProntoQA(t *testing.T) {
	for name, factory := range engines {
		t.Run(name, func(t *testing.T) {
			p := New(bobProgram, opts(t, answer.ProntoQA, factory))
			require.True(t, p.Parsed(), "parse error: %v", p.Err())
			assert.Equal(t, WellFormed, p.Status())

			ans, err := p.Execute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "A", ans.Letter)
			assert.Equal(t, "Unknown", ans.Verdict)
		})
	}
}

func TestProofWriterAnswers(t *testing.T) {
	cases := []struct {
		name    string
		program string
		want    string
	}{
		{"derived true", nice("Nice(Anne, True) ::: Anne is nice."), "A"},
		{"derived contradicts query", nice("Nice(Anne, False) ::: Anne is not nice."), "B"},
		{"not derivable", strings.Replace(nice("Nice(Anne, True)"), "Furry($x, True) >>>", "Furry($x, False) >>>", 1), "C"},
		{"chained derivation", harryProgram, "B"},
	}
	for name, factory := range engines {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				p := New(tc.program, opts(t, answer.ProofWriter, factory))
				require.True(t, p.Parsed(), "parse error: %v", p.Err())
				ans, err := p.Execute(context.Background())
				require.NoError(t, err)
				assert.Equal(t, tc.want, ans.Letter)
			})
		}
	}
}

func TestFactQueriedDirectly(t *testing.T) {
	text := "Facts:\nBig(Anne, True) ::: Anne is big.\nRules:\nBig($x, True) >>> Big($x, True)\nQuery:\nBig(Anne, True)"
	for name, factory := range engines {
		t.Run(name, func(t *testing.T) {
			res, err := New(text, opts(t, answer.ProofWriter, factory)).Infer(context.Background())
			require.NoError(t, err)
			assert.Equal(t, answer.True, res.Truth)
		})
	}
}

func TestZeroBindingsTrueQueryProntoQA(t *testing.T) {
	for name, factory := range engines {
		t.Run(name, func(t *testing.T) {
			p := New(nice("Kind(Anne, True) ::: Anne is kind."), opts(t, answer.ProntoQA, factory))
			ans, err := p.Execute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "B", ans.Letter)
		})
	}
}

func TestEnginesAgree(t *testing.T) {
	programs := map[string]string{
		"bob":   bobProgram,
		"harry": harryProgram,
		"nice":  nice("Nice(Anne, True) ::: Anne is nice."),
	}
	for pname, text := range programs {
		t.Run(pname, func(t *testing.T) {
			got := make(map[string]string)
			for name, factory := range engines {
				res, err := New(text, opts(t, answer.ProofWriter, factory)).Infer(context.Background())
				require.NoError(t, err, name)
				got[name] = res.Truth.String()
			}
			assert.Equal(t, got["simple"], got["mangle"])
		})
	}
}

func TestCommentsSurviveInTrace(t *testing.T) {
	p := New(bobProgram, opts(t, answer.ProntoQA, nil))
	res, err := p.Infer(context.Background())
	require.NoError(t, err)
	for _, comment := range []string{
		"Anne is round.", "Fiona is smart.",
		"All smart things are furry.", "If Fiona is red and Fiona is white then Fiona is smart.",
		"Bob is not white.",
	} {
		assert.Contains(t, res.Trace, comment)
	}
	assert.Contains(t, res.Trace, "=> Rough(Anne, True) ::: All round things are rough.")
}

func TestArtifactsAreDeterministic(t *testing.T) {
	a, err := New(bobProgram, opts(t, answer.ProntoQA, nil)).Artifacts()
	require.NoError(t, err)
	b, err := New(bobProgram, opts(t, answer.ProntoQA, nil)).Artifacts()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a["rules.krb"], "rule5\n    # All red, rough things are big.\n    foreach\n        holds.Red($x, True)\n        holds.Rough($x, True)\n    assert\n        rules.Big($x, True)\n")
	assert.Contains(t, a["program.mg"], "derived_furry(Vx, /true) :- holds_smart(Vx, /true).")

	unit, err := parse.Unit(strings.NewReader(a["program.mg"]))
	require.NoError(t, err)
	_, err = analysis.AnalyzeOneUnit(unit, nil)
	require.NoError(t, err)
}

func TestRepairReclassifiesStatements(t *testing.T) {
	text := "Facts:\nFurry(Anne, True) ::: Anne is furry.\nFurry($x, True) >>> Nice($x, True) ::: All furry things are nice.\nRules:\n\nQuery:\nNice(Anne, True)"
	p := New(text, opts(t, answer.ProofWriter, nil))
	assert.Equal(t, Repaired, p.Status())
	require.True(t, p.Parsed())
	require.Len(t, p.Rules(), 1)
	assert.Equal(t, []inference.Atom{inference.NewAtom("Furry", "Anne", "True")}, p.Facts())

	ans, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", ans.Letter)

	o := opts(t, answer.ProofWriter, nil)
	o.RejectRepaired = true
	strict := New(text, o)
	assert.False(t, strict.Parsed())
	assert.ErrorIs(t, strict.Err(), internalerr.ErrParse)
}

func TestUnparseablePrograms(t *testing.T) {
	cases := map[string]string{
		"no query":          "Facts:\nA(b, True)\nRules:\nA($x, True) >>> B($x, True)",
		"no facts or rules": "Predicates:\nA($x, bool)\nQuery:\nA(b, True)",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			p := New(text, opts(t, answer.ProntoQA, nil))
			assert.Equal(t, Unparseable, p.Status())
			assert.False(t, p.Parsed())
			assert.ErrorIs(t, p.Err(), internalerr.ErrParse)
		})
	}
}

func TestThreeArgumentAtomsRejected(t *testing.T) {
	text := "Facts:\nChases(Cat, Lion, True) ::: The cat chases the lion.\nRules:\nChases($x, Lion, True) >>> Round($x, True)\nQuery:\nRound(Cat, True)"
	p := New(text, opts(t, answer.ProofWriter, nil))
	assert.False(t, p.Parsed())
	assert.ErrorIs(t, p.Err(), internalerr.ErrTranslation)
}

func TestVariableFactsAreSkipped(t *testing.T) {
	text := "Facts:\nBig(Anne, True)\nBig($x, True) ::: everything is big\nRules:\nBig($x, True) >>> Red($x, True)\nQuery:\nRed(Anne, True)"
	p := New(text, opts(t, answer.ProofWriter, nil))
	require.True(t, p.Parsed())
	assert.Len(t, p.Facts(), 1)
	res, err := p.Infer(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Trace, "everything is big")
}

func TestCompileRuleErrors(t *testing.T) {
	for _, text := range []string{
		"Big($x, True)",
		"Big($x, True) >>> Red($x, True) >>> Kind($x, True)",
		"Big($x, True) && >>> Red($x, True)",
		"Big(Anne, True) >>> Red($y, True)",
		"Big($x, Maybe) >>> Red($x, True)",
	} {
		_, err := CompileRule("r", segment.ParseLine(text))
		assert.ErrorIs(t, err, internalerr.ErrTranslation, text)
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		values []string
		want   answer.Truth
	}{
		{nil, answer.Unknown},
		{[]string{"True"}, answer.True},
		{[]string{"False"}, answer.False},
		{[]string{"True", "True"}, answer.True},
		{[]string{"True", "False"}, answer.False},
		{[]string{"True", "True", "True"}, answer.True},
		{[]string{"False", "False", "False"}, answer.False},
		{[]string{"True", "False", "True"}, answer.Unknown},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.values)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v", tc.values)
	}
	_, err := Resolve([]string{"Anne"})
	assert.Error(t, err)
}
