package prover9

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/symsolve/pkg/symsolve/fol"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/staging"
)

const provedLog = `============================== Prover9 ===============================
============================== SEARCH ================================
given #1 (I,wt=2): 2 Man(socrates).  [assumption].
============================== PROOF =================================

% Proof 1 at 0.00 (+ 0.00) seconds.
1 (all x (Man(x) -> Mortal(x))) # label(non_clause).  [assumption].
2 Mortal(socrates) # label(non_clause) # label(goal).  [goal].
3 -Man(x) | Mortal(x).  [clausify(1)].
4 Man(socrates).  [assumption].
5 -Mortal(socrates).  [deny(2)].
6 Mortal(socrates).  [resolve(3,a,4,a)].
7 $F.  [resolve(6,a,5,a)].

============================== end of proof ==========================

THEOREM PROVED
`

// fakeBinary writes a shell script that copies its input file next to
// itself, prints out and exits with code.
func fakeBinary(t *testing.T, out string, code int) (path, seen string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte(out), 0o644))
	seen = filepath.Join(dir, "seen.in")
	script := "#!/bin/sh\ncp \"$2\" " + seen + "\ncat " + filepath.Join(dir, "out.txt") + "\nexit " + strconv.Itoa(code) + "\n"
	path = filepath.Join(dir, "prover9")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, seen
}

func problem(t *testing.T) (*fol.Formula, []*fol.Formula) {
	t.Helper()
	goal, err := fol.Parse("Mortal(socrates)")
	require.NoError(t, err)
	rule, err := fol.Parse("∀x (Man(x) → Mortal(x))")
	require.NoError(t, err)
	fact, err := fol.Parse("Man(socrates)")
	require.NoError(t, err)
	return goal, []*fol.Formula{rule, fact}
}

func TestProved(t *testing.T) {
	bin, seen := fakeBinary(t, provedLog, 0)
	stage := t.TempDir()
	goal, assumptions := problem(t)

	proof, err := New(Options{Path: bin, MaxSeconds: 3, Staging: staging.Options{Dir: stage}}).
		Prove(context.Background(), goal, assumptions)
	require.NoError(t, err)
	assert.True(t, proof.Proved)
	assert.Contains(t, proof.Proof, "7 $F.  [resolve(6,a,5,a)].")
	assert.NotContains(t, proof.Proof, "given #")
	assert.NotContains(t, proof.Proof, "THEOREM PROVED")

	input, err := os.ReadFile(seen)
	require.NoError(t, err)
	assert.Equal(t, fol.Prover9Input(goal, assumptions, 3), string(input))

	entries, err := os.ReadDir(stage)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging area removed")
}

func TestSearchFailed(t *testing.T) {
	bin, _ := fakeBinary(t, "SEARCH FAILED\n", 2)
	goal, assumptions := problem(t)
	proof, err := New(Options{Path: bin, Staging: staging.Options{Dir: t.TempDir()}}).
		Prove(context.Background(), goal, assumptions)
	require.NoError(t, err)
	assert.False(t, proof.Proved)
	assert.Equal(t, "SEARCH FAILED\n", proof.Log)
}

func TestFatalError(t *testing.T) {
	bin, _ := fakeBinary(t, "%%ERROR: bad input\n", 1)
	goal, assumptions := problem(t)
	_, err := New(Options{Path: bin, Staging: staging.Options{Dir: t.TempDir()}}).
		Prove(context.Background(), goal, assumptions)
	assert.ErrorIs(t, err, internalerr.ErrExecution)
}

func TestExtractProof(t *testing.T) {
	proof := ExtractProof(provedLog)
	lines := fol.Summarize(proof)
	require.Len(t, lines, 7)
	assert.Equal(t, "1 (all x (Man(x) -> Mortal(x))) # label(non_clause).  [assumption].", lines[0])
	assert.Empty(t, ExtractProof("SEARCH FAILED"))
}
