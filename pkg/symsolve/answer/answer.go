// Package answer maps raw solver verdicts onto multiple-choice letters.
package answer

import (
	"fmt"
	"regexp"
	"strings"
)

// Dataset names an answer-letter policy.
type Dataset string

const (
	ProntoQA         Dataset = "ProntoQA"
	ProofWriter      Dataset = "ProofWriter"
	FOLIO            Dataset = "FOLIO"
	LogicalDeduction Dataset = "LogicalDeduction"
	ARLSAT           Dataset = "AR-LSAT"
)

var defaultLetters = map[Dataset][]string{
	ProntoQA:         {"A", "B"},
	ProofWriter:      {"A", "B", "C"},
	FOLIO:            {"A", "B", "C"},
	LogicalDeduction: {"A", "B", "C", "D", "E"},
	ARLSAT:           {"A", "B", "C", "D", "E"},
}

// Valid reports whether d is a known dataset.
func (d Dataset) Valid() bool {
	_, ok := defaultLetters[d]
	return ok
}

// Letters returns the dataset's default option letters.
func (d Dataset) Letters() []string {
	return append([]string(nil), defaultLetters[d]...)
}

// ClosedWorld reports whether an underivable statement counts as false.
func (d Dataset) ClosedWorld() bool { return d == ProntoQA }

// Truth is a three-valued verdict.
type Truth int

const (
	Unknown Truth = iota
	True
	False
)

// TruthOf converts a boolean.
func TruthOf(b bool) Truth {
	if b {
		return True
	}
	return False
}

func (t Truth) String() string {
	switch t {
	case True:
		return "True"
	case False:
		return "False"
	default:
		return "Unknown"
	}
}

// ParseTruth accepts "True", "False" and "Unknown".
func ParseTruth(s string) (Truth, error) {
	switch strings.TrimSpace(s) {
	case "True":
		return True, nil
	case "False":
		return False, nil
	case "Unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("not a truth value: %q", s)
}

// Query maps the resolved truth of a queried atom against the literal the
// query asserted. A: the statement holds, B: it does not, C: unknown.
// Closed-world datasets read Unknown as False and never answer C, so a
// ProntoQA query asserting False with no bindings, such as White(Bob, False),
// answers A.
func Query(d Dataset, resolved Truth, asserted bool) (string, error) {
	switch d {
	case ProntoQA, ProofWriter:
	default:
		return "", fmt.Errorf("dataset %q has no query policy", d)
	}
	if resolved == Unknown {
		if !d.ClosedWorld() {
			return "C", nil
		}
		resolved = False
	}
	if resolved == TruthOf(asserted) {
		return "A", nil
	}
	return "B", nil
}

// Verdict maps a prover verdict: True A, False B, Unknown C.
// Closed-world datasets map Unknown to B.
func Verdict(d Dataset, v Truth) (string, error) {
	switch d {
	case ProntoQA, ProofWriter, FOLIO:
	default:
		return "", fmt.Errorf("dataset %q has no verdict policy", d)
	}
	switch v {
	case True:
		return "A", nil
	case False:
		return "B", nil
	}
	if d.ClosedWorld() {
		return "B", nil
	}
	return "C", nil
}

var optionLetter = regexp.MustCompile(`^\(?([A-Z])[\).:]`)

// OptionLetters extracts the leading letter of each option, e.g. "A) x == 1".
func OptionLetters(options []string) []string {
	var out []string
	for _, opt := range options {
		if m := optionLetter.FindStringSubmatch(strings.TrimSpace(opt)); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}
