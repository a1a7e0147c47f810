package lp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/symsolve/pkg/symsolve/inference"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/segment"
)

const (
	ruleMarker = ">>>"
	andMarker  = "&&"
	varMarker  = "$"
)

var atomPattern = regexp.MustCompile(`^(\w+)\(([^,]+),\s*([^)]+)\)$`)

// ParseAtom parses Pred(subject, True|False). A $-prefixed subject is a variable.
func ParseAtom(text string) (inference.Atom, error) {
	text = strings.TrimSpace(text)
	m := atomPattern.FindStringSubmatch(text)
	if m == nil {
		return inference.Atom{}, fmt.Errorf("%w: %q is not of the form Pred(subject, True|False)", internalerr.ErrTranslation, text)
	}
	subject := strings.TrimSpace(m[2])
	literal := strings.TrimSpace(m[3])
	if literal != "True" && literal != "False" {
		return inference.Atom{}, fmt.Errorf("%w: %q: second argument must be True or False, got %q", internalerr.ErrTranslation, text, literal)
	}

	var subj inference.Term
	if name, ok := strings.CutPrefix(subject, varMarker); ok {
		if name == "" {
			return inference.Atom{}, fmt.Errorf("%w: %q: empty variable name", internalerr.ErrTranslation, text)
		}
		subj = inference.Var(name)
	} else {
		subj = inference.Const(subject)
	}
	return inference.Atom{Predicate: m[1], Args: []inference.Term{subj, inference.Const(literal)}}, nil
}

// CompileRule converts "atom && atom >>> atom && atom" into a forward rule.
func CompileRule(name string, line segment.Line) (inference.Rule, error) {
	parts := strings.Split(line.Logic, ruleMarker)
	if len(parts) != 2 {
		return inference.Rule{}, fmt.Errorf("%w: rule %q must contain exactly one %s", internalerr.ErrTranslation, line.Logic, ruleMarker)
	}
	premises, err := compileAtoms(parts[0])
	if err != nil {
		return inference.Rule{}, err
	}
	conclusions, err := compileAtoms(parts[1])
	if err != nil {
		return inference.Rule{}, err
	}
	rule := inference.Rule{Name: name, Premises: premises, Conclusions: conclusions, Comment: line.Comment}
	if err := rule.Validate(); err != nil {
		return inference.Rule{}, fmt.Errorf("%w: %v", internalerr.ErrTranslation, err)
	}
	return rule, nil
}

func compileAtoms(text string) ([]inference.Atom, error) {
	var atoms []inference.Atom
	for _, part := range strings.Split(text, andMarker) {
		if strings.TrimSpace(part) == "" {
			return nil, fmt.Errorf("%w: empty atom in %q", internalerr.ErrTranslation, strings.TrimSpace(text))
		}
		atom, err := ParseAtom(part)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}
	return atoms, nil
}

// CompileFact parses a ground fact. ok is false for lines that mention a
// variable; those are not facts and are skipped.
func CompileFact(line segment.Line) (atom inference.Atom, ok bool, err error) {
	if strings.Contains(line.Logic, varMarker) {
		return inference.Atom{}, false, nil
	}
	atom, err = ParseAtom(line.Logic)
	if err != nil {
		return inference.Atom{}, false, err
	}
	return atom, true, nil
}

// renderRules writes rules in a forward-chaining rule-base layout.
func renderRules(rules []inference.Rule) string {
	var b strings.Builder
	for i, r := range rules {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", r.Name)
		if r.Comment != "" {
			fmt.Fprintf(&b, "    # %s\n", r.Comment)
		}
		b.WriteString("    foreach\n")
		for _, p := range r.Premises {
			fmt.Fprintf(&b, "        holds.%s\n", p)
		}
		b.WriteString("    assert\n")
		for _, c := range r.Conclusions {
			fmt.Fprintf(&b, "        rules.%s\n", c)
		}
	}
	return b.String()
}

func renderFacts(facts []inference.Atom) string {
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "%s\n", f)
	}
	return b.String()
}
