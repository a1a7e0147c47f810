package fol

import (
	"fmt"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	op   Op
	pos  int
}

var runeOps = map[rune]Op{
	'¬': OpNot, '∧': OpAnd, '∨': OpOr, '⊕': OpXor,
	'→': OpImplies, '↔': OpIff, '∀': OpForall, '∃': OpExists,
}

func tokenize(text string) ([]token, error) {
	var toks []token
	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case isIdentRune(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			op, ok := runeOps[r]
			if !ok {
				return nil, fmt.Errorf("unexpected %q at %d", r, i)
			}
			toks = append(toks, token{kind: tokOp, text: string(r), op: op, pos: i})
			i++
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(runes)}), nil
}

func isIdentRune(r rune) bool {
	return r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Parse reads one formula. Precedence from tightest to loosest is
// ¬, ∧, ∨, ⊕, →, ↔; → groups to the right and the others to the left.
// A quantifier's scope extends as far right as possible.
func Parse(text string) (*Formula, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	p := &parser{toks: toks, bound: make(map[string]int)}
	f, err := p.iff()
	if err == nil && p.peek().kind != tokEOF {
		err = fmt.Errorf("unexpected %q at %d", p.peek().text, p.peek().pos)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	return f, nil
}

type parser struct {
	toks  []token
	i     int
	bound map[string]int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) acceptOp(op Op) bool {
	if t := p.peek(); t.kind == tokOp && t.op == op {
		p.i++
		return true
	}
	return false
}

func (p *parser) iff() (*Formula, error) {
	l, err := p.implies()
	if err != nil {
		return nil, err
	}
	for p.acceptOp(OpIff) {
		r, err := p.implies()
		if err != nil {
			return nil, err
		}
		l = Iff(l, r)
	}
	return l, nil
}

func (p *parser) implies() (*Formula, error) {
	l, err := p.leftAssoc(OpXor, p.or)
	if err != nil {
		return nil, err
	}
	if p.acceptOp(OpImplies) {
		r, err := p.implies()
		if err != nil {
			return nil, err
		}
		return Implies(l, r), nil
	}
	return l, nil
}

func (p *parser) or() (*Formula, error)  { return p.leftAssoc(OpOr, p.and) }
func (p *parser) and() (*Formula, error) { return p.leftAssoc(OpAnd, p.unary) }

func (p *parser) leftAssoc(op Op, operand func() (*Formula, error)) (*Formula, error) {
	l, err := operand()
	if err != nil {
		return nil, err
	}
	for p.acceptOp(op) {
		r, err := operand()
		if err != nil {
			return nil, err
		}
		l = &Formula{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *parser) unary() (*Formula, error) {
	t := p.next()
	switch {
	case t.kind == tokOp && t.op == OpNot:
		f, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not(f), nil
	case t.kind == tokOp && (t.op == OpForall || t.op == OpExists):
		v := p.next()
		if v.kind != tokIdent {
			return nil, fmt.Errorf("expected variable after %s at %d", t.text, t.pos)
		}
		p.bound[v.text]++
		body, err := p.iff()
		p.bound[v.text]--
		if err != nil {
			return nil, err
		}
		return &Formula{Op: t.op, Var: v.text, L: body}, nil
	case t.kind == tokLParen:
		f, err := p.iff()
		if err != nil {
			return nil, err
		}
		if r := p.next(); r.kind != tokRParen {
			return nil, fmt.Errorf("expected ) at %d", r.pos)
		}
		return f, nil
	case t.kind == tokIdent:
		return p.atom(t)
	case t.kind == tokEOF:
		return nil, fmt.Errorf("unexpected end of formula")
	}
	return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
}

func (p *parser) atom(name token) (*Formula, error) {
	if p.peek().kind != tokLParen {
		return Atom(name.text), nil
	}
	p.next()
	var args []Term
	for {
		t := p.next()
		if t.kind != tokIdent {
			return nil, fmt.Errorf("expected argument of %s at %d", name.text, t.pos)
		}
		if p.peek().kind == tokLParen {
			return nil, fmt.Errorf("function term %s in %s is not supported", t.text, name.text)
		}
		args = append(args, Term{Name: t.text, Var: p.bound[t.text] > 0})
		switch sep := p.next(); sep.kind {
		case tokComma:
			continue
		case tokRParen:
			return Atom(name.text, args...), nil
		default:
			return nil, fmt.Errorf("expected , or ) in %s at %d", name.text, sep.pos)
		}
	}
}
