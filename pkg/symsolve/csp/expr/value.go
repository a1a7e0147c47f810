// Package expr holds the constraint expression language: values, a tagged
// expression tree, and the parsers that build them from program text.
package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags a Value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a domain element or an intermediate result.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	B    bool
	S    string
}

func Int(i int64) Value     { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }
func Bool(b bool) Value     { return Value{Kind: KindBool, B: b} }
func Str(s string) Value    { return Value{Kind: KindString, S: s} }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindBool:
		if v.B {
			return "True"
		}
		return "False"
	default:
		return strconv.Quote(v.S)
	}
}

func (v Value) numeric() bool { return v.Kind != KindString }

func (v Value) float() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.I)
	case KindFloat:
		return v.F
	case KindBool:
		if v.B {
			return 1
		}
		return 0
	}
	return math.NaN()
}

func (v Value) integral() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.I, true
	case KindBool:
		if v.B {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Truthy follows the usual conventions: zero, empty and false are falsy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	default:
		return v.S != ""
	}
}

// Equal compares values; numbers compare across int, float and bool.
func Equal(a, b Value) bool {
	if a.numeric() && b.numeric() {
		return a.float() == b.float()
	}
	if a.Kind == KindString && b.Kind == KindString {
		return a.S == b.S
	}
	return false
}

// Compare orders two numbers or two strings.
func Compare(a, b Value) (int, error) {
	switch {
	case a.numeric() && b.numeric():
		x, y := a.float(), b.float()
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case a.Kind == KindString && b.Kind == KindString:
		return strings.Compare(a.S, b.S), nil
	}
	return 0, fmt.Errorf("cannot order %s and %s", a.Kind, b.Kind)
}

// FormatList renders values as a list literal.
func FormatList(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
