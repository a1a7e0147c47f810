package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var rangePattern = regexp.MustCompile(`^range\(\s*(-?\d+)\s*(?:,\s*(-?\d+)\s*)?(?:,\s*(-?\d+)\s*)?\)$`)

// ParseDomain parses a domain literal: a flow list such as [1, 2, 3] or
// ['red', 'blue'], or range(start, stop[, step]).
func ParseDomain(text string) ([]Value, error) {
	text = strings.TrimSpace(text)
	if m := rangePattern.FindStringSubmatch(text); m != nil {
		return parseRange(m)
	}
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("domain %q is not a list literal", text)
	}
	var raw []any
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("domain %q: %w", text, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("domain %q is empty", text)
	}
	out := make([]Value, 0, len(raw))
	for _, item := range raw {
		v, err := fromYAML(item)
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", text, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseRange(m []string) ([]Value, error) {
	nums := make([]int64, 0, 3)
	for _, s := range m[1:] {
		if s == "" {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		nums = append(nums, n)
	}
	start, stop, step := int64(0), nums[0], int64(1)
	if len(nums) >= 2 {
		start, stop = nums[0], nums[1]
	}
	if len(nums) == 3 {
		step = nums[2]
	}
	if step == 0 {
		return nil, fmt.Errorf("range step must not be zero")
	}
	var out []Value
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, Int(i))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("range is empty")
	}
	return out, nil
}

// ParseLiteral parses one scalar: 2, 2.5, true, 'red', "red" or a bare word.
func ParseLiteral(text string) (Value, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Value{}, fmt.Errorf("empty literal")
	}
	var raw any
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return Value{}, fmt.Errorf("literal %q: %w", text, err)
	}
	return fromYAML(raw)
}

func fromYAML(item any) (Value, error) {
	switch v := item.(type) {
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint64:
		return Int(int64(v)), nil
	case float64:
		return Float(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return Str(v), nil
	case nil:
		return Value{}, fmt.Errorf("null is not a domain value")
	default:
		return Value{}, fmt.Errorf("unsupported domain value %v (%T)", item, item)
	}
}
