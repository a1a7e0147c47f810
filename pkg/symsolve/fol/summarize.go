package fol

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	clauseLine = regexp.MustCompile(`^(\d+) (.+?)\.\s+\[(.*)\]\.$`)
	clauseRef  = regexp.MustCompile(`\b\d+\b`)
	spaceRun   = regexp.MustCompile(`\s+`)
)

// Summarize reduces a Prover9-style log to its numbered clause lines.
// Search banners, "given #" selections and comment lines are dropped,
// clauses that repeat an earlier clause are merged into it, the survivors
// are renumbered from 1 and the references in their justifications follow.
func Summarize(log string) []string {
	type entry struct {
		clause string
		just   string
	}
	var entries []entry
	renumber := make(map[string]string)
	byText := make(map[string]string)

	for _, raw := range strings.Split(log, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "given #") || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "=") {
			continue
		}
		m := clauseLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, clause, just := m[1], m[2], m[3]
		key := spaceRun.ReplaceAllString(clause, " ")
		if first, dup := byText[key]; dup {
			renumber[id] = first
			continue
		}
		n := strconv.Itoa(len(entries) + 1)
		byText[key] = n
		renumber[id] = n
		entries = append(entries, entry{clause: clause, just: just})
	}

	out := make([]string, len(entries))
	for i, e := range entries {
		just := clauseRef.ReplaceAllStringFunc(e.just, func(ref string) string {
			if n, ok := renumber[ref]; ok {
				return n
			}
			return ref
		})
		out[i] = strconv.Itoa(i+1) + " " + e.clause + ".  [" + just + "]."
	}
	return out
}
