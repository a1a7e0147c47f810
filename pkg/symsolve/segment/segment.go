// Package segment splits logic-program text into named segments keyed by
// header labels such as "Facts:" or "Constraints:".
package segment

import (
	"fmt"
	"strings"

	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
)

// CommentMarker separates a statement from its natural-language comment.
const CommentMarker = ":::"

// Line is one non-blank line of a segment.
type Line struct {
	Raw     string // trimmed source line, comment included
	Logic   string // statement with the comment removed
	Comment string
}

// ParseLine splits a raw line into statement and comment.
func ParseLine(raw string) Line {
	raw = strings.TrimSpace(raw)
	logic, comment, _ := strings.Cut(raw, CommentMarker)
	return Line{
		Raw:     raw,
		Logic:   strings.TrimSpace(logic),
		Comment: strings.TrimSpace(comment),
	}
}

// SplitLines turns a segment body into lines, dropping blank ones.
func SplitLines(body string) []Line {
	var out []Line
	for _, raw := range strings.Split(body, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		out = append(out, ParseLine(raw))
	}
	return out
}

// MissingError reports a header keyword that does not occur in the program.
type MissingError struct {
	Keyword string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("segment %q not found", e.Keyword)
}

func (e *MissingError) Unwrap() error { return internalerr.ErrMissingSegment }

// Segments holds the bodies found by Split.
type Segments struct {
	bodies  map[string][]Line
	missing []string
}

// Split searches keywords in the given order. Each keyword consumes its first
// occurrence in the remaining text: what follows it becomes the segment body,
// what precedes it is searched for the next keyword. Callers list keywords
// from the last header to the first.
func Split(text string, keywords ...string) *Segments {
	s := &Segments{bodies: make(map[string][]Line, len(keywords))}
	remaining := text
	for _, kw := range keywords {
		before, after, found := strings.Cut(remaining, kw)
		if !found {
			s.missing = append(s.missing, kw)
			continue
		}
		s.bodies[kw] = SplitLines(after)
		remaining = before
	}
	return s
}

// Has reports whether keyword was present.
func (s *Segments) Has(keyword string) bool {
	_, ok := s.bodies[keyword]
	return ok
}

// Lines returns the lines under keyword, or a *MissingError.
func (s *Segments) Lines(keyword string) ([]Line, error) {
	lines, ok := s.bodies[keyword]
	if !ok {
		return nil, &MissingError{Keyword: keyword}
	}
	return lines, nil
}

// Missing lists the keywords that were not found, in search order.
func (s *Segments) Missing() []string {
	return append([]string(nil), s.missing...)
}

// Logic returns the statement part of every line.
func Logic(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Logic
	}
	return out
}
