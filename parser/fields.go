package parser

import "strings"

// Line prefixes of the results block.
const (
	PrefixTime          = "Time:"
	PrefixEstimatedTime = "Estimated time:"
	Prefix3BV           = "3BV:"
	Prefix3BVPerSec     = "3BV/sec:"
	PrefixClicks        = "Clicks:"
	PrefixEfficiency    = "Efficiency:"
)

// Lines is a results block split into trimmed lines, in display order.
type Lines []string

// Field is the outcome of looking up one prefix. Present is false when no
// line matched.
type Field struct {
	Prefix  string
	Line    string
	Present bool
}

// Value returns the text following the prefix.
func (f Field) Value() string {
	return strings.TrimSpace(strings.TrimPrefix(f.Line, f.Prefix))
}

// SplitLines splits a results block into lines.
func SplitLines(text string) Lines {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	lines := make(Lines, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

// Find returns the first line starting with prefix. Matching is case-sensitive.
func (l Lines) Find(prefix string) Field {
	for _, line := range l {
		if strings.HasPrefix(line, prefix) {
			return Field{Prefix: prefix, Line: line, Present: true}
		}
	}
	return Field{Prefix: prefix}
}
