package core

// values.go normalizes cell text before dispatch:
//   - Normalize: case and punctuation insensitive comparison keys
//   - IsList/ParseList: the "[a, b]" list literal
//   - ParseRange: the "range(a, b)" numeric literal used by property cells

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// numberPattern matches integers, decimals, and scientific notation with an
// optional sign.
const numberPattern = `[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`

var rangeRegex = regexp.MustCompile(`(?i)^range\(\s*(` + numberPattern + `)\s*,\s*(` + numberPattern + `)\s*\)$`)

// Normalize drops every non-word rune and lowercases the rest.
// Word runes are letters, numbers and underscore.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// stripNonWord drops non-word runes but keeps case.
func stripNonWord(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return -1
	}, s)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// IsList reports whether s is a list literal: bracketed and containing at
// least one comma. "[1]" is not a list.
func IsList(s string) bool {
	return len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' && strings.Contains(s, ",")
}

// ParseList splits the inside of a list literal on commas outside double
// quotes. Elements are trimmed, then a surrounding pair of quotes is removed.
func ParseList(s string) []string {
	inner := s
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		inner = s[1 : len(s)-1]
	}

	var out []string
	var quoted bool
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				out = append(out, listItem(inner[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, listItem(inner[start:]))
}

func listItem(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

// Cell is one data cell after list detection.
type Cell struct {
	Raw    string
	Values []string
	List   bool
}

// ParseCell expands list literals; any other value is a one-element sequence.
func ParseCell(raw string) Cell {
	if IsList(raw) {
		return Cell{Raw: raw, Values: ParseList(raw), List: true}
	}
	return Cell{Raw: raw, Values: []string{raw}}
}

// Empty reports whether the cell holds no text.
func (c Cell) Empty() bool {
	return c.Raw == ""
}

// IsRangeLiteral reports whether s is written as range(...).
func IsRangeLiteral(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "range(")
}

// ParseRange parses range(a, b) into its bounds. The first bound must be
// strictly below the second.
func ParseRange(s string) (minimum, maximum float64, err error) {
	m := rangeRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, &ConversionError{
			Kind:    KindValue,
			Code:    "VAL001",
			Message: fmt.Sprintf("malformed range literal %q", s),
			Action:  "Write ranges as range(minimum, maximum) using plain or exponent notation",
		}
	}

	a, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse range bound %q: %w", m[1], err)
	}
	b, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse range bound %q: %w", m[2], err)
	}

	if a >= b {
		return 0, 0, &ConversionError{
			Kind:    KindValue,
			Code:    "VAL002",
			Message: fmt.Sprintf("range %q has minimum %g not below maximum %g", s, a, b),
			Action:  "List the smaller bound first, e.g. range(140, 165)",
		}
	}

	return a, b, nil
}
