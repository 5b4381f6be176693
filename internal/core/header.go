package core

import (
	"fmt"
	"regexp"
	"strings"
)

// MainSystem is the subsystem key of the row's root system.
const MainSystem = "main"

// Keyword is the normalized form of a header keyword.
type Keyword string

const (
	KeywordName                  Keyword = "name"
	KeywordFormula               Keyword = "formula"
	KeywordUID                   Keyword = "uid"
	KeywordContact               Keyword = "contact"
	KeywordReference             Keyword = "reference"
	KeywordFile                  Keyword = "file"
	KeywordIdentifier            Keyword = "identifier"
	KeywordClassification        Keyword = "classification"
	KeywordProperty              Keyword = "property"
	KeywordCondition             Keyword = "condition"
	KeywordAllCondition          Keyword = "allcondition"
	KeywordMethod                Keyword = "method"
	KeywordFigureNumber          Keyword = "figurenumber"
	KeywordFigureCaption         Keyword = "figurecaption"
	KeywordTableNumber           Keyword = "tablenumber"
	KeywordTableCaption          Keyword = "tablecaption"
	KeywordDataType              Keyword = "datatype"
	KeywordPreparationStepName   Keyword = "preparationstepname"
	KeywordProcessStepName       Keyword = "processstepname"
	KeywordPreparationStepDetail Keyword = "preparationstepdetail"
	KeywordProcessStepDetail     Keyword = "processstepdetail"
	KeywordComposition           Keyword = "composition"
	KeywordIdealComposition      Keyword = "idealcomposition"
	KeywordActualComposition     Keyword = "actualcomposition"
	KeywordIdealQuantity         Keyword = "idealquantity"
	KeywordActualQuantity        Keyword = "actualquantity"
)

// subsystemTokens are the keywords that may follow a subsystem prefix.
// uid, contact and allcondition are left out: they occur inside ordinary
// words ("fluid", "contacts", "small") and would split subsystem names.
var subsystemTokens = []string{
	"name", "formula", "reference", "file", "identifier", "classification",
	"property", "condition", "method", "figurenumber", "figurecaption",
	"tablenumber", "tablecaption", "datatype",
	"preparationstepname", "processstepname", "preparationstep", "processstep",
	"preparationstepdetail", "processstepdetail",
	"composition", "idealcomposition", "actualcomposition",
	"idealquantity", "actualquantity",
}

var keywordSplitter = func() *regexp.Regexp {
	re := regexp.MustCompile("(" + strings.Join(subsystemTokens, "|") + ")")
	re.Longest()
	return re
}()

// Column is one decoded header cell.
type Column struct {
	Index     int
	Header    string
	Unit      string
	Keyword   string
	Kind      Keyword
	Subsystem string
	Name      string
	// Field is Name normalized; contact and reference columns use it to pick
	// the record field they fill.
	Field string
}

// field returns the normalized display name, computing it for columns built
// without DecodeHeader.
func (c Column) field() string {
	if c.Field != "" {
		return c.Field
	}
	return Normalize(c.Name)
}

// Known reports whether the column's keyword is part of the vocabulary.
// Cells under unknown columns are skipped.
func (c Column) Known() bool {
	return knownKeyword(c.Kind)
}

// Header is the decoded header row.
type Header struct {
	Columns    []Column
	subsystems []string
}

// Subsystems returns the subsystem keys in first-seen order, MainSystem first.
func (h *Header) Subsystems() []string {
	return h.subsystems
}

// Unknown returns the 1-based positions of columns whose keyword has no
// handler.
func (h *Header) Unknown() []int {
	var out []int
	for _, c := range h.Columns {
		if !knownKeyword(c.Kind) {
			out = append(out, c.Index+1)
		}
	}
	return out
}

// DecodeHeaders decodes a full header row.
func DecodeHeaders(cells []string) (*Header, error) {
	h := &Header{
		Columns:    make([]Column, 0, len(cells)),
		subsystems: []string{MainSystem},
	}
	seen := map[string]bool{MainSystem: true}

	for i, cell := range cells {
		col, err := DecodeHeader(cell)
		if err != nil {
			return nil, atColumn(err, i)
		}
		col.Index = i
		h.Columns = append(h.Columns, col)

		if !seen[col.Subsystem] {
			seen[col.Subsystem] = true
			h.subsystems = append(h.subsystems, col.Subsystem)
		}
	}
	return h, nil
}

// DecodeHeader decodes a single header cell. The returned column has Index 0.
func DecodeHeader(cell string) (Column, error) {
	unit, rest := ExtractUnit(cell)
	keyword, subsystem, name, err := ExtractKeyword(rest)
	if err != nil {
		return Column{}, err
	}
	return Column{
		Header:    cell,
		Unit:      unit,
		Keyword:   keyword,
		Kind:      Keyword(Normalize(keyword)),
		Subsystem: subsystem,
		Name:      name,
		Field:     Normalize(name),
	}, nil
}

type parenGroup struct {
	open, close int
}

// topLevelGroups returns the outermost balanced parenthesis groups of s,
// ignoring backslash-escaped parens.
func topLevelGroups(s string) []parenGroup {
	var groups []parenGroup
	depth, open := 0, -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			if depth == 0 {
				open = i
			}
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				groups = append(groups, parenGroup{open, i})
			}
		}
	}
	return groups
}

// doubled reports whether g is a ((...)) meta-comment group.
func (g parenGroup) doubled(s string) bool {
	inner := s[g.open+1 : g.close]
	groups := topLevelGroups(inner)
	return len(groups) == 1 && groups[0].open == 0 && groups[0].close == len(inner)-1
}

var escapedParen = strings.NewReplacer(`\(`, "(", `\)`, ")")

// ExtractUnit pulls the unit out of a header cell. The unit is the content of
// the last top-level parenthesis group; doubled groups "((note))" are kept in
// the header as "(note)". Without a unit the header comes back trimmed.
func ExtractUnit(header string) (unit, rest string) {
	groups := topLevelGroups(header)
	found := -1
	for i := len(groups) - 1; i >= 0; i-- {
		if !groups[i].doubled(header) {
			found = i
			break
		}
	}
	if found < 0 {
		return "", strings.TrimSpace(header)
	}

	g := groups[found]
	unit = escapedParen.Replace(header[g.open+1 : g.close])
	rest = escapedParen.Replace(header[:g.open] + header[g.close+1:])

	for strings.Contains(rest, "  ") {
		rest = strings.ReplaceAll(rest, "  ", " ")
	}
	for strings.Contains(rest, "((") || strings.Contains(rest, "))") {
		rest = strings.ReplaceAll(rest, "((", "(")
		rest = strings.ReplaceAll(rest, "))", ")")
	}
	return unit, strings.TrimSpace(rest)
}

// ExtractKeyword splits "KEYWORD: display name" and resolves a subsystem
// prefix. The subsystem is MainSystem when the keyword does not mention
// "system".
func ExtractKeyword(text string) (keyword, subsystem, name string, err error) {
	if n := strings.Count(text, ":"); n > 2 {
		return "", "", "", &ConversionError{
			Kind:    KindHeader,
			Code:    "HDR001",
			Message: fmt.Sprintf("header %q contains %d colons", text, n),
			Action:  "Header cells may contain one colon between the keyword and the display name, and one more after the name",
		}
	}

	keyword = text
	if i := strings.IndexByte(text, ':'); i >= 0 {
		keyword = text[:i]
		name = text[i+1:]
		if j := strings.IndexByte(name, ':'); j >= 0 {
			name = name[:j]
		}
	}

	subsystem = MainSystem
	if strings.Contains(Normalize(keyword), "system") {
		pieces := SplitOnKeyword(keyword)
		if len(pieces) < 2 {
			return "", "", "", &ConversionError{
				Kind:    KindHeader,
				Code:    "HDR003",
				Message: fmt.Sprintf("subsystem header %q has no recognized keyword", text),
				Action:  "Follow the subsystem label with a keyword, e.g. SUBSYSTEM A PROPERTY: Hardness",
			}
		}
		subsystem = pieces[0]
		keyword = pieces[1]
	}

	return strings.TrimSpace(keyword), subsystem, strings.TrimSpace(name), nil
}

// SplitOnKeyword normalizes text and splits it around every vocabulary
// keyword, keeping the keywords: "SUBSYSTEM A PROPERTY" becomes
// ["subsystema", "property", ""]. Text with no keyword is returned as a
// single normalized piece.
func SplitOnKeyword(text string) []string {
	norm := Normalize(text)
	matches := keywordSplitter.FindAllStringIndex(norm, -1)
	if len(matches) == 0 {
		return []string{norm}
	}

	pieces := make([]string, 0, 2*len(matches)+1)
	prev := 0
	for _, m := range matches {
		pieces = append(pieces, norm[prev:m[0]], norm[m[0]:m[1]])
		prev = m[1]
	}
	return append(pieces, norm[prev:])
}
