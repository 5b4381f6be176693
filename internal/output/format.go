// Package output serializes converted records.
package output

import (
	"fmt"
	"sort"
	"strings"
)

// Format identifies a record serialization.
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
)

// FormatInfo provides metadata about an output format.
type FormatInfo struct {
	Name        Format
	MIMEType    string
	Extension   string
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "JSON array of records, indented",
	},
	FormatNDJSON: {
		Name:        FormatNDJSON,
		MIMEType:    "application/x-ndjson",
		Extension:   ".ndjson",
		Description: "One compact JSON record per line",
	},
	FormatYAML: {
		Name:        FormatYAML,
		MIMEType:    "application/yaml",
		Extension:   ".yaml",
		Description: "One YAML document per record",
	},
}

// ParseFormat resolves a format name case-insensitively. "yml" and "jsonl"
// are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case "yml":
		return FormatYAML, nil
	case "jsonl":
		return FormatNDJSON, nil
	default:
		if _, ok := FormatRegistry[f]; ok {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(FormatNames(), ", "))
}

// FormatNames returns the registered format names in sorted order.
func FormatNames() []string {
	names := make([]string, 0, len(FormatRegistry))
	for f := range FormatRegistry {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// OutputPath derives the output file for an input template:
// "data/steel.csv" becomes "data/steel-pif.json".
func OutputPath(input string, f Format) string {
	base := input
	if i := strings.LastIndexByte(base, '.'); i > strings.LastIndexAny(base, `/\`) {
		base = base[:i]
	}
	return base + "-pif" + FormatRegistry[f].Extension
}
