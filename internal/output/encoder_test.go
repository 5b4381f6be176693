package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

func sampleSystems() []*pif.System {
	return []*pif.System{
		{
			Names: []string{"P20"},
			Properties: []*pif.Property{
				{Name: "Hardness", Units: "HV", Scalars: pif.ScalarValues("1200")},
				{Name: "Yield", Scalars: pif.RangeScalar(140, 165)},
			},
		},
		{Names: []string{"H13"}, ChemicalFormula: "Fe"},
	}
}

func encodeAll(t *testing.T, f Format, systems []*pif.System) string {
	t.Helper()
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, f)
	require.NoError(t, err)
	for _, s := range systems {
		require.NoError(t, enc.Encode(s))
	}
	require.NoError(t, enc.Close())
	return buf.String()
}

func TestJSONArray(t *testing.T) {
	out := encodeAll(t, FormatJSON, sampleSystems())

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, []any{"P20"}, decoded[0]["names"])
	assert.Equal(t, "Fe", decoded[1]["chemicalFormula"])

	assert.True(t, strings.HasPrefix(out, "[\n  {\n    \"names\""), "indented two spaces:\n%s", out)
	assert.True(t, strings.HasSuffix(out, "\n]\n"))

	props := decoded[0]["properties"].([]any)
	yield := props[1].(map[string]any)["scalars"].([]any)[0].(map[string]any)
	assert.Equal(t, 140.0, yield["minimum"])
	assert.NotContains(t, yield, "value")
}

func TestJSONArray_Empty(t *testing.T) {
	assert.Equal(t, "[]\n", encodeAll(t, FormatJSON, nil))
}

func TestNDJSON(t *testing.T) {
	out := encodeAll(t, FormatNDJSON, sampleSystems())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)))
	}
}

func TestYAML(t *testing.T) {
	out := encodeAll(t, FormatYAML, sampleSystems())

	dec := yaml.NewDecoder(strings.NewReader(out))
	var docs []pif.System
	for {
		var s pif.System
		if err := dec.Decode(&s); err != nil {
			break
		}
		docs = append(docs, s)
	}
	require.Len(t, docs, 2)
	assert.Equal(t, "HV", docs[0].Properties[0].Units)
	assert.Equal(t, "Fe", docs[1].ChemicalFormula)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"JSON", FormatJSON},
		{"ndjson", FormatNDJSON},
		{"jsonl", FormatNDJSON},
		{"yml", FormatYAML},
		{"yaml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("xml")
	assert.ErrorContains(t, err, "json, ndjson, yaml")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "data/steel-pif.json", OutputPath("data/steel.csv", FormatJSON))
	assert.Equal(t, "steel-pif.yaml", OutputPath("steel.tsv", FormatYAML))
	assert.Equal(t, "v1.2/steel-pif.ndjson", OutputPath("v1.2/steel", FormatNDJSON))
}
