package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"This is a Test 123 *_-", "thisisatest123_"},
		{"PROPERTY", "property"},
		{"Preparation Step Name", "preparationstepname"},
		{"  e-mail ", "email"},
		{"Größe", "größe"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestIsList(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"[1, 2, 3, 4]", true},
		{"[a,b]", true},
		{"[1]", false},
		{"[]", false},
		{"1, 2", false},
		{"[1, 2", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsList(tt.input); got != tt.want {
				t.Errorf("IsList(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"[1, 2, 3, 4]", []string{"1", "2", "3", "4"}},
		{`["a, b", c]`, []string{"a, b", "c"}},
		{"[ x ,y ]", []string{"x", "y"}},
		{`["x" , y]`, []string{"x", "y"}},
		{`["a" ,"b"]`, []string{"a", "b"}},
		{`["Fe", "Cu" ]`, []string{"Fe", "Cu"}},
		{`[" spaced ", 2]`, []string{" spaced ", "2"}},
		{"[a,,b]", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseList(tt.input))
		})
	}
}

func TestParseCell(t *testing.T) {
	c := ParseCell("[1, 2]")
	assert.True(t, c.List)
	assert.Equal(t, []string{"1", "2"}, c.Values)

	c = ParseCell("1200")
	assert.False(t, c.List)
	assert.Equal(t, []string{"1200"}, c.Values)
	assert.False(t, c.Empty())

	assert.True(t, ParseCell("").Empty())
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input   string
		wantMin float64
		wantMax float64
	}{
		{"range(+140, 165)", 140, 165},
		{"range(-.165E3, -14000E-2)", -165, -140},
		{"RANGE( 1.5 , 2 )", 1.5, 2},
		{"range(0,1e3)", 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lo, hi, err := ParseRange(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantMin, lo, 1e-9)
			assert.InDelta(t, tt.wantMax, hi, 1e-9)
		})
	}
}

func TestParseRange_Errors(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
	}{
		{"range(+.165E3, -14000E-2)", "VAL002"},
		{"range(5, 5)", "VAL002"},
		{"range(a, b)", "VAL001"},
		{"range(1, 2", "VAL001"},
		{"range(1)", "VAL001"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, _, err := ParseRange(tt.input)
			ce, ok := AsConversionError(err)
			require.True(t, ok, "want *ConversionError, got %v", err)
			assert.Equal(t, KindValue, ce.Kind)
			assert.Equal(t, tt.wantCode, ce.Code)
		})
	}
}

func TestIsRangeLiteral(t *testing.T) {
	assert.True(t, IsRangeLiteral(" Range(1, 2)"))
	assert.False(t, IsRangeLiteral("1200"))
	assert.False(t, IsRangeLiteral("ranged"))
}
