package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pifcsv/internal/core"
)

func TestDelimiter(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		firstLine string
		want      rune
	}{
		{"csv with commas", "a.csv", "NAME,FORMULA", ','},
		{"csv with tabs only", "a.csv", "NAME\tFORMULA", '\t'},
		{"csv with tabs and commas", "a.csv", "NAME\tPROPERTY: a, b", ','},
		{"tsv always tab", "a.TSV", "NAME,FORMULA", '\t'},
		{"stdin sniffed", "", "NAME\tFORMULA", '\t'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Delimiter(tt.file, []byte(tt.firstLine))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDelimiter_UnsupportedExtension(t *testing.T) {
	_, err := Delimiter("template.xlsx", nil)
	ce, ok := core.AsConversionError(err)
	require.True(t, ok)
	assert.Equal(t, "FILE002", ce.Code)
}

func readAll(t *testing.T, data []byte, name string, opts Options) [][]string {
	t.Helper()
	r, err := NewReader(bytes.NewReader(data), name, opts)
	require.NoError(t, err)
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestNewReader_Charsets(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, "NAME\nGröße\n"...), "auto", "Größe"},
		{"latin-1 fallback", []byte("NAME\nGr\xf6\xdfe\n"), "auto", "Größe"},
		{"explicit latin-1", []byte("NAME\nGr\xf6\xdfe\n"), "latin-1", "Größe"},
		{"mac roman", []byte("NAME\nM\x8arz\n"), "mac-roman", "März"},
		{"windows-1252", []byte("NAME\n\x80 5\n"), "windows-1252", "€ 5"},
		{"invalid utf-8 replaced", []byte("NAME\nA\xffB\n"), "utf-8", "A�B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := readAll(t, tt.data, "t.csv", Options{Charset: tt.charset})
			require.Len(t, rows, 2)
			assert.Equal(t, "NAME", rows[0][0])
			assert.Equal(t, tt.want, rows[1][0])
		})
	}
}

func TestNewReader_UnknownCharset(t *testing.T) {
	_, err := NewReader(strings.NewReader("NAME\n"), "t.csv", Options{Charset: "ebcdic"})
	ce, ok := core.AsConversionError(err)
	require.True(t, ok)
	assert.Equal(t, "FILE007", ce.Code)
}

func TestNewReader_TabSeparated(t *testing.T) {
	rows := readAll(t, []byte("NAME\tPROPERTY: Hardness (HV)\nP20\t1200\n"), "t.tsv", Options{})
	assert.Equal(t, [][]string{{"NAME", "PROPERTY: Hardness (HV)"}, {"P20", "1200"}}, rows)
}

func TestNewReader_RaggedRows(t *testing.T) {
	rows := readAll(t, []byte("NAME,FORMULA\nx\ny,Fe,extra\n"), "t.csv", Options{})
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 1)
	assert.Len(t, rows[2], 3)
}

func TestCheckCellLimit(t *testing.T) {
	data := "A,B\n1,2\n3,4\n5,6\n"

	r, err := NewReader(strings.NewReader(data), "t.csv", Options{})
	require.NoError(t, err)
	assert.NoError(t, CheckCellLimit(r, 6))

	r, err = NewReader(strings.NewReader(data), "t.csv", Options{})
	require.NoError(t, err)
	err = CheckCellLimit(r, 5)
	ce, ok := core.AsConversionError(err)
	require.True(t, ok)
	assert.Equal(t, "FILE006", ce.Code)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steel.csv")
	require.NoError(t, os.WriteFile(path, []byte("NAME\nP20\nH13\n"), 0o644))

	f, err := Open(path, Options{CellLimit: DefaultCellLimit})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3, "cell limit scan rewinds the file")

	_, err = Open(path, Options{CellLimit: 1})
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "steel.xlsx"), Options{})
	ce, ok := core.AsConversionError(err)
	require.True(t, ok)
	assert.Equal(t, "FILE002", ce.Code)
}
