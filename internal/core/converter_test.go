package core

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvReader(s string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	return r
}

func TestConverter_Stream(t *testing.T) {
	input := "NAME,PROPERTY: Hardness (HV)\n" +
		",\n" +
		"P20,1200\n" +
		"H13,\"[450, 460]\"\n"

	conv := NewConverter(csvReader(input))
	var recs []*Record
	for conv.Next() {
		recs = append(recs, conv.Record())
	}
	require.NoError(t, conv.Err())
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"P20"}, recs[0].System.Names)
	assert.Equal(t, 3, recs[0].Line)
	assert.Equal(t, []string{"450", "460"}, recs[1].System.Properties[0].Scalars.Values())
	assert.Equal(t, 4, recs[1].Line)

	require.NotNil(t, conv.Header())
	assert.Len(t, conv.Header().Columns, 2)
	assert.False(t, conv.Next(), "exhausted converter stays exhausted")
}

func TestConverter_WhitespaceRowsSkipped(t *testing.T) {
	input := "NAME,PROPERTY: Hardness (HV)\n" +
		"  ,\t\n" +
		"P20,1200\n"

	var lines []int
	for rec, err := range Records(csvReader(input)) {
		require.NoError(t, err)
		lines = append(lines, rec.Line)
	}
	assert.Equal(t, []int{3}, lines)
}

func TestConverter_LeadingBlankRowsBeforeHeader(t *testing.T) {
	input := ",,\n\nNAME,FORMULA\nx,Fe\n"
	var names []string
	for rec, err := range Records(csvReader(input)) {
		require.NoError(t, err)
		names = append(names, rec.System.Names...)
	}
	assert.Equal(t, []string{"x"}, names)
}

func TestConverter_EmptyInput(t *testing.T) {
	conv := NewConverter(csvReader(""))
	assert.False(t, conv.Next())
	assert.NoError(t, conv.Err())
	assert.Nil(t, conv.Header())
}

func TestConverter_FirstErrorStops(t *testing.T) {
	input := "NAME,FORMULA,FORMULA\n" +
		"a,,Fe\n" +
		"b,Fe,C\n" +
		"c,Cu,\n"

	var got []string
	var gotErr error
	for rec, err := range Records(csvReader(input)) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, rec.System.Names...)
	}

	assert.Equal(t, []string{"a"}, got)
	ce, ok := AsConversionError(gotErr)
	require.True(t, ok)
	assert.Equal(t, 3, ce.Line)
	assert.Equal(t, 3, ce.Column)
	assert.Equal(t, "DUP001", ce.Code)
	assert.Contains(t, ce.Error(), "line 3: column 3:")
}

func TestConverter_HeaderError(t *testing.T) {
	conv := NewConverter(csvReader("NAME,a:b:c:d\nx,y\n"))
	assert.False(t, conv.Next())
	ce, ok := AsConversionError(conv.Err())
	require.True(t, ok)
	assert.Equal(t, "HDR001", ce.Code)
	assert.Equal(t, 1, ce.Line)
	assert.Equal(t, 2, ce.Column)
}

func TestConverter_PropertyMerge(t *testing.T) {
	input := "PROPERTY: Hardness (HV),PROPERTY: Hardness (HV),PROPERTY: Hardness (HRC)\n" +
		"1200,1210,55\n"

	conv := NewConverter(csvReader(input), WithPropertyMerge())
	require.True(t, conv.Next())
	props := conv.Record().System.Properties
	require.Len(t, props, 2)
	assert.Equal(t, []string{"1200", "1210"}, props[0].Scalars.Values())
	assert.Equal(t, "HRC", props[1].Units)
}

func TestConverter_ContextCancelled(t *testing.T) {
	var b strings.Builder
	b.WriteString("NAME\n")
	for i := 0; i < 3*ContextCheckInterval; i++ {
		b.WriteString("x\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := NewConverter(csvReader(b.String()), WithContext(ctx))
	for conv.Next() {
	}
	assert.True(t, errors.Is(conv.Err(), context.Canceled))
}

type sliceReader struct {
	rows [][]string
	err  error
}

func (s *sliceReader) Read() ([]string, error) {
	if len(s.rows) == 0 {
		return nil, s.err
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

func TestConverter_ReaderError(t *testing.T) {
	readErr := errors.New("disk on fire")
	src := &sliceReader{rows: [][]string{{"NAME"}, {"x"}}, err: readErr}

	conv := NewConverter(src)
	require.True(t, conv.Next())
	assert.Equal(t, 2, conv.Record().Line, "falls back to row count")
	assert.False(t, conv.Next())
	assert.ErrorIs(t, conv.Err(), readErr)
}

func TestReadHeader(t *testing.T) {
	h, err := ReadHeader(csvReader(",,\nNAME,PROPERTY: Density (g/cc),SYSTEM A FORMULA\nx,this row is never built,\n"))
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Len(t, h.Columns, 3)
	assert.Equal(t, "g/cc", h.Columns[1].Unit)
	assert.Equal(t, []string{MainSystem, "systema"}, h.Subsystems())

	h, err = ReadHeader(csvReader(""))
	assert.NoError(t, err)
	assert.Nil(t, h)

	_, err = ReadHeader(csvReader("\n,\nNAME:a:b:c\n"))
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "HDR001", ce.Code)
	assert.Equal(t, 3, ce.Line)
}
