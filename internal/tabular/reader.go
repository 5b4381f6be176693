// Package tabular opens CSV and TSV templates for the converter.
//
// It owns everything about the file that is not the template language:
// picking the delimiter, skipping a UTF-8 byte order mark, decoding legacy
// single-byte charsets, and refusing files larger than the cell limit.
// The result is an *encoding/csv.Reader, which satisfies core.RowReader.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/pifcsv/internal/core"
)

// DefaultCellLimit is the largest rows x columns product accepted by default.
const DefaultCellLimit = 10_000_001

// sniffSize is how much of the input is inspected for charset and delimiter.
const sniffSize = 64 << 10

// Options control how a template is read.
type Options struct {
	// Charset is auto, utf-8, latin-1, mac-roman or windows-1252.
	Charset string
	// CellLimit caps data rows times header columns. Zero disables the check.
	CellLimit int
}

// File is an opened template. Close releases the underlying file.
type File struct {
	*csv.Reader
	Name string
	f    *os.File
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Open opens the template at path.
func Open(path string, opts Options) (*File, error) {
	if _, err := Delimiter(path, nil); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	r, err := FromReadSeeker(f, path, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{Reader: r, Name: path, f: f}, nil
}

// FromReadSeeker reads a template from rs. When a cell limit is set the
// input is scanned once to enforce it and then rewound.
func FromReadSeeker(rs io.ReadSeeker, name string, opts Options) (*csv.Reader, error) {
	if opts.CellLimit > 0 {
		r, err := NewReader(rs, name, opts)
		if err != nil {
			return nil, err
		}
		if err := CheckCellLimit(r, opts.CellLimit); err != nil {
			return nil, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind %s: %w", name, err)
		}
	}
	return NewReader(rs, name, opts)
}

// NewReader wraps r in a CSV reader configured for the template's delimiter
// and charset. name is only used for its extension and in errors.
func NewReader(r io.Reader, name string, opts Options) (*csv.Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	sample, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	comma, err := Delimiter(name, firstLine(sample))
	if err != nil {
		return nil, err
	}
	dec, err := decoderFor(opts.Charset, sample)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decode(br, dec))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr, nil
}

// Delimiter picks the field separator from the file extension. .tsv files
// are tab separated. .csv files (and names without an extension, such as
// stdin) are comma separated unless the first line has tabs and no commas.
func Delimiter(name string, firstLine []byte) (rune, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".tsv":
		return '\t', nil
	case ".csv", "":
		if bytes.IndexByte(firstLine, '\t') >= 0 && bytes.IndexByte(firstLine, ',') < 0 {
			return '\t', nil
		}
		return ',', nil
	default:
		return 0, &core.ConversionError{
			Kind:    core.KindFile,
			Code:    "FILE002",
			Message: fmt.Sprintf("unsupported file type %q", ext),
			Action:  "Save the template as .csv or .tsv",
		}
	}
}

func firstLine(sample []byte) []byte {
	sample = bytes.TrimPrefix(sample, utf8BOM)
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}
	return bytes.TrimSuffix(sample, []byte{'\r'})
}

// CheckCellLimit reads every row and fails once data rows times header
// columns exceeds limit.
func CheckCellLimit(rows core.RowReader, limit int) error {
	header, err := rows.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	width := len(header)
	n := 0
	for {
		_, err := rows.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("count cells: %w", err)
		}
		n++
		if n*width > limit {
			return &core.ConversionError{
				Kind:    core.KindFile,
				Code:    "FILE006",
				Message: fmt.Sprintf("this converter only supports up to %d cells (rows x columns)", limit),
				Action:  "Split the template into smaller files and convert them separately",
			}
		}
	}
}
