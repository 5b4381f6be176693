package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// ContextCheckInterval is how many rows are read between context checks.
const ContextCheckInterval = 100

// RowReader yields table rows. *encoding/csv.Reader satisfies it.
type RowReader interface {
	Read() ([]string, error)
}

// linePositioner is implemented by *encoding/csv.Reader.
type linePositioner interface {
	FieldPos(field int) (line, column int)
}

// Option configures a Converter.
type Option func(*Converter)

// WithPropertyMerge merges repeated properties in every converted system.
func WithPropertyMerge() Option {
	return func(c *Converter) { c.merge = true }
}

// WithContext stops the stream once ctx is done.
func WithContext(ctx context.Context) Option {
	return func(c *Converter) { c.ctx = ctx }
}

// Converter pulls rows from a RowReader and yields one record per data row.
// The first non-empty row is the header. The stream stops at the first
// error.
//
//	conv := core.NewConverter(r)
//	for conv.Next() {
//		use(conv.Record())
//	}
//	if err := conv.Err(); err != nil { ... }
type Converter struct {
	src    RowReader
	ctx    context.Context
	merge  bool
	header *Header
	record *Record
	rows   int
	err    error
	done   bool
}

// NewConverter returns a converter reading from src.
func NewConverter(src RowReader, opts ...Option) *Converter {
	c := &Converter{src: src, ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Header returns the decoded header, or nil before it has been read.
func (c *Converter) Header() *Header {
	return c.header
}

// Record returns the record produced by the last successful Next.
func (c *Converter) Record() *Record {
	return c.record
}

// Err returns the error that ended the stream, if any.
func (c *Converter) Err() error {
	return c.err
}

// Next advances to the next record.
func (c *Converter) Next() bool {
	if c.done {
		return false
	}
	c.record = nil

	for {
		c.rows++
		if c.rows%ContextCheckInterval == 0 {
			if err := c.ctx.Err(); err != nil {
				return c.fail(err)
			}
		}

		row, err := c.src.Read()
		if errors.Is(err, io.EOF) {
			c.done = true
			return false
		}
		if err != nil {
			return c.fail(fmt.Errorf("read row %d: %w", c.rows, err))
		}
		if blankRow(row) {
			continue
		}

		line := c.line()
		if c.header == nil {
			h, err := DecodeHeaders(row)
			if err != nil {
				return c.fail(atLine(err, line))
			}
			c.header = h
			continue
		}

		rec, err := BuildRecord(c.header, row)
		if err != nil {
			return c.fail(atLine(err, line))
		}
		if c.merge {
			mergeSystem(rec.System)
		}
		rec.Line = line
		c.record = rec
		return true
	}
}

func (c *Converter) fail(err error) bool {
	c.err = err
	c.done = true
	return false
}

// line reports the source line of the row just read. Readers that cannot
// report positions fall back to the row count, which differs only when
// quoted cells span lines.
func (c *Converter) line() int {
	if lp, ok := c.src.(linePositioner); ok {
		if line, _ := lp.FieldPos(0); line > 0 {
			return line
		}
	}
	return c.rows
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ReadHeader reads up to the first non-blank row of src and decodes it
// without converting any data rows. It returns a nil header for empty input.
func ReadHeader(src RowReader) (*Header, error) {
	c := NewConverter(src)
	for {
		c.rows++
		row, err := src.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", c.rows, err)
		}
		if blankRow(row) {
			continue
		}
		h, err := DecodeHeaders(row)
		if err != nil {
			return nil, atLine(err, c.line())
		}
		return h, nil
	}
}

// Records adapts a Converter to a range-over-func sequence. A failure is
// yielded once, as the last element, with a nil record.
func Records(src RowReader, opts ...Option) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		c := NewConverter(src, opts...)
		for c.Next() {
			if !yield(c.Record(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(nil, err)
		}
	}
}
