package csv

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// ErrInvalidOptions is returned when read, parse, or convert options can't be
// used to decode a file.
const ErrInvalidOptions = dlk.Error("invalid csv options")

// DefaultChunkSize is the default number of rows decoded into each record
// batch of a table.
const DefaultChunkSize = 1024

// ReadOptions control how raw rows are chunked and named.
type ReadOptions struct {
	// SkipRows is the number of rows skipped at the start of each file,
	// before the header (if any). A row with a quoted line break counts
	// once, and blank lines are not rows.
	SkipRows int

	// ColumnNames, if non-empty, are used as the column names and the first
	// row is treated as data.
	ColumnNames []string

	// AutogenerateColumnNames names columns f0, f1, ... and treats the first
	// row as data. Ignored if ColumnNames is set.
	AutogenerateColumnNames bool

	// ChunkSize is the number of rows per record batch. Negative means the
	// whole file is decoded into a single batch.
	ChunkSize int
}

// ParseOptions control how fields are delimited and quoted.
type ParseOptions struct {
	Delimiter  rune
	QuoteChar  rune
	LazyQuotes bool
	// Comment, if non-zero, marks lines which are skipped.
	Comment rune
}

// ConvertOptions control how text is converted to typed values.
type ConvertOptions struct {
	// ColumnTypes maps column names to Arrow types. Columns which aren't
	// listed are decoded as strings.
	ColumnTypes map[string]arrow.DataType

	// NullValues are the strings which decode to null.
	NullValues []string

	// StringsCanBeNull allows string columns to contain nulls. Otherwise
	// NullValues only apply to non-string columns.
	StringsCanBeNull bool
}

// DefaultReadOptions returns the ReadOptions used when none are given.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{ChunkSize: DefaultChunkSize}
}

// DefaultParseOptions returns the ParseOptions used when none are given.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Delimiter: ',', QuoteChar: '"'}
}

// DefaultConvertOptions returns the ConvertOptions used when none are given.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{NullValues: []string{"", "NULL", "null"}}
}

// ReadOverrides is a sparse set of ReadOptions fields. Nil fields are unset.
type ReadOverrides struct {
	SkipRows                *int
	ColumnNames             []string
	AutogenerateColumnNames *bool
}

// ParseOverrides is a sparse set of ParseOptions fields. Nil fields are unset.
type ParseOverrides struct {
	Delimiter *rune
	QuoteChar *rune
}

// MergeReadOptions returns base with every set field of o applied. base is
// not modified.
func MergeReadOptions(base ReadOptions, o ReadOverrides) ReadOptions {
	ret := base.clone()
	if o.SkipRows != nil {
		ret.SkipRows = *o.SkipRows
	}
	if o.ColumnNames != nil {
		ret.ColumnNames = append([]string(nil), o.ColumnNames...)
	}
	if o.AutogenerateColumnNames != nil {
		ret.AutogenerateColumnNames = *o.AutogenerateColumnNames
	}
	return ret
}

// MergeParseOptions returns base with every set field of o applied.
func MergeParseOptions(base ParseOptions, o ParseOverrides) ParseOptions {
	if o.Delimiter != nil {
		base.Delimiter = *o.Delimiter
	}
	if o.QuoteChar != nil {
		base.QuoteChar = *o.QuoteChar
	}
	return base
}

func (r ReadOptions) clone() ReadOptions {
	if r.ColumnNames != nil {
		r.ColumnNames = append([]string(nil), r.ColumnNames...)
	}
	return r
}

func (c ConvertOptions) clone() ConvertOptions {
	if c.ColumnTypes != nil {
		types := make(map[string]arrow.DataType, len(c.ColumnTypes))
		for k, v := range c.ColumnTypes {
			types[k] = v
		}
		c.ColumnTypes = types
	}
	if c.NullValues != nil {
		c.NullValues = append([]string(nil), c.NullValues...)
	}
	return c
}

// Validate checks that p can be handed to the csv decoder.
func (p ParseOptions) Validate() error {
	if !validSeparator(p.Delimiter) {
		return errors.Wrapf(ErrInvalidOptions, "delimiter %q", p.Delimiter)
	}
	if p.QuoteChar == 0 || p.QuoteChar > unicode.MaxASCII || p.QuoteChar == '\r' || p.QuoteChar == '\n' {
		return errors.Wrapf(ErrInvalidOptions, "quote character %q must be a single byte", p.QuoteChar)
	}
	if p.Delimiter == p.QuoteChar {
		return errors.Wrapf(ErrInvalidOptions, "delimiter and quote character are both %q", p.Delimiter)
	}
	if p.Comment != 0 && (!validSeparator(p.Comment) || p.Comment == p.Delimiter || p.Comment == p.QuoteChar) {
		return errors.Wrapf(ErrInvalidOptions, "comment character %q", p.Comment)
	}
	return nil
}

func validSeparator(r rune) bool {
	return r != 0 && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// supportedType reports whether the csv decoder knows how to parse into dt.
func supportedType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.BOOL,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.STRING, arrow.LARGE_STRING,
		arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return true
	}
	return false
}

// Int returns a pointer to v, for setting optional Config fields.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for setting optional Config fields.
func Bool(v bool) *bool { return &v }

// Rune returns a pointer to v, for setting optional Config fields.
func Rune(v rune) *rune { return &v }

func (p ParseOptions) String() string {
	return fmt.Sprintf("delimiter=%q quote=%q lazy=%v comment=%q", p.Delimiter, p.QuoteChar, p.LazyQuotes, p.Comment)
}
