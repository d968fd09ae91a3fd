package csv

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"
)

// ReadTable decodes all of r into an in memory Arrow table. Column names come
// from ro (explicit or autogenerated) or from the first row after the skipped
// rows. Columns are typed according to co and decoded as strings otherwise.
// The caller must Release the returned table.
func ReadTable(r io.Reader, ro ReadOptions, po ParseOptions, co ConvertOptions, mem memory.Allocator) (arrow.Table, error) {
	if err := po.Validate(); err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading")
	}

	// The decoder only understands '"' as a quote, so any other quote
	// character is swapped with '"' before decoding and swapped back in the
	// decoded strings.
	q := quoter(po.QuoteChar)
	data = q.swapBytes(data)
	comma, comment := q.swapRune(po.Delimiter), q.swapRune(po.Comment)

	data, err = skipRows(data, ro.SkipRows, comma, comment)
	if err != nil {
		return nil, err
	}
	names, body, err := header(data, ro, comma, comment, po.LazyQuotes)
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		names[i] = q.restoreString(n)
	}
	schema, err := tableSchema(names, co)
	if err != nil {
		return nil, err
	}

	opts := []csv.Option{
		csv.WithAllocator(mem),
		csv.WithComma(comma),
		csv.WithHeader(false),
		csv.WithChunk(ro.ChunkSize),
		csv.WithLazyQuotes(po.LazyQuotes),
		csv.WithNullReader(co.StringsCanBeNull, co.NullValues...),
	}
	if comment != 0 {
		opts = append(opts, csv.WithComment(comment))
	}
	rdr := csv.NewReader(bytes.NewReader(body), schema, opts...)
	defer rdr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rdr.Err(); err != nil {
		return nil, errors.Wrap(err, "decoding")
	}
	if q.active() {
		for i, rec := range recs {
			recs[i] = q.restoreRecord(rec, mem)
			rec.Release()
		}
	}
	return array.NewTableFromRecords(schema, recs), nil
}

// skipRows drops the first n records of data. A quoted field may span lines,
// so a record is not always a single line. Skipped rows may have any number
// of fields and stray quotes.
func skipRows(data []byte, n int, comma, comment rune) ([]byte, error) {
	if n <= 0 {
		return data, nil
	}
	r := stdcsv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.Comment = comment
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	for ; n > 0; n-- {
		_, err := r.Read()
		if err == io.EOF {
			return nil, nil
		} else if err != nil {
			return nil, errors.Wrap(err, "skipping rows")
		}
	}
	return data[r.InputOffset():], nil
}

// header determines the column names and returns them along with the part of
// data which holds the rows.
func header(data []byte, ro ReadOptions, comma, comment rune, lazy bool) (names []string, body []byte, err error) {
	if len(ro.ColumnNames) > 0 {
		return append([]string(nil), ro.ColumnNames...), data, nil
	}
	r := stdcsv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.Comment = comment
	r.LazyQuotes = lazy
	r.FieldsPerRecord = -1
	first, err := r.Read()
	if err == io.EOF {
		return nil, nil, errors.New("empty csv file")
	} else if err != nil {
		return nil, nil, errors.Wrap(err, "reading header")
	}
	if ro.AutogenerateColumnNames {
		names = make([]string, len(first))
		for i := range first {
			names[i] = fmt.Sprintf("f%d", i)
		}
		return names, data, nil
	}
	return first, data[r.InputOffset():], nil
}

func tableSchema(names []string, co ConvertOptions) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		var dt arrow.DataType = arrow.BinaryTypes.String
		if t, ok := co.ColumnTypes[name]; ok && t != nil {
			if !supportedType(t) {
				return nil, errors.Wrapf(ErrInvalidOptions, "column %s has unsupported type %v", name, t)
			}
			dt = t
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// quoter swaps its quote character with '"'. The swap is its own inverse. The
// quote character is a single ASCII byte, which never occurs inside a multi
// byte UTF-8 sequence, so swapping bytes is safe.
type quoter byte

func (q quoter) active() bool { return q != '"' }

func (q quoter) swapByte(b byte) byte {
	switch b {
	case byte(q):
		return '"'
	case '"':
		return byte(q)
	}
	return b
}

func (q quoter) swapBytes(data []byte) []byte {
	if !q.active() {
		return data
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = q.swapByte(b)
	}
	return out
}

func (q quoter) swapRune(r rune) rune {
	if !q.active() || r > 0x7f {
		return r
	}
	return rune(q.swapByte(byte(r)))
}

func (q quoter) restoreString(s string) string {
	if !q.active() {
		return s
	}
	return strings.Map(q.swapRune, s)
}

// restoreRecord returns a copy of rec with every string value swapped back.
func (q quoter) restoreRecord(rec arrow.Record, mem memory.Allocator) arrow.Record {
	cols := make([]arrow.Array, rec.NumCols())
	for i, col := range rec.Columns() {
		switch c := col.(type) {
		case *array.String:
			b := array.NewStringBuilder(mem)
			for j := 0; j < c.Len(); j++ {
				if c.IsNull(j) {
					b.AppendNull()
					continue
				}
				b.Append(q.restoreString(c.Value(j)))
			}
			cols[i] = b.NewArray()
			b.Release()
		case *array.LargeString:
			b := array.NewLargeStringBuilder(mem)
			for j := 0; j < c.Len(); j++ {
				if c.IsNull(j) {
					b.AppendNull()
					continue
				}
				b.Append(q.restoreString(c.Value(j)))
			}
			cols[i] = b.NewArray()
			b.Release()
		default:
			col.Retain()
			cols[i] = col
		}
	}
	ret := array.NewRecord(rec.Schema(), cols, rec.NumRows())
	for _, c := range cols {
		c.Release()
	}
	return ret
}
