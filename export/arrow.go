package export

import (
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// WriteTable writes tbl to w as an Arrow IPC file.
func WriteTable(w io.Writer, tbl arrow.Table, mem memory.Allocator) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(tbl.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return errors.Wrap(err, "creating ipc writer")
	}
	tr := array.NewTableReader(tbl, 0)
	defer tr.Release()
	for tr.Next() {
		if err := fw.Write(tr.Record()); err != nil {
			fw.Close()
			return errors.Wrap(err, "writing record batch")
		}
	}
	if err := tr.Err(); err != nil {
		fw.Close()
		return errors.Wrap(err, "reading table")
	}
	return errors.Wrap(fw.Close(), "closing ipc writer")
}

// DefaultBatchSize is the number of records ArrowWriter buffers per batch.
const DefaultBatchSize = 1024

// ArrowWriter writes records as Arrow IPC record batches.
type ArrowWriter struct {
	fw        *ipc.FileWriter
	rb        *array.RecordBuilder
	schema    *arrow.Schema
	batchSize int
	n         int
}

// NewArrowWriter returns an ArrowWriter for records described by features. A
// record batch is written every batchSize records (DefaultBatchSize if
// batchSize < 1) and on Close. Close does not close w.
func NewArrowWriter(w io.Writer, features dlk.Features, batchSize int, mem memory.Allocator) (*ArrowWriter, error) {
	schema, err := features.Schema()
	if err != nil {
		return nil, errors.Wrap(err, "deriving schema")
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return nil, errors.Wrap(err, "creating ipc writer")
	}
	return &ArrowWriter{
		fw:        fw,
		rb:        array.NewRecordBuilder(mem, schema),
		schema:    schema,
		batchSize: batchSize,
	}, nil
}

// Write implements RecordWriter. The key is not written.
func (a *ArrowWriter) Write(key int, rec map[string]interface{}) error {
	for i, f := range a.schema.Fields() {
		if err := appendValue(a.rb.Field(i), rec[f.Name]); err != nil {
			return errors.Wrapf(err, "record %d field %s", key, f.Name)
		}
	}
	a.n++
	if a.n >= a.batchSize {
		return a.flush()
	}
	return nil
}

func (a *ArrowWriter) flush() error {
	if a.n == 0 {
		return nil
	}
	rec := a.rb.NewRecord()
	defer rec.Release()
	a.n = 0
	return errors.Wrap(a.fw.Write(rec), "writing record batch")
}

// Close implements RecordWriter.
func (a *ArrowWriter) Close() error {
	defer a.rb.Release()
	if err := a.flush(); err != nil {
		a.fw.Close()
		return err
	}
	return errors.Wrap(a.fw.Close(), "closing ipc writer")
}

func appendValue(b array.Builder, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch b := b.(type) {
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return errors.Errorf("expected string, got %T", v)
		}
		b.Append(s)
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return errors.Errorf("expected bool, got %T", v)
		}
		b.Append(x)
	case *array.Int32Builder:
		x, ok := v.(int32)
		if !ok {
			return errors.Errorf("expected int32, got %T", v)
		}
		b.Append(x)
	case *array.Int64Builder:
		switch x := v.(type) {
		case int64:
			b.Append(x)
		case int:
			b.Append(int64(x))
		default:
			return errors.Errorf("expected int64, got %T", v)
		}
	case *array.Float32Builder:
		x, ok := v.(float32)
		if !ok {
			return errors.Errorf("expected float32, got %T", v)
		}
		b.Append(x)
	case *array.Float64Builder:
		x, ok := v.(float64)
		if !ok {
			return errors.Errorf("expected float64, got %T", v)
		}
		b.Append(x)
	case *array.ListBuilder:
		vb := b.ValueBuilder()
		switch vals := v.(type) {
		case []string:
			b.Append(true)
			for _, s := range vals {
				if err := appendValue(vb, s); err != nil {
					return err
				}
			}
		case []interface{}:
			b.Append(true)
			for _, x := range vals {
				if err := appendValue(vb, x); err != nil {
					return err
				}
			}
		default:
			return errors.Errorf("expected a list, got %T", v)
		}
	default:
		return errors.Errorf("unsupported builder %T", b)
	}
	return nil
}
