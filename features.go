package dlk

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/pkg/errors"
)

// Feature describes the type of one field of an emitted record.
type Feature interface {
	DataType() (arrow.DataType, error)
}

// Value is a scalar Feature named by its type, e.g. "string" or "int64".
type Value string

// DataType implements Feature.
func (v Value) DataType() (arrow.DataType, error) {
	switch v {
	case "string":
		return arrow.BinaryTypes.String, nil
	case "bool":
		return arrow.FixedWidthTypes.Boolean, nil
	case "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	default:
		return nil, errors.Errorf("unsupported value type '%s'", string(v))
	}
}

// Sequence is a variable length list of Feature.
type Sequence struct {
	Feature Feature
}

// DataType implements Feature.
func (s Sequence) DataType() (arrow.DataType, error) {
	elem, err := s.Feature.DataType()
	if err != nil {
		return nil, errors.Wrap(err, "sequence element")
	}
	return arrow.ListOf(elem), nil
}

// Field is a named Feature.
type Field struct {
	Name    string
	Feature Feature
}

// Features is the ordered set of fields in each record a builder emits.
type Features []Field

// Names returns the field names in order.
func (f Features) Names() []string {
	names := make([]string, len(f))
	for i, fld := range f {
		names[i] = fld.Name
	}
	return names
}

// Schema returns the Arrow schema equivalent to f.
func (f Features) Schema() (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(f))
	for i, fld := range f {
		dt, err := fld.Feature.DataType()
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", fld.Name)
		}
		fields[i] = arrow.Field{Name: fld.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// Info describes a dataset.
type Info struct {
	Description string
	Citation    string
	Homepage    string
	Features    Features
}
