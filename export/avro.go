package export

import (
	"encoding/json"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/linkedin/goavro/v2"
	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// AvroSchema returns the Avro record schema equivalent to features.
func AvroSchema(name string, features dlk.Features) (string, error) {
	fields := make([]map[string]interface{}, len(features))
	for i, f := range features {
		dt, err := f.Feature.DataType()
		if err != nil {
			return "", errors.Wrapf(err, "field %s", f.Name)
		}
		typ, err := avroType(dt)
		if err != nil {
			return "", errors.Wrapf(err, "field %s", f.Name)
		}
		fields[i] = map[string]interface{}{"name": f.Name, "type": typ}
	}
	schema, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   name,
		"fields": fields,
	})
	return string(schema), errors.Wrap(err, "marshaling schema")
}

func avroType(dt arrow.DataType) (interface{}, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return "string", nil
	case arrow.BOOL:
		return "boolean", nil
	case arrow.INT32:
		return "int", nil
	case arrow.INT64:
		return "long", nil
	case arrow.FLOAT32:
		return "float", nil
	case arrow.FLOAT64:
		return "double", nil
	case arrow.LIST:
		items, err := avroType(dt.(*arrow.ListType).Elem())
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"type": "array", "items": items}, nil
	default:
		return nil, errors.Errorf("no avro type for %s", dt)
	}
}

// AvroWriter writes records to an Avro object container file.
type AvroWriter struct {
	ocf *goavro.OCFWriter
}

// NewAvroWriter writes the header of an object container file for a record
// schema named name derived from features. Records written must match
// features.
func NewAvroWriter(w io.Writer, name string, features dlk.Features) (*AvroWriter, error) {
	schema, err := AvroSchema(name, features)
	if err != nil {
		return nil, errors.Wrap(err, "deriving schema")
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, errors.Wrap(err, "creating codec")
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Codec: codec})
	if err != nil {
		return nil, errors.Wrap(err, "creating ocf writer")
	}
	return &AvroWriter{ocf: ocf}, nil
}

// Write implements RecordWriter. The key is not written.
func (a *AvroWriter) Write(key int, rec map[string]interface{}) error {
	native := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		if ss, ok := v.([]string); ok {
			vals := make([]interface{}, len(ss))
			for i, s := range ss {
				vals[i] = s
			}
			v = vals
		}
		native[k] = v
	}
	return errors.Wrapf(a.ocf.Append([]interface{}{native}), "appending record %d", key)
}

// Close implements RecordWriter. Every Write is already flushed to the
// underlying writer.
func (a *AvroWriter) Close() error { return nil }
