// Package export writes what the adapters produce: tables as Arrow IPC
// files, and records as JSON lines, Avro object container files or Arrow
// record batches.
package export

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// RecordWriter writes records keyed by feature name.
type RecordWriter interface {
	Write(key int, rec map[string]interface{}) error
	Close() error
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	w   *bufio.Writer
	enc *json.Encoder

	// KeyField, if non-empty, is the name the record key is written under.
	KeyField string
}

// NewJSONWriter returns a JSONWriter writing to w. Close flushes but does not
// close w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONWriter{w: bw, enc: enc}
}

// Write implements RecordWriter.
func (j *JSONWriter) Write(key int, rec map[string]interface{}) error {
	if j.KeyField != "" {
		withKey := make(map[string]interface{}, len(rec)+1)
		for k, v := range rec {
			withKey[k] = v
		}
		withKey[j.KeyField] = key
		rec = withKey
	}
	return errors.Wrap(j.enc.Encode(rec), "encoding record")
}

// Close implements RecordWriter.
func (j *JSONWriter) Close() error {
	return errors.Wrap(j.w.Flush(), "flushing")
}
