// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package csv

import (
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/file"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
)

// Tables is a lazy sequence of Arrow tables, one per input file, in input
// order. A directory, such as an extracted archive, stands for the regular
// files it directly contains, sorted by name, so it may yield several tables.
// Each call to Table decodes the next file completely. Tables is not safe for
// concurrent use.
type Tables struct {
	files []string
	ro    ReadOptions
	po    ParseOptions
	co    ConvertOptions

	mem memory.Allocator
	log logger.Logger

	rs     *file.RawSource
	idx    int
	source string
	err    error
}

// TablesOption is a functional option to pass to GenerateTables.
type TablesOption func(*Tables)

// OptTablesAllocator sets the allocator used for decoded tables.
func OptTablesAllocator(mem memory.Allocator) TablesOption {
	return func(t *Tables) {
		t.mem = mem
	}
}

// OptTablesLogger sets the logger used to report progress.
func OptTablesLogger(l logger.Logger) TablesOption {
	return func(t *Tables) {
		t.log = l
	}
}

// GenerateTables returns the tables for files. The read, parse, and convert
// options are derived from c once, here, and used for every file.
func (c *Config) GenerateTables(files []string, opts ...TablesOption) *Tables {
	t := &Tables{
		files: files,
		ro:    c.ReadOptions(),
		po:    c.ParseOptions(),
		co:    c.ConvertOptions(),
		mem:   memory.DefaultAllocator,
		log:   logger.NopLogger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Table returns the next table and its zero based index. It returns io.EOF
// after the last file. Once an error has been returned, every following call
// returns the same error. The caller must Release each table.
func (t *Tables) Table() (idx int, tbl arrow.Table, err error) {
	if t.err != nil {
		return 0, nil, t.err
	}
	if t.rs == nil {
		t.rs, err = file.NewRawSourceFromPaths(t.files)
		if err != nil {
			t.err = errors.Wrap(err, "getting raw source")
			return 0, nil, t.err
		}
		t.log.Debugf("csv: %d files, read=%+v parse=%v", len(t.rs.Files()), t.ro, t.po)
	}
	reader, err := t.rs.NextReader()
	if err == io.EOF {
		t.err = io.EOF
		return 0, nil, io.EOF
	} else if err != nil {
		t.err = errors.Wrap(err, "getting next reader")
		return 0, nil, t.err
	}
	tbl, err = t.read(reader)
	if err != nil {
		t.err = errors.Wrapf(err, "reading table %d from %s", t.idx, reader.Meta()["path"])
		return 0, nil, t.err
	}
	idx = t.idx
	t.idx++
	t.source, _ = reader.Meta()["path"].(string)
	t.log.Debugf("csv: table %d from %s: %d rows, %d columns", idx, reader.Name(), tbl.NumRows(), tbl.NumCols())
	return idx, tbl, nil
}

// Source returns the path of the file the last table returned by Table was
// decoded from.
func (t *Tables) Source() string {
	return t.source
}

func (t *Tables) read(reader dlk.NamedReadCloser) (arrow.Table, error) {
	defer reader.Close()
	return ReadTable(reader, t.ro, t.po, t.co, t.mem)
}
