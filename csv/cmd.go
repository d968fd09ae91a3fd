package csv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/download"
	"github.com/pilosa/dlk/export"
	"github.com/pkg/errors"
)

// Main contains the configuration for loading delimited text files into
// Arrow tables.
type Main struct {
	DataFiles    []string `help:"Data files as path or split=path (split is train, validation or test). Paths may be URLs or s3:// references."`
	Delimiter    string   `help:"Field delimiter. Empty means ','."`
	QuoteChar    string   `help:"Quote character. Empty means '\"'."`
	SkipRows     int      `help:"Rows to skip at the start of each file. Negative means the default (0)."`
	ColumnNames  []string `help:"Column names. If set, the first row is data."`
	Autogenerate bool     `help:"Name columns f0, f1, ... and treat the first row as data."`
	ColumnTypes  []string `help:"Column types as name:type (string, bool, int32, int64, float32, float64)."`
	NullValues   []string `help:"Strings which decode to null in typed columns."`
	ChunkSize    int      `help:"Rows per record batch. Negative decodes each file into one batch."`
	OutDir       string   `help:"Directory to write <split>-<n>.arrow files to. Empty writes nothing."`
	Preview      int      `help:"Print up to this many rows of each table. 0 prints nothing."`
	LogPath      string   `help:"Log file to write to. Empty means stderr."`
	Verbose      bool     `help:"Enable verbose logging."`

	// Cache is filled from the root command's cache flags.
	Cache  download.Config `flag:"-"`
	Stdout io.Writer       `flag:"-"`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		SkipRows:   -1,
		ChunkSize:  DefaultChunkSize,
		NullValues: DefaultConvertOptions().NullValues,
		Preview:    10,
		Cache:      download.NewConfig(),
		Stdout:     os.Stdout,
	}
}

// Config converts the command line configuration into a Config.
func (m *Main) Config() (*Config, error) {
	files, err := dlk.ParseDataFiles(m.DataFiles)
	if err != nil {
		return nil, errors.Wrap(err, "parsing data files")
	}
	c := &Config{
		Name:      "csv",
		DataFiles: files,
		Read:      &ReadOptions{ChunkSize: m.ChunkSize},
	}
	if m.SkipRows >= 0 {
		c.SkipRows = Int(m.SkipRows)
	}
	if len(m.ColumnNames) > 0 {
		c.ColumnNames = m.ColumnNames
	}
	if m.Autogenerate {
		c.AutogenerateColumnNames = Bool(true)
	}
	if c.Delimiter, err = optionalRune("delimiter", m.Delimiter); err != nil {
		return nil, err
	}
	if c.QuoteChar, err = optionalRune("quote-char", m.QuoteChar); err != nil {
		return nil, err
	}
	types, err := parseColumnTypes(m.ColumnTypes)
	if err != nil {
		return nil, err
	}
	c.Convert = &ConvertOptions{ColumnTypes: types, NullValues: m.NullValues}
	return c, nil
}

func optionalRune(name, s string) (*rune, error) {
	if s == "" {
		return nil, nil
	}
	if s == `\t` {
		return Rune('\t'), nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return nil, errors.Wrapf(ErrInvalidOptions, "%s must be a single character, got '%s'", name, s)
	}
	return Rune(r), nil
}

func parseColumnTypes(specs []string) (map[string]arrow.DataType, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	types := make(map[string]arrow.DataType, len(specs))
	for _, spec := range specs {
		i := strings.LastIndex(spec, ":")
		if i <= 0 {
			return nil, errors.Errorf("column type '%s' must be name:type", spec)
		}
		dt, err := dlk.Value(spec[i+1:]).DataType()
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", spec[:i])
		}
		types[spec[:i]] = dt
	}
	return types, nil
}

// Run loads every split and writes or previews its tables.
func (m *Main) Run() error {
	c, err := m.Config()
	if err != nil {
		return errors.Wrap(err, "validating configuration")
	}
	log, logCloser, err := dlk.OpenLogger(m.LogPath, m.Verbose)
	if err != nil {
		return errors.Wrap(err, "setting up logging")
	}
	defer logCloser.Close()

	dm, closer, err := m.Cache.Open(log)
	if err != nil {
		return err
	}
	defer closer.Close()

	gens, err := c.SplitGenerators(context.Background(), dm)
	if err != nil {
		return errors.Wrap(err, "getting splits")
	}
	if m.OutDir != "" {
		if err := os.MkdirAll(m.OutDir, 0755); err != nil {
			return errors.Wrap(err, "making output directory")
		}
	}
	for _, gen := range gens {
		tables := c.GenerateTables(gen.Files, OptTablesLogger(log))
		for {
			idx, tbl, err := tables.Table()
			if err == io.EOF {
				break
			} else if err != nil {
				return errors.Wrapf(err, "generating %s", gen.Name)
			}
			log.Printf("%s table %d: %d rows from %s", gen.Name, idx, tbl.NumRows(), tables.Source())
			err = m.emit(gen.Name, idx, tables.Source(), tbl)
			tbl.Release()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Main) emit(split dlk.Split, idx int, source string, tbl arrow.Table) error {
	if m.Preview > 0 {
		fmt.Fprintf(m.Stdout, "%s %d: %s\n", split, idx, source)
		export.Preview(m.Stdout, tbl, m.Preview)
	}
	if m.OutDir == "" {
		return nil
	}
	name := filepath.Join(m.OutDir, fmt.Sprintf("%s-%d.arrow", split, idx))
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	if err := export.WriteTable(f, tbl, memory.DefaultAllocator); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", name)
	}
	return errors.Wrapf(f.Close(), "closing %s", name)
}
