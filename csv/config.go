package csv

import (
	"context"

	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// Config describes a dataset made of delimited text files. The optional
// fields override the corresponding field of Read or Parse when set; unset
// fields leave the underlying value alone.
type Config struct {
	Name      string
	DataFiles dlk.DataFiles

	SkipRows                *int
	ColumnNames             []string
	AutogenerateColumnNames *bool
	Delimiter               *rune
	QuoteChar               *rune

	// Read, Parse, and Convert are used in place of the defaults when non-nil.
	// They are never modified.
	Read    *ReadOptions
	Parse   *ParseOptions
	Convert *ConvertOptions
}

// ReadOptions derives the ReadOptions for c.
func (c *Config) ReadOptions() ReadOptions {
	base := DefaultReadOptions()
	if c.Read != nil {
		base = *c.Read
	}
	return MergeReadOptions(base, ReadOverrides{
		SkipRows:                c.SkipRows,
		ColumnNames:             c.ColumnNames,
		AutogenerateColumnNames: c.AutogenerateColumnNames,
	})
}

// ParseOptions derives the ParseOptions for c.
func (c *Config) ParseOptions() ParseOptions {
	base := DefaultParseOptions()
	if c.Parse != nil {
		base = *c.Parse
	}
	return MergeParseOptions(base, ParseOverrides{
		Delimiter: c.Delimiter,
		QuoteChar: c.QuoteChar,
	})
}

// ConvertOptions returns c.Convert, or the defaults if it isn't set. There
// are no field level overrides for conversion.
func (c *Config) ConvertOptions() ConvertOptions {
	if c.Convert != nil {
		return c.Convert.clone()
	}
	return DefaultConvertOptions()
}

// Info describes the dataset. Delimited text carries no description of its
// own, so this is empty.
func (c *Config) Info() dlk.Info {
	return dlk.Info{}
}

// SplitGenerators downloads and extracts c.DataFiles with dm and groups the
// resulting local paths by split.
func (c *Config) SplitGenerators(ctx context.Context, dm dlk.DownloadManager) ([]dlk.SplitGenerator, error) {
	if c.DataFiles.Empty() {
		return nil, errors.Wrapf(dlk.ErrNoDataFiles, "got data_files=%v", c.DataFiles)
	}
	files, err := dlk.ResolveDataFiles(ctx, dm, c.DataFiles)
	if err != nil {
		return nil, errors.Wrap(err, "resolving data files")
	}
	return files.SplitGenerators()
}
