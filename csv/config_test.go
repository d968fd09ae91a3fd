package csv_test

import (
	"context"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/pilosa/dlk"
	"github.com/pilosa/dlk/csv"
	"github.com/pilosa/dlk/test"
	"github.com/pkg/errors"
)

func TestDerivedOptions(t *testing.T) {
	tests := []struct {
		name      string
		config    csv.Config
		expRead   csv.ReadOptions
		expParse  csv.ParseOptions
		expConver csv.ConvertOptions
	}{
		{
			name:      "defaults",
			config:    csv.Config{},
			expRead:   csv.DefaultReadOptions(),
			expParse:  csv.DefaultParseOptions(),
			expConver: csv.DefaultConvertOptions(),
		},
		{
			name:      "delimiterOnly",
			config:    csv.Config{Delimiter: csv.Rune(';')},
			expRead:   csv.DefaultReadOptions(),
			expParse:  csv.ParseOptions{Delimiter: ';', QuoteChar: '"'},
			expConver: csv.DefaultConvertOptions(),
		},
		{
			name: "overridesWinOverPassThrough",
			config: csv.Config{
				QuoteChar:               csv.Rune('"'),
				SkipRows:                csv.Int(0),
				AutogenerateColumnNames: csv.Bool(false),
				Read:                    &csv.ReadOptions{SkipRows: 3, AutogenerateColumnNames: true, ChunkSize: 10},
				Parse:                   &csv.ParseOptions{Delimiter: '\t', QuoteChar: '\'', LazyQuotes: true},
			},
			expRead:   csv.ReadOptions{SkipRows: 0, AutogenerateColumnNames: false, ChunkSize: 10},
			expParse:  csv.ParseOptions{Delimiter: '\t', QuoteChar: '"', LazyQuotes: true},
			expConver: csv.DefaultConvertOptions(),
		},
		{
			name: "unsetKeepsPassThrough",
			config: csv.Config{
				ColumnNames: []string{"a", "b"},
				Read:        &csv.ReadOptions{SkipRows: 2, ChunkSize: -1},
				Convert:     &csv.ConvertOptions{NullValues: []string{"NA"}, StringsCanBeNull: true},
			},
			expRead:   csv.ReadOptions{SkipRows: 2, ColumnNames: []string{"a", "b"}, ChunkSize: -1},
			expParse:  csv.DefaultParseOptions(),
			expConver: csv.ConvertOptions{NullValues: []string{"NA"}, StringsCanBeNull: true},
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			test.MustBe(t, tst.expRead, tst.config.ReadOptions(), "read")
			test.MustBe(t, tst.expParse, tst.config.ParseOptions(), "parse")
			test.MustBe(t, tst.expConver, tst.config.ConvertOptions(), "convert")
		})
	}
}

func TestDerivedOptionsDoNotMutate(t *testing.T) {
	read := &csv.ReadOptions{SkipRows: 1, ColumnNames: []string{"x"}}
	parse := &csv.ParseOptions{Delimiter: '|', QuoteChar: '"'}
	conv := &csv.ConvertOptions{ColumnTypes: map[string]arrow.DataType{"x": arrow.PrimitiveTypes.Int64}}
	c := csv.Config{
		SkipRows:    csv.Int(5),
		ColumnNames: []string{"y"},
		Delimiter:   csv.Rune(','),
		Read:        read,
		Parse:       parse,
		Convert:     conv,
	}

	ro := c.ReadOptions()
	ro.ColumnNames[0] = "changed"
	po := c.ParseOptions()
	co := c.ConvertOptions()
	co.ColumnTypes["z"] = arrow.PrimitiveTypes.Int32

	test.MustBe(t, csv.ReadOptions{SkipRows: 1, ColumnNames: []string{"x"}}, *read)
	test.MustBe(t, csv.ParseOptions{Delimiter: '|', QuoteChar: '"'}, *parse)
	test.MustBe(t, []string{"y"}, c.ColumnNames)
	test.MustBe(t, 1, len(conv.ColumnTypes))
	test.MustBe(t, ',', po.Delimiter)
	test.MustBe(t, 5, c.ReadOptions().SkipRows)
}

func TestMergeParseOptions(t *testing.T) {
	base := csv.DefaultParseOptions()
	got := csv.MergeParseOptions(base, csv.ParseOverrides{QuoteChar: csv.Rune('\'')})
	test.MustBe(t, csv.ParseOptions{Delimiter: ',', QuoteChar: '\''}, got)
	test.MustBe(t, csv.DefaultParseOptions(), base)
}

func TestParseOptionsValidate(t *testing.T) {
	bad := []csv.ParseOptions{
		{Delimiter: ',', QuoteChar: ','},
		{Delimiter: '\n', QuoteChar: '"'},
		{Delimiter: ',', QuoteChar: 'é'},
		{Delimiter: ',', QuoteChar: 0},
		{Delimiter: ',', QuoteChar: '"', Comment: ','},
	}
	for i, po := range bad {
		if err := po.Validate(); errors.Cause(err) != csv.ErrInvalidOptions {
			t.Errorf("%d: expected ErrInvalidOptions for %v, got %v", i, po, err)
		}
	}
	test.ErrNil(t, csv.ParseOptions{Delimiter: '\t', QuoteChar: '\'', Comment: '#'}.Validate(), "validating")
}

func TestConfigSplitGenerators(t *testing.T) {
	c := csv.Config{DataFiles: dlk.DataFiles{Files: []string{"a.csv", "b.csv"}}}
	gens, err := c.SplitGenerators(context.Background(), dlk.LocalFiles{})
	test.ErrNil(t, err, "split generators")
	test.MustBe(t, []dlk.SplitGenerator{{Name: dlk.Train, Files: []string{"a.csv", "b.csv"}}}, gens)

	c = csv.Config{DataFiles: dlk.DataFiles{Splits: map[dlk.Split][]string{
		dlk.Validation: {"v.csv"},
		dlk.Train:      {"t.csv"},
	}}}
	gens, err = c.SplitGenerators(context.Background(), dlk.LocalFiles{})
	test.ErrNil(t, err, "split generators")
	test.MustBe(t, 2, len(gens))
	test.MustBe(t, dlk.Train, gens[0].Name)
	test.MustBe(t, dlk.Validation, gens[1].Name)

	_, err = (&csv.Config{}).SplitGenerators(context.Background(), dlk.LocalFiles{})
	if errors.Cause(err) != dlk.ErrNoDataFiles {
		t.Fatalf("expected ErrNoDataFiles, got %v", err)
	}
	if !strings.Contains(err.Error(), "data_files=") {
		t.Fatalf("error should name the offending value: %v", err)
	}
}
