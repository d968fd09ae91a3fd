package csv_test

import (
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/pilosa/dlk/csv"
	"github.com/pilosa/dlk/test"
	"github.com/pkg/errors"
)

func columnNames(tbl arrow.Table) []string {
	names := make([]string, 0, tbl.NumCols())
	for _, f := range tbl.Schema().Fields() {
		names = append(names, f.Name)
	}
	return names
}

func stringColumn(t *testing.T, tbl arrow.Table, i int) []string {
	t.Helper()
	var ret []string
	for _, chunk := range tbl.Column(i).Data().Chunks() {
		s, ok := chunk.(*array.String)
		if !ok {
			t.Fatalf("column %d is %T, not a string array", i, chunk)
		}
		for j := 0; j < s.Len(); j++ {
			ret = append(ret, s.Value(j))
		}
	}
	return ret
}

func readTable(t *testing.T, content string, c csv.Config) arrow.Table {
	t.Helper()
	tbl, err := csv.ReadTable(strings.NewReader(content), c.ReadOptions(), c.ParseOptions(), c.ConvertOptions(), nil)
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	return tbl
}

func TestReadTableHeader(t *testing.T) {
	tbl := readTable(t, "blah,bleh,blue\n1,asdf,3\n2,qwer,4\n", csv.Config{})
	defer tbl.Release()

	test.MustBe(t, []string{"blah", "bleh", "blue"}, columnNames(tbl))
	test.MustBe(t, int64(2), tbl.NumRows())
	test.MustBe(t, []string{"1", "2"}, stringColumn(t, tbl, 0))
	test.MustBe(t, []string{"asdf", "qwer"}, stringColumn(t, tbl, 1))
	test.MustBe(t, []string{"3", "4"}, stringColumn(t, tbl, 2))
}

func TestReadTableOptions(t *testing.T) {
	content := "a,b\n1,x\n2,y\n"
	tests := []struct {
		name     string
		content  string
		config   csv.Config
		expNames []string
		expFirst []string
	}{
		{
			name:     "columnNames",
			content:  content,
			config:   csv.Config{ColumnNames: []string{"one", "two"}},
			expNames: []string{"one", "two"},
			expFirst: []string{"a", "1", "2"},
		},
		{
			name:     "autogenerate",
			content:  content,
			config:   csv.Config{AutogenerateColumnNames: csv.Bool(true)},
			expNames: []string{"f0", "f1"},
			expFirst: []string{"a", "1", "2"},
		},
		{
			name:     "skipRows",
			content:  "garbage line\nmore garbage\n" + content,
			config:   csv.Config{SkipRows: csv.Int(2)},
			expNames: []string{"a", "b"},
			expFirst: []string{"1", "2"},
		},
		{
			name:     "skipRowsQuotedNewline",
			content:  "\"note\nspanning lines\",x\n" + content,
			config:   csv.Config{SkipRows: csv.Int(1)},
			expNames: []string{"a", "b"},
			expFirst: []string{"1", "2"},
		},
		{
			name:     "delimiter",
			content:  "a;b\n1,5;x\n2;y\n",
			config:   csv.Config{Delimiter: csv.Rune(';')},
			expNames: []string{"a", "b"},
			expFirst: []string{"1,5", "2"},
		},
		{
			name:     "tabs",
			content:  "a\tb\n1\tx\n",
			config:   csv.Config{Parse: &csv.ParseOptions{Delimiter: '\t', QuoteChar: '"'}},
			expNames: []string{"a", "b"},
			expFirst: []string{"1"},
		},
		{
			name:     "smallChunks",
			content:  content,
			config:   csv.Config{Read: &csv.ReadOptions{ChunkSize: 1}},
			expNames: []string{"a", "b"},
			expFirst: []string{"1", "2"},
		},
		{
			name:     "wholeFile",
			content:  content,
			config:   csv.Config{Read: &csv.ReadOptions{ChunkSize: -1}},
			expNames: []string{"a", "b"},
			expFirst: []string{"1", "2"},
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			tbl := readTable(t, tst.content, tst.config)
			defer tbl.Release()
			test.MustBe(t, tst.expNames, columnNames(tbl))
			test.MustBe(t, tst.expFirst, stringColumn(t, tbl, 0))
		})
	}
}

func TestReadTableQuoteChar(t *testing.T) {
	content := "name;note\n'a;b';say \"hi\"\nplain;x\n"
	tbl := readTable(t, content, csv.Config{Delimiter: csv.Rune(';'), QuoteChar: csv.Rune('\'')})
	defer tbl.Release()

	test.MustBe(t, []string{"name", "note"}, columnNames(tbl))
	test.MustBe(t, []string{"a;b", "plain"}, stringColumn(t, tbl, 0))
	test.MustBe(t, []string{"say \"hi\"", "x"}, stringColumn(t, tbl, 1))
}

func TestReadTableColumnTypes(t *testing.T) {
	c := csv.Config{Convert: &csv.ConvertOptions{
		ColumnTypes: map[string]arrow.DataType{"age": arrow.PrimitiveTypes.Int64},
	}}
	tbl := readTable(t, "name,age\nbob,31\nalice,47\n", c)
	defer tbl.Release()

	if !arrow.TypeEqual(tbl.Schema().Field(1).Type, arrow.PrimitiveTypes.Int64) {
		t.Fatalf("age should be int64, got %v", tbl.Schema().Field(1).Type)
	}
	var ages []int64
	for _, chunk := range tbl.Column(1).Data().Chunks() {
		a := chunk.(*array.Int64)
		for j := 0; j < a.Len(); j++ {
			ages = append(ages, a.Value(j))
		}
	}
	test.MustBe(t, []int64{31, 47}, ages)
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		config  csv.Config
	}{
		{name: "malformedRow", content: "a,b\n1,2,3\n"},
		{name: "badInt", content: "a\nnope\n", config: csv.Config{Convert: &csv.ConvertOptions{
			ColumnTypes: map[string]arrow.DataType{"a": arrow.PrimitiveTypes.Int64},
		}}},
		{name: "empty", content: ""},
		{name: "allSkipped", content: "a,b\n", config: csv.Config{SkipRows: csv.Int(3)}},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			c := tst.config
			tbl, err := csv.ReadTable(strings.NewReader(tst.content), c.ReadOptions(), c.ParseOptions(), c.ConvertOptions(), nil)
			if err == nil {
				tbl.Release()
				t.Fatalf("expected error")
			}
		})
	}
}

func TestReadTableInvalidOptions(t *testing.T) {
	c := csv.Config{Delimiter: csv.Rune('"')}
	_, err := csv.ReadTable(strings.NewReader("a\n"), c.ReadOptions(), c.ParseOptions(), c.ConvertOptions(), nil)
	if errors.Cause(err) != csv.ErrInvalidOptions {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}

	c = csv.Config{Convert: &csv.ConvertOptions{
		ColumnTypes: map[string]arrow.DataType{"a": arrow.ListOf(arrow.BinaryTypes.String)},
	}}
	_, err = csv.ReadTable(strings.NewReader("a\nx\n"), c.ReadOptions(), c.ParseOptions(), c.ConvertOptions(), nil)
	if errors.Cause(err) != csv.ErrInvalidOptions {
		t.Fatalf("expected ErrInvalidOptions for list column, got %v", err)
	}
}
