package export

import (
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Preview renders up to maxRows rows of tbl as a text table. maxRows < 1
// renders every row.
func Preview(w io.Writer, tbl arrow.Table, maxRows int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, tbl.NumCols())
	for i, f := range tbl.Schema().Fields() {
		header[i] = f.Name
	}
	tw.AppendHeader(header)

	tr := array.NewTableReader(tbl, 0)
	defer tr.Release()
	rows := 0
	for tr.Next() && (maxRows < 1 || rows < maxRows) {
		rec := tr.Record()
		for r := 0; r < int(rec.NumRows()) && (maxRows < 1 || rows < maxRows); r++ {
			row := make(table.Row, rec.NumCols())
			for c := range row {
				col := rec.Column(c)
				if col.IsNull(r) {
					row[c] = "null"
				} else {
					row[c] = col.ValueStr(r)
				}
			}
			tw.AppendRow(row)
			rows++
		}
	}
	if int64(rows) < tbl.NumRows() {
		tw.AppendFooter(table.Row{"...", tbl.NumRows() - int64(rows), "more rows"})
	}
	tw.Render()
}
