package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/histnorm/internal/frame"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

// renderPreview prints the first n rows of f.
func renderPreview(w io.Writer, f *frame.Frame, n int) {
	if f == nil || f.Len() == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	cols := f.Columns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t := newTable(w, header...)

	limit := min(n, f.Len())
	for i := 0; i < limit; i++ {
		cells := f.Row(i)
		row := make(table.Row, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		t.AppendRow(row)
	}
	if f.Len() > limit {
		t.AppendFooter(table.Row{fmt.Sprintf("%d of %d rows", limit, f.Len())})
	}
	t.Render()
}
