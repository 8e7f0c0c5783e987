// Span table rendering for terminal panels
package chart

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteTable renders the model's segments as an aligned text table,
// one row per span in the same pre-order as the Gantt rows.
func WriteTable(w io.Writer, model ChartModel) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Service", "Operation", "Offset", "Duration", "Status"})

	for _, s := range model.Segments {
		status := "OK"
		if s.IsError {
			status = "ERROR"
		}
		t.AppendRow(table.Row{
			s.Service,
			s.Operation,
			fmt.Sprintf("%.2fms", s.OffsetMs),
			fmt.Sprintf("%.2fms", s.DurationMs),
			status,
		})
	}

	t.AppendFooter(table.Row{"", "", "extent", fmt.Sprintf("%.2fms", model.MaxExtentMs), ""})
	t.Render()
}
