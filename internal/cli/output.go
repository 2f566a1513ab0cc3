package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/export"
)

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// renderTable prints headers and rows as a light table followed by a row
// count.
func renderTable(w io.Writer, headers []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, r := range rows {
		t.AppendRow(table.Row(r))
	}
	t.Render()

	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

// renderMapRows prints dataset rows with the keys of the first row as
// columns.
func renderMapRows(w io.Writer, data []map[string]any) {
	if len(data) == 0 {
		_, _ = fmt.Fprintln(w, "(no data)")
		return
	}

	headers := export.Headers(export.Row(data[0]))
	rows := make([][]any, len(data))
	for i, d := range data {
		row := make([]any, len(headers))
		for j, h := range headers {
			row[j] = export.Stringify(d[h])
		}
		rows[i] = row
	}
	renderTable(w, headers, rows)
}

var recordHeaders = []string{"Date", "Time", "Recipe", "Lot", "Slot", "Info", "Filename"}

func recordRow(r catalog.MeasurementRecord) []any {
	return []any{r.FormattedDate, r.Time, r.RecipeName, r.LotID, r.SlotNumber, r.MeasuredInfo, r.Filename}
}

// renderRecords prints catalog records.
func renderRecords(w io.Writer, records []catalog.MeasurementRecord) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = recordRow(r)
	}
	renderTable(w, recordHeaders, rows)
}
