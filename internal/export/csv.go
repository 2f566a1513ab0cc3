/*
Package export renders measurement data as CSV files.

The CSV dialect is fixed: the header row is always quoted, data values are
quoted only when they contain a comma, a newline or a double quote,
embedded quotes are doubled, nil renders as an empty field, and rows are
separated by a bare newline with none after the last row.
*/
package export

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Row is one CSV record keyed by column name.
type Row map[string]any

// ToCSV renders rows. Columns follow headers; when headers is empty the
// first row's keys are used in sorted order. No rows yields "".
func ToCSV(rows []Row, headers []string) string {
	if len(rows) == 0 {
		return ""
	}
	if len(headers) == 0 {
		headers = Headers(rows[0])
	}

	var b strings.Builder

	for i, h := range headers {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(h, `"`, `""`))
		b.WriteByte('"')
	}

	for _, row := range rows {
		b.WriteByte('\n')
		for i, h := range headers {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(field(row[h]))
		}
	}

	return b.String()
}

// Headers returns the keys of row, sorted.
func Headers(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func field(v any) string {
	if v == nil {
		return ""
	}

	s := strings.ReplaceAll(Stringify(v), `"`, `""`)
	if strings.ContainsAny(s, ",\n\"") {
		return `"` + s + `"`
	}
	return s
}

// Stringify renders a scalar the way it appears in a CSV field. Floats
// use the shortest representation that round-trips.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
