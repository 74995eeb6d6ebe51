package domain

import (
	"iter"
	"strings"
)

// column identifies a recognized table field.
type column int

const (
	colName column = iota
	colObservedAt
	colNormalLevel
	colCurrent
	colDescription
	numColumns
)

// headerNames are the lower-cased names a header cell is matched against.
var headerNames = [numColumns]string{
	colName:        "sensor name",
	colObservedAt:  "obs time",
	colNormalLevel: "normal",
	colCurrent:     "current",
	colDescription: "description",
}

// positional is the legacy column layout used when the table has no header.
var positional = [numColumns]int{
	colName:        0,
	colObservedAt:  1,
	colNormalLevel: 2,
	colCurrent:     3,
	colDescription: 4,
}

// Records yields one RawRecord per usable row of t, in source order.
// The sequence is lazy and reads t only while it is ranged over.
func Records(t Table) iter.Seq[RawRecord] {
	return func(yield func(RawRecord) bool) {
		layout, rows, minCells := detectLayout(t)
		for _, row := range rows {
			if len(row) < minCells {
				continue
			}
			rec, ok := rowToRecord(row, layout)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Parse collects Records(t). It fails with ErrExtractionEmpty when no row
// produced a record.
func Parse(t Table) ([]RawRecord, error) {
	var out []RawRecord
	for rec := range Records(t) {
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrExtractionEmpty
	}
	return out, nil
}

// detectLayout returns the column index of each field (-1 when absent), the
// body rows, and the minimum cell count for a row to be considered. A first
// body row is only taken as a header when it names the sensor column and at
// least one other field, so a data row reading "Normal" stays data.
func detectLayout(t Table) (layout [numColumns]int, rows [][]string, minCells int) {
	if len(t.Header) > 0 {
		if l, matched := matchHeader(t.Header); matched > 0 {
			return l, t.Rows, 0
		}
	} else if len(t.Rows) > 0 {
		if l, matched := matchHeader(t.Rows[0]); l[colName] >= 0 && matched >= 2 {
			return l, t.Rows[1:], 0
		}
	}
	return positional, t.Rows, int(numColumns)
}

// matchHeader maps header cells to fields and reports how many fields matched.
func matchHeader(header []string) (layout [numColumns]int, matched int) {
	for i := range layout {
		layout[i] = -1
	}
	for idx, cell := range header {
		norm := strings.ToLower(strings.Join(strings.Fields(cell), " "))
		for col, name := range headerNames {
			if layout[col] >= 0 {
				continue
			}
			if norm == name || strings.HasPrefix(norm, name+" ") {
				layout[col] = idx
				matched++
				break
			}
		}
	}
	return layout, matched
}
