package plan

import "alphabot/domain/sales"

// Summary reports the row counts observed at each execution stage, for
// the narrator collaborator's diagnostics.
type Summary struct {
	RowsIn          int `json:"rows_in"`
	RowsAfterFilter int `json:"rows_after_filter"`
	RowsAfterGroup  int `json:"rows_after_group"`
}

// ResultTable is the ephemeral output of one plan execution: one row per
// group (or a single row for an empty groupby), never a mutation of the
// Dataset it was computed from.
type ResultTable struct {
	Columns []string        `json:"columns"`
	Rows    [][]sales.Value `json:"rows"`
	Summary Summary         `json:"diagnostics"`
}

// ColumnIndex returns the position of an output column.
func (r *ResultTable) ColumnIndex(name string) (int, bool) {
	for i, col := range r.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}
