package sales

import (
	"time"

	"alphabot/domain/core"
)

// ColumnType is the inferred type of a canonical column.
type ColumnType string

const (
	TypeDate   ColumnType = "date"
	TypeNumber ColumnType = "number"
	TypeText   ColumnType = "text"
)

// Role classifies a column for planning purposes.
type Role string

const (
	RoleDimension Role = "dimension"
	RoleMetric    Role = "metric"
)

// ColumnSchema describes one canonical column of a Dataset.
type ColumnSchema struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
	Role Role       `json:"role"`
}

// HeaderConflict records a raw header that resolved to an already-claimed
// canonical name within one sheet and was therefore ignored.
type HeaderConflict struct {
	Sheet     string `json:"sheet"`
	RawHeader string `json:"raw_header"`
	Canonical string `json:"canonical"`
	KeptRaw   string `json:"kept_raw"`
}

// Diagnostics accumulates ingestion-level observations. Cell parse
// failures are absorbed here instead of failing the load.
type Diagnostics struct {
	Files             []string         `json:"files,omitempty"`
	SheetsSkipped     []string         `json:"sheets_skipped,omitempty"`
	HeaderConflicts   []HeaderConflict `json:"header_conflicts,omitempty"`
	ParseFailures     map[string]int   `json:"parse_failures,omitempty"`
	TotalRowsDropped  int              `json:"total_rows_dropped"`
	RowsBeforeDedup   int              `json:"rows_before_dedup"`
	DuplicatesRemoved int              `json:"duplicates_removed"`
	DedupStrategy     string           `json:"dedup_strategy,omitempty"`
	LoadDuration      time.Duration    `json:"-"`
}

// Dataset is the canonical, deduplicated table produced by one ingestion.
// Rows are aligned with Columns: every row has one Value slot per column,
// possibly null. A Dataset is immutable after construction.
type Dataset struct {
	ID          core.DatasetID
	Columns     []ColumnSchema
	Rows        [][]Value
	Diagnostics Diagnostics

	index map[string]int
}

// NewDataset builds a Dataset and its column index, minting a fresh ID
// for the build. Column names must be unique; the caller (the ingest
// builder) guarantees that.
func NewDataset(columns []ColumnSchema, rows [][]Value, diag Diagnostics) *Dataset {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col.Name] = i
	}
	return &Dataset{
		ID:          core.NewDatasetID(),
		Columns:     columns,
		Rows:        rows,
		Diagnostics: diag,
		index:       index,
	}
}

// ColumnIndex returns the position of a canonical column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Column returns the schema of a canonical column.
func (d *Dataset) Column(name string) (ColumnSchema, bool) {
	if i, ok := d.index[name]; ok {
		return d.Columns[i], true
	}
	return ColumnSchema{}, false
}

// RowCount returns the number of canonical records.
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}
