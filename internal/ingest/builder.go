// Package ingest turns raw spreadsheet sheets into a single sanitized
// dataset. The builder runs the full pipeline: sheet filtering, header
// normalization, type inference, cell coercion, total-row removal,
// derived revenue, provenance columns, and deduplication. A Loader
// wraps the builder with a cache so concurrent requests share one
// build.
package ingest

import (
	"time"

	"alphabot/domain/sales"
	"alphabot/internal/catalog"
	"alphabot/internal/coercer"
	"alphabot/internal/dedup"
	"alphabot/internal/normalizer"
	"alphabot/internal/rowfilter"
	"alphabot/ports"
)

const (
	colReceitaTotal  = "receita_total"
	colQuantidade    = "quantidade"
	colPrecoUnitario = "preco_unitario"
	colData          = "data"
	colSourceFile    = "source_file"
	colSourceSheet   = "source_sheet"
)

// Builder assembles datasets from raw sheets. Safe for concurrent use.
type Builder struct {
	normalizer *normalizer.Normalizer
	coercer    *coercer.Coercer
	rowFilter  *rowfilter.Filter
}

func NewBuilder(n *normalizer.Normalizer, c *coercer.Coercer, rf *rowfilter.Filter) *Builder {
	return &Builder{normalizer: n, coercer: c, rowFilter: rf}
}

func NewDefaultBuilder() *Builder {
	return NewBuilder(
		normalizer.New(normalizer.DefaultAliasTable()),
		coercer.New(coercer.DefaultConfig()),
		rowfilter.New(rowfilter.DefaultConfig()),
	)
}

// rawRow keeps a sheet row aligned to the global column order, with
// its provenance, before coercion.
type rawRow struct {
	file  string
	sheet string
	cells []string
}

// Build runs the sanitization pipeline over every usable sheet and
// returns the merged dataset with load diagnostics.
func (b *Builder) Build(sheets []ports.Sheet) (*sales.Dataset, error) {
	start := time.Now()
	diag := sales.Diagnostics{ParseFailures: map[string]int{}}

	seenFiles := map[string]bool{}
	var columnOrder []string
	columnSeen := map[string]bool{}
	var raw []rawRow

	for _, sheet := range sheets {
		if !seenFiles[sheet.File] {
			seenFiles[sheet.File] = true
			diag.Files = append(diag.Files, sheet.File)
		}
		if b.rowFilter.SkipSheet(sheet.Name) {
			diag.SheetsSkipped = append(diag.SheetsSkipped, sheet.File+"/"+sheet.Name)
			continue
		}

		resolved, conflicts := b.normalizer.ResolveSheet(sheet.Headers)
		for _, c := range conflicts {
			diag.HeaderConflicts = append(diag.HeaderConflicts, sales.HeaderConflict{
				Sheet:     sheet.File + "/" + sheet.Name,
				RawHeader: c.Raw,
				Canonical: c.Canonical,
				KeptRaw:   c.KeptRaw,
			})
		}

		// Map sheet column positions to canonical names, first-seen
		// order across all sheets.
		mapping := make([]string, len(resolved))
		for i, rh := range resolved {
			if rh.Ignored || rh.Canonical == "" {
				continue
			}
			mapping[i] = rh.Canonical
			if !columnSeen[rh.Canonical] {
				columnSeen[rh.Canonical] = true
				columnOrder = append(columnOrder, rh.Canonical)
			}
		}

		for _, row := range sheet.Rows {
			raw = append(raw, rawRow{file: sheet.File, sheet: sheet.Name, cells: alignRow(row, mapping, columnOrder)})
		}
		// Re-align earlier rows if new columns appeared mid-stream.
		for i := range raw {
			for len(raw[i].cells) < len(columnOrder) {
				raw[i].cells = append(raw[i].cells, "")
			}
		}
	}

	types := b.inferTypes(columnOrder, raw)

	columns, rows := b.coerceRows(columnOrder, types, raw, &diag)

	columns, rows = b.dropTotalRows(columns, rows, raw, &diag)

	columns, rows = b.deriveRevenue(columns, rows)

	columns, rows = appendProvenance(columns, rows, raw, len(columnOrder))

	diag.RowsBeforeDedup = len(rows)
	deduped, result := dedup.Deduplicate(columns, rows)
	rows = deduped
	diag.DuplicatesRemoved = result.Removed
	diag.DedupStrategy = string(result.Strategy)

	assignRoles(columns, rows)

	diag.LoadDuration = time.Since(start)
	return sales.NewDataset(columns, rows, diag), nil
}

// alignRow projects a sheet row onto the global column order, leaving
// empty cells for columns the sheet does not carry.
func alignRow(row []string, mapping []string, order []string) []string {
	byName := make(map[string]string, len(mapping))
	for i, canonical := range mapping {
		if canonical == "" || i >= len(row) {
			continue
		}
		byName[canonical] = row[i]
	}
	cells := make([]string, len(order))
	for i, name := range order {
		cells[i] = byName[name]
	}
	return cells
}

// inferTypes decides each column's type from its non-empty values. The
// canonical date column is forced to date when enough of its values
// parse as dates, including spreadsheet serials.
func (b *Builder) inferTypes(order []string, raw []rawRow) []sales.ColumnType {
	types := make([]sales.ColumnType, len(order))
	for i, name := range order {
		var samples []string
		for _, r := range raw {
			if i < len(r.cells) && r.cells[i] != "" {
				samples = append(samples, r.cells[i])
			}
		}
		types[i] = b.coercer.InferType(samples)
		if name == colData && types[i] != sales.TypeDate {
			if b.coercer.DateRatio(samples) >= b.coercer.Config().DateRatio {
				types[i] = sales.TypeDate
			}
		}
	}
	return types
}

// coerceRows parses every cell to its column type. Unparseable
// non-empty cells become null and count as parse failures.
func (b *Builder) coerceRows(order []string, types []sales.ColumnType, raw []rawRow, diag *sales.Diagnostics) ([]sales.ColumnSchema, [][]sales.Value) {
	columns := make([]sales.ColumnSchema, len(order))
	for i, name := range order {
		columns[i] = sales.ColumnSchema{Name: name, Type: types[i], Role: sales.RoleDimension}
	}

	rows := make([][]sales.Value, len(raw))
	for ri, r := range raw {
		row := make([]sales.Value, len(order))
		for ci := range order {
			cell := ""
			if ci < len(r.cells) {
				cell = r.cells[ci]
			}
			v, ok := b.coercer.Coerce(cell, types[ci])
			if !ok {
				diag.ParseFailures[order[ci]]++
			}
			row[ci] = v
		}
		rows[ri] = row
	}
	return columns, rows
}

// dropTotalRows removes pre-aggregated total and subtotal rows,
// identified by their label in the first text column.
func (b *Builder) dropTotalRows(columns []sales.ColumnSchema, rows [][]sales.Value, raw []rawRow, diag *sales.Diagnostics) ([]sales.ColumnSchema, [][]sales.Value) {
	labelIdx, ok := b.rowFilter.LabelColumn(columns)
	if !ok {
		return columns, rows
	}
	kept := rows[:0]
	keptRaw := raw[:0]
	for i, row := range rows {
		label := ""
		if labelIdx < len(raw[i].cells) {
			label = raw[i].cells[labelIdx]
		}
		if b.rowFilter.IsTotalRow(label) {
			diag.TotalRowsDropped++
			continue
		}
		kept = append(kept, row)
		keptRaw = append(keptRaw, raw[i])
	}
	copy(raw, keptRaw)
	for i := len(keptRaw); i < len(raw); i++ {
		raw[i] = rawRow{}
	}
	return columns, kept
}

// deriveRevenue adds receita_total as quantidade times preco_unitario
// when the source carries both factors but no revenue column.
func (b *Builder) deriveRevenue(columns []sales.ColumnSchema, rows [][]sales.Value) ([]sales.ColumnSchema, [][]sales.Value) {
	if indexOf(columns, colReceitaTotal) >= 0 {
		return columns, rows
	}
	qi := indexOf(columns, colQuantidade)
	pi := indexOf(columns, colPrecoUnitario)
	if qi < 0 || pi < 0 {
		return columns, rows
	}
	if columns[qi].Type != sales.TypeNumber || columns[pi].Type != sales.TypeNumber {
		return columns, rows
	}

	columns = append(columns, sales.ColumnSchema{Name: colReceitaTotal, Type: sales.TypeNumber, Role: sales.RoleMetric})
	for i, row := range rows {
		q, p := row[qi], row[pi]
		if q.Kind == sales.KindNumber && p.Kind == sales.KindNumber {
			rows[i] = append(row, sales.NumberValue(q.Number.Mul(p.Number)))
		} else {
			rows[i] = append(row, sales.NullValue())
		}
	}
	return columns, rows
}

// appendProvenance adds source_file and source_sheet text columns so
// every row stays traceable to its origin.
func appendProvenance(columns []sales.ColumnSchema, rows [][]sales.Value, raw []rawRow, _ int) ([]sales.ColumnSchema, [][]sales.Value) {
	columns = append(columns,
		sales.ColumnSchema{Name: colSourceFile, Type: sales.TypeText, Role: sales.RoleDimension},
		sales.ColumnSchema{Name: colSourceSheet, Type: sales.TypeText, Role: sales.RoleDimension},
	)
	for i := range rows {
		rows[i] = append(rows[i], sales.TextValue(raw[i].file), sales.TextValue(raw[i].sheet))
	}
	return columns, rows
}

// assignRoles classifies each column as metric or dimension from its
// type and cardinality.
func assignRoles(columns []sales.ColumnSchema, rows [][]sales.Value) {
	for i := range columns {
		distinct := map[string]bool{}
		for _, row := range rows {
			if !row[i].IsNull() {
				distinct[row[i].String()] = true
			}
		}
		columns[i].Role = catalog.Classify(columns[i].Type, len(distinct), len(rows))
	}
}

func indexOf(columns []sales.ColumnSchema, name string) int {
	for i, c := range columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
