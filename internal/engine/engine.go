// Package engine validates a declarative plan against a dataset and
// executes it as a five-stage pipeline: validate, filter, group and
// aggregate, sort, limit. Execution is a pure function of (dataset,
// plan): it never mutates the dataset and identical inputs produce an
// identical result table. Any stage failure aborts the request with a
// structured error and no partial output.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"alphabot/domain/core"
	"alphabot/domain/plan"
	"alphabot/domain/sales"
	"alphabot/internal/coercer"
)

// dateColumn is the canonical column a date_range filter applies to.
const dateColumn = "data"

var dateParser = coercer.New(coercer.DefaultConfig())

// Validate checks a plan against the dataset schema. The first
// violation found is returned; there is no partial recovery.
func Validate(p *plan.Plan, d *sales.Dataset) error {
	if p.Degenerate() {
		return core.NewPlanError("metrics", "plan needs metrics or groupby")
	}

	for _, col := range p.Filters.FilterColumns() {
		if _, ok := d.Column(col); !ok {
			return core.NewSchemaError(col, "filters")
		}
	}
	if p.Filters.DateRange != nil {
		schema, ok := d.Column(dateColumn)
		if !ok {
			return core.NewSchemaError(dateColumn, "filters.date_range")
		}
		if schema.Type != sales.TypeDate {
			return core.NewPlanError("filters.date_range", dateColumn+" is not a date column")
		}
		if _, _, err := rangeBounds(p.Filters.DateRange); err != nil {
			return err
		}
	}
	for _, col := range p.GroupBy {
		if _, ok := d.Column(col); !ok {
			return core.NewSchemaError(col, "groupby")
		}
	}
	for _, m := range p.Metrics {
		schema, ok := d.Column(m.Name)
		if !ok {
			return core.NewSchemaError(m.Name, "metrics")
		}
		if !plan.KnownAggregation(string(m.Agg)) {
			return core.NewPlanError("metrics.agg", "unsupported aggregation "+string(m.Agg))
		}
		if m.Agg != plan.AggCount && schema.Type != sales.TypeNumber {
			return core.NewAggregationError(m.Name, string(m.Agg))
		}
	}
	if p.Sort != nil {
		if _, ok := d.Column(p.Sort.By); !ok {
			return core.NewSchemaError(p.Sort.By, "sort")
		}
	}
	if p.Limit != nil && *p.Limit < 0 {
		return core.NewPlanError("limit", "must be a non-negative integer")
	}
	return nil
}

// Execute validates and runs a plan, producing a fresh ResultTable plus
// per-stage row counts for diagnostics.
func Execute(d *sales.Dataset, p *plan.Plan) (*plan.ResultTable, error) {
	if err := Validate(p, d); err != nil {
		return nil, err
	}

	summary := plan.Summary{RowsIn: d.RowCount()}

	filtered := applyFilters(d, p.Filters)
	summary.RowsAfterFilter = len(filtered)

	groups := groupRows(d, filtered, p.GroupBy)
	summary.RowsAfterGroup = len(groups)

	table := aggregate(d, p, groups)
	table.Summary = summary

	sortTable(table, p.Sort)

	if p.Limit != nil && *p.Limit < len(table.Rows) {
		table.Rows = table.Rows[:*p.Limit]
	}
	return table, nil
}

// applyFilters returns the indices of surviving rows. The date range is
// applied first, then the equality constraints: values within a
// column's list combine with OR, distinct columns with AND.
func applyFilters(d *sales.Dataset, f plan.Filters) []int {
	survivors := make([]int, 0, d.RowCount())
	cols := f.FilterColumns()

	var start, end time.Time
	dateIdx := -1
	if f.DateRange != nil {
		if idx, ok := d.ColumnIndex(dateColumn); ok {
			if s, e, err := rangeBounds(f.DateRange); err == nil {
				start, end, dateIdx = s, e, idx
			}
		}
	}

	for rowIdx, row := range d.Rows {
		if dateIdx >= 0 && !inDateRange(row[dateIdx], start, end) {
			continue
		}
		match := true
		for _, col := range cols {
			colIdx, _ := d.ColumnIndex(col)
			if !matchesAny(d.Columns[colIdx], row[colIdx], f.Equals[col]) {
				match = false
				break
			}
		}
		if match {
			survivors = append(survivors, rowIdx)
		}
	}
	return survivors
}

// rangeBounds parses the range's date strings with the same formats the
// ingest coercer accepts.
func rangeBounds(r *plan.DateRange) (time.Time, time.Time, error) {
	start, ok := dateParser.ParseDate(r.Start)
	if !ok {
		return time.Time{}, time.Time{}, core.NewPlanError("filters.date_range", fmt.Sprintf("unparseable start date %q", r.Start))
	}
	end, ok := dateParser.ParseDate(r.End)
	if !ok {
		return time.Time{}, time.Time{}, core.NewPlanError("filters.date_range", fmt.Sprintf("unparseable end date %q", r.End))
	}
	return start, end, nil
}

// inDateRange reports whether a cell falls inside [start, end]. Null
// and non-date cells fall outside any range.
func inDateRange(cell sales.Value, start, end time.Time) bool {
	if cell.Kind != sales.KindDate {
		return false
	}
	return !cell.Date.Before(start) && !cell.Date.After(end)
}

// matchesAny compares a cell against the filter values. Numeric columns
// compare decimally so "100" matches "100.00"; everything else compares
// on the canonical string form.
func matchesAny(schema sales.ColumnSchema, cell sales.Value, values []string) bool {
	for _, want := range values {
		if schema.Type == sales.TypeNumber && cell.Kind == sales.KindNumber {
			if wantDec, err := decimal.NewFromString(want); err == nil {
				if cell.Number.Equal(wantDec) {
					return true
				}
				continue
			}
		}
		if cell.String() == want {
			return true
		}
	}
	return false
}

type group struct {
	keyValues []sales.Value
	rows      []int
}

// groupRows partitions surviving rows by the groupby columns, keeping
// groups in first-seen order. An empty groupby yields one implicit
// group over the whole filtered set.
func groupRows(d *sales.Dataset, rowIdx []int, groupBy []string) []*group {
	if len(groupBy) == 0 {
		return []*group{{rows: rowIdx}}
	}

	colIdx := make([]int, len(groupBy))
	for i, col := range groupBy {
		colIdx[i], _ = d.ColumnIndex(col)
	}

	byKey := make(map[string]*group)
	var ordered []*group
	for _, ri := range rowIdx {
		keyVals := make([]sales.Value, len(colIdx))
		key := ""
		for i, ci := range colIdx {
			keyVals[i] = d.Rows[ri][ci]
			key += d.Rows[ri][ci].String() + "\x1f"
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{keyValues: keyVals}
			byKey[key] = g
			ordered = append(ordered, g)
		}
		g.rows = append(g.rows, ri)
	}
	return ordered
}

// aggregate computes the output table: groupby columns first, then one
// column per metric. Metric output columns reuse the plain column name
// unless two metrics share it, in which case the aggregation name is
// suffixed.
func aggregate(d *sales.Dataset, p *plan.Plan, groups []*group) *plan.ResultTable {
	columns := append([]string{}, p.GroupBy...)
	for _, m := range p.Metrics {
		columns = append(columns, metricColumnName(p.Metrics, m))
	}

	rows := make([][]sales.Value, 0, len(groups))
	for _, g := range groups {
		row := make([]sales.Value, 0, len(columns))
		row = append(row, g.keyValues...)
		for _, m := range p.Metrics {
			row = append(row, aggregateMetric(d, g, m))
		}
		rows = append(rows, row)
	}

	return &plan.ResultTable{Columns: columns, Rows: rows}
}

func metricColumnName(metrics []plan.Metric, m plan.Metric) string {
	shared := 0
	for _, other := range metrics {
		if other.Name == m.Name {
			shared++
		}
	}
	if shared > 1 {
		return m.Name + "_" + string(m.Agg)
	}
	return m.Name
}

// aggregateMetric applies one aggregation over a group. Nulls are
// excluded from sum/mean/max/min; count counts the column's non-null
// cells. Sum of an empty set is zero; mean/max/min of an empty set are
// null.
func aggregateMetric(d *sales.Dataset, g *group, m plan.Metric) sales.Value {
	colIdx, _ := d.ColumnIndex(m.Name)

	if m.Agg == plan.AggCount {
		n := 0
		for _, ri := range g.rows {
			if !d.Rows[ri][colIdx].IsNull() {
				n++
			}
		}
		return sales.NumberValue(decimal.NewFromInt(int64(n)))
	}

	var values []decimal.Decimal
	for _, ri := range g.rows {
		cell := d.Rows[ri][colIdx]
		if cell.Kind == sales.KindNumber {
			values = append(values, cell.Number)
		}
	}

	switch m.Agg {
	case plan.AggSum:
		return sales.NumberValue(decimal.Sum(decimal.Zero, values...))
	case plan.AggMean:
		if len(values) == 0 {
			return sales.NullValue()
		}
		return sales.NumberValue(decimal.Avg(values[0], values[1:]...))
	case plan.AggMax:
		if len(values) == 0 {
			return sales.NullValue()
		}
		return sales.NumberValue(decimal.Max(values[0], values[1:]...))
	case plan.AggMin:
		if len(values) == 0 {
			return sales.NullValue()
		}
		return sales.NumberValue(decimal.Min(values[0], values[1:]...))
	}
	return sales.NullValue()
}

// sortTable stably sorts the result rows by the requested column. Ties
// keep group formation order. A sort column that is not part of the
// output leaves the order unchanged.
func sortTable(t *plan.ResultTable, s *plan.Sort) {
	if s == nil {
		return
	}
	idx, ok := t.ColumnIndex(s.By)
	if !ok {
		return
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		cmp := compareValues(t.Rows[i][idx], t.Rows[j][idx])
		if s.Ascending {
			return cmp < 0
		}
		return cmp > 0
	})
}

// compareValues orders nulls first, then by kind-appropriate comparison.
func compareValues(a, b sales.Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}
	if a.Kind == sales.KindNumber && b.Kind == sales.KindNumber {
		return a.Number.Cmp(b.Number)
	}
	if a.Kind == sales.KindDate && b.Kind == sales.KindDate {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		default:
			return 0
		}
	}
	switch {
	case a.String() < b.String():
		return -1
	case a.String() > b.String():
		return 1
	default:
		return 0
	}
}
