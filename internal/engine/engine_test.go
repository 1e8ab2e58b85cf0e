package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"alphabot/domain/core"
	"alphabot/domain/plan"
	"alphabot/domain/sales"
)

func num(s string) sales.Value {
	d, _ := decimal.NewFromString(s)
	return sales.NumberValue(d)
}

func text(s string) sales.Value {
	return sales.TextValue(s)
}

func date(y int, m time.Month, d int) sales.Value {
	return sales.DateValue(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func intPtr(n int) *int { return &n }

// testDataset builds the small sales table most tests run against.
func testDataset() *sales.Dataset {
	columns := []sales.ColumnSchema{
		{Name: "data", Type: sales.TypeDate, Role: sales.RoleDimension},
		{Name: "produto", Type: sales.TypeText, Role: sales.RoleDimension},
		{Name: "categoria", Type: sales.TypeText, Role: sales.RoleDimension},
		{Name: "regiao", Type: sales.TypeText, Role: sales.RoleDimension},
		{Name: "quantidade", Type: sales.TypeNumber, Role: sales.RoleMetric},
		{Name: "receita_total", Type: sales.TypeNumber, Role: sales.RoleMetric},
	}
	rows := [][]sales.Value{
		{date(2024, 1, 5), text("Monitor"), text("Eletrônicos"), text("Sul"), num("1"), num("100")},
		{date(2024, 1, 6), text("Notebook"), text("Eletrônicos"), text("Norte"), num("1"), num("200")},
		{date(2024, 1, 7), text("Mouse"), text("Periféricos"), text("Sul"), num("2"), num("50")},
	}
	return sales.NewDataset(columns, rows, sales.Diagnostics{})
}

func TestExecuteGroupAndSum(t *testing.T) {
	p := &plan.Plan{
		GroupBy: []string{"categoria"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)

	assert.Equal(t, []string{"categoria", "receita_total"}, result.Columns)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "Eletrônicos", result.Rows[0][0].Text, "groups keep first-seen order")
	assert.Equal(t, "300", result.Rows[0][1].Number.String())
	assert.Equal(t, "Periféricos", result.Rows[1][0].Text)
	assert.Equal(t, "50", result.Rows[1][1].Number.String())

	assert.Equal(t, 3, result.Summary.RowsIn)
	assert.Equal(t, 3, result.Summary.RowsAfterFilter)
	assert.Equal(t, 2, result.Summary.RowsAfterGroup)
}

func TestExecuteFiltersOrWithinAndAcross(t *testing.T) {
	p := &plan.Plan{
		Filters: plan.Filters{Equals: map[string][]string{
			"regiao":    {"Sul", "Norte"},
			"categoria": {"Eletrônicos"},
		}},
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	// Mouse is Periféricos, so the AND across columns drops it even
	// though its region matches.
	assert.Equal(t, 2, result.Summary.RowsAfterFilter)
	assert.Len(t, result.Rows, 2)
}

func TestExecutePlannerWireGrammar(t *testing.T) {
	raw := []byte(`{
		"filters": {"equals": {"categoria": ["Eletrônicos"]}},
		"metrics": [{"name": "receita_total", "agg": "sum"}]
	}`)
	p, err := plan.Parse(raw)
	assert.NoError(t, err)

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Summary.RowsAfterFilter, "equals constrains categoria, not a column named equals")
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "300", result.Rows[0][0].Number.String())
}

func TestExecuteDateRangeInclusive(t *testing.T) {
	p := &plan.Plan{
		Filters: plan.Filters{DateRange: &plan.DateRange{Start: "2024-01-06", End: "2024-01-07"}},
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Summary.RowsAfterFilter, "both bounds are inclusive")
	assert.Equal(t, "Notebook", result.Rows[0][0].Text)
	assert.Equal(t, "Mouse", result.Rows[1][0].Text)
}

func TestExecuteDateRangeCombinesWithEquals(t *testing.T) {
	p := &plan.Plan{
		Filters: plan.Filters{
			Equals:    map[string][]string{"regiao": {"Sul"}},
			DateRange: &plan.DateRange{Start: "2024-01-01", End: "2024-01-06"},
		},
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "Monitor", result.Rows[0][0].Text)
}

func TestExecuteDateRangeDayFirstBounds(t *testing.T) {
	p := &plan.Plan{
		Filters: plan.Filters{DateRange: &plan.DateRange{Start: "05/01/2024", End: "05/01/2024"}},
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "quantidade", Agg: plan.AggSum}},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "Monitor", result.Rows[0][0].Text)
}

func TestExecuteDateRangeExcludesNullDates(t *testing.T) {
	columns := []sales.ColumnSchema{
		{Name: "data", Type: sales.TypeDate, Role: sales.RoleDimension},
		{Name: "quantidade", Type: sales.TypeNumber, Role: sales.RoleMetric},
	}
	rows := [][]sales.Value{
		{date(2024, 3, 1), num("5")},
		{sales.NullValue(), num("7")},
	}
	d := sales.NewDataset(columns, rows, sales.Diagnostics{})

	p := &plan.Plan{
		Filters: plan.Filters{DateRange: &plan.DateRange{Start: "2024-01-01", End: "2024-12-31"}},
		Metrics: []plan.Metric{{Name: "quantidade", Agg: plan.AggSum}},
	}

	result, err := Execute(d, p)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Summary.RowsAfterFilter, "a null date falls outside any range")
	assert.Equal(t, "5", result.Rows[0][0].Number.String())
}

func TestValidateDateRange(t *testing.T) {
	withoutDates := sales.NewDataset([]sales.ColumnSchema{
		{Name: "produto", Type: sales.TypeText, Role: sales.RoleDimension},
		{Name: "quantidade", Type: sales.TypeNumber, Role: sales.RoleMetric},
	}, nil, sales.Diagnostics{})

	numericData := sales.NewDataset([]sales.ColumnSchema{
		{Name: "data", Type: sales.TypeNumber, Role: sales.RoleMetric},
		{Name: "quantidade", Type: sales.TypeNumber, Role: sales.RoleMetric},
	}, nil, sales.Diagnostics{})

	rangePlan := func(start, end string) *plan.Plan {
		return &plan.Plan{
			Filters: plan.Filters{DateRange: &plan.DateRange{Start: start, End: end}},
			Metrics: []plan.Metric{{Name: "quantidade", Agg: plan.AggSum}},
		}
	}

	tests := []struct {
		name     string
		dataset  *sales.Dataset
		plan     *plan.Plan
		sentinel error
	}{
		{"no data column", withoutDates, rangePlan("2024-01-01", "2024-12-31"), core.ErrSchema},
		{"data column not a date", numericData, rangePlan("2024-01-01", "2024-12-31"), core.ErrPlanInvalid},
		{"unparseable start", testDataset(), rangePlan("primeiro trimestre", "2024-12-31"), core.ErrPlanInvalid},
		{"unparseable end", testDataset(), rangePlan("2024-01-01", "fim do ano"), core.ErrPlanInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.plan, tt.dataset)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestExecuteNumericFilterMatchesFormattedValue(t *testing.T) {
	p := &plan.Plan{
		Filters: plan.Filters{Equals: map[string][]string{"quantidade": {"2.0"}}},
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "Mouse", result.Rows[0][0].Text)
}

func TestExecuteSortAndLimit(t *testing.T) {
	p := &plan.Plan{
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
		Sort:    &plan.Sort{By: "receita_total", Ascending: false},
		Limit:   intPtr(2),
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "Notebook", result.Rows[0][0].Text)
	assert.Equal(t, "Monitor", result.Rows[1][0].Text)
}

func TestExecuteZeroLimit(t *testing.T) {
	p := &plan.Plan{
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
		Limit:   intPtr(0),
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Empty(t, result.Rows, "limit zero yields an empty result, not an error")
	assert.Equal(t, []string{"produto", "receita_total"}, result.Columns)
}

func TestExecuteSortStability(t *testing.T) {
	columns := []sales.ColumnSchema{
		{Name: "produto", Type: sales.TypeText, Role: sales.RoleDimension},
		{Name: "quantidade", Type: sales.TypeNumber, Role: sales.RoleMetric},
	}
	rows := [][]sales.Value{
		{text("A"), num("1")},
		{text("B"), num("1")},
		{text("C"), num("1")},
	}
	d := sales.NewDataset(columns, rows, sales.Diagnostics{})

	p := &plan.Plan{
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "quantidade", Agg: plan.AggSum}},
		Sort:    &plan.Sort{By: "quantidade", Ascending: true},
	}

	result, err := Execute(d, p)
	assert.NoError(t, err)
	assert.Equal(t, "A", result.Rows[0][0].Text, "ties keep group formation order")
	assert.Equal(t, "B", result.Rows[1][0].Text)
	assert.Equal(t, "C", result.Rows[2][0].Text)
}

func TestExecuteAggregations(t *testing.T) {
	columns := []sales.ColumnSchema{
		{Name: "quantidade", Type: sales.TypeNumber, Role: sales.RoleMetric},
	}
	rows := [][]sales.Value{
		{num("10")},
		{num("20")},
		{sales.NullValue()},
	}
	d := sales.NewDataset(columns, rows, sales.Diagnostics{})

	tests := []struct {
		agg  plan.Aggregation
		want string
	}{
		{plan.AggSum, "30"},
		{plan.AggMean, "15"},
		{plan.AggMax, "20"},
		{plan.AggMin, "10"},
		{plan.AggCount, "2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.agg), func(t *testing.T) {
			p := &plan.Plan{Metrics: []plan.Metric{{Name: "quantidade", Agg: tt.agg}}}
			result, err := Execute(d, p)
			assert.NoError(t, err)
			assert.Len(t, result.Rows, 1)
			assert.Equal(t, tt.want, result.Rows[0][0].Number.String())
		})
	}
}

func TestExecuteEmptyGroupAggregates(t *testing.T) {
	p := &plan.Plan{
		Filters: plan.Filters{Equals: map[string][]string{"regiao": {"Oeste"}}},
		Metrics: []plan.Metric{
			{Name: "receita_total", Agg: plan.AggSum},
			{Name: "receita_total", Agg: plan.AggMean},
		},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "0", result.Rows[0][0].Number.String(), "sum of nothing is zero")
	assert.True(t, result.Rows[0][1].IsNull(), "mean of nothing is null")
}

func TestExecuteDuplicateMetricNamesSuffixed(t *testing.T) {
	p := &plan.Plan{
		Metrics: []plan.Metric{
			{Name: "receita_total", Agg: plan.AggSum},
			{Name: "receita_total", Agg: plan.AggMax},
		},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err)
	assert.Equal(t, []string{"receita_total_sum", "receita_total_max"}, result.Columns)
}

func TestValidateErrors(t *testing.T) {
	d := testDataset()

	tests := []struct {
		name     string
		plan     *plan.Plan
		sentinel error
	}{
		{
			"unknown filter column",
			&plan.Plan{
				Filters: plan.Filters{Equals: map[string][]string{"vendedor": {"Ana"}}},
				GroupBy: []string{"produto"},
				Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
			},
			core.ErrSchema,
		},
		{
			"unknown groupby column",
			&plan.Plan{
				GroupBy: []string{"loja"},
				Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
			},
			core.ErrSchema,
		},
		{
			"unknown metric column",
			&plan.Plan{Metrics: []plan.Metric{{Name: "margem", Agg: plan.AggSum}}},
			core.ErrSchema,
		},
		{
			"unsupported aggregation",
			&plan.Plan{Metrics: []plan.Metric{{Name: "receita_total", Agg: "median"}}},
			core.ErrPlanInvalid,
		},
		{
			"sum over text column",
			&plan.Plan{Metrics: []plan.Metric{{Name: "produto", Agg: plan.AggSum}}},
			core.ErrAggregation,
		},
		{
			"degenerate plan",
			&plan.Plan{Filters: plan.Filters{Equals: map[string][]string{"regiao": {"Sul"}}}},
			core.ErrPlanInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Execute(d, tt.plan)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestExecuteCountOverTextColumn(t *testing.T) {
	p := &plan.Plan{
		GroupBy: []string{"regiao"},
		Metrics: []plan.Metric{{Name: "produto", Agg: plan.AggCount}},
	}

	result, err := Execute(testDataset(), p)
	assert.NoError(t, err, "count works on non-numeric columns")
	assert.Len(t, result.Rows, 2)
}

func TestExecuteDoesNotMutateDataset(t *testing.T) {
	d := testDataset()
	before := d.RowCount()

	p := &plan.Plan{
		GroupBy: []string{"produto"},
		Metrics: []plan.Metric{{Name: "receita_total", Agg: plan.AggSum}},
		Sort:    &plan.Sort{By: "receita_total", Ascending: true},
		Limit:   intPtr(1),
	}
	first, err := Execute(d, p)
	assert.NoError(t, err)
	second, err := Execute(d, p)
	assert.NoError(t, err)

	assert.Equal(t, before, d.RowCount())
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Rows, second.Rows)
}
