package catalog

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"alphabot/domain/sales"
)

func num(n int64) sales.Value {
	return sales.NumberValue(decimal.NewFromInt(n))
}

func TestBuild(t *testing.T) {
	columns := []sales.ColumnSchema{
		{Name: "data", Type: sales.TypeDate, Role: sales.RoleDimension},
		{Name: "produto", Type: sales.TypeText, Role: sales.RoleDimension},
		{Name: "quantidade", Type: sales.TypeNumber, Role: sales.RoleMetric},
	}
	rows := [][]sales.Value{
		{sales.DateValue(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)), sales.TextValue("Mouse"), num(2)},
		{sales.DateValue(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)), sales.TextValue("Teclado"), num(4)},
		{sales.DateValue(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)), sales.TextValue("Mouse"), sales.NullValue()},
	}
	d := sales.NewDataset(columns, rows, sales.Diagnostics{})

	cat := Build(d)
	assert.Len(t, cat.Columns, 3)

	data, ok := cat.Column("data")
	assert.True(t, ok)
	assert.Equal(t, 2, data.Cardinality, "distinct dates, nulls excluded")
	assert.Equal(t, []string{"2024-01-05", "2024-01-06"}, data.Samples)
	assert.Nil(t, data.Min, "range stats are for number columns only")

	produto, _ := cat.Column("produto")
	assert.Equal(t, sales.RoleDimension, produto.Role)
	assert.Equal(t, 2, produto.Cardinality)

	quantidade, _ := cat.Column("quantidade")
	assert.Equal(t, sales.RoleMetric, quantidade.Role)
	if assert.NotNil(t, quantidade.Min) {
		assert.Equal(t, 2.0, *quantidade.Min)
	}
	if assert.NotNil(t, quantidade.Max) {
		assert.Equal(t, 4.0, *quantidade.Max)
	}
	if assert.NotNil(t, quantidade.Mean) {
		assert.Equal(t, 3.0, *quantidade.Mean)
	}
}

func TestBuildSampleCap(t *testing.T) {
	columns := []sales.ColumnSchema{{Name: "produto", Type: sales.TypeText, Role: sales.RoleDimension}}
	rows := make([][]sales.Value, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, []sales.Value{sales.TextValue(fmt.Sprintf("Produto %02d", i))})
	}
	d := sales.NewDataset(columns, rows, sales.Diagnostics{})

	cat := Build(d)
	assert.Equal(t, 50, cat.Columns[0].Cardinality)
	assert.Len(t, cat.Columns[0].Samples, maxSamples)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		colType     sales.ColumnType
		cardinality int
		rowCount    int
		want        sales.Role
	}{
		{"text is dimension", sales.TypeText, 500, 1000, sales.RoleDimension},
		{"date is dimension", sales.TypeDate, 300, 1000, sales.RoleDimension},
		{"high cardinality number is metric", sales.TypeNumber, 800, 1000, sales.RoleMetric},
		{"low cardinality code is dimension", sales.TypeNumber, 5, 1000, sales.RoleDimension},
		{"small dataset number stays metric", sales.TypeNumber, 5, 10, sales.RoleMetric},
		{"empty dataset number is metric", sales.TypeNumber, 0, 0, sales.RoleMetric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.colType, tt.cardinality, tt.rowCount))
		})
	}
}
