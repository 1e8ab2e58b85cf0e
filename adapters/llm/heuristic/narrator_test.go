package heuristic

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"alphabot/domain/plan"
	"alphabot/domain/sales"
)

func TestFmtBRL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1234.56", "R$ 1.234,56"},
		{"1234567.89", "R$ 1.234.567,89"},
		{"0.5", "R$ 0,50"},
		{"42", "R$ 42,00"},
		{"-10.5", "R$ -10,50"},
		{"1000000", "R$ 1.000.000,00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, fmtBRL(d))
		})
	}
}

func TestNarrateEmptyResult(t *testing.T) {
	result := &plan.ResultTable{Columns: []string{"produto", "receita_total"}}

	answer, err := NewNarrator().Narrate(context.Background(), "q", &plan.Plan{}, result)
	assert.NoError(t, err)
	assert.Contains(t, answer, "Não encontrei dados")
}

func TestNarrateGroupedResult(t *testing.T) {
	d := func(s string) sales.Value {
		v, _ := decimal.NewFromString(s)
		return sales.NumberValue(v)
	}
	result := &plan.ResultTable{
		Columns: []string{"categoria", "receita_total"},
		Rows: [][]sales.Value{
			{sales.TextValue("Eletrônicos"), d("300")},
			{sales.TextValue("Periféricos"), d("50")},
		},
	}
	p := &plan.Plan{GroupBy: []string{"categoria"}}

	answer, err := NewNarrator().Narrate(context.Background(), "receita por categoria", p, result)
	assert.NoError(t, err)
	assert.Contains(t, answer, "Eletrônicos")
	assert.Contains(t, answer, "R$ 300,00", "currency columns render as BRL")
	assert.Contains(t, answer, "Periféricos")
}

func TestNarrateSingleScalar(t *testing.T) {
	result := &plan.ResultTable{
		Columns: []string{"quantidade"},
		Rows:    [][]sales.Value{{sales.NumberValue(decimal.NewFromInt(42))}},
	}

	answer, err := NewNarrator().Narrate(context.Background(), "total de unidades", &plan.Plan{}, result)
	assert.NoError(t, err)
	assert.Contains(t, answer, "42")
	assert.NotContains(t, answer, "R$", "plain quantities are not currency")
}
