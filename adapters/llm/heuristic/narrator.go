package heuristic

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"alphabot/domain/plan"
	"alphabot/domain/sales"
)

const narratedRows = 5

// Narrator renders a deterministic pt-BR summary of a result table.
type Narrator struct{}

func NewNarrator() *Narrator {
	return &Narrator{}
}

func (n *Narrator) Narrate(ctx context.Context, question string, p *plan.Plan, result *plan.ResultTable) (string, error) {
	if len(result.Rows) == 0 {
		return "Não encontrei dados que respondam a essa pergunta com os filtros aplicados.", nil
	}

	var b strings.Builder
	if len(result.Rows) == 1 && len(p.GroupBy) == 0 {
		b.WriteString("Resultado: ")
		b.WriteString(describeRow(result, result.Rows[0]))
	} else {
		fmt.Fprintf(&b, "Encontrei %d resultados. Principais:\n", len(result.Rows))
		rows := result.Rows
		if len(rows) > narratedRows {
			rows = rows[:narratedRows]
		}
		for _, row := range rows {
			b.WriteString("- " + describeRow(result, row) + "\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func describeRow(result *plan.ResultTable, row []sales.Value) string {
	parts := make([]string, 0, len(row))
	for i, v := range row {
		parts = append(parts, result.Columns[i]+": "+formatValue(result.Columns[i], v))
	}
	return strings.Join(parts, ", ")
}

// formatValue renders currency columns as BRL and leaves everything
// else in canonical form.
func formatValue(column string, v sales.Value) string {
	if v.IsNull() {
		return "n/d"
	}
	if v.Kind == sales.KindNumber && isCurrencyColumn(column) {
		return fmtBRL(v.Number)
	}
	return v.String()
}

func isCurrencyColumn(name string) bool {
	return strings.Contains(name, "receita") || strings.Contains(name, "preco") || strings.Contains(name, "valor")
}

// fmtBRL renders a decimal as "R$ 1.234,56".
func fmtBRL(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := "R$ " + strings.Join(groups, ".") + "," + fracPart
	if neg {
		out = "R$ -" + strings.Join(groups, ".") + "," + fracPart
	}
	return out
}
