// Package heuristic implements planner and narrator fallbacks that
// need no model access. The planner maps question keywords onto the
// catalog; the narrator renders a plain pt-BR summary of the result.
// Both keep the service answering when the LLM provider is down.
package heuristic

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"alphabot/domain/plan"
	"alphabot/domain/sales"
	"alphabot/internal/normalizer"
)

const defaultLimit = 10

// aggKeywords map question words to aggregations, checked in order so
// the more specific phrasings win.
var aggKeywords = []struct {
	words []string
	agg   plan.Aggregation
}{
	{[]string{"media", "medio", "em media"}, plan.AggMean},
	{[]string{"maior", "maximo", "mais caro", "recorde"}, plan.AggMax},
	{[]string{"menor", "minimo", "mais barato"}, plan.AggMin},
	{[]string{"quantos", "quantas", "contagem", "numero de"}, plan.AggCount},
}

var topNPattern = regexp.MustCompile(`top\s*(\d+)|(\d+)\s+(?:maiores|melhores|principais)`)

// Planner builds plans from question keywords, constrained to the
// catalog. It is deliberately conservative: when in doubt it sums
// revenue by the first dimension it recognizes.
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

func (p *Planner) GeneratePlan(ctx context.Context, question string, catalog *sales.Catalog) (*plan.Plan, error) {
	q := " " + strings.ToLower(normalizer.FoldAccents(question)) + " "

	metric := pickMetric(q, catalog)
	agg := pickAggregation(q)
	groupBy := pickGroupBy(q, catalog)
	filters := pickFilters(q, catalog)
	limit := pickLimit(q)

	out := &plan.Plan{
		Filters: filters,
		GroupBy: groupBy,
		Metrics: []plan.Metric{{Name: metric, Agg: agg}},
		Limit:   &limit,
	}
	if len(groupBy) > 0 {
		out.Sort = &plan.Sort{By: metric, Ascending: agg == plan.AggMin}
	}
	return out, nil
}

// pickMetric prefers a metric column the question names, then revenue,
// then the first metric the catalog carries.
func pickMetric(q string, catalog *sales.Catalog) string {
	metrics := catalog.MetricColumns()
	for _, name := range metrics {
		for _, token := range metricTokens(name) {
			if strings.Contains(q, token) {
				return name
			}
		}
	}
	for _, name := range metrics {
		if name == "receita_total" {
			return name
		}
	}
	if len(metrics) > 0 {
		return metrics[0]
	}
	// No numeric column at all: count over the first column.
	if len(catalog.Columns) > 0 {
		return catalog.Columns[0].Name
	}
	return ""
}

// metricTokens expands a canonical metric name into the words a user
// would actually type.
func metricTokens(name string) []string {
	switch name {
	case "receita_total":
		return []string{"receita", "faturamento", "vendas", "valor"}
	case "quantidade":
		return []string{"quantidade", "unidades", "volume"}
	case "preco_unitario":
		return []string{"preco", "ticket"}
	}
	return []string{strings.ReplaceAll(name, "_", " ")}
}

func pickAggregation(q string) plan.Aggregation {
	for _, kw := range aggKeywords {
		for _, w := range kw.words {
			if strings.Contains(q, w) {
				return kw.agg
			}
		}
	}
	return plan.AggSum
}

// pickGroupBy selects the dimensions the question names. Provenance
// columns never group.
func pickGroupBy(q string, catalog *sales.Catalog) []string {
	var out []string
	for _, name := range catalog.DimensionColumns() {
		if name == "source_file" || name == "source_sheet" {
			continue
		}
		token := strings.ReplaceAll(name, "_", " ")
		if strings.Contains(q, token) || strings.Contains(q, "por "+token) {
			out = append(out, name)
		}
	}
	return out
}

// pickFilters matches catalog sample values against the question.
// Only low-cardinality text dimensions participate, so product names
// and regions filter but free text does not.
func pickFilters(q string, catalog *sales.Catalog) plan.Filters {
	filters := plan.Filters{Equals: map[string][]string{}}
	for _, col := range catalog.Columns {
		if col.Role != sales.RoleDimension || col.Type != sales.TypeText {
			continue
		}
		if col.Name == "source_file" || col.Name == "source_sheet" {
			continue
		}
		for _, sample := range col.Samples {
			folded := strings.ToLower(normalizer.FoldAccents(sample))
			if folded != "" && strings.Contains(q, folded) {
				filters.Equals[col.Name] = append(filters.Equals[col.Name], sample)
			}
		}
	}
	return filters
}

func pickLimit(q string) int {
	m := topNPattern.FindStringSubmatch(q)
	if m == nil {
		return defaultLimit
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if n, err := strconv.Atoi(g); err == nil && n > 0 {
			return n
		}
	}
	return defaultLimit
}
