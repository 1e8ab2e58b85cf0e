// Package rowfilter drops pre-aggregated data before it can poison the
// canonical dataset: entire sheets whose name flags them as aggregate
// views, and subtotal rows inside retained sheets.
package rowfilter

import (
	"strings"

	"alphabot/domain/sales"
	"alphabot/internal/normalizer"
)

// Config lists the aggregate indicators.
type Config struct {
	// SheetBlacklist substrings mark a sheet as pre-aggregated. Matched
	// case- and accent-insensitively against the sheet name.
	SheetBlacklist []string
	// TotalLabels are the label-column values that mark a subtotal row.
	TotalLabels []string
}

// DefaultConfig returns the aggregate indicators seen across customer
// sales workbooks.
func DefaultConfig() Config {
	return Config{
		SheetBlacklist: []string{"resumo", "dashboard", "total", "summary", "consolidado", "grafico", "pivot"},
		TotalLabels:    []string{"total", "totais", "subtotal", "total geral"},
	}
}

// Filter applies the aggregate-row and aggregate-sheet rules.
type Filter struct {
	cfg Config
}

// New creates a Filter with the given config.
func New(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

// SkipSheet reports whether a sheet is an aggregate view to be ignored
// wholesale. "Resumo Mensal" and "Dashboard 2024" both match.
func (f *Filter) SkipSheet(name string) bool {
	folded := strings.ToLower(normalizer.FoldAccents(name))
	for _, marker := range f.cfg.SheetBlacklist {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

// IsTotalRow reports whether a label-column value marks a subtotal row.
// The value is trimmed and case-folded first, so "Total", " total " and
// "TOTAL GERAL" all match.
func (f *Filter) IsTotalRow(label string) bool {
	folded := strings.ToLower(normalizer.FoldAccents(strings.TrimSpace(label)))
	for _, marker := range f.cfg.TotalLabels {
		if folded == marker {
			return true
		}
	}
	return strings.HasPrefix(folded, "total ")
}

// LabelColumn picks the designated label column: the first text-typed
// column of the schema, where subtotal markers are written.
func (f *Filter) LabelColumn(columns []sales.ColumnSchema) (int, bool) {
	for i, col := range columns {
		if col.Type == sales.TypeText {
			return i, true
		}
	}
	return 0, false
}
