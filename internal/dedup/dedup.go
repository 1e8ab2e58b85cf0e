// Package dedup removes duplicate records from an ingested row set.
// When a canonical identifier column is present, records dedup by ID;
// otherwise by a key tuple over a fixed list of sales columns. Either
// way the first occurrence in ingestion order wins, which makes the
// operation deterministic and idempotent.
package dedup

import (
	"strings"

	"alphabot/domain/sales"
)

// Strategy names the key construction used for one dataset.
type Strategy string

const (
	StrategyID       Strategy = "id"
	StrategyKeyTuple Strategy = "key_tuple"
)

// idColumns are the recognized canonical identifier columns, in
// priority order.
var idColumns = []string{
	"id", "pedido_id", "order_id", "nota_id", "invoice_id",
	"id_pedido", "id_nota", "id_venda",
}

// keyColumns is the fixed ordered list the tuple key draws from;
// whichever subset exists in the schema is used.
var keyColumns = []string{"data", "produto", "quantidade", "preco_unitario", "receita_total"}

// Result reports what one deduplication pass did.
type Result struct {
	Strategy Strategy
	Removed  int
}

// Deduplicate returns the rows with duplicates removed, preserving
// ingestion order. Strategy selection happens once per dataset: ID when
// an identifier column exists in the schema, key tuple otherwise.
// Records whose ID cell is null fall back to the tuple key so they can
// still collapse against each other.
func Deduplicate(columns []sales.ColumnSchema, rows [][]sales.Value) ([][]sales.Value, Result) {
	idIdx, hasID := findIDColumn(columns)
	tupleIdx := findKeyColumns(columns)

	strategy := StrategyKeyTuple
	if hasID {
		strategy = StrategyID
	}

	seen := make(map[string]struct{}, len(rows))
	kept := make([][]sales.Value, 0, len(rows))
	removed := 0

	for _, row := range rows {
		key := ""
		if hasID && !row[idIdx].IsNull() {
			key = "id\x1f" + row[idIdx].String()
		} else {
			key = tupleKey(row, tupleIdx)
		}
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}

	return kept, Result{Strategy: strategy, Removed: removed}
}

func findIDColumn(columns []sales.ColumnSchema) (int, bool) {
	for _, name := range idColumns {
		for i, col := range columns {
			if col.Name == name {
				return i, true
			}
		}
	}
	return 0, false
}

// findKeyColumns resolves the tuple key positions. When none of the
// preferred columns exist, every column participates so that only fully
// identical records collapse.
func findKeyColumns(columns []sales.ColumnSchema) []int {
	var idx []int
	for _, name := range keyColumns {
		for i, col := range columns {
			if col.Name == name {
				idx = append(idx, i)
			}
		}
	}
	if len(idx) == 0 {
		idx = make([]int, len(columns))
		for i := range columns {
			idx[i] = i
		}
	}
	return idx
}

func tupleKey(row []sales.Value, idx []int) string {
	parts := make([]string, 0, len(idx)+1)
	parts = append(parts, "key")
	for _, i := range idx {
		parts = append(parts, row[i].String())
	}
	return strings.Join(parts, "\x1f")
}
