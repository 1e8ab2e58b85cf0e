// Package normalizer canonicalizes raw spreadsheet headers. Header text
// is folded (accents, case, punctuation) into snake_case and then
// resolved against an immutable alias table, so that variant spellings
// like "Data da Venda" and "DT_VENDA" land on one canonical column.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = []string{"/", "\\", "-", ".", ",", ";", ":", "(", ")", "[", "]", "{", "}"}

// FoldAccents strips combining marks: "emissão" becomes "emissao".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeHeader folds a raw header into its canonical snake_case form:
// trimmed, accent-stripped, lowercased, punctuation collapsed to
// underscores. Idempotent.
func NormalizeHeader(raw string) string {
	text := strings.TrimSpace(raw)
	text = FoldAccents(text)
	text = strings.ToLower(text)
	for _, ch := range punctuation {
		text = strings.ReplaceAll(text, ch, " ")
	}
	return strings.Join(strings.Fields(text), "_")
}

// AliasTable maps recognized variant spellings to canonical column
// names. It is immutable after construction and safe for concurrent use.
type AliasTable struct {
	variants map[string]string
}

// NewAliasTable builds an alias table from canonical name to variant
// spellings. Variants are normalized on the way in, so callers may list
// them in any spelling. The canonical name always resolves to itself.
func NewAliasTable(aliases map[string][]string) *AliasTable {
	variants := make(map[string]string)
	for canon, alts := range aliases {
		variants[NormalizeHeader(canon)] = canon
		for _, alt := range alts {
			variants[NormalizeHeader(alt)] = canon
		}
	}
	return &AliasTable{variants: variants}
}

// DefaultAliasTable carries the spellings seen across customer sales
// spreadsheets for the canonical sales columns.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(map[string][]string{
		"data": {
			"date", "dt",
			"data_venda", "data_da_venda", "data_pedido", "data_do_pedido",
			"data_emissao", "emissao", "emissao_nf", "data_nf", "data_nota",
			"data_de_venda", "data_de_emissao", "dt_venda", "dt_emissao",
		},
		"quantidade":     {"qtd", "quant", "qte"},
		"preco_unitario": {"preco", "preco_unit", "valor_unitario", "preco_unitário", "preco_venda"},
		"receita_total":  {"receita", "faturamento", "valor_total", "total"},
		"produto":        {"item", "sku", "descricao", "descricao_produto"},
		"regiao":         {"regiao_venda", "regiao_geografica", "regioes", "regional", "regiao_cliente"},
		"categoria":      {"category", "grupo", "segmento", "classe"},
	})
}

// Resolve maps an already-normalized header to its canonical name.
// Unrecognized headers keep their normalized form.
func (t *AliasTable) Resolve(normalized string) string {
	if canon, ok := t.variants[normalized]; ok {
		return canon
	}
	return normalized
}

// ResolvedHeader ties a raw header to its canonical name. Ignored marks
// a column that lost the first-wins conflict within its sheet.
type ResolvedHeader struct {
	Raw       string
	Canonical string
	Ignored   bool
}

// Conflict reports a raw header whose canonical name was already claimed
// by an earlier column of the same sheet.
type Conflict struct {
	Raw       string
	Canonical string
	KeptRaw   string
}

// Normalizer resolves sheet headers against one alias table.
type Normalizer struct {
	aliases *AliasTable
}

// New creates a Normalizer over an alias table.
func New(aliases *AliasTable) *Normalizer {
	return &Normalizer{aliases: aliases}
}

// ResolveSheet canonicalizes the headers of one sheet in order. When two
// raw headers resolve to the same canonical name, the first keeps it and
// later ones are marked ignored and reported as conflicts. The result is
// deterministic for a given header order.
func (n *Normalizer) ResolveSheet(headers []string) ([]ResolvedHeader, []Conflict) {
	resolved := make([]ResolvedHeader, 0, len(headers))
	claimed := make(map[string]string, len(headers))
	var conflicts []Conflict

	for _, raw := range headers {
		canon := n.aliases.Resolve(NormalizeHeader(raw))
		if keptRaw, taken := claimed[canon]; taken {
			resolved = append(resolved, ResolvedHeader{Raw: raw, Canonical: canon, Ignored: true})
			conflicts = append(conflicts, Conflict{Raw: raw, Canonical: canon, KeptRaw: keptRaw})
			continue
		}
		claimed[canon] = raw
		resolved = append(resolved, ResolvedHeader{Raw: raw, Canonical: canon})
	}
	return resolved, conflicts
}
