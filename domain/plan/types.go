// Package plan defines the declarative query grammar the planner
// collaborator emits: equality filters, groupby, metrics, sort, limit.
// A Plan is converted from loose JSON into this tagged structure before
// execution; the executor never evaluates arbitrary expressions.
package plan

import "encoding/json"

// Aggregation names the whitelisted aggregate functions.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
	AggMax   Aggregation = "max"
	AggMin   Aggregation = "min"
	AggCount Aggregation = "count"
)

// KnownAggregation reports whether name is in the whitelist.
func KnownAggregation(name string) bool {
	switch Aggregation(name) {
	case AggSum, AggMean, AggMax, AggMin, AggCount:
		return true
	}
	return false
}

// Metric requests one aggregation over one canonical column.
type Metric struct {
	Name string      `json:"name"`
	Agg  Aggregation `json:"agg"`
}

// Sort orders the result rows by one output column.
type Sort struct {
	By        string `json:"by"`
	Ascending bool   `json:"ascending"`
}

// DateRange bounds the canonical date column inclusively. On the wire
// it is a two-element list of date strings: ["2024-01-01", "2024-12-31"].
type DateRange struct {
	Start string
	End   string
}

// Filters holds the row constraints. Equality constraints live under
// the "equals" key, mapping column names to value lists; within one
// column the listed values combine with OR, across columns with AND.
// The optional "date_range" key restricts the data column to an
// inclusive period.
type Filters struct {
	Equals    map[string][]string
	DateRange *DateRange
}

func (f Filters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if len(f.Equals) > 0 {
		out["equals"] = f.Equals
	}
	if f.DateRange != nil {
		out["date_range"] = []string{f.DateRange.Start, f.DateRange.End}
	}
	return json.Marshal(out)
}

func (f *Filters) UnmarshalJSON(data []byte) error {
	parsed, err := parseFilters(data)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Empty reports whether no constraint is present.
func (f Filters) Empty() bool {
	return len(f.Equals) == 0 && f.DateRange == nil
}

// Plan is the validated, immutable query description. Limit is nil when
// absent (unbounded); an explicit 0 yields an empty result.
type Plan struct {
	Filters Filters  `json:"filters,omitempty"`
	GroupBy []string `json:"groupby,omitempty"`
	Metrics []Metric `json:"metrics,omitempty"`
	Sort    *Sort    `json:"sort,omitempty"`
	Limit   *int     `json:"limit,omitempty"`
}

// Degenerate reports whether the plan has neither metrics nor groupby,
// which the grammar forbids.
func (p *Plan) Degenerate() bool {
	return len(p.Metrics) == 0 && len(p.GroupBy) == 0
}
