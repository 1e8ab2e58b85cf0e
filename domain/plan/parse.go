package plan

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"alphabot/domain/core"
)

// Parse converts a loose JSON plan object (as emitted by the planner
// collaborator) into a tagged Plan. Shape and type problems return a
// PlanValidationError naming the offending field; Parse does not check
// column existence, which is the validator's job.
func Parse(raw []byte) (*Plan, error) {
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, core.NewPlanError("plan", "not a JSON object")
	}
	if msg, ok := loose["error"]; ok {
		var text string
		if json.Unmarshal(msg, &text) == nil && text != "" {
			return nil, core.NewPlanError("plan", text)
		}
	}

	p := &Plan{}

	if raw, ok := loose["filters"]; ok {
		filters, err := parseFilters(raw)
		if err != nil {
			return nil, err
		}
		p.Filters = filters
	}

	if raw, ok := loose["groupby"]; ok {
		if err := json.Unmarshal(raw, &p.GroupBy); err != nil {
			return nil, core.NewPlanError("groupby", "must be a list of column names")
		}
	}

	if raw, ok := loose["metrics"]; ok {
		metrics, err := parseMetrics(raw)
		if err != nil {
			return nil, err
		}
		p.Metrics = metrics
	}

	if raw, ok := loose["sort"]; ok && !isJSONNull(raw) {
		var s Sort
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, core.NewPlanError("sort", "must be {by, ascending}")
		}
		if s.By == "" {
			return nil, core.NewPlanError("sort.by", "missing column name")
		}
		p.Sort = &s
	}

	if raw, ok := loose["limit"]; ok && !isJSONNull(raw) {
		limit, err := parseLimit(raw)
		if err != nil {
			return nil, err
		}
		p.Limit = &limit
	}

	if p.Degenerate() {
		return nil, core.NewPlanError("metrics", "plan needs metrics or groupby")
	}
	return p, nil
}

func parseFilters(raw json.RawMessage) (Filters, error) {
	if isJSONNull(raw) {
		return Filters{}, nil
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Filters{}, core.NewPlanError("filters", "must be an object")
	}

	f := Filters{}
	if rangeRaw, ok := shape["date_range"]; ok {
		if !isJSONNull(rangeRaw) {
			dr, err := parseDateRange(rangeRaw)
			if err != nil {
				return Filters{}, err
			}
			f.DateRange = dr
		}
		delete(shape, "date_range")
	}

	// Equality constraints live under "equals". Planners sometimes
	// flatten the object and map column names directly; that shorthand
	// is tolerated.
	source := shape
	where := "filters"
	if eqRaw, ok := shape["equals"]; ok && isJSONObject(eqRaw) {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(eqRaw, &nested); err != nil {
			return Filters{}, core.NewPlanError("filters.equals", "must map column names to value lists")
		}
		source = nested
		where = "filters.equals"
	}
	if len(source) == 0 {
		return f, nil
	}

	equals := make(map[string][]string, len(source))
	for col, v := range source {
		var vals []any
		if err := json.Unmarshal(v, &vals); err != nil {
			// A bare scalar reads as a one-element list.
			var scalar any
			if err := json.Unmarshal(v, &scalar); err != nil {
				return Filters{}, core.NewPlanError(where, "must map column names to value lists")
			}
			vals = []any{scalar}
		}
		strs := make([]string, 0, len(vals))
		for _, item := range vals {
			strs = append(strs, stringify(item))
		}
		equals[col] = strs
	}
	f.Equals = equals
	return f, nil
}

func parseDateRange(raw json.RawMessage) (*DateRange, error) {
	var bounds []string
	if err := json.Unmarshal(raw, &bounds); err != nil || len(bounds) != 2 {
		return nil, core.NewPlanError("filters.date_range", "must be a [start, end] pair of date strings")
	}
	return &DateRange{Start: bounds[0], End: bounds[1]}, nil
}

func parseMetrics(raw json.RawMessage) ([]Metric, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, core.NewPlanError("metrics", "must be a list")
	}
	metrics := make([]Metric, 0, len(items))
	for i, item := range items {
		// A bare column name defaults to sum, matching planner shorthand.
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			metrics = append(metrics, Metric{Name: name, Agg: AggSum})
			continue
		}
		var m Metric
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, core.NewPlanError(fmt.Sprintf("metrics[%d]", i), "must be {name, agg}")
		}
		if m.Name == "" {
			return nil, core.NewPlanError(fmt.Sprintf("metrics[%d].name", i), "missing column name")
		}
		if m.Agg == "" {
			m.Agg = AggSum
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func parseLimit(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, core.NewPlanError("limit", "must be a non-negative integer")
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, core.NewPlanError("limit", "must be a non-negative integer")
	}
	return int(f), nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func isJSONObject(raw json.RawMessage) bool {
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "{")
}

// FilterColumns returns the filtered column names in deterministic order.
func (f Filters) FilterColumns() []string {
	cols := make([]string, 0, len(f.Equals))
	for col := range f.Equals {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
