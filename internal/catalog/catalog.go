// Package catalog derives the schema-level description of a Dataset
// that is handed to the plan-generation collaborator.
package catalog

import (
	"github.com/montanaflynn/stats"

	"alphabot/domain/sales"
)

const (
	maxSamples = 5

	// Numeric columns with very low cardinality act as codes and are
	// classified as dimensions instead of metrics.
	codeCardinalityCap = 20
	codeUniqueRatio    = 0.1
)

// Build computes the catalog for a dataset: per column the inferred
// type, the dimension/metric role, cardinality, a small distinct-value
// sample and, for numeric columns, min/max/mean summaries. It is a pure
// function of the dataset and never includes full row data.
func Build(d *sales.Dataset) sales.Catalog {
	cat := sales.Catalog{Columns: make([]sales.CatalogColumn, 0, len(d.Columns))}

	for i, col := range d.Columns {
		distinct := make(map[string]struct{})
		samples := make([]string, 0, maxSamples)
		var numbers []float64

		for _, row := range d.Rows {
			v := row[i]
			if v.IsNull() {
				continue
			}
			s := v.String()
			if _, seen := distinct[s]; !seen {
				distinct[s] = struct{}{}
				if len(samples) < maxSamples {
					samples = append(samples, s)
				}
			}
			if v.Kind == sales.KindNumber {
				f, _ := v.Number.Float64()
				numbers = append(numbers, f)
			}
		}

		out := sales.CatalogColumn{
			Name:        col.Name,
			Type:        col.Type,
			Role:        Classify(col.Type, len(distinct), len(d.Rows)),
			Samples:     samples,
			Cardinality: len(distinct),
		}
		if col.Type == sales.TypeNumber && len(numbers) > 0 {
			if v, err := stats.Min(numbers); err == nil {
				out.Min = &v
			}
			if v, err := stats.Max(numbers); err == nil {
				out.Max = &v
			}
			if v, err := stats.Mean(numbers); err == nil {
				out.Mean = &v
			}
		}
		cat.Columns = append(cat.Columns, out)
	}
	return cat
}

// Classify assigns the planning role. Numeric columns default to
// metric; low-cardinality numeric codes and all date/text columns are
// dimensions.
func Classify(t sales.ColumnType, cardinality, rowCount int) sales.Role {
	if t != sales.TypeNumber {
		return sales.RoleDimension
	}
	if rowCount > 0 && cardinality <= codeCardinalityCap &&
		float64(cardinality)/float64(rowCount) < codeUniqueRatio {
		return sales.RoleDimension
	}
	return sales.RoleMetric
}
