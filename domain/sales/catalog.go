package sales

// Catalog is the schema-level description handed to the planner
// collaborator. It never contains full row data, only metadata and a
// handful of sample values per column.
type Catalog struct {
	Columns []CatalogColumn `json:"columns"`
}

// CatalogColumn describes one column for plan generation.
type CatalogColumn struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Role        Role       `json:"role"`
	Samples     []string   `json:"samples,omitempty"`
	Cardinality int        `json:"cardinality"`

	// Numeric range summaries, present for number columns only.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`
}

// Column looks up a catalog column by canonical name.
func (c Catalog) Column(name string) (CatalogColumn, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return CatalogColumn{}, false
}

// MetricColumns returns the names of columns eligible for aggregation.
func (c Catalog) MetricColumns() []string {
	var out []string
	for _, col := range c.Columns {
		if col.Role == RoleMetric {
			out = append(out, col.Name)
		}
	}
	return out
}

// DimensionColumns returns the names of columns usable for grouping.
func (c Catalog) DimensionColumns() []string {
	var out []string
	for _, col := range c.Columns {
		if col.Role == RoleDimension {
			out = append(out, col.Name)
		}
	}
	return out
}
