package ports

import (
	"context"

	"alphabot/domain/plan"
	"alphabot/domain/sales"
)

// Planner translates a natural-language question into an executable
// plan, constrained to the columns the catalog exposes
type Planner interface {
	GeneratePlan(ctx context.Context, question string, catalog *sales.Catalog) (*plan.Plan, error)
}

// Narrator renders an executed result into a user-facing answer
type Narrator interface {
	Narrate(ctx context.Context, question string, p *plan.Plan, result *plan.ResultTable) (string, error)
}
