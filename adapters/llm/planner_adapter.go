package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"alphabot/domain/plan"
	"alphabot/domain/sales"
	"alphabot/internal"
	"alphabot/ports"
)

// PlannerAdapter implements the Planner port with an LLM. A successful
// call prompts the model with the dataset catalog, extracts the first
// JSON object from the reply, and parses it into a plan. When the
// model is unreachable or emits garbage, the adapter falls back to the
// heuristic planner if one is configured.
type PlannerAdapter struct {
	config          Config
	llmClient       ports.LLMClient
	fallbackPlanner ports.Planner
	logger          *internal.Logger
}

// NewPlannerAdapter creates a new LLM planner adapter
func NewPlannerAdapter(config Config, client ports.LLMClient, fallback ports.Planner, logger *internal.Logger) *PlannerAdapter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PlannerAdapter{
		config:          config,
		llmClient:       client,
		fallbackPlanner: fallback,
		logger:          logger,
	}
}

func (a *PlannerAdapter) GeneratePlan(ctx context.Context, question string, catalog *sales.Catalog) (*plan.Plan, error) {
	p, err := a.generateWithLLM(ctx, question, catalog)
	if err == nil {
		return p, nil
	}
	if a.config.FallbackToHeuristic && a.fallbackPlanner != nil {
		a.logger.Warn("LLM planner failed, falling back to heuristic: %v", err)
		return a.fallbackPlanner.GeneratePlan(ctx, question, catalog)
	}
	return nil, err
}

func (a *PlannerAdapter) generateWithLLM(ctx context.Context, question string, catalog *sales.Catalog) (*plan.Plan, error) {
	prompt, err := buildPlannerPrompt(question, catalog)
	if err != nil {
		return nil, fmt.Errorf("build planner prompt: %w", err)
	}

	response, err := a.llmClient.ChatCompletion(ctx, a.config.Model, prompt, a.config.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("planner completion: %w", err)
	}

	raw, ok := ExtractJSONObject(response)
	if !ok {
		return nil, fmt.Errorf("planner response carries no JSON object")
	}
	return plan.Parse([]byte(raw))
}

// buildPlannerPrompt renders the catalog and the plan schema contract
// for the model.
func buildPlannerPrompt(question string, catalog *sales.Catalog) (string, error) {
	catalogJSON, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You convert questions about sales data into a JSON query plan.\n\n")
	b.WriteString("Available columns (with types, roles and sample values):\n")
	b.Write(catalogJSON)
	b.WriteString("\n\nRespond with ONE JSON object and nothing else, using this schema:\n")
	b.WriteString(`{
  "filters": {"equals": {"<column>": ["<value>", ...]}, "date_range": ["YYYY-MM-DD", "YYYY-MM-DD"]},
  "groupby": ["<column>", ...],
  "metrics": [{"name": "<column>", "agg": "sum|mean|max|min|count"}],
  "sort": {"by": "<column>", "ascending": false},
  "limit": 10
}` + "\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use only column names from the catalog above.\n")
	b.WriteString("- Filter values must match sample values where possible.\n")
	b.WriteString("- date_range limits the data column to an inclusive period; omit it when the question names no period.\n")
	b.WriteString("- Omit filters, sort or limit when the question does not ask for them.\n")
	b.WriteString("- If the question cannot be answered from these columns, respond with {\"error\": \"<short reason>\"}.\n\n")
	b.WriteString("Question: " + question + "\n")
	return b.String(), nil
}

// ExtractJSONObject slices the substring between the first opening and
// the last closing brace. Models often wrap the object in prose or
// markdown fences; everything outside the braces is discarded.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
