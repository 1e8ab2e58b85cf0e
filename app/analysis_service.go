// Package app wires the ingestion, planning, execution and narration
// collaborators into the question-answering flow.
package app

import (
	"context"
	"fmt"
	"time"

	"alphabot/domain/core"
	"alphabot/domain/plan"
	"alphabot/domain/sales"
	"alphabot/internal"
	"alphabot/internal/catalog"
	"alphabot/internal/engine"
	"alphabot/internal/ingest"
	"alphabot/ports"
)

// Answer is the full outcome of one question: the plan that ran, the
// table it produced and the narrated reply.
type Answer struct {
	RequestID core.RequestID
	Question  string
	Plan      *plan.Plan
	Result    *plan.ResultTable
	Narrative string
	Elapsed   time.Duration
}

type AnalysisService struct {
	loader   *ingest.Loader
	planner  ports.Planner
	narrator ports.Narrator
	logger   *internal.Logger
}

func NewAnalysisService(loader *ingest.Loader, planner ports.Planner, narrator ports.Narrator, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		loader:   loader,
		planner:  planner,
		narrator: narrator,
		logger:   logger,
	}
}

// Ask runs the complete flow for one question: load the dataset, plan,
// execute, narrate. Any stage failure aborts the request; there are no
// partial answers.
func (s *AnalysisService) Ask(ctx context.Context, question string, files []string) (*Answer, error) {
	start := time.Now()
	requestID := core.NewRequestID()

	dataset, err := s.loader.Load(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	if dataset.RowCount() == 0 {
		return nil, core.ErrNoData
	}

	cat := catalog.Build(dataset)

	p, err := s.planner.GeneratePlan(ctx, question, &cat)
	if err != nil {
		return nil, fmt.Errorf("planning: %w", err)
	}

	result, err := engine.Execute(dataset, p)
	if err != nil {
		// Plan and schema rejections are question problems, not system
		// failures; keep them out of the error log.
		if core.IsSchemaError(err) || core.IsPlanError(err) || core.IsAggregationError(err) {
			s.logger.Warn("request %s: plan rejected: %v", requestID, err)
		} else {
			s.logger.Error("request %s: execution failed: %v", requestID, err)
		}
		return nil, err
	}

	narrative, err := s.narrator.Narrate(ctx, question, p, result)
	if err != nil {
		return nil, fmt.Errorf("narrating result: %w", err)
	}

	elapsed := time.Since(start)
	s.logger.Info("request %s answered in %s (%d result rows)", requestID, elapsed, len(result.Rows))

	return &Answer{
		RequestID: requestID,
		Question:  question,
		Plan:      p,
		Result:    result,
		Narrative: narrative,
		Elapsed:   elapsed,
	}, nil
}

// Catalog returns the schema summary for the current dataset.
func (s *AnalysisService) Catalog(ctx context.Context, files []string) (*sales.Catalog, error) {
	dataset, err := s.loader.Load(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	cat := catalog.Build(dataset)
	return &cat, nil
}

// Diagnostics exposes the load report for the current dataset.
func (s *AnalysisService) Diagnostics(ctx context.Context, files []string) (*sales.Diagnostics, error) {
	dataset, err := s.loader.Load(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	return &dataset.Diagnostics, nil
}

// Reload drops every cached dataset so the next request re-reads the
// source folder.
func (s *AnalysisService) Reload(ctx context.Context) {
	s.loader.Reset()
	s.logger.Info("dataset cache cleared")
}
