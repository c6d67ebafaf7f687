package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/ports"
)

// Materializer is the part of the engine the summary depends on.
type Materializer interface {
	MaterializeMonth(ctx context.Context, userID string, month core.Month) (MaterializationResult, error)
}

var _ Materializer = (*MaterializationEngine)(nil)

// SummaryService builds the monthly dashboard aggregate.
type SummaryService struct {
	engine Materializer
	store  ports.SummaryStore
}

func NewSummaryService(engine Materializer, store ports.SummaryStore) *SummaryService {
	return &SummaryService{engine: engine, store: store}
}

// MonthSummary materializes the month's recurring rules before aggregating,
// so the totals include them. A materialization failure fails the request.
func (s *SummaryService) MonthSummary(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	if _, err := s.engine.MaterializeMonth(ctx, userID, month); err != nil {
		return core.MonthSummary{}, fmt.Errorf("materialize %s: %w", month, err)
	}
	sum, err := s.store.SummarizeMonth(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("summarize %s: %w", month, err)
	}
	return sum, nil
}
