package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

type failingMaterializer struct{ err error }

func (m failingMaterializer) MaterializeMonth(context.Context, string, core.Month) (MaterializationResult, error) {
	return MaterializationResult{}, m.err
}

func TestSummaryIncludesMaterializedRules(t *testing.T) {
	f := newEngineFixture(t)
	f.addRule(t, "rent", core.Expense, 1, "2025-01", "")
	f.addRule(t, "salary", core.Income, 27, "2025-01", "")
	s := NewSummaryService(f.engine(), f.store)
	ctx := context.Background()
	june := core.MustParseMonth("2025-06")

	sum, err := s.MonthSummary(ctx, f.user, june)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Transactions)
	assert.Equal(t, int64(10000), sum.Income.Cents)
	assert.Equal(t, int64(10000), sum.Expense.Cents)
	assert.Equal(t, int64(10000), sum.PendingExpense.Cents)
	assert.Equal(t, int64(0), sum.Balance().Cents)

	again, err := s.MonthSummary(ctx, f.user, june)
	require.NoError(t, err)
	assert.Equal(t, sum, again, "repeated summaries do not duplicate")
}

func TestSummaryFailsWhenMaterializationFails(t *testing.T) {
	f := newEngineFixture(t)
	boom := errors.New("store unavailable")
	s := NewSummaryService(failingMaterializer{err: boom}, f.store)

	_, err := s.MonthSummary(context.Background(), f.user, core.MustParseMonth("2025-06"))
	assert.ErrorIs(t, err, boom)
}
