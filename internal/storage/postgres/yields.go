package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func (s *Store) SummarizeMonth(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	txs, err := s.ListTransactions(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	cats, err := s.ListCategories(ctx, userID)
	if err != nil {
		return core.MonthSummary{}, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return core.Summarize(month, txs, names), nil
}

func (s *Store) GetYields(ctx context.Context, month core.Month) ([]core.MarketYield, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT instrument, rate::text, fetched_at FROM market_yields WHERE month = $1 ORDER BY instrument`,
		month.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list yields: %w", err)
	}
	defer rows.Close()

	var out []core.MarketYield
	for rows.Next() {
		y := core.MarketYield{Month: month}
		var rate string
		if err := rows.Scan(&y.Instrument, &rate, &y.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan yield: %w", err)
		}
		if y.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("parse rate for %s: %w", y.Instrument, err)
		}
		y.FetchedAt = y.FetchedAt.UTC()
		out = append(out, y)
	}
	return out, rows.Err()
}

// SaveYields replaces the stored yields of month.
func (s *Store) SaveYields(ctx context.Context, month core.Month, yields []core.MarketYield) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM market_yields WHERE month = $1`, month.String()); err != nil {
			return fmt.Errorf("clear yields: %w", err)
		}
		batch := &pgx.Batch{}
		for _, y := range yields {
			batch.Queue(`INSERT INTO market_yields (month, instrument, rate, fetched_at) VALUES ($1, $2, $3::numeric, $4)`,
				month.String(), y.Instrument, y.Rate.String(), y.FetchedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert yields: %w", err)
		}
		return nil
	})
}
