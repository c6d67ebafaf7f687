package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bilancio/internal/core"
)

const ruleColumns = `id, user_id, kind, amount_cents, category_id, payment_method_id, description,
	anchor_day, start_month, end_month, active, created_at, updated_at`

func (s *Store) CreateRule(ctx context.Context, r core.RecurringRule) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO recurring_rules (`+ruleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.UserID, string(r.Kind), r.Amount.Cents, r.CategoryID, r.PaymentMethodID, r.Description,
		r.AnchorDay, r.StartMonth.String(), monthArg(r.EndMonth), r.Active, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create rule: %w", mapError(err))
	}
	return nil
}

func (s *Store) UpdateRule(ctx context.Context, r core.RecurringRule) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recurring_rules SET kind = $1, amount_cents = $2, category_id = $3, payment_method_id = $4,
		 description = $5, anchor_day = $6, start_month = $7, end_month = $8, active = $9, updated_at = $10
		 WHERE id = $11 AND user_id = $12`,
		string(r.Kind), r.Amount.Cents, r.CategoryID, r.PaymentMethodID, r.Description,
		r.AnchorDay, r.StartMonth.String(), monthArg(r.EndMonth), r.Active, r.UpdatedAt, r.ID, r.UserID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", mapError(err))
	}
	return notFoundIfNone(tag, "rule", r.ID)
}

func (s *Store) GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get rule: %w", err)
	}
	rules, err := scanRules(rows)
	if err != nil {
		return core.RecurringRule{}, err
	}
	if len(rules) == 0 {
		return core.RecurringRule{}, fmt.Errorf("rule %s: %w", id, core.ErrNotFound)
	}
	return rules[0], nil
}

func (s *Store) ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return scanRules(rows)
}

func (s *Store) ListActiveRules(ctx context.Context, userID string, month core.Month) ([]core.RecurringRule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules
		 WHERE user_id = $1 AND active AND start_month <= $2 AND (end_month IS NULL OR end_month >= $2)
		 ORDER BY created_at, id`,
		userID, month.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return scanRules(rows)
}

func (s *Store) DeleteRule(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM recurring_rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return notFoundIfNone(tag, "rule", id)
}

func scanRules(rows pgx.Rows) ([]core.RecurringRule, error) {
	defer rows.Close()
	var out []core.RecurringRule
	for rows.Next() {
		var (
			r      core.RecurringRule
			kind   string
			start  string
			end    *string
			anchor int16
		)
		if err := rows.Scan(&r.ID, &r.UserID, &kind, &r.Amount.Cents, &r.CategoryID, &r.PaymentMethodID,
			&r.Description, &anchor, &start, &end, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Kind = core.Kind(kind)
		r.AnchorDay = int(anchor)
		m, err := core.ParseMonth(start)
		if err != nil {
			return nil, err
		}
		r.StartMonth = m
		if r.EndMonth, err = parseMonthPtr(end); err != nil {
			return nil, err
		}
		r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func monthArg(m *core.Month) *string {
	if m == nil {
		return nil
	}
	s := m.String()
	return &s
}

func parseMonthPtr(s *string) (*core.Month, error) {
	if s == nil {
		return nil, nil
	}
	m, err := core.ParseMonth(*s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
