package postgres

import (
	"context"
	"fmt"

	"bilancio/internal/core"
)

func (s *Store) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO categories (id, user_id, name, kind, is_default, active) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.Name, string(c.Kind), c.IsDefault, c.Active,
	)
	if err != nil {
		return fmt.Errorf("create category %q: %w", c.Name, mapError(err))
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE categories SET name = $1, kind = $2, is_default = $3, active = $4 WHERE id = $5 AND user_id = $6`,
		c.Name, string(c.Kind), c.IsDefault, c.Active, c.ID, c.UserID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", mapError(err))
	}
	return notFoundIfNone(tag, "category", c.ID)
}

func (s *Store) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	var (
		c    core.Category
		kind string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, kind, is_default, active FROM categories WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.IsDefault, &c.Active)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, mapError(err))
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, kind, is_default, active FROM categories WHERE user_id = $1 ORDER BY kind, name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c    core.Category
			kind string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.IsDefault, &c.Active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return notFoundIfNone(tag, "category", id)
}

func (s *Store) CategoryUsage(ctx context.Context, userID, id string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM transactions
		     WHERE user_id = $1
		       AND (category_id = $2 OR splits @> jsonb_build_array(jsonb_build_object('category_id', $2::text))))
		 + (SELECT COUNT(*) FROM recurring_rules WHERE user_id = $1 AND category_id = $2)`,
		userID, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category usage: %w", err)
	}
	return n, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, p core.PaymentMethod) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_methods (id, user_id, name, is_default, active) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.UserID, p.Name, p.IsDefault, p.Active,
	)
	if err != nil {
		return fmt.Errorf("create payment method %q: %w", p.Name, mapError(err))
	}
	return nil
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, p core.PaymentMethod) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE payment_methods SET name = $1, is_default = $2, active = $3 WHERE id = $4 AND user_id = $5`,
		p.Name, p.IsDefault, p.Active, p.ID, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("update payment method: %w", mapError(err))
	}
	return notFoundIfNone(tag, "payment method", p.ID)
}

func (s *Store) GetPaymentMethod(ctx context.Context, userID, id string) (core.PaymentMethod, error) {
	var p core.PaymentMethod
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, is_default, active FROM payment_methods WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.IsDefault, &p.Active)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method %s: %w", id, mapError(err))
	}
	return p, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context, userID string) ([]core.PaymentMethod, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, is_default, active FROM payment_methods WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentMethod
	for rows.Next() {
		var p core.PaymentMethod
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.IsDefault, &p.Active); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	return notFoundIfNone(tag, "payment method", id)
}

func (s *Store) PaymentMethodUsage(ctx context.Context, userID, id string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND payment_method_id = $2)
		 + (SELECT COUNT(*) FROM recurring_rules WHERE user_id = $1 AND payment_method_id = $2)`,
		userID, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count payment method usage: %w", err)
	}
	return n, nil
}
