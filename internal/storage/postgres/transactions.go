package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bilancio/internal/core"
)

const transactionColumns = `id, user_id, kind, amount_cents, category_id, payment_method_id, description,
	due_date, status, splits, rule_id, generated_month, created_at, updated_at`

type splitJSON struct {
	CategoryID  string `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Store) ExistsForRuleAndMonth(ctx context.Context, ruleID string, month core.Month) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM materializations WHERE rule_id = $1 AND month = $2)`,
		ruleID, month.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check materialization: %w", err)
	}
	return exists, nil
}

// CreateIfAbsent claims (rule, month) in the materializations ledger and
// inserts the transaction within one database transaction.
func (s *Store) CreateIfAbsent(ctx context.Context, t core.Transaction) (bool, error) {
	if t.RuleID == "" || t.GeneratedMonth == nil {
		return false, fmt.Errorf("transaction %s has no rule provenance", t.ID)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO materializations (rule_id, month, transaction_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (rule_id, month) DO NOTHING`,
		t.RuleID, t.GeneratedMonth.String(), t.ID, t.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("record materialization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := insertTransaction(ctx, tx, t); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if t.RuleID != "" && t.GeneratedMonth != nil {
		created, err := s.CreateIfAbsent(ctx, t)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("transaction for rule %s in %s: %w", t.RuleID, t.GeneratedMonth, core.ErrConflict)
		}
		return nil
	}
	return insertTransaction(ctx, s.pool, t)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTransaction(ctx context.Context, db execer, t core.Transaction) error {
	splits, err := encodeSplits(t.Splits)
	if err != nil {
		return err
	}
	var ruleID *string
	if t.RuleID != "" {
		ruleID = &t.RuleID
	}
	_, err = db.Exec(ctx,
		`INSERT INTO transactions (id, user_id, kind, amount_cents, category_id, payment_method_id, description,
		 due_date, month, status, splits, rule_id, generated_month, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.UserID, string(t.Kind), t.Amount.Cents, t.CategoryID, t.PaymentMethodID, t.Description,
		t.DueDate, t.Month().String(), string(t.Status), splits, ruleID, monthArg(t.GeneratedMonth),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", mapError(err))
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	splits, err := encodeSplits(t.Splits)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE transactions SET kind = $1, amount_cents = $2, category_id = $3, payment_method_id = $4,
		 description = $5, due_date = $6, month = $7, status = $8, splits = $9, updated_at = $10
		 WHERE id = $11 AND user_id = $12`,
		string(t.Kind), t.Amount.Cents, t.CategoryID, t.PaymentMethodID, t.Description,
		t.DueDate, t.Month().String(), string(t.Status), splits, t.UpdatedAt, t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", mapError(err))
	}
	return notFoundIfNone(tag, "transaction", t.ID)
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	txs, err := scanTransactions(rows)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return txs[0], nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND month = $2 ORDER BY due_date, id`,
		userID, month.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return scanTransactions(rows)
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return notFoundIfNone(tag, "transaction", id)
}

func (s *Store) CountForRule(ctx context.Context, ruleID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM materializations WHERE rule_id = $1`, ruleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count materializations: %w", err)
	}
	return n, nil
}

func scanTransactions(rows pgx.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		var (
			t         core.Transaction
			kind      string
			status    string
			rawSplits []byte
			ruleID    *string
			generated *string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.Amount.Cents, &t.CategoryID, &t.PaymentMethodID,
			&t.Description, &t.DueDate, &status, &rawSplits, &ruleID, &generated, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind, t.Status = core.Kind(kind), core.Status(status)
		if ruleID != nil {
			t.RuleID = *ruleID
		}
		var err error
		if t.GeneratedMonth, err = parseMonthPtr(generated); err != nil {
			return nil, err
		}
		if t.Splits, err = decodeSplits(rawSplits); err != nil {
			return nil, err
		}
		t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func encodeSplits(splits []core.Split) ([]byte, error) {
	out := make([]splitJSON, len(splits))
	for i, sp := range splits {
		out[i] = splitJSON{CategoryID: sp.CategoryID, AmountCents: sp.Amount.Cents}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode splits: %w", err)
	}
	return b, nil
}

func decodeSplits(b []byte) ([]core.Split, error) {
	var raw []splitJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode splits: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]core.Split, len(raw))
	for i, sp := range raw {
		out[i] = core.Split{CategoryID: sp.CategoryID, Amount: core.Money{Cents: sp.AmountCents}}
	}
	return out, nil
}
