package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bilancio/internal/core"
	"bilancio/internal/ports"
)

var _ ports.Store = (*SQLiteRepository)(nil)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes callers
	// instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Rules

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurringRule) error {
	err := r.queries.CreateRule(ctx, CreateRuleParams{
		ID:              rule.ID,
		UserID:          rule.UserID,
		Kind:            string(rule.Kind),
		AmountCents:     rule.Amount.Cents,
		CategoryID:      rule.CategoryID,
		PaymentMethodID: rule.PaymentMethodID,
		Description:     rule.Description,
		AnchorDay:       int64(rule.AnchorDay),
		StartMonth:      rule.StartMonth.String(),
		EndMonth:        nullMonth(rule.EndMonth),
		Active:          rule.Active,
		CreatedAt:       formatTime(rule.CreatedAt),
		UpdatedAt:       formatTime(rule.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("create rule: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateRule(ctx context.Context, rule core.RecurringRule) error {
	n, err := r.queries.UpdateRule(ctx, UpdateRuleParams{
		Kind:            string(rule.Kind),
		AmountCents:     rule.Amount.Cents,
		CategoryID:      rule.CategoryID,
		PaymentMethodID: rule.PaymentMethodID,
		Description:     rule.Description,
		AnchorDay:       int64(rule.AnchorDay),
		StartMonth:      rule.StartMonth.String(),
		EndMonth:        nullMonth(rule.EndMonth),
		Active:          rule.Active,
		UpdatedAt:       formatTime(rule.UpdatedAt),
		ID:              rule.ID,
		UserID:          rule.UserID,
	})
	if err != nil {
		return fmt.Errorf("update rule: %w", mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update rule %s: %w", rule.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	row, err := r.queries.GetRule(ctx, GetRuleParams{ID: id, UserID: userID})
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get rule %s: %w", id, mapError(err))
	}
	return ruleFromRow(row)
}

func (r *SQLiteRepository) ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	rows, err := r.queries.ListRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rulesFromRows(rows)
}

func (r *SQLiteRepository) ListActiveRules(ctx context.Context, userID string, month core.Month) ([]core.RecurringRule, error) {
	rows, err := r.queries.ListActiveRules(ctx, ListActiveRulesParams{UserID: userID, Month: month.String()})
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return rulesFromRows(rows)
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteRule(ctx, DeleteRuleParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete rule %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// Transactions

func (r *SQLiteRepository) ExistsForRuleAndMonth(ctx context.Context, ruleID string, month core.Month) (bool, error) {
	v, err := r.queries.MaterializationExists(ctx, MaterializationExistsParams{RuleID: ruleID, Month: month.String()})
	if err != nil {
		return false, fmt.Errorf("check materialization: %w", err)
	}
	return v != 0, nil
}

// CreateIfAbsent claims (rule, month) in the materializations ledger and
// writes the transaction in the same database transaction.
func (r *SQLiteRepository) CreateIfAbsent(ctx context.Context, t core.Transaction) (bool, error) {
	if t.RuleID == "" || t.GeneratedMonth == nil {
		return false, fmt.Errorf("transaction %s has no rule provenance", t.ID)
	}
	params, err := createTransactionParams(t)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	n, err := q.RecordMaterialization(ctx, RecordMaterializationParams{
		RuleID:        t.RuleID,
		Month:         t.GeneratedMonth.String(),
		TransactionID: t.ID,
		CreatedAt:     formatTime(t.CreatedAt),
	})
	if err != nil {
		return false, fmt.Errorf("record materialization: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := q.CreateTransaction(ctx, params); err != nil {
		if errors.Is(mapError(err), core.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("create transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Generated transaction saved to SQLite",
		"id", t.ID,
		"rule_id", t.RuleID,
		"month", t.GeneratedMonth.String())
	return true, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if t.RuleID != "" && t.GeneratedMonth != nil {
		created, err := r.CreateIfAbsent(ctx, t)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("transaction for rule %s in %s: %w", t.RuleID, t.GeneratedMonth, core.ErrConflict)
		}
		return nil
	}
	params, err := createTransactionParams(t)
	if err != nil {
		return err
	}
	if err := r.queries.CreateTransaction(ctx, params); err != nil {
		return fmt.Errorf("create transaction: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	splits, err := encodeSplits(t.Splits)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Kind:            string(t.Kind),
		AmountCents:     t.Amount.Cents,
		CategoryID:      t.CategoryID,
		PaymentMethodID: t.PaymentMethodID,
		Description:     t.Description,
		DueDate:         t.DueDate.Format(dateLayout),
		Month:           t.Month().String(),
		Status:          string(t.Status),
		Splits:          splits,
		UpdatedAt:       formatTime(t.UpdatedAt),
		ID:              t.ID,
		UserID:          t.UserID,
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update transaction %s: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, GetTransactionParams{ID: id, UserID: userID})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, mapError(err))
	}
	return transactionFromRow(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByMonth(ctx, ListTransactionsByMonthParams{UserID: userID, Month: month.String()})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, DeleteTransactionParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CountForRule(ctx context.Context, ruleID string) (int64, error) {
	n, err := r.queries.CountMaterializationsForRule(ctx, ruleID)
	if err != nil {
		return 0, fmt.Errorf("count materializations: %w", err)
	}
	return n, nil
}

// Categories

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Kind:      string(c.Kind),
		IsDefault: c.IsDefault,
		Active:    c.Active,
	})
	if err != nil {
		return fmt.Errorf("create category %q: %w", c.Name, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := r.queries.UpdateCategory(ctx, UpdateCategoryParams{
		Name:      c.Name,
		Kind:      string(c.Kind),
		IsDefault: c.IsDefault,
		Active:    c.Active,
		ID:        c.ID,
		UserID:    c.UserID,
	})
	if err != nil {
		return fmt.Errorf("update category: %w", mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update category %s: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, GetCategoryParams{ID: id, UserID: userID})
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, mapError(err))
	}
	return categoryFromRow(row), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = categoryFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteCategory(ctx, DeleteCategoryParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete category %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CategoryUsage(ctx context.Context, userID, id string) (int64, error) {
	n, err := r.queries.CountCategoryUsage(ctx, CountCategoryUsageParams{UserID: userID, CategoryID: id})
	if err != nil {
		return 0, fmt.Errorf("count category usage: %w", err)
	}
	return n, nil
}

// Payment methods

func (r *SQLiteRepository) CreatePaymentMethod(ctx context.Context, p core.PaymentMethod) error {
	err := r.queries.CreatePaymentMethod(ctx, CreatePaymentMethodParams{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		IsDefault: p.IsDefault,
		Active:    p.Active,
	})
	if err != nil {
		return fmt.Errorf("create payment method %q: %w", p.Name, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdatePaymentMethod(ctx context.Context, p core.PaymentMethod) error {
	n, err := r.queries.UpdatePaymentMethod(ctx, UpdatePaymentMethodParams{
		Name:      p.Name,
		IsDefault: p.IsDefault,
		Active:    p.Active,
		ID:        p.ID,
		UserID:    p.UserID,
	})
	if err != nil {
		return fmt.Errorf("update payment method: %w", mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update payment method %s: %w", p.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetPaymentMethod(ctx context.Context, userID, id string) (core.PaymentMethod, error) {
	row, err := r.queries.GetPaymentMethod(ctx, GetPaymentMethodParams{ID: id, UserID: userID})
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method %s: %w", id, mapError(err))
	}
	return paymentMethodFromRow(row), nil
}

func (r *SQLiteRepository) ListPaymentMethods(ctx context.Context, userID string) ([]core.PaymentMethod, error) {
	rows, err := r.queries.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	out := make([]core.PaymentMethod, len(rows))
	for i, row := range rows {
		out[i] = paymentMethodFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeletePaymentMethod(ctx, DeletePaymentMethodParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete payment method %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) PaymentMethodUsage(ctx context.Context, userID, id string) (int64, error) {
	n, err := r.queries.CountPaymentMethodUsage(ctx, CountPaymentMethodUsageParams{UserID: userID, PaymentMethodID: id})
	if err != nil {
		return 0, fmt.Errorf("count payment method usage: %w", err)
	}
	return n, nil
}

// SummarizeMonth implements ports.SummaryStore
func (r *SQLiteRepository) SummarizeMonth(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	txs, err := r.ListTransactions(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	cats, err := r.ListCategories(ctx, userID)
	if err != nil {
		return core.MonthSummary{}, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return core.Summarize(month, txs, names), nil
}

// Yields

func (r *SQLiteRepository) GetYields(ctx context.Context, month core.Month) ([]core.MarketYield, error) {
	rows, err := r.queries.ListYieldsByMonth(ctx, month.String())
	if err != nil {
		return nil, fmt.Errorf("list yields: %w", err)
	}
	out := make([]core.MarketYield, 0, len(rows))
	for _, row := range rows {
		rate, err := decimal.NewFromString(row.Rate)
		if err != nil {
			return nil, fmt.Errorf("parse rate for %s: %w", row.Instrument, err)
		}
		fetched, err := time.Parse(timeLayout, row.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parse fetched_at for %s: %w", row.Instrument, err)
		}
		out = append(out, core.MarketYield{Month: month, Instrument: row.Instrument, Rate: rate, FetchedAt: fetched})
	}
	return out, nil
}

// SaveYields replaces the stored yields of month.
func (r *SQLiteRepository) SaveYields(ctx context.Context, month core.Month, yields []core.MarketYield) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	if err := q.DeleteYieldsByMonth(ctx, month.String()); err != nil {
		return fmt.Errorf("clear yields: %w", err)
	}
	for _, y := range yields {
		err := q.InsertYield(ctx, InsertYieldParams{
			Month:      month.String(),
			Instrument: y.Instrument,
			Rate:       y.Rate.String(),
			FetchedAt:  formatTime(y.FetchedAt),
		})
		if err != nil {
			return fmt.Errorf("insert yield %s: %w", y.Instrument, err)
		}
	}
	return tx.Commit()
}

// mapError translates driver errors into core sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", core.ErrConflict, err)
		}
	}
	return err
}

type splitJSON struct {
	CategoryID  string `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
}

func encodeSplits(splits []core.Split) (string, error) {
	out := make([]splitJSON, len(splits))
	for i, s := range splits {
		out[i] = splitJSON{CategoryID: s.CategoryID, AmountCents: s.Amount.Cents}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode splits: %w", err)
	}
	return string(b), nil
}

func decodeSplits(s string) ([]core.Split, error) {
	var raw []splitJSON
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
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

func createTransactionParams(t core.Transaction) (CreateTransactionParams, error) {
	splits, err := encodeSplits(t.Splits)
	if err != nil {
		return CreateTransactionParams{}, err
	}
	p := CreateTransactionParams{
		ID:              t.ID,
		UserID:          t.UserID,
		Kind:            string(t.Kind),
		AmountCents:     t.Amount.Cents,
		CategoryID:      t.CategoryID,
		PaymentMethodID: t.PaymentMethodID,
		Description:     t.Description,
		DueDate:         t.DueDate.Format(dateLayout),
		Month:           t.Month().String(),
		Status:          string(t.Status),
		Splits:          splits,
		GeneratedMonth:  nullMonth(t.GeneratedMonth),
		CreatedAt:       formatTime(t.CreatedAt),
		UpdatedAt:       formatTime(t.UpdatedAt),
	}
	if t.RuleID != "" {
		p.RuleID = sql.NullString{String: t.RuleID, Valid: true}
	}
	return p, nil
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	due, err := time.Parse(dateLayout, row.DueDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse due date of %s: %w", row.ID, err)
	}
	splits, err := decodeSplits(row.Splits)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:              row.ID,
		UserID:          row.UserID,
		Kind:            core.Kind(row.Kind),
		Amount:          core.Money{Cents: row.AmountCents},
		CategoryID:      row.CategoryID,
		PaymentMethodID: row.PaymentMethodID,
		Description:     row.Description,
		DueDate:         due,
		Status:          core.Status(row.Status),
		Splits:          splits,
		RuleID:          row.RuleID.String,
	}
	if t.GeneratedMonth, err = parseNullMonth(row.GeneratedMonth); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = time.Parse(timeLayout, row.CreatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, row.UpdatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at of %s: %w", row.ID, err)
	}
	return t, nil
}

func ruleFromRow(row RecurringRule) (core.RecurringRule, error) {
	start, err := core.ParseMonth(row.StartMonth)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("parse start month of %s: %w", row.ID, err)
	}
	rule := core.RecurringRule{
		ID:              row.ID,
		UserID:          row.UserID,
		Kind:            core.Kind(row.Kind),
		Amount:          core.Money{Cents: row.AmountCents},
		CategoryID:      row.CategoryID,
		PaymentMethodID: row.PaymentMethodID,
		Description:     row.Description,
		AnchorDay:       int(row.AnchorDay),
		StartMonth:      start,
		Active:          row.Active,
	}
	if rule.EndMonth, err = parseNullMonth(row.EndMonth); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.CreatedAt, err = time.Parse(timeLayout, row.CreatedAt); err != nil {
		return core.RecurringRule{}, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
	}
	if rule.UpdatedAt, err = time.Parse(timeLayout, row.UpdatedAt); err != nil {
		return core.RecurringRule{}, fmt.Errorf("parse updated_at of %s: %w", row.ID, err)
	}
	return rule, nil
}

func rulesFromRows(rows []RecurringRule) ([]core.RecurringRule, error) {
	out := make([]core.RecurringRule, 0, len(rows))
	for _, row := range rows {
		rule, err := ruleFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func categoryFromRow(row Category) core.Category {
	return core.Category{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Kind:      core.Kind(row.Kind),
		IsDefault: row.IsDefault,
		Active:    row.Active,
	}
}

func paymentMethodFromRow(row PaymentMethod) core.PaymentMethod {
	return core.PaymentMethod{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		IsDefault: row.IsDefault,
		Active:    row.Active,
	}
}

func nullMonth(m *core.Month) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: m.String(), Valid: true}
}

func parseNullMonth(s sql.NullString) (*core.Month, error) {
	if !s.Valid {
		return nil, nil
	}
	m, err := core.ParseMonth(s.String)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
