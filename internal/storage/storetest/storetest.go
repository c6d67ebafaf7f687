// Package storetest holds the behaviour every ports.Store backend must share.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/ports"
)

// Run exercises s against the shared store contract. newStore must return an
// empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("rules", func(t *testing.T) { testRules(t, newStore(t)) })
	t.Run("create_if_absent", func(t *testing.T) { testCreateIfAbsent(t, newStore(t)) })
	t.Run("create_if_absent_race", func(t *testing.T) { testCreateIfAbsentRace(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("deleted_generated_stays_recorded", func(t *testing.T) { testDeletedGenerated(t, newStore(t)) })
	t.Run("taxonomy", func(t *testing.T) { testTaxonomy(t, newStore(t)) })
	t.Run("summary", func(t *testing.T) { testSummary(t, newStore(t)) })
	t.Run("yields", func(t *testing.T) { testYields(t, newStore(t)) })
}

var ts = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	user   string
	food   core.Category
	home   core.Category
	salary core.Category
	cash   core.PaymentMethod
}

func seed(t *testing.T, s ports.Store) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{user: uuid.NewString()}
	f.food = core.Category{ID: uuid.NewString(), UserID: f.user, Name: "Spesa", Kind: core.Expense, Active: true}
	f.home = core.Category{ID: uuid.NewString(), UserID: f.user, Name: "Casa", Kind: core.Expense, Active: true, IsDefault: true}
	f.salary = core.Category{ID: uuid.NewString(), UserID: f.user, Name: "Stipendio", Kind: core.Income, Active: true}
	f.cash = core.PaymentMethod{ID: uuid.NewString(), UserID: f.user, Name: "Contanti", Active: true, IsDefault: true}
	for _, c := range []core.Category{f.food, f.home, f.salary} {
		require.NoError(t, s.CreateCategory(ctx, c))
	}
	require.NoError(t, s.CreatePaymentMethod(ctx, f.cash))
	return f
}

func rule(f fixture, kind core.Kind, cents int64, day int, start string, end string) core.RecurringRule {
	cat := f.home.ID
	if kind == core.Income {
		cat = f.salary.ID
	}
	r := core.RecurringRule{
		ID:              uuid.NewString(),
		UserID:          f.user,
		Kind:            kind,
		Amount:          core.Money{Cents: cents},
		CategoryID:      cat,
		PaymentMethodID: f.cash.ID,
		Description:     "rule " + start,
		AnchorDay:       day,
		StartMonth:      core.MustParseMonth(start),
		Active:          true,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if end != "" {
		m := core.MustParseMonth(end)
		r.EndMonth = &m
	}
	return r
}

func generated(r core.RecurringRule, month string) core.Transaction {
	m := core.MustParseMonth(month)
	return core.Transaction{
		ID:              uuid.NewString(),
		UserID:          r.UserID,
		Kind:            r.Kind,
		Amount:          r.Amount,
		CategoryID:      r.CategoryID,
		PaymentMethodID: r.PaymentMethodID,
		Description:     r.Description,
		DueDate:         r.DueDate(m),
		Status:          core.Pending,
		RuleID:          r.ID,
		GeneratedMonth:  &m,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

func testRules(t *testing.T, s ports.Store) {
	ctx := context.Background()
	f := seed(t, s)

	open := rule(f, core.Expense, 80000, 5, "2025-01", "")
	bounded := rule(f, core.Expense, 1500, 31, "2025-01", "2025-03")
	bounded.CreatedAt = ts.Add(time.Minute)
	later := rule(f, core.Income, 250000, 27, "2025-06", "")
	later.CreatedAt = ts.Add(2 * time.Minute)
	inactive := rule(f, core.Expense, 999, 1, "2024-01", "")
	inactive.Active = false
	inactive.CreatedAt = ts.Add(3 * time.Minute)
	for _, r := range []core.RecurringRule{open, bounded, later, inactive} {
		require.NoError(t, s.CreateRule(ctx, r))
	}

	all, err := s.ListRules(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, open.ID, all[0].ID)

	got, err := s.GetRule(ctx, f.user, bounded.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndMonth)
	assert.Equal(t, "2025-03", got.EndMonth.String())
	assert.Equal(t, bounded.Amount, got.Amount)
	assert.Equal(t, 31, got.AnchorDay)

	ids := func(rs []core.RecurringRule) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	active, err := s.ListActiveRules(ctx, f.user, core.MustParseMonth("2025-03"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{open.ID, bounded.ID}, ids(active))

	active, err = s.ListActiveRules(ctx, f.user, core.MustParseMonth("2025-07"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{open.ID, later.ID}, ids(active))

	_, err = s.GetRule(ctx, "someone-else", open.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	open.Amount = core.Money{Cents: 85000}
	open.Description = "affitto"
	open.UpdatedAt = ts.Add(time.Hour)
	require.NoError(t, s.UpdateRule(ctx, open))
	got, err = s.GetRule(ctx, f.user, open.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(85000), got.Amount.Cents)
	assert.Equal(t, "affitto", got.Description)

	require.NoError(t, s.DeleteRule(ctx, f.user, inactive.ID))
	assert.ErrorIs(t, s.DeleteRule(ctx, f.user, inactive.ID), core.ErrNotFound)
}

func testCreateIfAbsent(t *testing.T, s ports.Store) {
	ctx := context.Background()
	f := seed(t, s)
	r := rule(f, core.Expense, 80000, 31, "2025-01", "")
	require.NoError(t, s.CreateRule(ctx, r))

	month := core.MustParseMonth("2025-02")
	exists, err := s.ExistsForRuleAndMonth(ctx, r.ID, month)
	require.NoError(t, err)
	assert.False(t, exists)

	first := generated(r, "2025-02")
	created, err := s.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateIfAbsent(ctx, generated(r, "2025-02"))
	require.NoError(t, err)
	assert.False(t, created)

	exists, err = s.ExistsForRuleAndMonth(ctx, r.ID, month)
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := s.ListTransactions(ctx, f.user, month)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, r.ID, list[0].RuleID)
	require.NotNil(t, list[0].GeneratedMonth)
	assert.Equal(t, "2025-02", list[0].GeneratedMonth.String())
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), list[0].DueDate)

	n, err := s.CountForRule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testCreateIfAbsentRace(t *testing.T, s ports.Store) {
	ctx := context.Background()
	f := seed(t, s)
	r := rule(f, core.Expense, 1200, 10, "2025-01", "")
	require.NoError(t, s.CreateRule(ctx, r))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.CreateIfAbsent(ctx, generated(r, "2025-05"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if created {
				winners++
			}
		}()
	}
	wg.Wait()
	require.Empty(t, errs)
	assert.Equal(t, 1, winners)

	list, err := s.ListTransactions(ctx, f.user, core.MustParseMonth("2025-05"))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testTransactions(t *testing.T, s ports.Store) {
	ctx := context.Background()
	f := seed(t, s)

	tx := core.Transaction{
		ID:              uuid.NewString(),
		UserID:          f.user,
		Kind:            core.Expense,
		Amount:          core.Money{Cents: 4550},
		PaymentMethodID: f.cash.ID,
		Description:     "spesa e casa",
		DueDate:         time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:          core.Paid,
		Splits: []core.Split{
			{CategoryID: f.food.ID, Amount: core.Money{Cents: 3000}},
			{CategoryID: f.home.ID, Amount: core.Money{Cents: 1550}},
		},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	require.NoError(t, s.CreateTransaction(ctx, tx))

	got, err := s.GetTransaction(ctx, f.user, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.Splits, got.Splits)
	assert.Empty(t, got.RuleID)
	assert.Nil(t, got.GeneratedMonth)
	assert.Equal(t, core.Paid, got.Status)

	other := tx
	other.ID = uuid.NewString()
	other.Splits = nil
	other.CategoryID = f.food.ID
	other.DueDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateTransaction(ctx, other))

	march, err := s.ListTransactions(ctx, f.user, core.MustParseMonth("2025-03"))
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, tx.ID, march[0].ID)

	got.Status = core.Pending
	got.Description = "spesa"
	got.UpdatedAt = ts.Add(time.Hour)
	require.NoError(t, s.UpdateTransaction(ctx, got))
	got, err = s.GetTransaction(ctx, f.user, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Pending, got.Status)
	assert.Equal(t, "spesa", got.Description)

	n, err := s.CategoryUsage(ctx, f.user, f.home.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.PaymentMethodUsage(ctx, f.user, f.cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.DeleteTransaction(ctx, f.user, tx.ID))
	_, err = s.GetTransaction(ctx, f.user, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "someone-else", other.ID), core.ErrNotFound)
}

func testDeletedGenerated(t *testing.T, s ports.Store) {
	ctx := context.Background()
	f := seed(t, s)
	r := rule(f, core.Expense, 5000, 1, "2025-01", "")
	require.NoError(t, s.CreateRule(ctx, r))

	tx := generated(r, "2025-01")
	created, err := s.CreateIfAbsent(ctx, tx)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, s.DeleteTransaction(ctx, f.user, tx.ID))

	exists, err := s.ExistsForRuleAndMonth(ctx, r.ID, core.MustParseMonth("2025-01"))
	require.NoError(t, err)
	assert.True(t, exists)
	created, err = s.CreateIfAbsent(ctx, generated(r, "2025-01"))
	require.NoError(t, err)
	assert.False(t, created)

	n, err := s.CountForRule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testTaxonomy(t *testing.T, s ports.Store) {
	ctx := context.Background()
	f := seed(t, s)

	dup := core.Category{ID: uuid.NewString(), UserID: f.user, Name: " spesa ", Kind: core.Expense, Active: true}
	assert.ErrorIs(t, s.CreateCategory(ctx, dup), core.ErrConflict)

	// same name, other kind
	dup.Kind = core.Income
	dup.Name = "Spesa"
	require.NoError(t, s.CreateCategory(ctx, dup))

	cats, err := s.ListCategories(ctx, f.user)
	require.NoError(t, err)
	assert.Len(t, cats, 4)

	f.food.Active = false
	require.NoError(t, s.UpdateCategory(ctx, f.food))
	got, err := s.GetCategory(ctx, f.user, f.food.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, s.DeleteCategory(ctx, f.user, dup.ID))
	_, err = s.GetCategory(ctx, f.user, dup.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	card := core.PaymentMethod{ID: uuid.NewString(), UserID: f.user, Name: "Carta", Active: true}
	require.NoError(t, s.CreatePaymentMethod(ctx, card))
	assert.ErrorIs(t, s.CreatePaymentMethod(ctx, core.PaymentMethod{
		ID: uuid.NewString(), UserID: f.user, Name: "CARTA", Active: true,
	}), core.ErrConflict)

	methods, err := s.ListPaymentMethods(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "Carta", methods[0].Name)

	card.Name = "Carta di credito"
	require.NoError(t, s.UpdatePaymentMethod(ctx, card))
	gotPM, err := s.GetPaymentMethod(ctx, f.user, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carta di credito", gotPM.Name)

	require.NoError(t, s.DeletePaymentMethod(ctx, f.user, card.ID))
	assert.ErrorIs(t, s.DeletePaymentMethod(ctx, f.user, card.ID), core.ErrNotFound)
}

func testSummary(t *testing.T, s ports.Store) {
	ctx := context.Background()
	f := seed(t, s)
	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC) }

	txs := []core.Transaction{
		{Kind: core.Income, Amount: core.Money{Cents: 250000}, CategoryID: f.salary.ID, DueDate: day(27), Status: core.Paid},
		{Kind: core.Expense, Amount: core.Money{Cents: 80000}, CategoryID: f.home.ID, DueDate: day(5), Status: core.Pending},
		{Kind: core.Expense, Amount: core.Money{Cents: 6000}, DueDate: day(12), Status: core.Paid, Splits: []core.Split{
			{CategoryID: f.food.ID, Amount: core.Money{Cents: 4000}},
			{CategoryID: f.home.ID, Amount: core.Money{Cents: 2000}},
		}},
		// next month, excluded
		{Kind: core.Expense, Amount: core.Money{Cents: 111}, CategoryID: f.food.ID, DueDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Status: core.Paid},
	}
	for i := range txs {
		txs[i].ID = uuid.NewString()
		txs[i].UserID = f.user
		txs[i].PaymentMethodID = f.cash.ID
		txs[i].Description = "t"
		txs[i].CreatedAt = ts
		txs[i].UpdatedAt = ts
		require.NoError(t, s.CreateTransaction(ctx, txs[i]))
	}

	sum, err := s.SummarizeMonth(ctx, f.user, core.MustParseMonth("2025-05"))
	require.NoError(t, err)
	assert.Equal(t, "2025-05", sum.Month.String())
	assert.Equal(t, 3, sum.Transactions)
	assert.Equal(t, int64(250000), sum.Income.Cents)
	assert.Equal(t, int64(86000), sum.Expense.Cents)
	assert.Equal(t, int64(6000), sum.PaidExpense.Cents)
	assert.Equal(t, int64(80000), sum.PendingExpense.Cents)
	assert.Equal(t, int64(164000), sum.Balance().Cents)
	require.Len(t, sum.ByCategory, 3)
	assert.Equal(t, "Stipendio", sum.ByCategory[0].Name)
	assert.Equal(t, "Casa", sum.ByCategory[1].Name)
	assert.Equal(t, int64(82000), sum.ByCategory[1].Amount.Cents)
	assert.Equal(t, int64(4000), sum.ByCategory[2].Amount.Cents)

	empty, err := s.SummarizeMonth(ctx, f.user, core.MustParseMonth("2024-01"))
	require.NoError(t, err)
	assert.Zero(t, empty.Transactions)
	assert.Empty(t, empty.ByCategory)
}

func testYields(t *testing.T, s ports.Store) {
	ctx := context.Background()
	month := core.MustParseMonth("2025-04")

	got, err := s.GetYields(ctx, month)
	require.NoError(t, err)
	assert.Empty(t, got)

	yields := []core.MarketYield{
		{Month: month, Instrument: "BTP 10Y", Rate: decimal.RequireFromString("3.71"), FetchedAt: ts},
		{Month: month, Instrument: "BOT 12M", Rate: decimal.RequireFromString("2.45"), FetchedAt: ts},
	}
	require.NoError(t, s.SaveYields(ctx, month, yields))
	// saving again replaces the month
	require.NoError(t, s.SaveYields(ctx, month, yields))

	got, err = s.GetYields(ctx, month)
	require.NoError(t, err)
	require.Len(t, got, 2)
	byName := map[string]core.MarketYield{}
	for _, y := range got {
		byName[y.Instrument] = y
	}
	assert.True(t, byName["BTP 10Y"].Rate.Equal(decimal.RequireFromString("3.71")))
	assert.True(t, byName["BOT 12M"].FetchedAt.Equal(ts))
}
