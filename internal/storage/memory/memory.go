// Package memory is an in-process backend. It seeds nothing by itself and
// keeps every entity in mutex-guarded maps.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type generatedKey struct {
	ruleID string
	month  core.Month
}

type Store struct {
	mu        sync.Mutex
	rules     map[string]core.RecurringRule
	txs       map[string]core.Transaction
	generated map[generatedKey]string
	cats      map[string]core.Category
	methods   map[string]core.PaymentMethod
	yields    map[core.Month][]core.MarketYield
}

func New() *Store {
	return &Store{
		rules:     make(map[string]core.RecurringRule),
		txs:       make(map[string]core.Transaction),
		generated: make(map[generatedKey]string),
		cats:      make(map[string]core.Category),
		methods:   make(map[string]core.PaymentMethod),
		yields:    make(map[core.Month][]core.MarketYield),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
}

// Rules

func (s *Store) CreateRule(_ context.Context, r core.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.ID]; ok {
		return fmt.Errorf("rule %s: %w", r.ID, core.ErrConflict)
	}
	s.rules[r.ID] = copyRule(r)
	return nil
}

func (s *Store) UpdateRule(_ context.Context, r core.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.rules[r.ID]
	if !ok || old.UserID != r.UserID {
		return notFound("rule", r.ID)
	}
	r.CreatedAt = old.CreatedAt
	s.rules[r.ID] = copyRule(r)
	return nil
}

func (s *Store) GetRule(_ context.Context, userID, id string) (core.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return core.RecurringRule{}, notFound("rule", id)
	}
	return copyRule(r), nil
}

func (s *Store) ListRules(_ context.Context, userID string) ([]core.RecurringRule, error) {
	return s.filterRules(userID, func(core.RecurringRule) bool { return true }), nil
}

func (s *Store) ListActiveRules(_ context.Context, userID string, month core.Month) ([]core.RecurringRule, error) {
	return s.filterRules(userID, func(r core.RecurringRule) bool { return r.AppliesTo(month) }), nil
}

func (s *Store) filterRules(userID string, keep func(core.RecurringRule) bool) []core.RecurringRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringRule
	for _, r := range s.rules {
		if r.UserID == userID && keep(r) {
			out = append(out, copyRule(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) DeleteRule(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return notFound("rule", id)
	}
	delete(s.rules, id)
	return nil
}

// Transactions

func (s *Store) ExistsForRuleAndMonth(_ context.Context, ruleID string, month core.Month) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.generated[generatedKey{ruleID, month}]
	return ok, nil
}

func (s *Store) CreateIfAbsent(_ context.Context, t core.Transaction) (bool, error) {
	if t.RuleID == "" || t.GeneratedMonth == nil {
		return false, fmt.Errorf("transaction %s has no rule provenance", t.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := generatedKey{t.RuleID, *t.GeneratedMonth}
	if _, ok := s.generated[key]; ok {
		return false, nil
	}
	s.generated[key] = t.ID
	s.txs[t.ID] = copyTransaction(t)
	return true, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[t.ID]; ok {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrConflict)
	}
	if t.RuleID != "" && t.GeneratedMonth != nil {
		key := generatedKey{t.RuleID, *t.GeneratedMonth}
		if _, ok := s.generated[key]; ok {
			return fmt.Errorf("transaction for rule %s in %s: %w", t.RuleID, t.GeneratedMonth, core.ErrConflict)
		}
		s.generated[key] = t.ID
	}
	s.txs[t.ID] = copyTransaction(t)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.txs[t.ID]
	if !ok || old.UserID != t.UserID {
		return notFound("transaction", t.ID)
	}
	// provenance is immutable
	t.RuleID, t.GeneratedMonth, t.CreatedAt = old.RuleID, old.GeneratedMonth, old.CreatedAt
	s.txs[t.ID] = copyTransaction(t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, notFound("transaction", id)
	}
	return copyTransaction(t), nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monthTransactions(userID, month), nil
}

func (s *Store) monthTransactions(userID string, month core.Month) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.txs {
		if t.UserID == userID && t.Month().Equal(month) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.UserID != userID {
		return notFound("transaction", id)
	}
	// The provenance key stays: a deleted generated transaction is not
	// materialized again for the same month.
	delete(s.txs, id)
	return nil
}

func (s *Store) CountForRule(_ context.Context, ruleID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.generated {
		if k.ruleID == ruleID {
			n++
		}
	}
	return n, nil
}

// Categories

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.cats {
		if o.UserID == c.UserID && o.Kind == c.Kind && core.SameName(o.Name, c.Name) {
			return fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
		}
	}
	s.cats[c.ID] = c
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.cats[c.ID]
	if !ok || old.UserID != c.UserID {
		return notFound("category", c.ID)
	}
	s.cats[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, userID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok || c.UserID != userID {
		return core.Category{}, notFound("category", id)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.cats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok || c.UserID != userID {
		return notFound("category", id)
	}
	delete(s.cats, id)
	return nil
}

func (s *Store) CategoryUsage(_ context.Context, userID, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.txs {
		if t.UserID != userID {
			continue
		}
		if t.CategoryID == id {
			n++
			continue
		}
		for _, sp := range t.Splits {
			if sp.CategoryID == id {
				n++
				break
			}
		}
	}
	for _, r := range s.rules {
		if r.UserID == userID && r.CategoryID == id {
			n++
		}
	}
	return n, nil
}

// Payment methods

func (s *Store) CreatePaymentMethod(_ context.Context, p core.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.methods {
		if o.UserID == p.UserID && core.SameName(o.Name, p.Name) {
			return fmt.Errorf("payment method %q: %w", p.Name, core.ErrConflict)
		}
	}
	s.methods[p.ID] = p
	return nil
}

func (s *Store) UpdatePaymentMethod(_ context.Context, p core.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.methods[p.ID]
	if !ok || old.UserID != p.UserID {
		return notFound("payment method", p.ID)
	}
	s.methods[p.ID] = p
	return nil
}

func (s *Store) GetPaymentMethod(_ context.Context, userID, id string) (core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.methods[id]
	if !ok || p.UserID != userID {
		return core.PaymentMethod{}, notFound("payment method", id)
	}
	return p, nil
}

func (s *Store) ListPaymentMethods(_ context.Context, userID string) ([]core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PaymentMethod
	for _, p := range s.methods {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeletePaymentMethod(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.methods[id]
	if !ok || p.UserID != userID {
		return notFound("payment method", id)
	}
	delete(s.methods, id)
	return nil
}

func (s *Store) PaymentMethodUsage(_ context.Context, userID, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.txs {
		if t.UserID == userID && t.PaymentMethodID == id {
			n++
		}
	}
	for _, r := range s.rules {
		if r.UserID == userID && r.PaymentMethodID == id {
			n++
		}
	}
	return n, nil
}

// Summaries

func (s *Store) SummarizeMonth(_ context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make(map[string]string)
	for id, c := range s.cats {
		if c.UserID == userID {
			names[id] = c.Name
		}
	}
	return core.Summarize(month, s.monthTransactions(userID, month), names), nil
}

// Yields

func (s *Store) GetYields(_ context.Context, month core.Month) ([]core.MarketYield, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MarketYield(nil), s.yields[month]...), nil
}

func (s *Store) SaveYields(_ context.Context, month core.Month, yields []core.MarketYield) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yields[month] = append([]core.MarketYield(nil), yields...)
	return nil
}

func copyRule(r core.RecurringRule) core.RecurringRule {
	if r.EndMonth != nil {
		end := *r.EndMonth
		r.EndMonth = &end
	}
	return r
}

func copyTransaction(t core.Transaction) core.Transaction {
	if t.GeneratedMonth != nil {
		m := *t.GeneratedMonth
		t.GeneratedMonth = &m
	}
	t.Splits = append([]core.Split(nil), t.Splits...)
	return t
}
