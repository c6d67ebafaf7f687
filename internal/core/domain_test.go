package core

import (
	"errors"
	"testing"
	"time"
)

func validRule() RecurringRule {
	return RecurringRule{
		ID:              "r1",
		UserID:          "u1",
		Kind:            Expense,
		Amount:          Money{Cents: 85000},
		CategoryID:      "c1",
		PaymentMethodID: "p1",
		Description:     "Affitto",
		AnchorDay:       5,
		StartMonth:      MustParseMonth("2025-01"),
		Active:          true,
	}
}

func TestRecurringRuleValidate(t *testing.T) {
	if err := validRule().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	before := MustParseMonth("2024-12")
	bads := map[string]func(r *RecurringRule){
		"zero amount":      func(r *RecurringRule) { r.Amount = Money{} },
		"negative amount":  func(r *RecurringRule) { r.Amount = Money{Cents: -1} },
		"day 0":            func(r *RecurringRule) { r.AnchorDay = 0 },
		"day 32":           func(r *RecurringRule) { r.AnchorDay = 32 },
		"bad kind":         func(r *RecurringRule) { r.Kind = "transfer" },
		"no description":   func(r *RecurringRule) { r.Description = "  " },
		"end before start": func(r *RecurringRule) { r.EndMonth = &before },
		"no start":         func(r *RecurringRule) { r.StartMonth = Month{} },
		"no category":      func(r *RecurringRule) { r.CategoryID = "" },
		"no payment":       func(r *RecurringRule) { r.PaymentMethodID = "" },
	}
	for name, mutate := range bads {
		t.Run(name, func(t *testing.T) {
			r := validRule()
			mutate(&r)
			err := r.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %T", err)
			}
		})
	}

	r := validRule()
	r.Amount = Money{}
	if !errors.Is(r.Validate(), ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount in chain")
	}
}

func TestRecurringRuleAppliesTo(t *testing.T) {
	may, jun, jul := MustParseMonth("2025-05"), MustParseMonth("2025-06"), MustParseMonth("2025-07")

	tests := []struct {
		name   string
		mutate func(r *RecurringRule)
		want   bool
	}{
		{"open ended, started before", func(r *RecurringRule) { r.StartMonth = may }, true},
		{"starts this month", func(r *RecurringRule) { r.StartMonth = jun }, true},
		{"starts next month", func(r *RecurringRule) { r.StartMonth = jul }, false},
		{"ended last month", func(r *RecurringRule) { r.StartMonth = may; r.EndMonth = &may }, false},
		{"ends this month", func(r *RecurringRule) { r.StartMonth = may; r.EndMonth = &jun }, true},
		{"inactive", func(r *RecurringRule) { r.Active = false }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			if got := r.AppliesTo(jun); got != tt.want {
				t.Errorf("AppliesTo(%v) = %v, want %v", jun, got, tt.want)
			}
		})
	}
}

func TestTransactionValidateSplits(t *testing.T) {
	base := Transaction{
		Kind:            Expense,
		Amount:          Money{Cents: 1000},
		CategoryID:      "c1",
		PaymentMethodID: "p1",
		Description:     "Spesa",
		DueDate:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:          Paid,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	ok := base
	ok.Splits = []Split{{CategoryID: "c1", Amount: Money{Cents: 600}}, {CategoryID: "c2", Amount: Money{Cents: 400}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected matching splits to pass, got %v", err)
	}

	short := base
	short.Splits = []Split{{CategoryID: "c1", Amount: Money{Cents: 600}}}
	if err := short.Validate(); err == nil {
		t.Fatalf("expected split sum mismatch error")
	}

	zero := base
	zero.Splits = []Split{{CategoryID: "c1", Amount: Money{Cents: 1000}}, {CategoryID: "c2", Amount: Money{}}}
	if err := zero.Validate(); err == nil {
		t.Fatalf("expected zero split error")
	}

	noStatus := base
	noStatus.Status = ""
	if err := noStatus.Validate(); err == nil {
		t.Fatalf("expected status error")
	}
}
