package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Paid    Status = "paid"
	Pending Status = "pending"
)

const maxDescriptionLen = 200

type (
	Kind   string
	Status string

	// RecurringRule is a user-defined template materialized once per month.
	RecurringRule struct {
		ID              string
		UserID          string
		Kind            Kind
		Amount          Money
		CategoryID      string
		PaymentMethodID string
		Description     string
		AnchorDay       int // 1-31, clamped to the month length
		StartMonth      Month
		EndMonth        *Month
		Active          bool
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// Split assigns part of a transaction amount to a category.
	Split struct {
		CategoryID string
		Amount     Money
	}

	Transaction struct {
		ID              string
		UserID          string
		Kind            Kind
		Amount          Money
		CategoryID      string
		PaymentMethodID string
		Description     string
		DueDate         time.Time
		Status          Status
		Splits          []Split

		// Provenance, set only on transactions generated from a rule.
		RuleID         string
		GeneratedMonth *Month

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Category struct {
		ID        string
		UserID    string
		Name      string
		Kind      Kind
		IsDefault bool
		Active    bool
	}

	PaymentMethod struct {
		ID        string
		UserID    string
		Name      string
		IsDefault bool
		Active    bool
	}
)

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (s Status) Valid() bool {
	return s == Paid || s == Pending
}

// AppliesTo reports whether the rule is active and its window covers m.
func (r RecurringRule) AppliesTo(m Month) bool {
	if !r.Active {
		return false
	}
	if r.StartMonth.After(m) {
		return false
	}
	if r.EndMonth != nil && r.EndMonth.Before(m) {
		return false
	}
	return true
}

// DueDate is the anchor day in m, clamped to the last day of m.
func (r RecurringRule) DueDate(m Month) time.Time {
	return m.DayIn(r.AnchorDay)
}

func (r RecurringRule) Validate() error {
	if !r.Kind.Valid() {
		return Invalid("kind", ErrInvalidKind)
	}
	if err := r.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if r.AnchorDay < 1 || r.AnchorDay > 31 {
		return Invalid("anchor_day", ErrInvalidDay)
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if r.StartMonth.IsZero() {
		return NewValidationError("start_month", "start month is required")
	}
	if r.EndMonth != nil && r.EndMonth.Before(r.StartMonth) {
		return NewValidationError("end_month", "end month must not be before start month")
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return NewValidationError("category_id", "category is required")
	}
	if strings.TrimSpace(r.PaymentMethodID) == "" {
		return NewValidationError("payment_method_id", "payment method is required")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return Invalid("kind", ErrInvalidKind)
	}
	if err := t.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if t.DueDate.IsZero() {
		return NewValidationError("due_date", "due date is required")
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "status must be paid or pending")
	}
	if strings.TrimSpace(t.CategoryID) == "" && len(t.Splits) == 0 {
		return NewValidationError("category_id", "category is required")
	}
	if strings.TrimSpace(t.PaymentMethodID) == "" {
		return NewValidationError("payment_method_id", "payment method is required")
	}
	return t.validateSplits()
}

func (t Transaction) validateSplits() error {
	if len(t.Splits) == 0 {
		return nil
	}
	var sum int64
	for _, s := range t.Splits {
		if strings.TrimSpace(s.CategoryID) == "" {
			return NewValidationError("splits", "every split needs a category")
		}
		if err := s.Amount.Validate(); err != nil {
			return Invalid("splits", err)
		}
		sum += s.Amount.Cents
	}
	if sum != t.Amount.Cents {
		return NewValidationError("splits", "split amounts must add up to the transaction amount")
	}
	return nil
}

// Month returns the month the transaction falls in.
func (t Transaction) Month() Month {
	return MonthOf(t.DueDate)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if len(c.Name) > 60 {
		return NewValidationError("name", "name too long (max 60 characters)")
	}
	if !c.Kind.Valid() {
		return Invalid("kind", ErrInvalidKind)
	}
	return nil
}

func (p PaymentMethod) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if len(p.Name) > 60 {
		return NewValidationError("name", "name too long (max 60 characters)")
	}
	return nil
}

func validateDescription(d string) error {
	if len(strings.TrimSpace(d)) == 0 {
		return Invalid("description", ErrEmptyDescription)
	}
	if len(d) > maxDescriptionLen {
		return Invalid("description", errors.New("description too long (max 200 characters)"))
	}
	return nil
}

// SameName compares entity names the way uniqueness checks do.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
