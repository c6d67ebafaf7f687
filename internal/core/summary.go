package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Kind       Kind
	Amount     Money
}

// MonthSummary is the dashboard aggregate for one user and month.
type MonthSummary struct {
	Month          Month
	Income         Money
	Expense        Money
	PaidExpense    Money
	PendingExpense Money
	Transactions   int
	ByCategory     []CategoryAmount
}

// Balance is income minus expense; it may be negative.
func (s MonthSummary) Balance() Money {
	return Money{Cents: s.Income.Cents - s.Expense.Cents}
}

// SortByAmount orders category totals by amount desc, then name.
func (s *MonthSummary) SortByAmount() {
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
}

// MarketYield is an annual rate quoted for an instrument in a month.
type MarketYield struct {
	Month      Month
	Instrument string
	Rate       decimal.Decimal
	FetchedAt  time.Time
}

// Summarize aggregates txs into a MonthSummary. Split transactions count
// towards each split category; names maps category ids to display names.
func Summarize(month Month, txs []Transaction, names map[string]string) MonthSummary {
	sum := MonthSummary{Month: month}
	byCat := map[string]*CategoryAmount{}
	add := func(catID string, kind Kind, cents int64) {
		ca, ok := byCat[catID]
		if !ok {
			ca = &CategoryAmount{CategoryID: catID, Name: names[catID], Kind: kind}
			byCat[catID] = ca
		}
		ca.Amount.Cents += cents
	}

	for _, t := range txs {
		sum.Transactions++
		switch t.Kind {
		case Income:
			sum.Income.Cents += t.Amount.Cents
		case Expense:
			sum.Expense.Cents += t.Amount.Cents
			if t.Status == Paid {
				sum.PaidExpense.Cents += t.Amount.Cents
			} else {
				sum.PendingExpense.Cents += t.Amount.Cents
			}
		}
		if len(t.Splits) == 0 {
			add(t.CategoryID, t.Kind, t.Amount.Cents)
			continue
		}
		for _, sp := range t.Splits {
			add(sp.CategoryID, t.Kind, sp.Amount.Cents)
		}
	}
	for _, ca := range byCat {
		sum.ByCategory = append(sum.ByCategory, *ca)
	}
	sum.SortByAmount()
	return sum
}
