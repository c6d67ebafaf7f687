package ports

import (
	"context"
	"time"

	"bilancio/internal/core"
)

// Ports for outbound adapters.
type (
	// RuleStore persists recurring rule definitions.
	RuleStore interface {
		CreateRule(ctx context.Context, r core.RecurringRule) error
		UpdateRule(ctx context.Context, r core.RecurringRule) error
		GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error)
		ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error)
		// ListActiveRules returns the active rules of userID whose
		// start/end window covers month.
		ListActiveRules(ctx context.Context, userID string, month core.Month) ([]core.RecurringRule, error)
		DeleteRule(ctx context.Context, userID, id string) error
	}

	// TransactionStore persists realized transactions.
	TransactionStore interface {
		ExistsForRuleAndMonth(ctx context.Context, ruleID string, month core.Month) (bool, error)
		// CreateIfAbsent inserts t unless a transaction for
		// (t.RuleID, t.GeneratedMonth) already exists. It reports whether
		// a row was written.
		CreateIfAbsent(ctx context.Context, t core.Transaction) (bool, error)
		CreateTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
		CountForRule(ctx context.Context, ruleID string) (int64, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) error
		UpdateCategory(ctx context.Context, c core.Category) error
		GetCategory(ctx context.Context, userID, id string) (core.Category, error)
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		DeleteCategory(ctx context.Context, userID, id string) error
		// CategoryUsage counts transactions and rules referencing the category.
		CategoryUsage(ctx context.Context, userID, id string) (int64, error)
	}

	PaymentMethodStore interface {
		CreatePaymentMethod(ctx context.Context, p core.PaymentMethod) error
		UpdatePaymentMethod(ctx context.Context, p core.PaymentMethod) error
		GetPaymentMethod(ctx context.Context, userID, id string) (core.PaymentMethod, error)
		ListPaymentMethods(ctx context.Context, userID string) ([]core.PaymentMethod, error)
		DeletePaymentMethod(ctx context.Context, userID, id string) error
		PaymentMethodUsage(ctx context.Context, userID, id string) (int64, error)
	}

	// SummaryStore aggregates a user's transactions for a month.
	SummaryStore interface {
		SummarizeMonth(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error)
	}

	YieldStore interface {
		GetYields(ctx context.Context, month core.Month) ([]core.MarketYield, error)
		SaveYields(ctx context.Context, month core.Month, yields []core.MarketYield) error
	}

	// YieldProvider fetches market yields from an external source.
	YieldProvider interface {
		FetchYields(ctx context.Context, month core.Month) ([]core.MarketYield, error)
	}

	// EventPublisher announces transaction changes to other processes.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, ev TransactionEvent) error
	}

	// Store bundles every persistence port a backend provides.
	Store interface {
		RuleStore
		TransactionStore
		CategoryStore
		PaymentMethodStore
		SummaryStore
		YieldStore
		Ping(ctx context.Context) error
		Close() error
	}
)

const (
	EventTransactionMaterialized = "transaction.materialized"
	EventTransactionCreated      = "transaction.created"
)

// TransactionEvent is the payload published after a transaction is written.
type TransactionEvent struct {
	Type          string
	TransactionID string
	UserID        string
	RuleID        string
	Month         core.Month
	AmountCents   int64
	Kind          core.Kind
	OccurredAt    time.Time
}
