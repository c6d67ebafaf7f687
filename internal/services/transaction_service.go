package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
)

// TransactionService handles transactions entered by the user. Generated
// transactions can be edited here too but keep their provenance.
type TransactionService struct {
	txs            ports.TransactionStore
	refs           references
	events         ports.EventPublisher
	publishTimeout time.Duration
	now            func() time.Time
	newID          func() string
	logger         *log.Logger
}

// NewTransactionService wires the service. events may be nil.
func NewTransactionService(txs ports.TransactionStore, cats ports.CategoryStore, methods ports.PaymentMethodStore, events ports.EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		txs:            txs,
		refs:           references{cats: cats, methods: methods},
		events:         events,
		publishTimeout: DefaultPublishTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
		logger:         logger.WithComponent(log.ComponentTransactions),
	}
}

// Create saves an ordinary transaction. An empty status means paid.
func (s *TransactionService) Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return core.Transaction{}, err
	}
	now := s.now().UTC()
	t.ID = s.newID()
	t.UserID = userID
	t.RuleID = ""
	t.GeneratedMonth = nil
	t.CreatedAt = now
	t.UpdatedAt = now
	normalize(&t)

	if err := s.validate(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	if err := s.txs.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	// The transaction is saved; a failed announcement only gets logged.
	s.publishCreated(ctx, t)
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return core.Transaction{}, err
	}
	current, err := s.txs.GetTransaction(ctx, userID, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.UserID = current.UserID
	t.RuleID = current.RuleID
	t.GeneratedMonth = current.GeneratedMonth
	t.CreatedAt = current.CreatedAt
	t.UpdatedAt = s.now().UTC()
	if t.Status == "" {
		t.Status = current.Status
	}
	normalize(&t)

	if err := s.validate(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	if err := s.txs.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.txs.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListMonth returns the transactions due in month, ordered by due date.
func (s *TransactionService) ListMonth(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ts, err := s.txs.ListTransactions(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return ts, nil
}

// MarkPaid settles a pending transaction. Paying twice is a no-op.
func (s *TransactionService) MarkPaid(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Status == core.Paid {
		return t, nil
	}
	t.Status = core.Paid
	t.UpdatedAt = s.now().UTC()
	if err := s.txs.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("mark paid: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction paid",
		log.NewFields().WithTransaction(t.ID, t.Amount.Cents).ToSlice()...)
	return t, nil
}

// Delete removes a transaction. Deleting a generated one does not make its
// rule generate it again for that month.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.txs.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (s *TransactionService) validate(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.refs.check(ctx, t.UserID, t.Kind, t.PaymentMethodID, splitCategories(t)...)
}

func (s *TransactionService) publishCreated(ctx context.Context, t core.Transaction) {
	if s.events == nil {
		return
	}
	publishEvents(ctx, s.events, s.publishTimeout, s.logger, []ports.TransactionEvent{{
		Type:          ports.EventTransactionCreated,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Month:         t.Month(),
		AmountCents:   t.Amount.Cents,
		Kind:          t.Kind,
		OccurredAt:    t.CreatedAt,
	}})
}

// normalize moves the due date to midnight UTC of its calendar day.
func normalize(t *core.Transaction) {
	if t.Status == "" {
		t.Status = core.Paid
	}
	if !t.DueDate.IsZero() {
		y, m, d := t.DueDate.Date()
		t.DueDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}
