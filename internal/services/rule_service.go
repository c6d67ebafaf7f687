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

// RuleService manages the recurring rule definitions of a user.
type RuleService struct {
	rules  ports.RuleStore
	txs    ports.TransactionStore
	refs   references
	now    func() time.Time
	newID  func() string
	logger *log.Logger
}

func NewRuleService(rules ports.RuleStore, txs ports.TransactionStore, cats ports.CategoryStore, methods ports.PaymentMethodStore, logger *log.Logger) *RuleService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RuleService{
		rules:  rules,
		txs:    txs,
		refs:   references{cats: cats, methods: methods},
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.WithComponent(log.ComponentRules),
	}
}

// Create stores a new active rule. A zero start month means the current one.
func (s *RuleService) Create(ctx context.Context, userID string, r core.RecurringRule) (core.RecurringRule, error) {
	if err := requireUser(userID); err != nil {
		return core.RecurringRule{}, err
	}
	now := s.now().UTC()
	r.ID = s.newID()
	r.UserID = userID
	r.Active = true
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.StartMonth.IsZero() {
		r.StartMonth = core.CurrentMonth(now)
	}
	if err := s.validate(ctx, r); err != nil {
		return core.RecurringRule{}, err
	}
	if err := s.rules.CreateRule(ctx, r); err != nil {
		return core.RecurringRule{}, fmt.Errorf("create rule: %w", err)
	}
	s.logger.InfoContext(ctx, "Rule created",
		log.NewFields().WithScope(userID, r.StartMonth.String()).WithRule(r.ID).ToSlice()...)
	return r, nil
}

// Update replaces the editable fields of an existing rule. Transactions
// already generated from it are left as they are.
func (s *RuleService) Update(ctx context.Context, userID string, r core.RecurringRule) (core.RecurringRule, error) {
	if err := requireUser(userID); err != nil {
		return core.RecurringRule{}, err
	}
	current, err := s.rules.GetRule(ctx, userID, r.ID)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get rule: %w", err)
	}
	r.UserID = current.UserID
	r.Active = current.Active
	r.CreatedAt = current.CreatedAt
	r.UpdatedAt = s.now().UTC()
	if r.StartMonth.IsZero() {
		r.StartMonth = current.StartMonth
	}
	if err := s.validate(ctx, r); err != nil {
		return core.RecurringRule{}, err
	}
	if err := s.rules.UpdateRule(ctx, r); err != nil {
		return core.RecurringRule{}, fmt.Errorf("update rule: %w", err)
	}
	return r, nil
}

func (s *RuleService) Get(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	if err := requireUser(userID); err != nil {
		return core.RecurringRule{}, err
	}
	r, err := s.rules.GetRule(ctx, userID, id)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

func (s *RuleService) List(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rs, err := s.rules.ListRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rs, nil
}

// Deactivate stops a rule from generating new transactions.
func (s *RuleService) Deactivate(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.RecurringRule{}, err
	}
	if !r.Active {
		return r, nil
	}
	r.Active = false
	r.UpdatedAt = s.now().UTC()
	if err := s.rules.UpdateRule(ctx, r); err != nil {
		return core.RecurringRule{}, fmt.Errorf("deactivate rule: %w", err)
	}
	s.logger.InfoContext(ctx, "Rule deactivated", log.FieldUserID, userID, log.FieldRuleID, id)
	return r, nil
}

// Delete removes a rule that never generated a transaction. Rules with
// history are refused with ErrInUse and should be deactivated.
func (s *RuleService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	n, err := s.txs.CountForRule(ctx, id)
	if err != nil {
		return fmt.Errorf("count generated transactions: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("rule %s generated %d transactions: %w", id, n, core.ErrInUse)
	}
	if err := s.rules.DeleteRule(ctx, userID, id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

func (s *RuleService) validate(ctx context.Context, r core.RecurringRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.refs.check(ctx, r.UserID, r.Kind, r.PaymentMethodID, r.CategoryID)
}

func requireUser(userID string) error {
	if userID == "" {
		return &core.AuthenticationError{Reason: "missing user identity"}
	}
	return nil
}
