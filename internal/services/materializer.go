package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
)

const DefaultMaterializeConcurrency = 4

// MaterializationResult reports one run of the engine for a user and month.
type MaterializationResult struct {
	Month     core.Month
	Created   []core.Transaction // sorted by rule id
	Skipped   int
	Evaluated int
}

// MaterializationEngine turns the recurring rules of a user into at most one
// transaction per (rule, month). Running it again for the same month is a
// no-op for every rule already materialized.
type MaterializationEngine struct {
	rules          ports.RuleStore
	txs            ports.TransactionStore
	events         ports.EventPublisher
	publishTimeout time.Duration
	policies       map[core.Kind]StatusPolicy
	concurrency    int
	now            func() time.Time
	newID          func() string
	logger         *log.Logger
}

type EngineOption func(*MaterializationEngine)

// WithEvents announces every created transaction on p.
func WithEvents(p ports.EventPublisher) EngineOption {
	return func(e *MaterializationEngine) { e.events = p }
}

// WithPublishTimeout bounds how long a run waits for its events to be sent.
func WithPublishTimeout(d time.Duration) EngineOption {
	return func(e *MaterializationEngine) {
		if d > 0 {
			e.publishTimeout = d
		}
	}
}

// WithConcurrency bounds how many rules are processed at once. Values below
// one fall back to the default.
func WithConcurrency(n int) EngineOption {
	return func(e *MaterializationEngine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *MaterializationEngine) { e.now = now }
}

func WithIDGenerator(newID func() string) EngineOption {
	return func(e *MaterializationEngine) { e.newID = newID }
}

// WithStatusPolicy overrides the initial status policy for one kind.
func WithStatusPolicy(kind core.Kind, p StatusPolicy) EngineOption {
	return func(e *MaterializationEngine) { e.policies[kind] = p }
}

func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *MaterializationEngine) { e.logger = l }
}

func NewMaterializationEngine(rules ports.RuleStore, txs ports.TransactionStore, opts ...EngineOption) *MaterializationEngine {
	e := &MaterializationEngine{
		rules:          rules,
		txs:            txs,
		publishTimeout: DefaultPublishTimeout,
		policies:       DefaultStatusPolicies(),
		concurrency:    DefaultMaterializeConcurrency,
		now:            time.Now,
		newID:          uuid.NewString,
		logger:         log.New(log.DefaultConfig()).WithComponent(log.ComponentEngine),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Materialize parses month (strict YYYY-MM) and materializes it for userID.
func (e *MaterializationEngine) Materialize(ctx context.Context, userID, month string) (MaterializationResult, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return MaterializationResult{}, err
	}
	return e.MaterializeMonth(ctx, userID, m)
}

// MaterializeMonth creates the missing transactions of month for userID.
//
// A store error stops the remaining rules and is returned wrapped; the
// transactions created before it stay and are reported in the result. The
// next call picks up the rest.
func (e *MaterializationEngine) MaterializeMonth(ctx context.Context, userID string, month core.Month) (MaterializationResult, error) {
	result := MaterializationResult{Month: month}
	if strings.TrimSpace(userID) == "" {
		return result, &core.AuthenticationError{Reason: "missing user identity"}
	}

	rules, err := e.rules.ListActiveRules(ctx, userID, month)
	if err != nil {
		return result, fmt.Errorf("list active rules: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, rule := range rules {
		// the store filter may be coarser than AppliesTo
		if rule.UserID != userID || !rule.AppliesTo(month) {
			continue
		}
		result.Evaluated++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tx, created, err := e.materializeRule(gctx, rule, month)
			if err != nil {
				return fmt.Errorf("materialize rule %s: %w", rule.ID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if created {
				result.Created = append(result.Created, tx)
			} else {
				result.Skipped++
			}
			return nil
		})
	}
	err = g.Wait()

	sort.Slice(result.Created, func(i, j int) bool {
		return result.Created[i].RuleID < result.Created[j].RuleID
	})
	e.publish(ctx, result.Created)

	fields := log.NewFields().
		WithScope(userID, month.String()).
		WithMaterialization(len(result.Created), result.Skipped, result.Evaluated)
	if err != nil {
		e.logger.ErrorContext(ctx, "Materialization stopped", fields.WithError(err).ToSlice()...)
		return result, err
	}
	e.logger.InfoContext(ctx, "Materialization complete", fields.ToSlice()...)
	return result, nil
}

// materializeRule reports created=false when (rule, month) already has a
// transaction, including when a concurrent call won the insert.
func (e *MaterializationEngine) materializeRule(ctx context.Context, rule core.RecurringRule, month core.Month) (core.Transaction, bool, error) {
	exists, err := e.txs.ExistsForRuleAndMonth(ctx, rule.ID, month)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("check existing: %w", err)
	}
	if exists {
		return core.Transaction{}, false, nil
	}

	tx, err := e.buildTransaction(rule, month)
	if err != nil {
		return core.Transaction{}, false, err
	}
	created, err := e.txs.CreateIfAbsent(ctx, tx)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("create transaction: %w", err)
	}
	if !created {
		e.logger.DebugContext(ctx, "Lost materialization race",
			log.FieldRuleID, rule.ID,
			log.FieldMonth, month.String())
	}
	return tx, created, nil
}

func (e *MaterializationEngine) buildTransaction(rule core.RecurringRule, month core.Month) (core.Transaction, error) {
	policy, err := lookupStatusPolicy(e.policies, rule.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	now := e.now().UTC()
	generated := month
	tx := core.Transaction{
		ID:              e.newID(),
		UserID:          rule.UserID,
		Kind:            rule.Kind,
		Amount:          rule.Amount,
		CategoryID:      rule.CategoryID,
		PaymentMethodID: rule.PaymentMethodID,
		Description:     rule.Description,
		DueDate:         rule.DueDate(month),
		Status:          policy.InitialStatus(rule, month),
		RuleID:          rule.ID,
		GeneratedMonth:  &generated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("rule %s yields an invalid transaction: %w", rule.ID, err)
	}
	return tx, nil
}

func (e *MaterializationEngine) publish(ctx context.Context, created []core.Transaction) {
	if e.events == nil {
		return
	}
	evs := make([]ports.TransactionEvent, 0, len(created))
	for _, tx := range created {
		evs = append(evs, ports.TransactionEvent{
			Type:          ports.EventTransactionMaterialized,
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			RuleID:        tx.RuleID,
			Month:         *tx.GeneratedMonth,
			AmountCents:   tx.Amount.Cents,
			Kind:          tx.Kind,
			OccurredAt:    tx.CreatedAt,
		})
	}
	publishEvents(ctx, e.events, e.publishTimeout, e.logger, evs)
}
