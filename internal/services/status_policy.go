package services

import (
	"fmt"

	"bilancio/internal/core"
)

// StatusPolicy decides the status a transaction starts with when the engine
// materializes it from a rule.
type StatusPolicy interface {
	InitialStatus(rule core.RecurringRule, month core.Month) core.Status
}

// PendingPolicy leaves the transaction to be paid by the user.
type PendingPolicy struct{}

func (PendingPolicy) InitialStatus(core.RecurringRule, core.Month) core.Status {
	return core.Pending
}

// SettledPolicy records the transaction as already paid.
type SettledPolicy struct{}

func (SettledPolicy) InitialStatus(core.RecurringRule, core.Month) core.Status {
	return core.Paid
}

// StatusPolicyFunc adapts a function to StatusPolicy.
type StatusPolicyFunc func(rule core.RecurringRule, month core.Month) core.Status

func (f StatusPolicyFunc) InitialStatus(rule core.RecurringRule, month core.Month) core.Status {
	return f(rule, month)
}

// DefaultStatusPolicies returns the policies used when none are configured:
// expenses wait for payment, income counts as received.
func DefaultStatusPolicies() map[core.Kind]StatusPolicy {
	return map[core.Kind]StatusPolicy{
		core.Expense: PendingPolicy{},
		core.Income:  SettledPolicy{},
	}
}

func lookupStatusPolicy(policies map[core.Kind]StatusPolicy, kind core.Kind) (StatusPolicy, error) {
	p, ok := policies[kind]
	if !ok {
		return nil, fmt.Errorf("no status policy for kind %q", kind)
	}
	return p, nil
}
