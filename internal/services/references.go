package services

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/ports"
)

// references checks that the category and payment method ids a rule or
// transaction points at belong to the user, are active and fit the kind.
type references struct {
	cats    ports.CategoryStore
	methods ports.PaymentMethodStore
}

func (r references) check(ctx context.Context, userID string, kind core.Kind, methodID string, categoryIDs ...string) error {
	seen := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		c, err := r.cats.GetCategory(ctx, userID, id)
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError("category_id", fmt.Sprintf("unknown category %q", id))
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if !c.Active {
			return core.NewValidationError("category_id", fmt.Sprintf("category %q is inactive", c.Name))
		}
		if c.Kind != kind {
			return core.NewValidationError("category_id", fmt.Sprintf("category %q is for %s entries", c.Name, c.Kind))
		}
	}

	p, err := r.methods.GetPaymentMethod(ctx, userID, methodID)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewValidationError("payment_method_id", fmt.Sprintf("unknown payment method %q", methodID))
	}
	if err != nil {
		return fmt.Errorf("get payment method: %w", err)
	}
	if !p.Active {
		return core.NewValidationError("payment_method_id", fmt.Sprintf("payment method %q is inactive", p.Name))
	}
	return nil
}

func splitCategories(t core.Transaction) []string {
	ids := []string{t.CategoryID}
	for _, s := range t.Splits {
		ids = append(ids, s.CategoryID)
	}
	return ids
}
