package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
)

type defaultCategory struct {
	name string
	kind core.Kind
}

var (
	defaultCategories = []defaultCategory{
		{"Stipendio", core.Income},
		{"Casa", core.Expense},
		{"Spesa", core.Expense},
		{"Trasporti", core.Expense},
	}
	defaultPaymentMethods = []string{"Contanti"}
)

// TaxonomyService manages categories and payment methods. Every user starts
// with a small default set which cannot be edited or removed.
type TaxonomyService struct {
	cats    ports.CategoryStore
	methods ports.PaymentMethodStore
	newID   func() string
	logger  *log.Logger
}

func NewTaxonomyService(cats ports.CategoryStore, methods ports.PaymentMethodStore, logger *log.Logger) *TaxonomyService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TaxonomyService{
		cats:    cats,
		methods: methods,
		newID:   uuid.NewString,
		logger:  logger.WithComponent(log.ComponentTaxonomy),
	}
}

// Categories

// ListCategories returns the user's categories, seeding the defaults the
// first time.
func (s *TaxonomyService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	cs, err := s.cats.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(cs) > 0 {
		return cs, nil
	}
	if err := s.seedCategories(ctx, userID); err != nil {
		return nil, err
	}
	cs, err = s.cats.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cs, nil
}

func (s *TaxonomyService) seedCategories(ctx context.Context, userID string) error {
	for _, d := range defaultCategories {
		c := core.Category{ID: s.newID(), UserID: userID, Name: d.name, Kind: d.kind, IsDefault: true, Active: true}
		// a concurrent seed may have won
		if err := s.cats.CreateCategory(ctx, c); err != nil && !errors.Is(err, core.ErrConflict) {
			return fmt.Errorf("seed category %s: %w", d.name, err)
		}
	}
	s.logger.InfoContext(ctx, "Default categories seeded", log.FieldUserID, userID)
	return nil
}

func (s *TaxonomyService) CreateCategory(ctx context.Context, userID, name string, kind core.Kind) (core.Category, error) {
	if err := requireUser(userID); err != nil {
		return core.Category{}, err
	}
	c := core.Category{ID: s.newID(), UserID: userID, Name: name, Kind: kind, Active: true}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := s.ListCategories(ctx, userID)
	if err != nil {
		return core.Category{}, err
	}
	if err := checkCategoryName(existing, c); err != nil {
		return core.Category{}, err
	}
	if err := s.cats.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpdateCategory renames or (de)activates a category. The kind cannot change.
func (s *TaxonomyService) UpdateCategory(ctx context.Context, userID, id, name string, active bool) (core.Category, error) {
	if err := requireUser(userID); err != nil {
		return core.Category{}, err
	}
	c, err := s.cats.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	if c.IsDefault {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrDefaultProtected)
	}
	c.Name = name
	c.Active = active
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := s.cats.ListCategories(ctx, userID)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	if err := checkCategoryName(existing, c); err != nil {
		return core.Category{}, err
	}
	if err := s.cats.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes an unused, non-default category.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	c, err := s.cats.GetCategory(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if c.IsDefault {
		return fmt.Errorf("category %q: %w", c.Name, core.ErrDefaultProtected)
	}
	n, err := s.cats.CategoryUsage(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("category usage: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("category %q has %d references: %w", c.Name, n, core.ErrInUse)
	}
	if err := s.cats.DeleteCategory(ctx, userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func checkCategoryName(existing []core.Category, c core.Category) error {
	for _, e := range existing {
		if e.ID != c.ID && e.Kind == c.Kind && core.SameName(e.Name, c.Name) {
			return fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
		}
	}
	return nil
}

// Payment methods

func (s *TaxonomyService) ListPaymentMethods(ctx context.Context, userID string) ([]core.PaymentMethod, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ps, err := s.methods.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	if len(ps) > 0 {
		return ps, nil
	}
	for _, name := range defaultPaymentMethods {
		p := core.PaymentMethod{ID: s.newID(), UserID: userID, Name: name, IsDefault: true, Active: true}
		if err := s.methods.CreatePaymentMethod(ctx, p); err != nil && !errors.Is(err, core.ErrConflict) {
			return nil, fmt.Errorf("seed payment method %s: %w", name, err)
		}
	}
	ps, err = s.methods.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return ps, nil
}

func (s *TaxonomyService) CreatePaymentMethod(ctx context.Context, userID, name string) (core.PaymentMethod, error) {
	if err := requireUser(userID); err != nil {
		return core.PaymentMethod{}, err
	}
	p := core.PaymentMethod{ID: s.newID(), UserID: userID, Name: name, Active: true}
	if err := p.Validate(); err != nil {
		return core.PaymentMethod{}, err
	}
	existing, err := s.ListPaymentMethods(ctx, userID)
	if err != nil {
		return core.PaymentMethod{}, err
	}
	if err := checkPaymentMethodName(existing, p); err != nil {
		return core.PaymentMethod{}, err
	}
	if err := s.methods.CreatePaymentMethod(ctx, p); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("create payment method: %w", err)
	}
	return p, nil
}

func (s *TaxonomyService) UpdatePaymentMethod(ctx context.Context, userID, id, name string, active bool) (core.PaymentMethod, error) {
	if err := requireUser(userID); err != nil {
		return core.PaymentMethod{}, err
	}
	p, err := s.methods.GetPaymentMethod(ctx, userID, id)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method: %w", err)
	}
	if p.IsDefault {
		return core.PaymentMethod{}, fmt.Errorf("payment method %q: %w", p.Name, core.ErrDefaultProtected)
	}
	p.Name = name
	p.Active = active
	if err := p.Validate(); err != nil {
		return core.PaymentMethod{}, err
	}
	existing, err := s.methods.ListPaymentMethods(ctx, userID)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("list payment methods: %w", err)
	}
	if err := checkPaymentMethodName(existing, p); err != nil {
		return core.PaymentMethod{}, err
	}
	if err := s.methods.UpdatePaymentMethod(ctx, p); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("update payment method: %w", err)
	}
	return p, nil
}

func (s *TaxonomyService) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	p, err := s.methods.GetPaymentMethod(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get payment method: %w", err)
	}
	if p.IsDefault {
		return fmt.Errorf("payment method %q: %w", p.Name, core.ErrDefaultProtected)
	}
	n, err := s.methods.PaymentMethodUsage(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("payment method usage: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("payment method %q has %d references: %w", p.Name, n, core.ErrInUse)
	}
	if err := s.methods.DeletePaymentMethod(ctx, userID, id); err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	return nil
}

func checkPaymentMethodName(existing []core.PaymentMethod, p core.PaymentMethod) error {
	for _, e := range existing {
		if e.ID != p.ID && core.SameName(e.Name, p.Name) {
			return fmt.Errorf("payment method %q: %w", p.Name, core.ErrConflict)
		}
	}
	return nil
}
