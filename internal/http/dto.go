package http

import (
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

const dateLayout = "2006-01-02"

// Request bodies. Amounts are decimal strings such as "12.34".
type (
	ruleRequest struct {
		Kind            core.Kind `json:"kind"`
		Amount          string    `json:"amount"`
		CategoryID      string    `json:"category_id"`
		PaymentMethodID string    `json:"payment_method_id"`
		Description     string    `json:"description"`
		AnchorDay       int       `json:"anchor_day"`
		StartMonth      string    `json:"start_month,omitempty"`
		EndMonth        string    `json:"end_month,omitempty"`
	}

	splitRequest struct {
		CategoryID string `json:"category_id"`
		Amount     string `json:"amount"`
	}

	transactionRequest struct {
		Kind            core.Kind      `json:"kind"`
		Amount          string         `json:"amount"`
		CategoryID      string         `json:"category_id"`
		PaymentMethodID string         `json:"payment_method_id"`
		Description     string         `json:"description"`
		DueDate         string         `json:"due_date"`
		Status          core.Status    `json:"status,omitempty"`
		Splits          []splitRequest `json:"splits,omitempty"`
	}

	categoryRequest struct {
		Name   string    `json:"name"`
		Kind   core.Kind `json:"kind,omitempty"`
		Active *bool     `json:"active,omitempty"`
	}

	paymentMethodRequest struct {
		Name   string `json:"name"`
		Active *bool  `json:"active,omitempty"`
	}
)

func parseAmount(field, s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, core.Invalid(field, err)
	}
	return core.Money{Cents: cents}, nil
}

func parseOptionalMonth(field, s string) (*core.Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	m, err := core.ParseMonth(s)
	if err != nil {
		return nil, core.NewValidationError(field, "month must be YYYY-MM")
	}
	return &m, nil
}

func (req ruleRequest) toRule() (core.RecurringRule, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return core.RecurringRule{}, err
	}
	rule := core.RecurringRule{
		Kind:            req.Kind,
		Amount:          amount,
		CategoryID:      sanitizeInput(req.CategoryID),
		PaymentMethodID: sanitizeInput(req.PaymentMethodID),
		Description:     sanitizeInput(req.Description),
		AnchorDay:       req.AnchorDay,
	}
	start, err := parseOptionalMonth("start_month", req.StartMonth)
	if err != nil {
		return core.RecurringRule{}, err
	}
	if start != nil {
		rule.StartMonth = *start
	}
	if rule.EndMonth, err = parseOptionalMonth("end_month", req.EndMonth); err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	due, err := time.Parse(dateLayout, strings.TrimSpace(req.DueDate))
	if err != nil {
		return core.Transaction{}, core.NewValidationError("due_date", "due date must be YYYY-MM-DD")
	}
	t := core.Transaction{
		Kind:            req.Kind,
		Amount:          amount,
		CategoryID:      sanitizeInput(req.CategoryID),
		PaymentMethodID: sanitizeInput(req.PaymentMethodID),
		Description:     sanitizeInput(req.Description),
		DueDate:         due,
		Status:          req.Status,
	}
	for _, sp := range req.Splits {
		a, err := parseAmount("splits", sp.Amount)
		if err != nil {
			return core.Transaction{}, err
		}
		t.Splits = append(t.Splits, core.Split{CategoryID: sanitizeInput(sp.CategoryID), Amount: a})
	}
	return t, nil
}

// Response bodies.
type (
	ruleResponse struct {
		ID              string    `json:"id"`
		Kind            core.Kind `json:"kind"`
		Amount          string    `json:"amount"`
		CategoryID      string    `json:"category_id"`
		PaymentMethodID string    `json:"payment_method_id"`
		Description     string    `json:"description"`
		AnchorDay       int       `json:"anchor_day"`
		StartMonth      string    `json:"start_month"`
		EndMonth        string    `json:"end_month,omitempty"`
		Active          bool      `json:"active"`
	}

	splitResponse struct {
		CategoryID string `json:"category_id"`
		Amount     string `json:"amount"`
	}

	transactionResponse struct {
		ID              string          `json:"id"`
		Kind            core.Kind       `json:"kind"`
		Amount          string          `json:"amount"`
		CategoryID      string          `json:"category_id,omitempty"`
		PaymentMethodID string          `json:"payment_method_id"`
		Description     string          `json:"description"`
		DueDate         string          `json:"due_date"`
		Status          core.Status     `json:"status"`
		Splits          []splitResponse `json:"splits,omitempty"`
		RuleID          string          `json:"rule_id,omitempty"`
		GeneratedMonth  string          `json:"generated_month,omitempty"`
	}

	categoryResponse struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Kind      core.Kind `json:"kind"`
		IsDefault bool      `json:"is_default"`
		Active    bool      `json:"active"`
	}

	paymentMethodResponse struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		IsDefault bool   `json:"is_default"`
		Active    bool   `json:"active"`
	}

	categoryAmountResponse struct {
		CategoryID string    `json:"category_id"`
		Name       string    `json:"name"`
		Kind       core.Kind `json:"kind"`
		Amount     string    `json:"amount"`
	}

	summaryResponse struct {
		Month          string                   `json:"month"`
		Income         string                   `json:"income"`
		Expense        string                   `json:"expense"`
		PaidExpense    string                   `json:"paid_expense"`
		PendingExpense string                   `json:"pending_expense"`
		Balance        string                   `json:"balance"`
		Transactions   int                      `json:"transactions"`
		ByCategory     []categoryAmountResponse `json:"by_category"`
	}

	materializeResponse struct {
		Month     string                `json:"month"`
		Created   []transactionResponse `json:"created"`
		Skipped   int                   `json:"skipped"`
		Evaluated int                   `json:"evaluated"`
	}

	yieldResponse struct {
		Instrument string    `json:"instrument"`
		Rate       string    `json:"rate"`
		FetchedAt  time.Time `json:"fetched_at"`
	}

	yieldsResponse struct {
		Month  string          `json:"month"`
		Yields []yieldResponse `json:"yields"`
	}
)

func newRuleResponse(r core.RecurringRule) ruleResponse {
	resp := ruleResponse{
		ID:              r.ID,
		Kind:            r.Kind,
		Amount:          r.Amount.String(),
		CategoryID:      r.CategoryID,
		PaymentMethodID: r.PaymentMethodID,
		Description:     r.Description,
		AnchorDay:       r.AnchorDay,
		StartMonth:      r.StartMonth.String(),
		Active:          r.Active,
	}
	if r.EndMonth != nil {
		resp.EndMonth = r.EndMonth.String()
	}
	return resp
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:              t.ID,
		Kind:            t.Kind,
		Amount:          t.Amount.String(),
		CategoryID:      t.CategoryID,
		PaymentMethodID: t.PaymentMethodID,
		Description:     t.Description,
		DueDate:         t.DueDate.Format(dateLayout),
		Status:          t.Status,
		RuleID:          t.RuleID,
	}
	if t.GeneratedMonth != nil {
		resp.GeneratedMonth = t.GeneratedMonth.String()
	}
	for _, sp := range t.Splits {
		resp.Splits = append(resp.Splits, splitResponse{CategoryID: sp.CategoryID, Amount: sp.Amount.String()})
	}
	return resp
}

func newTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Kind: c.Kind, IsDefault: c.IsDefault, Active: c.Active}
}

func newPaymentMethodResponse(p core.PaymentMethod) paymentMethodResponse {
	return paymentMethodResponse{ID: p.ID, Name: p.Name, IsDefault: p.IsDefault, Active: p.Active}
}

func newSummaryResponse(s core.MonthSummary) summaryResponse {
	resp := summaryResponse{
		Month:          s.Month.String(),
		Income:         s.Income.String(),
		Expense:        s.Expense.String(),
		PaidExpense:    s.PaidExpense.String(),
		PendingExpense: s.PendingExpense.String(),
		Balance:        s.Balance().String(),
		Transactions:   s.Transactions,
		ByCategory:     make([]categoryAmountResponse, 0, len(s.ByCategory)),
	}
	for _, ca := range s.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountResponse{
			CategoryID: ca.CategoryID,
			Name:       ca.Name,
			Kind:       ca.Kind,
			Amount:     ca.Amount.String(),
		})
	}
	return resp
}

func newMaterializeResponse(res services.MaterializationResult) materializeResponse {
	return materializeResponse{
		Month:     res.Month.String(),
		Created:   newTransactionResponses(res.Created),
		Skipped:   res.Skipped,
		Evaluated: res.Evaluated,
	}
}

func newYieldsResponse(month core.Month, yields []core.MarketYield) yieldsResponse {
	resp := yieldsResponse{Month: month.String(), Yields: make([]yieldResponse, 0, len(yields))}
	for _, y := range yields {
		resp.Yields = append(resp.Yields, yieldResponse{
			Instrument: y.Instrument,
			Rate:       y.Rate.String(),
			FetchedAt:  y.FetchedAt.UTC(),
		})
	}
	return resp
}
