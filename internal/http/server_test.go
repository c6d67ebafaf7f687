package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage/memory"
)

var testSecret = []byte("test-secret-at-least-16")

type testServer struct {
	*Server
	store *memory.Store
	token string
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	store := memory.New()
	logger := log.Discard()
	engine := services.NewMaterializationEngine(store, store, services.WithEngineLogger(logger))

	srv := NewServer(Options{
		Addr:               ":0",
		Verifier:           auth.NewVerifier(testSecret, logger),
		Store:              store,
		RateLimitPerMinute: rateLimit,
		Logger:             logger,
	}, Services{
		Engine:       engine,
		Rules:        services.NewRuleService(store, store, store, store, logger),
		Transactions: services.NewTransactionService(store, store, store, nil, logger),
		Taxonomy:     services.NewTaxonomyService(store, store, logger),
		Summary:      services.NewSummaryService(engine, store),
		Yields:       services.NewYieldService(store, nil, nil, logger),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	token, err := auth.IssueToken(testSecret, "user-1", time.Hour, time.Now())
	require.NoError(t, err)
	return &testServer{Server: srv, store: store, token: token}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// defaults returns the seeded "Casa" category and "Contanti" method ids.
func (ts *testServer) defaults(t *testing.T) (string, string) {
	t.Helper()
	rr := ts.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var catID string
	for _, c := range decode[[]categoryResponse](t, rr) {
		if c.Name == "Casa" {
			catID = c.ID
		}
	}
	rr = ts.do(t, http.MethodGet, "/api/payment-methods", "")
	require.Equal(t, http.StatusOK, rr.Code)
	methods := decode[[]paymentMethodResponse](t, rr)
	require.NotEmpty(t, methods)
	require.NotEmpty(t, catID)
	return catID, methods[0].ID
}

func (ts *testServer) createRent(t *testing.T) ruleResponse {
	t.Helper()
	catID, methodID := ts.defaults(t)
	body := `{"kind":"expense","amount":"750.00","category_id":"` + catID +
		`","payment_method_id":"` + methodID +
		`","description":"Affitto","anchor_day":31,"start_month":"2025-01"}`
	rr := ts.do(t, http.MethodPost, "/api/rules", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[ruleResponse](t, rr)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, 0)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		ts.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), path)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyReportsStoreFailure(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.Server.store = failingPinger{}

	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSummaryMaterializesRecurringRules(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.createRent(t)

	rr := ts.do(t, http.MethodGet, "/api/summary?month=2025-02", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decode[summaryResponse](t, rr)
	assert.Equal(t, "2025-02", first.Month)
	assert.Equal(t, "750.00", first.Expense)
	assert.Equal(t, "750.00", first.PendingExpense)
	assert.Equal(t, "-750.00", first.Balance)
	assert.Equal(t, 1, first.Transactions)

	// A second summary of the same month must not duplicate the rent.
	rr = ts.do(t, http.MethodGet, "/api/summary?month=2025-02", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, first, decode[summaryResponse](t, rr))

	rr = ts.do(t, http.MethodGet, "/api/transactions?month=2025-02", "")
	require.Equal(t, http.StatusOK, rr.Code)
	txs := decode[[]transactionResponse](t, rr)
	require.Len(t, txs, 1)
	assert.Equal(t, "2025-02-28", txs[0].DueDate)
	assert.Equal(t, core.Pending, txs[0].Status)
	assert.Equal(t, "2025-02", txs[0].GeneratedMonth)
	assert.NotEmpty(t, txs[0].RuleID)
}

func TestMaterializeEndpointIsIdempotent(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.createRent(t)

	rr := ts.do(t, http.MethodPost, "/api/recurring/materialize?month=2025-03", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[materializeResponse](t, rr)
	assert.Len(t, res.Created, 1)
	assert.Equal(t, "2025-03-31", res.Created[0].DueDate)

	rr = ts.do(t, http.MethodPost, "/api/recurring/materialize?month=2025-03", "")
	require.Equal(t, http.StatusOK, rr.Code)
	res = decode[materializeResponse](t, rr)
	assert.Empty(t, res.Created)
	assert.Equal(t, 1, res.Skipped)

	rr = ts.do(t, http.MethodGet, "/api/recurring/materialize?month=2025-03", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))
}

func TestMalformedMonthIsRejected(t *testing.T) {
	ts := newTestServer(t, 0)
	for _, target := range []string{
		"/api/summary?month=2025-2",
		"/api/recurring/materialize?month=2025-13",
		"/api/transactions",
		"/api/yields?month=abc",
	} {
		method := http.MethodGet
		if strings.Contains(target, "materialize") {
			method = http.MethodPost
		}
		rr := ts.do(t, method, target, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, target)
	}
}

func TestRuleLifecycle(t *testing.T) {
	ts := newTestServer(t, 0)
	rule := ts.createRent(t)

	rr := ts.do(t, http.MethodPost, "/api/recurring/materialize?month=2025-01", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/api/rules/delete?id="+rule.ID, "")
	assert.Equal(t, http.StatusConflict, rr.Code, "a rule with history cannot be deleted")

	rr = ts.do(t, http.MethodPost, "/api/rules/deactivate?id="+rule.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[ruleResponse](t, rr).Active)

	rr = ts.do(t, http.MethodPost, "/api/recurring/materialize?month=2025-02", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[materializeResponse](t, rr).Created)

	rr = ts.do(t, http.MethodPost, "/api/rules/deactivate?id=missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/rules", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]ruleResponse](t, rr), 1)
}

func TestCreateRuleValidation(t *testing.T) {
	ts := newTestServer(t, 0)
	catID, methodID := ts.defaults(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad amount", `{"kind":"expense","amount":"-5","category_id":"` + catID + `","payment_method_id":"` + methodID + `","description":"x","anchor_day":1}`},
		{"bad day", `{"kind":"expense","amount":"5","category_id":"` + catID + `","payment_method_id":"` + methodID + `","description":"x","anchor_day":32}`},
		{"unknown category", `{"kind":"expense","amount":"5","category_id":"nope","payment_method_id":"` + methodID + `","description":"x","anchor_day":1}`},
		{"unknown field", `{"kind":"expense","amount":"5","colour":"red"}`},
		{"bad end month", `{"kind":"expense","amount":"5","category_id":"` + catID + `","payment_method_id":"` + methodID + `","description":"x","anchor_day":1,"end_month":"2025"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/api/rules", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
		})
	}

	rr := ts.do(t, http.MethodGet, "/api/rules", "")
	assert.Empty(t, decode[[]ruleResponse](t, rr), "nothing is written on validation failure")
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t, 0)
	catID, methodID := ts.defaults(t)

	body := `{"kind":"expense","amount":"12,34","category_id":"` + catID +
		`","payment_method_id":"` + methodID +
		`","description":"Bolletta","due_date":"2025-06-10","status":"pending"}`
	rr := ts.do(t, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[transactionResponse](t, rr)
	assert.Equal(t, "12.34", created.Amount)
	assert.Empty(t, created.RuleID)

	rr = ts.do(t, http.MethodPost, "/api/transactions/pay?id="+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, core.Paid, decode[transactionResponse](t, rr).Status)

	update := strings.Replace(body, "12,34", "20.00", 1)
	rr = ts.do(t, http.MethodPost, "/api/transactions/update?id="+created.ID, update)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "20.00", decode[transactionResponse](t, rr).Amount)

	rr = ts.do(t, http.MethodPost, "/api/transactions/delete?id="+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/transactions/pay?id="+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTransactionSplitsMustAddUp(t *testing.T) {
	ts := newTestServer(t, 0)
	catID, methodID := ts.defaults(t)

	body := `{"kind":"expense","amount":"10.00","payment_method_id":"` + methodID +
		`","description":"Spesa mista","due_date":"2025-06-10","splits":[` +
		`{"category_id":"` + catID + `","amount":"4.00"},{"category_id":"` + catID + `","amount":"5.00"}]}`
	rr := ts.do(t, http.MethodPost, "/api/transactions", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
}

func TestTaxonomyProtection(t *testing.T) {
	ts := newTestServer(t, 0)
	catID, _ := ts.defaults(t)

	rr := ts.do(t, http.MethodDelete, "/api/categories/delete?id="+catID, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/categories", `{"name":"Svago","kind":"expense"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	svago := decode[categoryResponse](t, rr)
	assert.False(t, svago.IsDefault)

	rr = ts.do(t, http.MethodPost, "/api/categories", `{"name":"svago","kind":"expense"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/categories/update?id="+svago.ID, `{"name":"Tempo libero","active":false}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.False(t, decode[categoryResponse](t, rr).Active)

	rr = ts.do(t, http.MethodPost, "/api/categories/delete?id="+svago.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/payment-methods", `{"name":"Carta"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	card := decode[paymentMethodResponse](t, rr)

	rr = ts.do(t, http.MethodPost, "/api/payment-methods/update?id="+card.ID, `{"name":"Carta di credito"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[paymentMethodResponse](t, rr).Active)

	rr = ts.do(t, http.MethodDelete, "/api/payment-methods/delete?id="+card.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestYieldsUnavailableWithoutProvider(t *testing.T) {
	ts := newTestServer(t, 0)
	rr := ts.do(t, http.MethodGet, "/api/yields?month=2025-06", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestYieldsServedFromStore(t *testing.T) {
	ts := newTestServer(t, 0)
	month := core.MustParseMonth("2025-06")
	require.NoError(t, ts.store.SaveYields(context.Background(), month, []core.MarketYield{
		{Month: month, Instrument: "BTP-10Y", Rate: decimal.RequireFromString("3.85"), FetchedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}))

	rr := ts.do(t, http.MethodGet, "/api/yields?month=2025-06", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[yieldsResponse](t, rr)
	require.Len(t, resp.Yields, 1)
	assert.Equal(t, "BTP-10Y", resp.Yields[0].Instrument)
	assert.Equal(t, "3.85", resp.Yields[0].Rate)
}

func TestUnknownAPIPath(t *testing.T) {
	ts := newTestServer(t, 0)
	rr := ts.do(t, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMutatingRequestsAreRateLimited(t *testing.T) {
	ts := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rr := ts.do(t, http.MethodPost, "/api/recurring/materialize?month=2025-06", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := ts.do(t, http.MethodPost, "/api/recurring/materialize?month=2025-06", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = ts.do(t, http.MethodGet, "/api/summary?month=2025-06", "")
	assert.Equal(t, http.StatusOK, rr.Code, "reads are not limited")
}

func TestSecurityHeadersAndBlockedMethods(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(t, http.MethodGet, "/api/summary?month=2025-06", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = ts.do(t, "TRACE", "/api/summary", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
