package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/cache"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services the handlers call.
type Services struct {
	Engine       *services.MaterializationEngine
	Rules        *services.RuleService
	Transactions *services.TransactionService
	Taxonomy     *services.TaxonomyService
	Summary      *services.SummaryService
	Yields       *services.YieldService
}

// Options configures the server around the services.
type Options struct {
	Addr               string
	Verifier           *auth.Verifier
	Store              Pinger
	Caches             *cache.Manager
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	engine       *services.MaterializationEngine
	rules        *services.RuleService
	transactions *services.TransactionService
	taxonomy     *services.TaxonomyService
	summary      *services.SummaryService
	yields       *services.YieldService

	store    Pinger
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Everything under /api/ requires a bearer token.
func NewServer(opts Options, svc Services) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		engine:       svc.Engine,
		rules:        svc.Rules,
		transactions: svc.Transactions,
		taxonomy:     svc.Taxonomy,
		summary:      svc.Summary,
		yields:       svc.Yields,
		store:        opts.Store,
		caches:       opts.Caches,
		logger:       logger.WithComponent(log.ComponentHTTP),
		now:          time.Now,
	}

	s.detector = security.NewDetector(logger)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	cfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		cfg.RequestsPerMinute = opts.RateLimitPerMinute
	}
	s.limiter = ratelimit.NewLimiter(cfg)

	api := http.NewServeMux()
	api.HandleFunc("/api/summary", s.handleSummary)
	api.HandleFunc("/api/recurring/materialize", s.handleMaterialize)
	api.HandleFunc("/api/rules", s.handleRules)
	api.HandleFunc("/api/rules/update", s.handleRuleUpdate)
	api.HandleFunc("/api/rules/deactivate", s.handleRuleDeactivate)
	api.HandleFunc("/api/rules/delete", s.handleRuleDelete)
	api.HandleFunc("/api/transactions", s.handleTransactions)
	api.HandleFunc("/api/transactions/update", s.handleTransactionUpdate)
	api.HandleFunc("/api/transactions/pay", s.handleTransactionPay)
	api.HandleFunc("/api/transactions/delete", s.handleTransactionDelete)
	api.HandleFunc("/api/categories", s.handleCategories)
	api.HandleFunc("/api/categories/update", s.handleCategoryUpdate)
	api.HandleFunc("/api/categories/delete", s.handleCategoryDelete)
	api.HandleFunc("/api/payment-methods", s.handlePaymentMethods)
	api.HandleFunc("/api/payment-methods/update", s.handlePaymentMethodUpdate)
	api.HandleFunc("/api/payment-methods/delete", s.handlePaymentMethodDelete)
	api.HandleFunc("/api/yields", s.handleYields)
	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})

	var protected http.Handler = api
	if opts.Verifier != nil {
		protected = opts.Verifier.Middleware(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/api/", protected)

	s.Handler = chain(mux,
		log.Middleware(logger),
		s.tracer.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, TooManyRequestsError),
	)
	return s
}

// chain applies middlewares so that the first one runs outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
