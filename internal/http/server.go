// Package http serves the JSON API of the bakery: catalog, orders,
// expenses, summaries and downloadable reports.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"confeitaria/internal/cache"
	"confeitaria/internal/log"
	"confeitaria/internal/middleware/ratelimit"
	"confeitaria/internal/middleware/security"
	"confeitaria/internal/middleware/trace"
	"confeitaria/internal/services"
)

// Options tune the HTTP surface; zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

type Server struct {
	http.Server
	svc     *services.Service
	reports *ReportCache
	logger  *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around svc. reports may be shared
// with the service so that mutations purge it; nil disables caching.
func NewServer(addr string, svc *services.Service, reports *ReportCache, opts Options) (*Server, error) {
	detector, err := security.NewDetector()
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = NewReportCache(0, 0)
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	s := &Server{
		svc:      svc,
		reports:  reports,
		logger:   log.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		caches:   cache.NewManager(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP)
	s.caches.Register(reports)
	s.caches.StartCleanup(time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("POST /products", s.handleCreateProduct)
	mux.HandleFunc("PUT /products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("POST /products/{id}/variants", s.handleAddVariant)

	mux.HandleFunc("POST /orders/quote", s.handleQuote)
	mux.HandleFunc("GET /orders", s.handleListOrders)
	mux.HandleFunc("POST /orders", s.handleCreateOrder)
	mux.HandleFunc("PATCH /orders/{id}/status", s.handleSetOrderStatus)
	mux.HandleFunc("PATCH /orders/{id}/payment", s.handleSetOrderPayment)

	mux.HandleFunc("POST /expenses/schedule", s.handleSchedulePayments)
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /summary/orders", s.handleOrderSummary)
	mux.HandleFunc("GET /summary/expenses", s.handleExpenseSummary)
	mux.HandleFunc("GET /reports/orders", s.handleOrdersReport)
	mux.HandleFunc("GET /reports/expenses", s.handleExpensesReport)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
	}, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)

	var h http.Handler = mux
	h = limited(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestIDFrom)(h)
	h = log.Middleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
