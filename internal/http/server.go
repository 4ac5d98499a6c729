// Package http serves the front-desk JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"wisma/internal/auth"
	"wisma/internal/log"
	"wisma/internal/middleware/ratelimit"
	"wisma/internal/middleware/security"
	"wisma/internal/middleware/trace"
	"wisma/internal/services"
)

type Config struct {
	Addr         string
	CookieSecure bool
	RateLimit    ratelimit.Config
	// Heartbeat is the idle interval between keep-alive comments on
	// event streams.
	Heartbeat time.Duration
}

type Deps struct {
	Stays    *services.StayService
	Flows    *services.CashFlowService
	Sessions *auth.Manager
	// Outbox backs the admin outbox endpoints; nil disables them.
	Outbox *services.OutboxProcessor
	Logger *log.Logger
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	stays    *services.StayService
	flows    *services.CashFlowService
	sessions *auth.Manager
	outbox   *services.OutboxProcessor
	logger   *log.Logger
	ready    func(ctx context.Context) error

	validate  *validator.Validate
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	heartbeat time.Duration

	cookieSecure bool
	shutdownOnce sync.Once
}

func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}

	s := &Server{
		stays:        deps.Stays,
		flows:        deps.Flows,
		sessions:     deps.Sessions,
		outbox:       deps.Outbox,
		logger:       logger,
		ready:        deps.Ready,
		validate:     newValidator(),
		limiter:      ratelimit.NewLimiter(cfg.RateLimit),
		detector:     security.NewDetector(deps.Logger),
		heartbeat:    heartbeat,
		cookieSecure: cfg.CookieSecure,
	}
	s.tracer = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/session", s.handleDeleteSession)
	mux.Handle("GET /api/me", s.requireSession(s.handleMe))
	mux.Handle("POST /api/admin/grants", s.requireSession(s.handleGrantAdmin))
	mux.Handle("GET /api/admin/outbox", s.requireAdmin(s.handleOutboxStats))
	mux.Handle("POST /api/admin/outbox/retry", s.requireAdmin(s.handleOutboxRetry))

	mux.Handle("GET /api/stays", s.requireSession(s.handleListStays))
	mux.Handle("POST /api/stays", s.requireSession(s.handleCheckIn))
	mux.Handle("GET /api/stays/stream", s.requireSession(s.handleStayStream))
	mux.Handle("GET /api/stays/{id}", s.requireSession(s.handleGetStay))
	mux.Handle("GET /api/stays/{id}/quote", s.requireSession(s.handleQuote))
	mux.Handle("POST /api/stays/{id}/payments", s.requireSession(s.handleRecordPayment))
	mux.Handle("POST /api/stays/{id}/extend", s.requireSession(s.handleExtendStay))
	mux.Handle("POST /api/stays/{id}/checkout", s.requireSession(s.handleCheckOut))
	mux.Handle("GET /api/rooms", s.requireSession(s.handleRooms))
	mux.Handle("GET /api/occupancy", s.requireSession(s.handleOccupancy))

	mux.Handle("GET /api/flows", s.requireSession(s.handleListFlows))
	mux.Handle("POST /api/flows", s.requireSession(s.handleRecordFlow))
	mux.Handle("GET /api/flows/stream", s.requireSession(s.handleFlowStream))
	mux.Handle("GET /api/flows/rollup", s.requireSession(s.handleRollup))
	mux.Handle("GET /api/flows/export.xlsx", s.requireSession(s.handleExportRollup))
	mux.Handle("GET /api/wallet", s.requireSession(s.handleWallet))

	mux.Handle("GET /api/expenses", s.requireSession(s.handleListExpenses))
	mux.Handle("POST /api/expenses", s.requireSession(s.handleCreateExpense))
	mux.Handle("GET /api/expenses/stream", s.requireSession(s.handleExpenseStream))
	mux.Handle("GET /api/expenses/by-category", s.requireSession(s.handleExpensesByCategory))
	mux.Handle("DELETE /api/expenses/{id}", s.requireSession(s.handleDeleteExpense))
}

// Limiter exposes the rate limiter so its idle clients can be swept with
// the other caches.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
	)
	NewResponse().
		Status(http.StatusTooManyRequests).
		JSON(errorBody{Error: "Too many requests, please slow down"}).
		Write(w)
}
