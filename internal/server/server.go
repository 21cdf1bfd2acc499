package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"cognitosrp/internal/authflow"
)

// Server is the demo HTTP front end for a Pool, grounded on the
// teacher's App/setupRouter shape (cmd/server/main.go) with the
// personal-finance handlers replaced by the six auth-flow endpoints
// this library actually needs to demonstrate.
type Server struct {
	pool     *authflow.Pool
	logger   *slog.Logger
	registry *registry
	router   *chi.Mux
}

// New constructs a Server bound to pool.
func New(pool *authflow.Pool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pool:     pool,
		logger:   logger,
		registry: newRegistry(pool),
	}
	s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.logRequests)

	limiter := rate.NewLimiter(1, 5)
	r.Use(s.rateLimit(limiter))

	r.Get("/health", s.handleHealth)
	r.Post("/login", s.handleLogin)
	r.Post("/login/new-password", s.handleCompleteNewPassword)
	r.Post("/login/mfa", s.handleSendMFACode)
	r.Post("/login/custom-challenge", s.handleSendCustomChallengeAnswer)
	r.Post("/login/refresh", s.handleRefresh)
	r.Post("/logout", s.handleLogout)

	s.router = r
}

// rateLimit is a single shared token-bucket limiter across every route
// (the auth endpoints and /health alike), grounded on internal/middleware/ratelimit.go's
// rate.NewLimiter usage — simplified from the teacher's per-IP visitor
// map since the RpcFacade itself already rate-limits per-client.
func (s *Server) rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run starts the HTTP server on addr and blocks until ctx is cancelled,
// then shuts down gracefully — grounded on cmd/server/main.go's
// signal-driven shutdown, generalized to take a caller-owned context
// instead of registering its own signal handler.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
