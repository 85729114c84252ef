package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/GoIngest/internal/adapter/utils"
	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/handlers"
	"github.com/akolanti/GoIngest/internal/middleware"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	http   *http.Server
	logger *logger_i.Logger
}

type Options struct {
	Addr        string
	ReadTimeout time.Duration
	RatePerSec  float64
	RateBurst   int
	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// NewRouter builds the routes without binding a listener, tests serve it through httptest.
func NewRouter(h *handlers.Handlers, opts Options) chi.Router {
	chain := middleware.NewChain(middleware.NewIPRateLimiter(opts.RatePerSec, opts.RateBurst))

	r := utils.NewRouter()
	r.Get("/health", h.GetHealthHandler)
	r.Post("/knowledge/{knowledgeId}/search", chain.Wrap(h.SearchHandler))
	r.Get("/documents/{documentId}/ingestion", chain.Wrap(h.GetIngestionRunHandler))
	if opts.MCP != nil {
		r.Handle("/mcp", chain.Handler(opts.MCP))
	}
	return r
}

func New(h *handlers.Handlers, opts Options) *Server {
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = config.ReadTimeout
	}
	return &Server{
		http: &http.Server{
			Addr:         opts.Addr,
			Handler:      NewRouter(h, opts),
			ReadTimeout:  readTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("Server"),
	}
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Server is listening at", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err, "addr", s.http.Addr)
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by config.ShutdownContextTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.ShutdownContextTimeout)
	defer cancel()

	s.http.SetKeepAlivesEnabled(false)
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Could not shutdown gracefully", "error", err)
		return err
	}
	s.logger.Info("Server shut down gracefully")
	return nil
}

// ServeMetrics exposes /metrics alone, used by the worker process.
func ServeMetrics(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           utils.NewRouter(),
		ReadHeaderTimeout: config.ReadTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
