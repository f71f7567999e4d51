package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// AlertStore lists stored alerts and acknowledges them.
type AlertStore interface {
	List(ctx context.Context, unreadOnly bool) ([]core.Alert, error)
	MarkRead(ctx context.Context, id string) error
}

// ArchiveLister lists archived crash dumps.
type ArchiveLister interface {
	List() ([]core.ArchivedDump, error)
}

// ReportGenerator produces the markdown crash summary.
type ReportGenerator interface {
	Generate(ctx context.Context) string
}

// Server is the read-mostly HTTP status server for crash state.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener

	ledger  core.EventStore
	window  time.Duration
	now     core.Clock
	alerts  AlertStore
	archive ArchiveLister
	report  ReportGenerator
	metrics http.Handler
}

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableCORS      bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            9898,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"http://localhost:5173"},
		EnableCORS:      true,
	}
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLedger exposes the crash ledger and the frequency count over window.
func WithLedger(store core.EventStore, window time.Duration) ServerOption {
	return func(s *Server) {
		s.ledger = store
		if window > 0 {
			s.window = window
		}
	}
}

// WithClock sets the clock used for frequency counts.
func WithClock(clock core.Clock) ServerOption {
	return func(s *Server) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithAlerts exposes stored alerts.
func WithAlerts(store AlertStore) ServerOption {
	return func(s *Server) {
		s.alerts = store
	}
}

// WithArchive exposes the crash dump archive.
func WithArchive(archive ArchiveLister) ServerOption {
	return func(s *Server) {
		s.archive = archive
	}
}

// WithReport exposes the markdown crash summary.
func WithReport(gen ReportGenerator) ServerOption {
	return func(s *Server) {
		s.report = gen
	}
}

// WithMetrics mounts a Prometheus handler at /metrics.
func WithMetrics(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a new Server instance with the given configuration.
func New(cfg Config, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		logger: logger,
		window: 24 * time.Hour,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// setupRouter configures the Chi router with middleware and routes.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Get("/health", s.handleHealth)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleAPIRoot)

		if s.ledger != nil {
			r.Get("/crashes", s.handleCrashes)
		}
		if s.alerts != nil {
			r.Get("/alerts", s.handleListAlerts)
			r.Post("/alerts/{id}/read", s.handleMarkRead)
		}
		if s.archive != nil {
			r.Get("/archive", s.handleArchive)
		}
		if s.report != nil {
			r.Get("/report", s.handleReport)
		}
	})

	return r
}

// loggingMiddleware logs each request at debug level once it completes.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "http request",
			slog.String("method", r.Method),
			slog.String("route", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("took", time.Since(began)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Start binds the listen address and serves in the background. Bind errors
// such as a port already in use are returned to the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("status server listening", slog.String("addr", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.logger.Info("status server stopped")
	return nil
}

// Router returns the underlying chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
