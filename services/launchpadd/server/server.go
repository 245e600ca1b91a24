package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"launchpad/core"
	"launchpad/core/events"
	"launchpad/gateway/middleware"
	"launchpad/native/common"
	"launchpad/services/launchpadd/journal"
)

const (
	// ScopeAdmin guards pause controls and account credits.
	ScopeAdmin = "admin"

	routeOperations = "operations"
	routeQueries    = "queries"

	maxOperationBytes = 1 << 20
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress      string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	AllowedOrigins     []string
	StreamWriteTimeout time.Duration
	LogRequests        bool
}

// Options carries the collaborators of the server. Only the executor is
// mandatory.
type Options struct {
	Journal *journal.Journal
	Pauses  *common.PauseSet
	Stream  *events.Broadcaster
	Auth    *middleware.Authenticator
	Limiter *middleware.RateLimiter
	Logger  *slog.Logger
}

// Server exposes the launchpad over HTTP.
type Server struct {
	cfg      Config
	executor *core.Executor
	journal  *journal.Journal
	pauses   *common.PauseSet
	stream   *events.Broadcaster
	auth     *middleware.Authenticator
	limiter  *middleware.RateLimiter
	obs      *middleware.Observability
	logger   *slog.Logger
}

// New constructs a server around executor.
func New(cfg Config, executor *core.Executor, opts Options) (*Server, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7081"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.StreamWriteTimeout <= 0 {
		cfg.StreamWriteTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		executor: executor,
		journal:  opts.Journal,
		pauses:   opts.Pauses,
		stream:   opts.Stream,
		auth:     opts.Auth,
		limiter:  opts.Limiter,
		logger:   logger,
	}
	if s.pauses == nil {
		s.pauses = common.NewPauseSet()
	}
	if s.auth == nil {
		s.auth = middleware.NewAuthenticator(middleware.AuthConfig{Enabled: true}, logger)
	}
	if s.limiter == nil {
		s.limiter = middleware.NewRateLimiter(nil, logger)
	}
	s.obs = middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "launchpadd",
		Enabled:     true,
		LogRequests: cfg.LogRequests,
	}, logger)
	return s, nil
}

// Handler builds the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(s.obs.Middleware("operations.submit"), s.limiter.Middleware(routeOperations)).
			Post("/operations", s.handleSubmit)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(routeQueries))
			r.With(s.obs.Middleware("sales.list")).Get("/sales", s.handleSales)
			r.With(s.obs.Middleware("sales.get")).Get("/sales/{id}", s.handleSale)
			r.With(s.obs.Middleware("sales.quote")).Get("/sales/{id}/quote", s.handleQuote)
			r.With(s.obs.Middleware("accounts.get")).Get("/accounts/{address}", s.handleAccount)
			r.With(s.obs.Middleware("accounts.balance")).Get("/accounts/{address}/balances/{asset}", s.handleBalance)
		})

		r.Get("/events/ws", s.handleStream)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.auth.Middleware(ScopeAdmin))
		r.With(s.obs.Middleware("admin.pause")).Post("/pause", s.handlePause)
		r.With(s.obs.Middleware("admin.resume")).Post("/resume", s.handleResume)
		r.With(s.obs.Middleware("admin.credit")).Post("/credit", s.handleCredit)
	})

	return otelhttp.NewHandler(r, "launchpadd")
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go s.pruneLimiter(ctx)

	s.logger.Info("launchpadd listening", slog.String("addr", s.cfg.ListenAddress))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.limiter.Prune(10 * time.Minute); removed > 0 {
				s.logger.Debug("rate limiter pruned", slog.Int("clients", removed))
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"paused": s.pauses.Paused(),
	})
}
