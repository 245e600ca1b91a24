package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"launchpad/core"
	"launchpad/core/events"
	"launchpad/crypto"
	"launchpad/gateway/middleware"
	"launchpad/observability/logging"
	telemetry "launchpad/observability/otel"
	"launchpad/services/launchpadd/config"
	"launchpad/services/launchpadd/journal"
	"launchpad/services/launchpadd/server"
	"launchpad/storage"
)

var genesisMarker = []byte("launchpadd/genesis-applied")

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/launchpadd/config.yaml", "path to launchpadd configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("launchpadd: load config: %v", err)
	}
	logger := logging.SetupWithOptions("launchpadd", cfg.Environment, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.Config{
		ServiceName:    "launchpadd",
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.MetricInterval.Duration,
	}
	// OTEL_EXPORTER_OTLP_ENDPOINT overrides the file and enables both exporters.
	if env := telemetry.ConfigFromEnv("launchpadd", cfg.Environment); env.Endpoint != "" {
		telemetryCfg.Endpoint = env.Endpoint
		telemetryCfg.Insecure = env.Insecure
		if len(env.Headers) > 0 {
			telemetryCfg.Headers = env.Headers
		}
		telemetryCfg.Metrics, telemetryCfg.Traces = true, true
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatalf("launchpadd: init telemetry: %v", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	db, err := storage.Open(cfg.Database.Backend, cfg.Database.Path)
	if err != nil {
		log.Fatalf("launchpadd: open ledger: %v", err)
	}
	defer db.Close()

	jrnl, err := journal.Open(cfg.Journal.DSN)
	if err != nil {
		log.Fatalf("launchpadd: open journal: %v", err)
	}
	defer jrnl.Close()

	pauses := cfg.Policy.PauseSet()
	stream := events.NewBroadcaster(cfg.Stream.Buffer)
	exec := core.NewExecutor(db,
		core.WithEmitter(committedEvents(stream, logger)),
		core.WithPauses(pauses),
		core.WithQuota(cfg.Policy.LaunchpadQuota()),
		core.WithLogger(logger),
	)
	if err := applyGenesis(ctx, db, exec, cfg.Genesis); err != nil {
		log.Fatalf("launchpadd: genesis: %v", err)
	}

	secret := cfg.JWTSecret()
	if secret == "" {
		logger.Warn("admin secret not configured; admin endpoints will reject every request")
	}
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    true,
		HMACSecret: secret,
		Issuer:     cfg.Admin.Issuer,
		Audience:   cfg.Admin.Audience,
		ClockSkew:  cfg.Admin.ClockSkew.Duration,
	}, logger)
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"operations": {RatePerSecond: cfg.RateLimit.OperationsPerSecond, Burst: cfg.RateLimit.OperationsBurst},
		"queries":    {RatePerSecond: cfg.RateLimit.QueriesPerSecond, Burst: cfg.RateLimit.QueriesBurst},
	}, logger)

	srv, err := server.New(server.Config{
		ListenAddress:      cfg.ListenAddress,
		ReadTimeout:        cfg.Timeouts.Read.Duration,
		WriteTimeout:       cfg.Timeouts.Write.Duration,
		IdleTimeout:        cfg.Timeouts.Idle.Duration,
		ShutdownTimeout:    cfg.Timeouts.Shutdown.Duration,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		StreamWriteTimeout: cfg.Stream.WriteTimeout.Duration,
		LogRequests:        cfg.Environment == "dev",
	}, exec, server.Options{
		Journal: jrnl,
		Pauses:  pauses,
		Stream:  stream,
		Auth:    auth,
		Limiter: limiter,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("launchpadd: build server: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("launchpadd stopped")
}

// applyGenesis credits the configured allocations once per ledger.
func applyGenesis(ctx context.Context, db storage.Database, exec *core.Executor, credits []config.GenesisCredit) error {
	if len(credits) == 0 {
		return nil
	}
	applied, err := db.Has(genesisMarker)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	for i, credit := range credits {
		addr, err := crypto.ParseAddress(credit.Address)
		if err != nil {
			return fmt.Errorf("genesis[%d]: %w", i, err)
		}
		if err := exec.Credit(ctx, strings.TrimSpace(credit.Asset), addr, credit.Amount); err != nil {
			return fmt.Errorf("genesis[%d]: %w", i, err)
		}
	}
	return db.Put(genesisMarker, []byte{1})
}
