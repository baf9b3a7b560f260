package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"github.com/nyashahama/vitalwatch-backend/internal/ai"
	"github.com/nyashahama/vitalwatch-backend/internal/api"
	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/config"
	"github.com/nyashahama/vitalwatch-backend/internal/email"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
	"github.com/nyashahama/vitalwatch-backend/internal/rpc"
	"github.com/nyashahama/vitalwatch-backend/internal/store"
	"github.com/nyashahama/vitalwatch-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// Root context cancelled by OS signal. Worker and servers all respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Registry ──────────────────────────────────────────────────────────────
	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	defer closeRepo()

	// ── AI ────────────────────────────────────────────────────────────────────
	// Exactly one provider. A failed call surfaces to the caller; there is no
	// fallback chain.
	gen, err := ai.New(cfg.AI())
	if err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	svc := assessment.NewService(gen)
	logger.Info("ai provider selected", "provider", gen.Name())

	// ── Alerts (Resend + worker) ──────────────────────────────────────────────
	var (
		alerts     worker.Enqueuer
		workerDone = make(chan struct{})
	)
	if cfg.AlertsEnabled() {
		mailer := email.NewResendClient(
			cfg.ResendAPIKey,
			cfg.EmailFromAddr,
			cfg.EmailFromName,
			cfg.BaseURL,
		)
		runner := worker.NewRunner(worker.NewJob(mailer, cfg.AlertEmailTo, logger), worker.RunnerConfig{
			Workers:    cfg.WorkerCount,
			QueueSize:  cfg.QueueSize,
			JobTimeout: cfg.JobTimeout,
			MaxRetries: cfg.MaxRetries,
		}, logger)
		alerts = runner

		// Start blocks until ctx is done and every worker has returned.
		go func() {
			runner.Start(ctx)
			close(workerDone)
		}()
		logger.Info("high-risk alerts enabled", "to", cfg.AlertEmailTo)
	} else {
		close(workerDone)
		logger.Info("high-risk alerts disabled: RESEND_API_KEY or ALERT_EMAIL_TO not set")
	}

	// ── HTTP + gRPC on one port ───────────────────────────────────────────────
	handler := api.NewServer(repo, svc, alerts, api.Config{
		Env:            cfg.Env,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	httpSrv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second, // outlasts the Timeout middleware
		IdleTimeout:  120 * time.Second,
	}
	grpcSrv := rpc.NewServer(svc, logger)

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	mux := cmux.New(lis)
	// gRPC clients wait for the server SETTINGS frame before sending headers.
	grpcL := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := mux.Match(cmux.Any())

	serverErr := make(chan error, 3)
	go func() {
		if err := grpcSrv.Serve(grpcL); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		if err := httpSrv.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			serverErr <- fmt.Errorf("cmux: %w", err)
		}
	}()
	logger.Info("server listening", "addr", lis.Addr().String(), "protocols", "http,grpc")

	// Block until either a signal arrives or a server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	grpcStopped := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(grpcStopped)
	}()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	select {
	case <-grpcStopped:
	case <-shutdownCtx.Done():
		grpcSrv.Stop()
	}
	mux.Close()

	<-workerDone
	logger.Info("shutdown complete")
	return nil
}

// openRepository picks the patient registry: Postgres when DATABASE_URL is
// set (migrated, and seeded when empty if SEED_MOCK_DATA is on), otherwise an
// in-memory store.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		var seed []patient.Patient
		if cfg.SeedMockData {
			seed = patient.MockPatients()
		}
		logger.Info("registry: in-memory", "patients", len(seed))
		return store.NewMemory(seed), func() {}, nil
	}

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if err := store.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	pg := store.NewPostgres(pool)
	if cfg.SeedMockData {
		n, err := pg.Seed(ctx, patient.MockPatients())
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if n > 0 {
			logger.Info("registry: seeded mock patients", "count", n)
		}
	}

	logger.Info("registry: postgres")
	return pg, func() { pool.Close() }, nil
}
