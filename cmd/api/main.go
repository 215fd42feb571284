package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kinshukkush/smartsplit/internal/auth"
	"github.com/kinshukkush/smartsplit/internal/config"
	"github.com/kinshukkush/smartsplit/internal/engine"
	smartsplitHttp "github.com/kinshukkush/smartsplit/internal/http"
	balanceHandler "github.com/kinshukkush/smartsplit/internal/http/balance"
	commandHandler "github.com/kinshukkush/smartsplit/internal/http/command"
	expenseHandler "github.com/kinshukkush/smartsplit/internal/http/expense"
	exportHandler "github.com/kinshukkush/smartsplit/internal/http/export"
	settlementHandler "github.com/kinshukkush/smartsplit/internal/http/settlement"
	"github.com/kinshukkush/smartsplit/internal/logging"
	"github.com/kinshukkush/smartsplit/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("smartsplit stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()

	m := metrics.New()
	settings := cfg.Settings()

	svc := engine.NewService(repo, engine.Options{
		Metrics:     m,
		Logger:      logger,
		Settings:    &settings,
		SaveTimeout: cfg.Store.SaveTimeout,
	})

	// A ledger that cannot be read must not be overwritten by an empty one.
	if err := svc.Load(ctx); err != nil {
		_ = svc.Close(context.Background())
		return err
	}

	// The next successful save carries every change, so failures are only
	// surfaced here.
	go func() {
		for {
			select {
			case err := <-svc.Errors():
				logger.Warn("ledger changes not yet persisted", "error", err, "version", svc.Status().Version)
			case <-ctx.Done():
				return
			}
		}
	}()

	var authManager *auth.Manager
	if cfg.Auth.Secret != "" {
		authManager = auth.NewManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	} else {
		logger.Warn("AUTH_SECRET not set, API is unauthenticated")
	}

	var (
		commandH    = commandHandler.NewHandler(svc, cfg.Server.MaxUploadBytes)
		expenseH    = expenseHandler.NewHandler(svc)
		settlementH = settlementHandler.NewHandler(svc)
		balanceH    = balanceHandler.NewHandler(svc)
		exportH     = exportHandler.NewHandler(svc)
	)

	router := smartsplitHttp.New(commandH, expenseH, settlementH, balanceH, exportH, smartsplitHttp.Options{
		Auth:           authManager,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        m.Handler(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("starting server", "app", cfg.App.Name, "addr", server.Addr, "store", cfg.Store.Driver)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		_ = svc.Close(context.Background())
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}

	// Close flushes the last snapshot.
	if err := svc.Close(shutdownCtx); err != nil {
		return fmt.Errorf("flushing ledger: %w", err)
	}

	logger.Info("server exited", "status", svc.Status().SyncStatus)

	return nil
}
