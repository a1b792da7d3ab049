// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"libracatalog/internal/catalog"
	"libracatalog/internal/circulation"
	"libracatalog/internal/config"
	"libracatalog/internal/journal"
	"libracatalog/internal/logger"
	"libracatalog/internal/server"
	"libracatalog/internal/telemetry"

	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "libracatalog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Service.Name, cfg.Service.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Service.Name, version, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	metrics := telemetry.NewHTTPMetrics("libracatalog")
	shutdownMetrics, err := telemetry.InitMetrics(ctx, cfg.Service.Name, version, metrics.Registry())
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(ctx); err != nil {
			log.Warn("Failed to stop meter provider", zap.Error(err))
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, err := circulation.ParseReturnPolicy(cfg.Loans.ReturnPolicy)
	if err != nil {
		return err
	}

	store := catalog.NewFileStore(cfg.Catalog.Path, log.Named("store"), catalog.WithLocation(loc))
	if _, err := store.Load(ctx); err != nil {
		// The file may be created or fixed later; every request reloads until it reads.
		log.Warn("Catalog not readable at startup", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}

	if cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(store, log.Named("watcher"))
		if err != nil {
			return err
		}
		go watcher.Run(ctx)
		defer func() {
			_ = watcher.Close()
			<-watcher.Done()
		}()
	}

	loans, err := circulation.NewService(store, journal.New(journal.DefaultCapacity), log.Named("circulation"), circulation.Options{
		RequireEmail: cfg.Loans.RequireEmail,
		ReturnPolicy: policy,
		OverdueDays:  cfg.Loans.OverdueDays,
		Location:     loc,
	})
	if err != nil {
		return err
	}

	handler := server.New(catalog.NewService(store), loans, log.Named("http"), server.Options{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Metrics:        metrics,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting libracatalog",
			zap.String("addr", srv.Addr),
			zap.String("catalog", cfg.Catalog.Path),
			zap.String("return_policy", string(policy)),
			zap.Bool("require_email", cfg.Loans.RequireEmail),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
