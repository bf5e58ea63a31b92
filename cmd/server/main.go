package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "service-center/internal/adapters/web"
	"service-center/internal/app"
	"service-center/internal/config"
	"service-center/internal/core"
	"service-center/internal/db"
	"service-center/internal/jobs"
	"service-center/internal/logger"
	"service-center/internal/metrics"
	"service-center/migrations"

	"go.uber.org/zap"
)

const serviceName = "service-center"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.Server.Env, serviceName)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.Files, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	m := metrics.New(serviceName)

	customerService := core.NewCustomerService(pool)
	inventoryService := core.NewInventoryService(pool)
	recordService := core.NewServiceRecordService(pool, inventoryService)
	numbers := core.NewInvoiceNumberAllocator(pool, cfg.Location)
	invoiceService := core.NewInvoiceService(pool, customerService, inventoryService, recordService, numbers, m)
	reportingService := core.NewReportingService(pool, cfg.Location)

	svc := app.NewAppService(pool, customerService, inventoryService, recordService, invoiceService, reportingService, app.Options{
		Location:          cfg.Location,
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		LowStockThreshold: cfg.Stock.LowStockThreshold,
	})

	watcher := jobs.NewLowStockWatcher(svc, m, log, cfg.Stock.LowStockSchedule, cfg.Location)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		SessionTTL:     cfg.Auth.SessionTTL,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		SecureCookie:   cfg.Server.Env == "production",
		Metrics:        m,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("timezone", cfg.Location.String()),
			zap.Bool("auth", cfg.AuthEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
