package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"service-center/internal/adapters/cli"
	"service-center/internal/adapters/repl"
	"service-center/internal/app"
	"service-center/internal/config"
	"service-center/internal/core"
	"service-center/internal/db"
	"service-center/internal/logger"
)

func main() {
	// hash-password needs no database.
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := cli.Run(context.Background(), nil, os.Args[1:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	cfg, err := config.Load("service-center-cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.Server.Env, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	customerService := core.NewCustomerService(pool)
	inventoryService := core.NewInventoryService(pool)
	recordService := core.NewServiceRecordService(pool, inventoryService)
	numbers := core.NewInvoiceNumberAllocator(pool, cfg.Location)
	invoiceService := core.NewInvoiceService(pool, customerService, inventoryService, recordService, numbers, nil)
	reportingService := core.NewReportingService(pool, cfg.Location)

	svc := app.NewAppService(pool, customerService, inventoryService, recordService, invoiceService, reportingService, app.Options{
		Location:          cfg.Location,
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		LowStockThreshold: cfg.Stock.LowStockThreshold,
	})

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			if errors.Is(err, cli.ErrUsage) {
				os.Exit(2)
			}
			os.Exit(1)
		}
		return
	}
	repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout)
}
