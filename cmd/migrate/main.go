// migrate applies the embedded schema migrations and exits.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"service-center/internal/config"
	"service-center/internal/db"
	"service-center/internal/logger"
	"service-center/migrations"
)

func main() {
	cfg, err := config.Load("service-center-migrate")
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DB.URL, 2)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.Files, log); err != nil {
		log.Fatal(err.Error())
	}
	log.Info("migrations complete")
}
