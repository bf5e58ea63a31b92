// seed loads a sample catalog and customer into an empty database.
// Items and customers that already exist are left untouched.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"service-center/internal/app"
	"service-center/internal/config"
	"service-center/internal/core"
	"service-center/internal/db"
	"service-center/internal/logger"
	"service-center/migrations"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var sampleItems = []app.CreateItemRequest{
	{SKU: "OIL-10W30-1L", Name: "Engine Oil 10W-30 1L", Price: decimal.RequireFromString("420.00"), Quantity: 40, Category: "consumable"},
	{SKU: "OIL-FILTER-STD", Name: "Oil Filter", Price: decimal.RequireFromString("180.00"), Quantity: 25, Category: "spare-part"},
	{SKU: "SPARK-PLUG-NGK", Name: "Spark Plug NGK", Price: decimal.RequireFromString("120.00"), Quantity: 30, Category: "spare-part"},
	{SKU: "AIR-FILTER-STD", Name: "Air Filter", Price: decimal.RequireFromString("260.00"), Quantity: 12, Category: "spare-part"},
	{SKU: "BRAKE-SHOE-RR", Name: "Rear Brake Shoe Set", Price: decimal.RequireFromString("350.00"), Quantity: 8, Category: "spare-part"},
	{SKU: "CHAIN-LUBE-150", Name: "Chain Lube 150ml", Price: decimal.RequireFromString("210.00"), Quantity: 15, Category: "consumable"},
	{SKU: "COOLANT-500", Name: "Coolant 500ml", Price: decimal.RequireFromString("160.00"), Quantity: 3, Category: "consumable"},
}

var sampleCustomer = app.CustomerDetailsRequest{
	Name:         "Ravi Kumar",
	Mobile:       "9845012345",
	Address:      "12 MG Road, Bengaluru",
	VehicleRegNo: "KA01AB1234",
	VehicleModel: "Hero Splendor Plus",
	EngineNo:     "HA10EFJHK12345",
	FrameNo:      "MBLHA10AMJHK12345",
}

func main() {
	cfg, err := config.Load("service-center-seed")
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DB.URL, 4)
	if err != nil {
		log.Fatal("failed to connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.Files, log); err != nil {
		log.Fatal("failed to migrate", zap.Error(err))
	}

	customerService := core.NewCustomerService(pool)
	inventoryService := core.NewInventoryService(pool)
	svc := app.NewAppService(pool, customerService, inventoryService, nil, nil, nil, app.Options{Location: cfg.Location})

	created := 0
	for _, item := range sampleItems {
		_, err := svc.CreateInventoryItem(ctx, item)
		switch {
		case errors.Is(err, core.ErrDuplicate):
			log.Info("item already present", zap.String("sku", item.SKU))
		case err != nil:
			log.Fatal("failed to create item", zap.String("sku", item.SKU), zap.Error(err))
		default:
			created++
		}
	}

	result, err := svc.FindOrCreateCustomer(ctx, sampleCustomer)
	if err != nil {
		log.Fatal("failed to seed customer", zap.Error(err))
	}
	log.Info("seed complete",
		zap.Int("items_created", created),
		zap.String("customer", result.Customer.VehicleRegNo),
		zap.Bool("customer_created", result.Created))
}
