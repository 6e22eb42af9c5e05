package main

import (
	"context"
	"log"
	"os"

	"customer-address-manager/internal/config"
	"customer-address-manager/internal/db"
	"customer-address-manager/internal/repository/store"
	"customer-address-manager/internal/seed"
	"customer-address-manager/internal/service/consistency"
	customersvc "customer-address-manager/internal/service/customer"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	svc := customersvc.New(store.NewPostgres(pool, logger), consistency.NewMaintainer(logger, nil), customersvc.Config{
		DefaultCountry: cfg.DefaultCountry,
	}, logger)

	created, skipped, err := seed.Apply(ctx, svc)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied: %d created, %d already present", created, skipped)
}
