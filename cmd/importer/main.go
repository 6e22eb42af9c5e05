package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"customer-address-manager/internal/config"
	"customer-address-manager/internal/db"
	"customer-address-manager/internal/importer"
	"customer-address-manager/internal/repository/store"
	"customer-address-manager/internal/service/consistency"
	customersvc "customer-address-manager/internal/service/customer"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to customer CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stderr, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	svc := customersvc.New(store.NewPostgres(pool, logger), consistency.NewMaintainer(logger, nil), customersvc.Config{
		DefaultCountry: cfg.DefaultCountry,
	}, logger)
	imp := importer.NewCSVImporter(f, svc)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d customers: %v", count, err)
	}

	fmt.Printf("Imported %d customers in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
