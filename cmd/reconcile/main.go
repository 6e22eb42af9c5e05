package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"customer-address-manager/internal/config"
	"customer-address-manager/internal/db"
	"customer-address-manager/internal/repository/store"
	"customer-address-manager/internal/service/consistency"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[reconcile] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	maintainer := consistency.NewMaintainer(logger, nil)
	repaired, err := maintainer.RefreshAll(ctx, store.NewPostgres(pool, logger))
	if err != nil {
		logger.Fatalf("reconcile stopped after %d repairs: %v", repaired, err)
	}
	logger.Printf("reconcile finished: %d customers repaired", repaired)
}
