package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"customer-address-manager/internal/config"
	"customer-address-manager/internal/db"
	"customer-address-manager/internal/httpserver"
	"customer-address-manager/internal/observability"
	"customer-address-manager/internal/repository/memory"
	"customer-address-manager/internal/repository/store"
	addresssvc "customer-address-manager/internal/service/address"
	"customer-address-manager/internal/service/consistency"
	customersvc "customer-address-manager/internal/service/customer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	var st store.Manager
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Printf("using in-memory store; data is lost on exit")
		st = memory.New()
	case config.StoreDriverPostgres:
		dbpool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("connect to db: %v", err)
		}
		defer dbpool.Close()
		st = store.NewPostgres(dbpool, logger)
	default:
		logger.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.New(reg)

	maintainer := consistency.NewMaintainer(logger, metrics)
	customerService := customersvc.New(st, maintainer, customersvc.Config{
		DefaultCountry:   cfg.DefaultCountry,
		DefaultPageLimit: cfg.DefaultPageLimit,
		MaxPageLimit:     cfg.MaxPageLimit,
	}, logger)
	addressService := addresssvc.New(st, maintainer, addresssvc.Config{
		DefaultCountry:   cfg.DefaultCountry,
		DefaultPageLimit: cfg.DefaultPageLimit,
		MaxPageLimit:     cfg.MaxPageLimit,
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		CustomerSvc:  customerService,
		AddressSvc:   addressService,
		Store:        st,
		Metrics:      metrics,
		Gatherer:     reg,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		Development:  cfg.Development(),
		MaxPageLimit: cfg.MaxPageLimit,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s (store=%s env=%s)", cfg.HTTPAddr, cfg.StoreDriver, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
