package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"time"

	"customer-address-manager/internal/domain"
	"customer-address-manager/internal/observability"
	addresssvc "customer-address-manager/internal/service/address"
	customersvc "customer-address-manager/internal/service/customer"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CustomerService is implemented by *customersvc.Service.
type CustomerService interface {
	Create(ctx context.Context, in customersvc.Input) (*domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context, q domain.CustomerQuery) (*domain.CustomerPage, error)
	Update(ctx context.Context, id int64, in customersvc.Input) (*domain.Customer, error)
	Delete(ctx context.Context, id int64) error
	ListWithMultipleAddresses(ctx context.Context) ([]domain.Customer, error)
	ListWithSingleAddress(ctx context.Context) ([]domain.Customer, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// AddressService is implemented by *addresssvc.Service.
type AddressService interface {
	Create(ctx context.Context, in addresssvc.CreateInput) (*domain.Address, error)
	Get(ctx context.Context, id int64) (*domain.AddressDetail, error)
	List(ctx context.Context, q domain.AddressQuery) (*domain.AddressPage, error)
	Update(ctx context.Context, id int64, in addresssvc.UpdateInput) (*domain.Address, error)
	Delete(ctx context.Context, id int64) error
	ListForCustomer(ctx context.Context, customerID int64) ([]domain.Address, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router needs.
type Deps struct {
	CustomerSvc CustomerService
	AddressSvc  AddressService
	Store       Pinger
	Metrics     *observability.Metrics
	// Gatherer backs /metrics; the route is skipped when nil.
	Gatherer     prometheus.Gatherer
	CORSOrigins  []string
	Development  bool
	MaxPageLimit int
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if deps.CustomerSvc == nil || deps.AddressSvc == nil {
		return nil, errors.New("httpserver: customer and address services are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.MaxPageLimit <= 0 {
		deps.MaxPageLimit = 100
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(requestID(), gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), deps.Metrics.Middleware())
	if len(deps.CORSOrigins) > 0 {
		router.Use(corsMiddleware(deps.CORSOrigins))
	}

	h := &handlers{
		customers:    deps.CustomerSvc,
		addresses:    deps.AddressSvc,
		logger:       logger,
		development:  deps.Development,
		maxPageLimit: deps.MaxPageLimit,
	}

	router.GET("/health", healthHandler)
	router.GET("/readyz", readyHandler(deps.Store))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/dashboard/stats", h.dashboardStats)

	customers := router.Group("/customers")
	customers.GET("", h.listCustomers)
	customers.POST("", h.createCustomer)
	customers.GET("/multiple-addresses", h.customersWithMultipleAddresses)
	customers.GET("/single-address", h.customersWithSingleAddress)
	customers.GET("/:id", h.getCustomer)
	customers.PUT("/:id", h.updateCustomer)
	customers.DELETE("/:id", h.deleteCustomer)

	addresses := router.Group("/addresses")
	addresses.GET("", h.listAddresses)
	addresses.POST("", h.createAddress)
	addresses.GET("/customer/:customerId", h.addressesForCustomer)
	addresses.GET("/:id", h.getAddress)
	addresses.PUT("/:id", h.updateAddress)
	addresses.DELETE("/:id", h.deleteAddress)

	router.NoRoute(routeNotFound)
	router.NoMethod(methodNotAllowed)

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
