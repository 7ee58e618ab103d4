package app

import (
	"database/sql"
	"net/http"

	"employee-forwarder/internal/config"
	"employee-forwarder/internal/employee"
	"employee-forwarder/internal/forwarder"
	"employee-forwarder/internal/messaging/kafka"
	"employee-forwarder/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type modules struct {
	forwarderClient *forwarder.Client
}

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) (*modules, error) {
	router.Use(middleware.ContextLogger(zap.L()))

	// Forwarded calls reach the store from the forwarder's own address, so the
	// store routes exempt those peers and every client is charged once.
	storeExempt, err := cfg.RateLimit.StoreExemptPrefixes()
	if err != nil {
		return nil, err
	}
	limit := rate.Limit(cfg.RateLimit.RPS)
	storeRoutes := router.Group("", middleware.RateLimitByIP(limit, cfg.RateLimit.Burst, storeExempt...))
	forwarderRoutes := router.Group("", middleware.RateLimitByIP(limit, cfg.RateLimit.Burst))

	// --- Repositories ---
	employeeRepo := employee.NewRepository(gormDB)

	// --- Services ---
	// the outbox table only exists in the postgres schema
	var employeeService employee.Service
	if cfg.Database.Driver == config.DriverPostgres {
		outboxRepo := kafka.NewOutboxRepository(db)
		employeeService = employee.NewServiceWithOutbox(db, employeeRepo, outboxRepo, cfg.Kafka.Topic)
	} else {
		employeeService = employee.NewService(db, employeeRepo)
	}

	forwarderClient, err := forwarder.NewClient(cfg.Forwarder.BaseURL, &http.Client{})
	if err != nil {
		return nil, err
	}
	forwarderService := forwarder.NewService(forwarderClient)

	// --- Handlers ---
	employeeHandler := employee.NewHandler(employeeService)
	forwarderHandler := forwarder.NewHandler(forwarderService)

	// --- Routes Registration ---
	employee.RegisterRoutes(storeRoutes, employeeHandler, rdb)
	forwarder.RegisterRoutes(forwarderRoutes, forwarderHandler)

	return &modules{forwarderClient: forwarderClient}, nil
}
