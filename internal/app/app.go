package app

import (
	"fmt"

	"employee-forwarder/internal/config"
	"employee-forwarder/internal/migrate"
	"employee-forwarder/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildApp connects the infrastructure described by cfg and registers every
// module on router. The returned cleanup releases what was opened.
func BuildApp(router *gin.Engine, cfg *config.Config) (func(), error) {
	logger := zap.L().Named("app")

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := migrate.RunMigrations(sqlDB, cfg.Database.Driver); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Database.MaxRetries)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.Info("redis connection established", zap.String("addr", cfg.Redis.Addr))
	}

	modules, err := registerModules(router, cfg, sqlDB, gormDB, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = sqlDB.Close()
		return nil, fmt.Errorf("register modules: %w", err)
	}

	cleanup := func() {
		_ = modules.forwarderClient.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = sqlDB.Close()
	}
	return cleanup, nil
}
