package main

import (
	"os"

	"employee-forwarder/internal/config"
	"employee-forwarder/internal/migrate"
	"employee-forwarder/internal/shared/connection"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		logger.Fatal("connect database failed", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("get sql db failed", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := migrate.RunMigrations(sqlDB, cfg.Database.Driver); err != nil {
		logger.Fatal("run migrations failed", zap.Error(err))
	}

	version, dirty, err := migrate.Version(sqlDB, cfg.Database.Driver)
	if err != nil {
		logger.Fatal("read migration version failed", zap.Error(err))
	}
	logger.Info("migrations applied",
		zap.String("driver", cfg.Database.Driver),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
}
