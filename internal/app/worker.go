package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"employee-forwarder/internal/config"
	"employee-forwarder/internal/messaging/kafka"
	"employee-forwarder/internal/messaging/kafka/producer"
	"employee-forwarder/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker relays employee lifecycle events from the outbox to Kafka until
// SIGINT or SIGTERM.
func RunWorker(cfg *config.Config) error {
	logger := zap.L().Named("app.worker")

	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("outbox worker requires the %s driver, got %q", config.DriverPostgres, cfg.Database.Driver)
	}
	if cfg.Kafka.Broker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, cfg.Database.MaxRetries)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer.ProcessOutboxEvents(ctx, outboxRepo, kafkaWriter, logger, cfg.Kafka.PollInterval)

	logger.Info("worker shutting down")
	return nil
}
