package connection

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"employee-forwarder/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// retryInterval is the wait between startup connection attempts.
var retryInterval = 5 * time.Second

func retryPolicy(maxRetries int) backoff.BackOff {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), uint64(maxRetries-1))
}

// ConnectGORMWithRetry opens the configured database, pings it and applies the
// pool settings. Each failed attempt is logged and retried up to cfg.MaxRetries times.
func ConnectGORMWithRetry(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log := zap.L().Named("connection.database")

	var (
		db      *gorm.DB
		attempt int
	)
	op := func() error {
		attempt++
		opened, err := openGORM(cfg)
		if err != nil {
			log.Warn("database connect failed",
				zap.String("driver", cfg.Driver),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", cfg.MaxRetries),
				zap.Error(err),
			)
			return err
		}
		db = opened
		return nil
	}

	if err := backoff.Retry(op, retryPolicy(cfg.MaxRetries)); err != nil {
		return nil, fmt.Errorf("database connection failed after %d attempts: %w", attempt, err)
	}

	log.Info("database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

func openGORM(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	case config.DriverSQLite:
		db, err = OpenSQLite(cfg.Path, gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if cfg.Driver == config.DriverPostgres {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// OpenSQLite opens path with the pure Go modernc driver and hands the pool to
// gorm's sqlite dialector, so no cgo toolchain is needed.
func OpenSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if gormConfig == nil {
		gormConfig = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", Conn: sqlDB}), gormConfig)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func ConnectRedisWithRetry(addr string, maxRetries int) (*redis.Client, error) {
	log := zap.L().Named("connection.redis")
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	attempt := 0
	op := func() error {
		attempt++
		err := rdb.Ping(context.Background()).Err()
		if err != nil {
			log.Warn("redis ping failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(op, retryPolicy(maxRetries)); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", addr))
	return rdb, nil
}

// ConnectKafkaWithRetry dials the broker until it answers and returns a writer
// bound to it. The writer does not fix a topic; messages carry their own.
func ConnectKafkaWithRetry(broker string, maxRetries int) (*kafkago.Writer, error) {
	log := zap.L().Named("connection.kafka")

	attempt := 0
	op := func() error {
		attempt++
		conn, err := kafkago.Dial("tcp", broker)
		if err != nil {
			log.Warn("kafka dial failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return conn.Close()
	}

	if err := backoff.Retry(op, retryPolicy(maxRetries)); err != nil {
		return nil, fmt.Errorf("failed to connect kafka: %w", err)
	}

	log.Info("kafka connected", zap.String("broker", broker))
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(broker),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		Transport: &kafkago.Transport{
			Dial: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		},
	}, nil
}
