package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go-orgstructure/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const retryInterval = 5 * time.Second

func retryPolicy(ctx context.Context, maxRetries int) backoff.BackOffContext {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), uint64(maxRetries-1)),
		ctx,
	)
}

func notifyRetry(logger *zap.Logger, target string, maxRetries int) backoff.Notify {
	attempt := 0
	return func(err error, wait time.Duration) {
		attempt++
		logger.Warn("connection attempt failed",
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}
}

// ConnectGORMWithRetry membuka koneksi postgres lewat gorm dan mengatur pool sql.DB di bawahnya.
func ConnectGORMWithRetry(ctx context.Context, cfg config.Database, logger *zap.Logger) (*gorm.DB, *sql.DB, error) {
	var (
		db    *gorm.DB
		sqlDB *sql.DB
	)

	op := func() error {
		gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err != nil {
			return err
		}
		raw, err := gdb.DB()
		if err != nil {
			return err
		}
		if err := raw.PingContext(ctx); err != nil {
			raw.Close()
			return err
		}
		db, sqlDB = gdb, raw
		return nil
	}

	if err := backoff.RetryNotify(op, retryPolicy(ctx, cfg.ConnectRetries), notifyRetry(logger, "postgres", cfg.ConnectRetries)); err != nil {
		return nil, nil, fmt.Errorf("database connection failed after %d retries: %w", cfg.ConnectRetries, err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("connected to database", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return db, sqlDB, nil
}

func ConnectRedisWithRetry(ctx context.Context, cfg config.Redis, maxRetries int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	op := func() error {
		return rdb.Ping(ctx).Err()
	}
	if err := backoff.RetryNotify(op, retryPolicy(ctx, maxRetries), notifyRetry(logger, "redis", maxRetries)); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed after %d retries: %w", maxRetries, err)
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return rdb, nil
}

// ConnectKafkaWithRetry memastikan minimal satu broker bisa dijangkau dan topic tersedia.
func ConnectKafkaWithRetry(ctx context.Context, cfg config.Kafka, topic string, maxRetries int, logger *zap.Logger) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	op := func() error {
		conn, err := kafkago.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		controller, err := conn.Controller()
		if err != nil {
			return err
		}
		ctrl, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
		if err != nil {
			return err
		}
		defer ctrl.Close()

		err = ctrl.CreateTopics(kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
		if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
			return err
		}
		return nil
	}

	if err := backoff.RetryNotify(op, retryPolicy(ctx, maxRetries), notifyRetry(logger, "kafka", maxRetries)); err != nil {
		return fmt.Errorf("kafka connection failed after %d retries: %w", maxRetries, err)
	}

	logger.Info("connected to kafka", zap.Strings("brokers", cfg.Brokers), zap.String("topic", topic))
	return nil
}
