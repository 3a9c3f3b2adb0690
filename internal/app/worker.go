package app

import (
	"context"

	"go-orgstructure/internal/config"
	"go-orgstructure/internal/events"
	"go-orgstructure/internal/messaging/kafka"
	"go-orgstructure/internal/messaging/kafka/producer"
	"go-orgstructure/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker memindahkan event outbox ke Kafka sampai ctx selesai.
func RunWorker(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger = logger.Named("app.worker")

	_, sqlDB, err := connection.ConnectGORMWithRetry(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := connection.ConnectKafkaWithRetry(ctx, cfg.Kafka, events.AssignmentLifecycleTopic, cfg.Database.ConnectRetries, logger); err != nil {
		return err
	}

	kafkaWriter := producer.NewWriter(cfg.Kafka.Brokers)
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)
	worker := producer.NewWorker(outboxRepo, kafkaWriter, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize, logger)

	worker.Run(ctx)
	logger.Info("worker shutting down")
	return nil
}
