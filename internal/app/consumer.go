package app

import (
	"context"

	"go-orgstructure/internal/config"
	"go-orgstructure/internal/events"
	"go-orgstructure/internal/messaging/kafka/consumer"
	"go-orgstructure/internal/notification"
	"go-orgstructure/internal/shared/connection"

	"go.uber.org/zap"
)

// RunConsumer membaca event lifecycle assignment dan meneruskannya ke notifikasi.
func RunConsumer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger = logger.Named("app.consumer")

	if err := connection.ConnectKafkaWithRetry(ctx, cfg.Kafka, events.AssignmentLifecycleTopic, cfg.Database.ConnectRetries, logger); err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(ctx, cfg.Redis, cfg.Database.ConnectRetries, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	reader := consumer.NewReader(cfg.Kafka.Brokers)
	defer reader.Close()

	c := consumer.NewAssignmentLifecycleConsumer(reader, notification.NewLogSender(logger), redisClient, logger)
	c.Run(ctx)

	logger.Info("consumer shutting down")
	return nil
}
