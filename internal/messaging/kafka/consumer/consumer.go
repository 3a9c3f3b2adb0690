package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go-orgstructure/internal/events"
	"go-orgstructure/internal/messaging/kafka"
	"go-orgstructure/internal/notification"
	"go-orgstructure/internal/shared/contextutil"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	GroupID = "go-orgstructure-notification"

	dedupKeyPrefix = "notif:seen:"
	dedupTTL       = 7 * 24 * time.Hour
)

// MessageReader dipenuhi *kafkago.Reader dengan GroupID.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

func NewReader(brokers []string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          events.AssignmentLifecycleTopic,
		GroupID:        GroupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
}

// AssignmentLifecycleConsumer meneruskan event assignment ke notification.Sender.
// Relay outbox bersifat at-least-once, jadi pesan dengan outbox_id yang sama dilewati (butuh rdb).
type AssignmentLifecycleConsumer struct {
	reader MessageReader
	sender notification.Sender
	rdb    *redis.Client
	logger *zap.Logger
}

func NewAssignmentLifecycleConsumer(reader MessageReader, sender notification.Sender, rdb *redis.Client, logger *zap.Logger) *AssignmentLifecycleConsumer {
	if logger == nil {
		logger = zap.L()
	}
	return &AssignmentLifecycleConsumer{
		reader: reader,
		sender: sender,
		rdb:    rdb,
		logger: logger.Named("kafka.consumer.assignment_lifecycle"),
	}
}

func (c *AssignmentLifecycleConsumer) Run(ctx context.Context) {
	c.logger.Info("assignment lifecycle consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("assignment lifecycle consumer stopped")
				return
			}
			c.logger.Error("fetch assignment lifecycle message failed", zap.Error(err))
			continue
		}

		if !c.Handle(ctx, msg) {
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit assignment lifecycle message failed", zap.Error(err))
		}
	}
}

// Handle memproses satu pesan. false berarti pesan jangan di-commit (akan dikirim ulang).
func (c *AssignmentLifecycleConsumer) Handle(ctx context.Context, msg kafkago.Message) bool {
	outboxID := header(msg, kafka.HeaderOutboxID)
	log := c.logger.With(
		zap.Int64("offset", msg.Offset),
		zap.String("outbox_id", outboxID),
		zap.String("request_id", header(msg, kafka.HeaderRequestID)),
	)
	ctx = contextutil.WithLogger(contextutil.WithRequestID(ctx, header(msg, kafka.HeaderRequestID)), log)

	var event events.AssignmentLifecycleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// pesan rusak tidak akan pernah berhasil; commit supaya tidak menyumbat partisi
		log.Error("decode assignment lifecycle event failed", zap.Error(err))
		return true
	}

	note, ok := notification.FromAssignmentEvent(event)
	if !ok {
		log.Warn("unknown assignment event type, skipping", zap.String("event_type", event.EventType))
		return true
	}

	if c.seen(ctx, log, outboxID) {
		log.Info("duplicate assignment event, skipping", zap.String("assignment_id", event.AssignmentID))
		return true
	}

	if err := c.sender.Send(ctx, note); err != nil {
		log.Error("send assignment notification failed",
			zap.String("assignment_id", event.AssignmentID),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		c.forget(ctx, outboxID)
		return false
	}

	log.Info("assignment notification sent",
		zap.String("event_type", event.EventType),
		zap.String("assignment_id", event.AssignmentID),
		zap.String("user_id", event.UserID),
	)
	return true
}

// seen menandai outbox_id; error Redis tidak menghentikan pengiriman.
func (c *AssignmentLifecycleConsumer) seen(ctx context.Context, log *zap.Logger, outboxID string) bool {
	if c.rdb == nil || outboxID == "" {
		return false
	}
	isNew, err := c.rdb.SetNX(ctx, dedupKeyPrefix+outboxID, "1", dedupTTL).Result()
	if err != nil {
		log.Warn("notification dedup check failed", zap.Error(err))
		return false
	}
	return !isNew
}

func (c *AssignmentLifecycleConsumer) forget(ctx context.Context, outboxID string) {
	if c.rdb == nil || outboxID == "" {
		return
	}
	if err := c.rdb.Del(ctx, dedupKeyPrefix+outboxID).Err(); err != nil {
		c.logger.Warn("notification dedup cleanup failed", zap.String("outbox_id", outboxID), zap.Error(err))
	}
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
