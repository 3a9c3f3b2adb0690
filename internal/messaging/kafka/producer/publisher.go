package producer

import (
	"context"

	"go-orgstructure/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter dipenuhi *kafkago.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// toMessage: key = aggregate id supaya event satu assignment tetap berurutan di partisi yang sama.
func toMessage(event kafka.OutboxEvent) kafkago.Message {
	headers := []kafkago.Header{
		{Key: kafka.HeaderEventType, Value: []byte(event.EventType)},
		{Key: kafka.HeaderAggregateType, Value: []byte(event.AggregateType)},
		{Key: kafka.HeaderOutboxID, Value: []byte(event.ID)},
	}
	if event.RequestID != "" {
		headers = append(headers, kafkago.Header{Key: kafka.HeaderRequestID, Value: []byte(event.RequestID)})
	}

	return kafkago.Message{
		Topic:   event.Topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
}

func publishEvent(ctx context.Context, writer MessageWriter, event kafka.OutboxEvent) error {
	return writer.WriteMessages(ctx, toMessage(event))
}

// NewWriter membuat writer tanpa topic default; topic diambil dari tiap pesan outbox.
func NewWriter(brokers []string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
}
