package producer

import (
	"context"
	"time"

	"go-orgstructure/internal/messaging/kafka"
	"go-orgstructure/internal/shared/metrics"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultBatchSize    = 50
)

// Worker memindahkan event outbox ke Kafka. Event yang gagal ditandai failed dan
// dicoba lagi setelah next_retry_at.
type Worker struct {
	repo         kafka.OutboxRepository
	writer       MessageWriter
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
}

func NewWorker(repo kafka.OutboxRepository, writer MessageWriter, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Worker{
		repo:         repo,
		writer:       writer,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger.Named("kafka.producer.worker"),
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				w.logger.Error("process outbox events failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce mengirim satu batch dan mengembalikan jumlah event yang terkirim.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	pending, err := w.repo.ListPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.Debug("processing pending outbox events", zap.Int("count", len(pending)))

	sent := 0
	for _, event := range pending {
		log := w.logger.With(
			zap.String("outbox_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("topic", event.Topic),
			zap.String("request_id", event.RequestID),
		)

		if err := publishEvent(ctx, w.writer, event); err != nil {
			result := kafka.OutboxStatusFailed
			if event.RetryCount+1 >= kafka.MaxOutboxRetries {
				result = kafka.OutboxStatusDead
			}
			metrics.RecordOutboxPublish(result)
			log.Error("publish outbox event failed",
				zap.Int("retry_count", event.RetryCount),
				zap.String("next_status", result),
				zap.Error(err),
			)
			if markErr := w.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				log.Error("mark outbox failed failed", zap.Error(markErr))
			}
			continue
		}

		if err := w.repo.MarkSent(ctx, event.ID); err != nil {
			// pesan sudah terkirim; consumer harus tahan duplikat
			log.Error("mark outbox sent failed", zap.Error(err))
			continue
		}

		sent++
		metrics.RecordOutboxPublish(kafka.OutboxStatusSent)
		log.Info("outbox event sent")
	}

	return sent, nil
}
