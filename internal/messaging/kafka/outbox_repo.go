package kafka

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
	// dead: berhenti dicoba ulang, perlu ditangani manual
	OutboxStatusDead = "dead"

	MaxOutboxRetries = 10

	maxRequestIDLen = 64
)

// OutboxEvent adalah satu baris outbox_events. Payload sudah berupa JSON siap kirim.
type OutboxEvent struct {
	ID            string
	RequestID     string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Payload       []byte
	Status        string
	RetryCount    int
	NextRetryAt   time.Time
}

//go:generate mockgen -source=outbox_repo.go -destination=mock/outbox_repo_mock.go -package=mock

type OutboxRepository interface {
	WithTx(tx *sql.Tx) OutboxRepository
	Create(ctx context.Context, event OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

const (
	insertOutboxSQL = `
INSERT INTO outbox_events (id, request_id, aggregate_type, aggregate_id, event_type, topic, payload, status)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)`

	// retry_count < max: event dead tidak pernah diambil lagi
	listPendingOutboxSQL = `
SELECT id::text, COALESCE(request_id, ''), aggregate_type, aggregate_id::text, event_type, topic,
       payload, status, retry_count, COALESCE(next_retry_at, created_at)
FROM outbox_events
WHERE status IN ($1, $2)
  AND retry_count < $3
  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
ORDER BY created_at ASC
LIMIT $4`

	markSentOutboxSQL = `
UPDATE outbox_events
SET status = $2, processed_at = NOW(), error_message = NULL, updated_at = NOW()
WHERE id = $1`

	// backoff linear 15 detik per percobaan, maksimal 150 detik
	markFailedOutboxSQL = `
UPDATE outbox_events
SET status = CASE WHEN retry_count + 1 >= $4 THEN $5 ELSE $2 END,
    retry_count = retry_count + 1,
    error_message = LEFT($3, 500),
    next_retry_at = NOW() + (LEAST(retry_count + 1, 10) * INTERVAL '15 seconds'),
    updated_at = NOW()
WHERE id = $1`
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type outboxRepository struct {
	db *sql.DB
	tx *sql.Tx
}

func NewOutboxRepository(db *sql.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) WithTx(tx *sql.Tx) OutboxRepository {
	return &outboxRepository{db: r.db, tx: tx}
}

func (r *outboxRepository) exec() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Create dipanggil di dalam transaksi perubahan data supaya event dan datanya commit bersama.
func (r *outboxRepository) Create(ctx context.Context, event OutboxEvent) error {
	if err := ValidateOutboxEvent(event); err != nil {
		return err
	}
	if len(event.RequestID) > maxRequestIDLen {
		event.RequestID = event.RequestID[:maxRequestIDLen]
	}

	_, err := r.exec().ExecContext(ctx, insertOutboxSQL,
		event.ID, event.RequestID, event.AggregateType, event.AggregateID,
		event.EventType, event.Topic, event.Payload, event.Status,
	)
	return err
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, listPendingOutboxSQL,
		OutboxStatusPending, OutboxStatusFailed, MaxOutboxRetries, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make([]OutboxEvent, 0, limit)
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Topic,
			&e.Payload, &e.Status, &e.RetryCount, &e.NextRetryAt,
		); err != nil {
			return nil, err
		}
		pending = append(pending, e)
	}
	return pending, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, markSentOutboxSQL, id, OutboxStatusSent)
	return err
}

// MarkFailed menjadwalkan ulang event; setelah MaxOutboxRetries statusnya menjadi dead.
func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	_, err := r.db.ExecContext(ctx, markFailedOutboxSQL,
		id, OutboxStatusFailed, reason, MaxOutboxRetries, OutboxStatusDead,
	)
	return err
}

var ErrInvalidOutboxEvent = errors.New("invalid outbox event")

func ValidateOutboxEvent(event OutboxEvent) error {
	switch {
	case event.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidOutboxEvent)
	case event.AggregateID == "":
		return fmt.Errorf("%w: aggregate_id is required", ErrInvalidOutboxEvent)
	case event.Topic == "":
		return fmt.Errorf("%w: topic is required", ErrInvalidOutboxEvent)
	case event.EventType == "":
		return fmt.Errorf("%w: event_type is required", ErrInvalidOutboxEvent)
	case len(event.Payload) == 0:
		return fmt.Errorf("%w: payload is required", ErrInvalidOutboxEvent)
	}

	// event baru selalu pending; status lain hanya diisi oleh worker
	if event.Status != OutboxStatusPending {
		return fmt.Errorf("%w: status %q", ErrInvalidOutboxEvent, event.Status)
	}
	return nil
}
