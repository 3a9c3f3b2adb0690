package kafka_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go-orgstructure/internal/messaging/kafka"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() kafka.OutboxEvent {
	return kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     "req-1",
		AggregateType: "org_assignment",
		AggregateID:   uuid.NewString(),
		EventType:     "assignment.started",
		Topic:         "org.assignment.lifecycle.v1",
		Payload:       []byte(`{"event_type":"assignment.started"}`),
		Status:        kafka.OutboxStatusPending,
	}
}

func TestValidateOutboxEvent(t *testing.T) {
	assert.NoError(t, kafka.ValidateOutboxEvent(validEvent()))

	missingTopic := validEvent()
	missingTopic.Topic = ""
	assert.ErrorIs(t, kafka.ValidateOutboxEvent(missingTopic), kafka.ErrInvalidOutboxEvent)

	badStatus := validEvent()
	badStatus.Status = "queued"
	err := kafka.ValidateOutboxEvent(badStatus)
	assert.ErrorIs(t, err, kafka.ErrInvalidOutboxEvent)
	assert.Contains(t, err.Error(), "queued")

	alreadySent := validEvent()
	alreadySent.Status = kafka.OutboxStatusSent
	assert.ErrorIs(t, kafka.ValidateOutboxEvent(alreadySent), kafka.ErrInvalidOutboxEvent)
}

func TestOutboxRepository_CreateTruncatesRequestID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	event := validEvent()
	event.RequestID = strings.Repeat("r", 80)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WithArgs(event.ID, strings.Repeat("r", 64), event.AggregateType, event.AggregateID, event.EventType, event.Topic, event.Payload, event.Status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kafka.NewOutboxRepository(db).Create(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_CreateInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	event := validEvent()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WithArgs(event.ID, event.RequestID, event.AggregateType, event.AggregateID, event.EventType, event.Topic, event.Payload, event.Status).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := kafka.NewOutboxRepository(db).WithTx(tx)
	require.NoError(t, repo.Create(context.Background(), event))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_CreateRejectsInvalid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	event := validEvent()
	event.Payload = nil

	err = kafka.NewOutboxRepository(db).Create(context.Background(), event)

	assert.ErrorIs(t, err, kafka.ErrInvalidOutboxEvent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_ListPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	next := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "request_id", "aggregate_type", "aggregate_id", "event_type", "topic", "payload", "status", "retry_count", "next_retry_at"}).
		AddRow("o-1", "req-1", "org_assignment", "a-1", "assignment.started", "org.assignment.lifecycle.v1", []byte(`{}`), "pending", 0, next).
		AddRow("o-2", "", "org_assignment", "a-2", "assignment.ended", "org.assignment.lifecycle.v1", []byte(`{}`), "failed", 2, next)

	mock.ExpectQuery(regexp.QuoteMeta("FROM outbox_events")).
		WithArgs(kafka.OutboxStatusPending, kafka.OutboxStatusFailed, kafka.MaxOutboxRetries, 50).
		WillReturnRows(rows)

	got, err := kafka.NewOutboxRepository(db).ListPending(context.Background(), 50)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "req-1", got[0].RequestID)
	assert.Equal(t, 2, got[1].RetryCount)
	assert.Equal(t, next, got[1].NextRetryAt)
}

func TestOutboxRepository_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
		WithArgs("o-1", kafka.OutboxStatusFailed, "broker down", kafka.MaxOutboxRetries, kafka.OutboxStatusDead).
		WillReturnError(errors.New("db gone"))

	err = kafka.NewOutboxRepository(db).MarkFailed(context.Background(), "o-1", "broker down")

	assert.EqualError(t, err, "db gone")
}
