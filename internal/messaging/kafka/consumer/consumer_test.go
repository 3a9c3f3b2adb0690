package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-orgstructure/internal/events"
	"go-orgstructure/internal/messaging/kafka"
	"go-orgstructure/internal/messaging/kafka/consumer"
	"go-orgstructure/internal/notification"

	"github.com/go-redis/redismock/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []notification.Message
}

func (s *fakeSender) Send(_ context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// fakeReader mengembalikan pesan berurutan lalu menunggu ctx selesai.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	r.cancel()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func lifecycleMessage(t *testing.T, offset int64, outboxID string, event events.AssignmentLifecycleEvent) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{
		Offset: offset,
		Value:  payload,
		Headers: []kafkago.Header{
			{Key: kafka.HeaderOutboxID, Value: []byte(outboxID)},
			{Key: kafka.HeaderRequestID, Value: []byte("req-1")},
		},
	}
}

func startedEvent() events.AssignmentLifecycleEvent {
	return events.AssignmentLifecycleEvent{
		EventType:     events.AssignmentStarted,
		AssignmentID:  "a-1",
		PositionID:    "p-1",
		PositionTitle: "Sekretaris",
		UserID:        "u-1",
		StartedAt:     "2026-01-01",
		OccurredAt:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAssignmentLifecycleConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		messages: []kafkago.Message{
			lifecycleMessage(t, 1, "o-1", startedEvent()),
			{Offset: 2, Value: []byte("not-json")},
			lifecycleMessage(t, 3, "o-3", events.AssignmentLifecycleEvent{EventType: "assignment.renamed"}),
		},
	}
	sender := &fakeSender{}

	consumer.NewAssignmentLifecycleConsumer(reader, sender, nil, zap.NewNop()).Run(ctx)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "u-1", sender.sent[0].UserID)
	assert.Equal(t, notification.KindAssignmentStarted, sender.sent[0].Kind)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed, "poison and unknown messages are committed")
}

func TestAssignmentLifecycleConsumer_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("send failure is not committed and releases dedup key", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectSetNX("notif:seen:o-1", "1", 7*24*time.Hour).SetVal(true)
		mock.ExpectDel("notif:seen:o-1").SetVal(1)

		sender := &fakeSender{err: errors.New("smtp down")}
		c := consumer.NewAssignmentLifecycleConsumer(&fakeReader{}, sender, rdb, zap.NewNop())

		commit := c.Handle(ctx, lifecycleMessage(t, 1, "o-1", startedEvent()))

		assert.False(t, commit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate outbox id is skipped", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectSetNX("notif:seen:o-1", "1", 7*24*time.Hour).SetVal(false)

		sender := &fakeSender{}
		c := consumer.NewAssignmentLifecycleConsumer(&fakeReader{}, sender, rdb, zap.NewNop())

		commit := c.Handle(ctx, lifecycleMessage(t, 1, "o-1", startedEvent()))

		assert.True(t, commit)
		assert.Empty(t, sender.sent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error does not block delivery", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectSetNX("notif:seen:o-1", "1", 7*24*time.Hour).SetErr(errors.New("redis down"))

		sender := &fakeSender{}
		c := consumer.NewAssignmentLifecycleConsumer(&fakeReader{}, sender, rdb, zap.NewNop())

		commit := c.Handle(ctx, lifecycleMessage(t, 1, "o-1", startedEvent()))

		assert.True(t, commit)
		assert.Len(t, sender.sent, 1)
	})
}
