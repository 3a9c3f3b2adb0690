package notification_test

import (
	"context"
	"testing"

	"go-orgstructure/internal/events"
	"go-orgstructure/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromAssignmentEvent(t *testing.T) {
	t.Run("started", func(t *testing.T) {
		msg, ok := notification.FromAssignmentEvent(events.AssignmentLifecycleEvent{
			EventType:      events.AssignmentStarted,
			AssignmentID:   "a-1",
			PositionID:     "p-1",
			PositionTitle:  "Ketua Umum",
			UserID:         "u-1",
			AssignmentType: "permanent",
			StartedAt:      "2026-01-01",
		})

		require.True(t, ok)
		assert.Equal(t, "u-1", msg.UserID)
		assert.Equal(t, notification.KindAssignmentStarted, msg.Kind)
		assert.Equal(t, "Penugasan baru: Ketua Umum", msg.Subject)
		assert.Contains(t, msg.Body, "2026-01-01")
		assert.NotContains(t, msg.Metadata, "unit_id")
	})

	t.Run("ended with reason", func(t *testing.T) {
		endedAt, reason := "2024-01-01", "term ended"
		msg, ok := notification.FromAssignmentEvent(events.AssignmentLifecycleEvent{
			EventType:   events.AssignmentEnded,
			UserID:      "u-1",
			UnitID:      "unit-1",
			EndedAt:     &endedAt,
			EndedReason: &reason,
		})

		require.True(t, ok)
		assert.Equal(t, "Penugasan berakhir: jabatan", msg.Subject)
		assert.Equal(t, "Penugasan Anda sebagai jabatan telah berakhir per 2024-01-01. Alasan: term ended.", msg.Body)
		assert.Equal(t, "unit-1", msg.Metadata["unit_id"])
	})

	t.Run("unknown type", func(t *testing.T) {
		_, ok := notification.FromAssignmentEvent(events.AssignmentLifecycleEvent{EventType: "assignment.renamed"})
		assert.False(t, ok)
	})
}

func TestLogSender_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := notification.NewLogSender(zap.New(core))

	err := sender.Send(context.Background(), notification.Message{UserID: "u-1", Kind: notification.KindAssignmentEnded, Subject: "s"})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "notification", entry.Message)
	assert.Equal(t, "u-1", entry.ContextMap()["user_id"])
}
