package notification

import (
	"context"
	"fmt"

	"go-orgstructure/internal/events"

	"go.uber.org/zap"
)

const (
	KindAssignmentStarted = "assignment_started"
	KindAssignmentEnded   = "assignment_ended"
)

type Message struct {
	UserID   string
	Kind     string
	Subject  string
	Body     string
	Metadata map[string]string
}

// Sender mengirim notifikasi ke anggota. Template dan kanal (email, push) di luar modul ini.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender hanya menulis notifikasi ke log.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.L()
	}
	return &LogSender{logger: logger.Named("notification.log_sender")}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification",
		zap.String("user_id", msg.UserID),
		zap.String("kind", msg.Kind),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
		zap.Any("metadata", msg.Metadata),
	)
	return nil
}

// FromAssignmentEvent; ok=false untuk event type yang tidak dikenal.
func FromAssignmentEvent(e events.AssignmentLifecycleEvent) (Message, bool) {
	title := e.PositionTitle
	if title == "" {
		title = "jabatan"
	}

	meta := map[string]string{
		"assignment_id": e.AssignmentID,
		"position_id":   e.PositionID,
	}
	if e.UnitID != "" {
		meta["unit_id"] = e.UnitID
	}

	switch e.EventType {
	case events.AssignmentStarted:
		return Message{
			UserID:   e.UserID,
			Kind:     KindAssignmentStarted,
			Subject:  "Penugasan baru: " + title,
			Body:     fmt.Sprintf("Anda ditetapkan sebagai %s (%s) mulai %s.", title, e.AssignmentType, e.StartedAt),
			Metadata: meta,
		}, true
	case events.AssignmentEnded:
		body := fmt.Sprintf("Penugasan Anda sebagai %s telah berakhir", title)
		if e.EndedAt != nil {
			body += " per " + *e.EndedAt
		}
		if e.EndedReason != nil && *e.EndedReason != "" {
			body += ". Alasan: " + *e.EndedReason
		}
		return Message{
			UserID:   e.UserID,
			Kind:     KindAssignmentEnded,
			Subject:  "Penugasan berakhir: " + title,
			Body:     body + ".",
			Metadata: meta,
		}, true
	default:
		return Message{}, false
	}
}
