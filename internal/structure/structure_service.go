package structure

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/events"
	"go-orgstructure/internal/hierarchy"
	"go-orgstructure/internal/member"
	"go-orgstructure/internal/messaging/kafka"
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/orgunit"
	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/contextutil"
	"go-orgstructure/internal/shared/dbtx"
	structureerrors "go-orgstructure/internal/structure/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const candidateLimit = 20

//go:generate mockgen -source=structure_service.go -destination=mock/structure_service_mock.go -package=mock
type Service interface {
	GetHierarchy(ctx context.Context, actor access.Actor, filter hierarchy.Filter) ([]*hierarchy.TreeNode, error)
	GetStatistics(ctx context.Context, actor access.Actor) (hierarchy.Statistics, error)

	ListUnits(ctx context.Context, actor access.Actor, filter hierarchy.Filter) ([]hierarchy.UnitView, error)
	GetUnit(ctx context.Context, actor access.Actor, unitID string) (hierarchy.UnitDetail, error)
	ListParentOptions(ctx context.Context, actor access.Actor, unitID string) ([]hierarchy.UnitView, error)
	CreateUnit(ctx context.Context, actor access.Actor, req CreateUnitRequest) (hierarchy.UnitView, error)
	UpdateUnit(ctx context.Context, actor access.Actor, unitID string, req UpdateUnitRequest) (hierarchy.UnitView, error)
	DeleteUnit(ctx context.Context, actor access.Actor, unitID string) error

	ListPositions(ctx context.Context, actor access.Actor, unitID string) ([]hierarchy.PositionSlot, error)
	GetPosition(ctx context.Context, actor access.Actor, positionID string) (hierarchy.PositionDetail, error)
	CreatePosition(ctx context.Context, actor access.Actor, req CreatePositionRequest) (hierarchy.PositionSlot, error)
	UpdatePosition(ctx context.Context, actor access.Actor, positionID string, req UpdatePositionRequest) (hierarchy.PositionSlot, error)
	DeletePosition(ctx context.Context, actor access.Actor, positionID string) error

	AssignMember(ctx context.Context, actor access.Actor, positionID, userID string, req AssignMemberRequest) (AssignmentResponse, error)
	EndAssignment(ctx context.Context, actor access.Actor, assignmentID string, req EndAssignmentRequest) (AssignmentResponse, error)
	ListAssignments(ctx context.Context, actor access.Actor, positionID string, includeEnded bool) ([]AssignmentResponse, error)
	ListMemberAssignments(ctx context.Context, actor access.Actor, userID string) ([]AssignmentResponse, error)
	ListEligibleMembers(ctx context.Context, actor access.Actor, positionID, query string) ([]member.MemberResponse, error)
}

type service struct {
	tx          dbtx.Runner
	units       orgunit.Repository
	positions   orgposition.Repository
	assignments assignment.Repository
	members     member.Directory
	hierarchy   hierarchy.Builder
	outbox      kafka.OutboxRepository
	now         func() time.Time
	logger      *zap.Logger
}

func NewService(
	tx dbtx.Runner,
	units orgunit.Repository,
	positions orgposition.Repository,
	assignments assignment.Repository,
	members member.Directory,
	builder hierarchy.Builder,
	outbox kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("structure.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("structure.service")
	}
	return &service{
		tx:          tx,
		units:       units,
		positions:   positions,
		assignments: assignments,
		members:     members,
		hierarchy:   builder,
		outbox:      outbox,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      l,
	}
}

func (s *service) GetHierarchy(ctx context.Context, actor access.Actor, filter hierarchy.Filter) ([]*hierarchy.TreeNode, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return nil, err
	}
	if err := apperror.ValidateStruct(filter); err != nil {
		return nil, err
	}
	return s.hierarchy.GetHierarchy(ctx, filter)
}

func (s *service) GetStatistics(ctx context.Context, actor access.Actor) (hierarchy.Statistics, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return hierarchy.Statistics{}, err
	}
	return s.hierarchy.GetStatistics(ctx)
}

// log mengambil logger request (request_id, actor) bila ada.
func (s *service) log(ctx context.Context) *zap.Logger {
	return contextutil.GetLogger(ctx, s.logger)
}

// invalidate dipanggil setelah commit; kegagalan cache tidak menggagalkan operasi.
func (s *service) invalidate(ctx context.Context, reason string) {
	if s.hierarchy != nil {
		s.hierarchy.Invalidate(ctx, reason)
	}
}

func (s *service) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// queueAssignmentEvent menulis event ke outbox di transaksi yang sama dengan perubahan datanya.
func (s *service) queueAssignmentEvent(ctx context.Context, outbox kafka.OutboxRepository, event events.AssignmentLifecycleEvent) error {
	if outbox == nil {
		return nil
	}

	event.RequestID = contextutil.GetRequestID(ctx)
	event.OccurredAt = s.now()

	payload, err := json.Marshal(event)
	if err != nil {
		s.log(ctx).Error("marshal assignment event failed", zap.String("event_type", event.EventType), zap.Error(err))
		return err
	}

	if err := outbox.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: events.AssignmentAggregate,
		AggregateID:   event.AssignmentID,
		EventType:     event.EventType,
		Topic:         events.AssignmentLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.log(ctx).Error("assignment outbox persist failed",
			zap.String("assignment_id", event.AssignmentID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *service) outboxTx(tx *sql.Tx) kafka.OutboxRepository {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.WithTx(tx)
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, structureerrors.ErrInvalidID
	}
	return id, nil
}

func parseFieldID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation(field, "must be a valid uuid")
	}
	return id, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(assignment.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperror.Validation(field, "must be a date in format "+assignment.DateLayout)
	}
	return t, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const minNameLen = 2

// checkTrimmedLen: tag min=2 dihitung sebelum trim, nilai yang disimpan sudah di-trim.
func checkTrimmedLen(field, v string) error {
	if utf8.RuneCountInString(strings.TrimSpace(v)) < minNameLen {
		return apperror.Validation(field, "must be at least 2")
	}
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func actorUUID(actor access.Actor) *uuid.UUID {
	id, err := uuid.Parse(actor.UserID)
	if err != nil {
		return nil
	}
	return &id
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(assignment.DateLayout)
	return &s
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
