package structure

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/events"
	"go-orgstructure/internal/member"
	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/metrics"
	structureerrors "go-orgstructure/internal/structure/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssignMember mengecek posisi, anggota, duplikasi, lalu kapasitas, dalam satu transaksi
// yang memegang row lock posisi sampai insert selesai.
func (s *service) AssignMember(ctx context.Context, actor access.Actor, positionID, userID string, req AssignMemberRequest) (resp AssignmentResponse, err error) {
	log := s.log(ctx).With(zap.String("position_id", positionID), zap.String("user_id", userID))
	log.Debug("assign member requested", zap.String("assignment_type", req.AssignmentType))

	defer func() {
		metrics.RecordAssignmentOutcome("assign", outcomeOf(err))
	}()

	if err := actor.Require(access.CapabilityAssign); err != nil {
		return AssignmentResponse{}, err
	}
	posID, err := parseID(positionID)
	if err != nil {
		return AssignmentResponse{}, err
	}
	memberID, err := parseFieldID("user_id", userID)
	if err != nil {
		return AssignmentResponse{}, err
	}
	if err := apperror.ValidateStruct(req); err != nil {
		log.Warn("assign member validation failed", zap.Error(err))
		return AssignmentResponse{}, err
	}

	startedAt := s.today()
	if req.StartedAt != nil && strings.TrimSpace(*req.StartedAt) != "" {
		if startedAt, err = parseDate("started_at", *req.StartedAt); err != nil {
			return AssignmentResponse{}, err
		}
	}
	endedAt, err := parseOptionalDate("ended_at", req.EndedAt)
	if err != nil {
		return AssignmentResponse{}, err
	}
	if endedAt != nil && endedAt.Before(startedAt) {
		return AssignmentResponse{}, apperror.Validation("ended_at", "must not be before started_at")
	}
	letterDate, err := parseOptionalDate("appointment_letter_date", req.AppointmentLetterDate)
	if err != nil {
		return AssignmentResponse{}, err
	}

	assignmentType := assignment.TypePermanent
	if req.AssignmentType != "" {
		assignmentType = assignment.Type(req.AssignmentType)
	}

	record := &assignment.Assignment{
		ID:                      uuid.New(),
		PositionID:              posID,
		UserID:                  memberID,
		StartedAt:               startedAt,
		EndedAt:                 endedAt,
		Status:                  assignment.StatusActive,
		AssignmentType:          assignmentType,
		AppointmentLetterNumber: trimmedOrNil(req.AppointmentLetterNumber),
		AppointmentLetterDate:   letterDate,
		Notes:                   trimmedOrNil(req.Notes),
		CreatedBy:               actorUUID(actor),
	}

	err = s.tx.Run(ctx, "assign_member", func(tx *sql.Tx) error {
		assignments := s.assignments.WithTx(tx)

		// 1. posisi ada dan aktif (FOR UPDATE: penugasan paralel ke posisi ini antre di sini)
		position, err := s.positions.WithTx(tx).LockByID(ctx, posID)
		if err != nil {
			return mapRepositoryError(err, structureerrors.ErrPositionNotFound)
		}
		if !position.IsActive {
			return structureerrors.ErrInactivePosition
		}

		// 2. anggota terdaftar
		exists, err := s.members.Exists(ctx, memberID)
		if err != nil {
			return err
		}
		if !exists {
			return structureerrors.ErrMemberNotFound
		}

		// 3. belum memegang posisi yang sama
		duplicate, err := assignments.HasActive(ctx, posID, memberID)
		if err != nil {
			return err
		}
		if duplicate {
			return structureerrors.ErrDuplicateAssignment
		}

		// 4. masih ada kursi
		active, err := assignments.CountActiveByPosition(ctx, posID)
		if err != nil {
			return err
		}
		if active >= int64(position.MaxHolders) {
			return structureerrors.CapacityExceeded(position.MaxHolders, active)
		}

		if err := assignments.Create(ctx, record); err != nil {
			log.Error("assign member persist failed", zap.Error(err))
			return mapRepositoryError(err, nil)
		}

		return s.queueAssignmentEvent(ctx, s.outboxTx(tx), events.AssignmentLifecycleEvent{
			EventType:      events.AssignmentStarted,
			AssignmentID:   record.ID.String(),
			PositionID:     position.ID.String(),
			PositionTitle:  position.Title,
			UnitID:         position.UnitID.String(),
			UserID:         memberID.String(),
			AssignmentType: string(record.AssignmentType),
			StartedAt:      record.StartedAt.Format(assignment.DateLayout),
			EndedAt:        formatDatePtr(record.EndedAt),
			ActorID:        actor.UserID,
		})
	})
	if err != nil {
		log.Warn("assign member rejected", zap.Error(err))
		return AssignmentResponse{}, err
	}

	s.invalidate(ctx, "assignment_started")
	log.Info("assign member success", zap.String("assignment_id", record.ID.String()))
	return mapAssignmentResponse(*record), nil
}

// EndAssignment tidak membandingkan end_date dengan started_at; pencatatan mundur diperbolehkan.
func (s *service) EndAssignment(ctx context.Context, actor access.Actor, assignmentID string, req EndAssignmentRequest) (resp AssignmentResponse, err error) {
	log := s.log(ctx).With(zap.String("assignment_id", assignmentID))
	log.Debug("end assignment requested")

	defer func() {
		metrics.RecordAssignmentOutcome("end", outcomeOf(err))
	}()

	if err := actor.Require(access.CapabilityAssign); err != nil {
		return AssignmentResponse{}, err
	}
	id, err := parseID(assignmentID)
	if err != nil {
		return AssignmentResponse{}, err
	}
	if err := apperror.ValidateStruct(req); err != nil {
		log.Warn("end assignment validation failed", zap.Error(err))
		return AssignmentResponse{}, err
	}

	endedAt := s.today()
	if req.EndDate != nil && strings.TrimSpace(*req.EndDate) != "" {
		if endedAt, err = parseDate("end_date", *req.EndDate); err != nil {
			return AssignmentResponse{}, err
		}
	}
	params := assignment.EndParams{
		EndedAt: endedAt,
		Reason:  trimmedOrNil(req.Reason),
		EndedBy: actorUUID(actor),
	}

	var ended assignment.Assignment
	err = s.tx.Run(ctx, "end_assignment", func(tx *sql.Tx) error {
		assignments := s.assignments.WithTx(tx)

		current, err := assignments.LockByID(ctx, id)
		if err != nil {
			return mapRepositoryError(err, structureerrors.ErrAssignmentNotFound)
		}
		if !current.IsActive() {
			return structureerrors.ErrAlreadyEnded
		}

		affected, err := assignments.End(ctx, id, params)
		if err != nil {
			log.Error("end assignment persist failed", zap.Error(err))
			return mapRepositoryError(err, structureerrors.ErrAssignmentNotFound)
		}
		if affected == 0 {
			return structureerrors.ErrAlreadyEnded
		}

		current.Status = assignment.StatusEnded
		current.EndedAt = &params.EndedAt
		current.EndedReason = params.Reason
		current.EndedBy = params.EndedBy
		ended = *current

		event := events.AssignmentLifecycleEvent{
			EventType:      events.AssignmentEnded,
			AssignmentID:   current.ID.String(),
			PositionID:     current.PositionID.String(),
			UserID:         current.UserID.String(),
			AssignmentType: string(current.AssignmentType),
			StartedAt:      current.StartedAt.Format(assignment.DateLayout),
			EndedAt:        formatDatePtr(current.EndedAt),
			EndedReason:    current.EndedReason,
			ActorID:        actor.UserID,
		}
		position, err := s.positions.WithTx(tx).FindByID(ctx, current.PositionID)
		switch {
		case err == nil:
			event.PositionTitle = position.Title
			event.UnitID = position.UnitID.String()
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		return s.queueAssignmentEvent(ctx, s.outboxTx(tx), event)
	})
	if err != nil {
		log.Warn("end assignment rejected", zap.Error(err))
		return AssignmentResponse{}, err
	}

	s.invalidate(ctx, "assignment_ended")
	log.Info("end assignment success", zap.String("position_id", ended.PositionID.String()))
	return mapAssignmentResponse(ended), nil
}

func (s *service) ListAssignments(ctx context.Context, actor access.Actor, positionID string, includeEnded bool) ([]AssignmentResponse, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return nil, err
	}
	id, err := parseID(positionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.positions.FindByID(ctx, id); err != nil {
		return nil, mapRepositoryError(err, structureerrors.ErrPositionNotFound)
	}

	items, err := s.assignments.ListByPosition(ctx, id, includeEnded)
	if err != nil {
		s.log(ctx).Error("list assignments failed", zap.String("position_id", positionID), zap.Error(err))
		return nil, err
	}

	out := mapAssignmentList(items)
	s.attachMembers(ctx, items, out)
	return out, nil
}

func (s *service) ListMemberAssignments(ctx context.Context, actor access.Actor, userID string) ([]AssignmentResponse, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return nil, err
	}
	id, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	items, err := s.assignments.ListByUser(ctx, id)
	if err != nil {
		s.log(ctx).Error("list member assignments failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return mapAssignmentList(items), nil
}

// ListEligibleMembers: kandidat dari direktori anggota, tanpa pemegang aktif posisi ini.
func (s *service) ListEligibleMembers(ctx context.Context, actor access.Actor, positionID, query string) ([]member.MemberResponse, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return nil, err
	}
	id, err := parseID(positionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.positions.FindByID(ctx, id); err != nil {
		return nil, mapRepositoryError(err, structureerrors.ErrPositionNotFound)
	}

	holders, err := s.assignments.ListByPosition(ctx, id, false)
	if err != nil {
		s.log(ctx).Error("eligible members holders failed", zap.String("position_id", positionID), zap.Error(err))
		return nil, err
	}
	exclude := make(map[uuid.UUID]struct{}, len(holders))
	for _, h := range holders {
		exclude[h.UserID] = struct{}{}
	}

	return s.members.SearchCandidates(ctx, query, exclude, candidateLimit)
}

func (s *service) attachMembers(ctx context.Context, items []assignment.Assignment, out []AssignmentResponse) {
	if s.members == nil || len(items) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(items))
	for i, a := range items {
		ids[i] = a.UserID
	}
	profiles, err := s.members.GetByIDs(ctx, ids)
	if err != nil {
		s.log(ctx).Warn("attach member profiles failed", zap.Error(err))
		return
	}
	for i, a := range items {
		if p, ok := profiles[a.UserID]; ok {
			out[i].Member = &p
		}
	}
}

// outcomeOf memberi label metrik: "success", kode domain (huruf kecil), atau "error".
func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	if appErr, ok := apperror.As(err); ok {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
