package structure

import (
	"context"
	"database/sql"
	"strings"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/hierarchy"
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/shared/apperror"
	structureerrors "go-orgstructure/internal/structure/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *service) ListPositions(ctx context.Context, actor access.Actor, unitID string) ([]hierarchy.PositionSlot, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return nil, err
	}
	id, err := parseID(unitID)
	if err != nil {
		return nil, err
	}

	if _, err := s.units.FindByID(ctx, id); err != nil {
		return nil, mapRepositoryError(err, structureerrors.ErrUnitNotFound)
	}

	positions, err := s.positions.ListByUnit(ctx, id)
	if err != nil {
		s.log(ctx).Error("list positions failed", zap.String("unit_id", unitID), zap.Error(err))
		return nil, err
	}

	ids := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	counts, err := s.assignments.ActiveCountsByPositions(ctx, ids)
	if err != nil {
		s.log(ctx).Error("list positions counts failed", zap.String("unit_id", unitID), zap.Error(err))
		return nil, err
	}

	out := make([]hierarchy.PositionSlot, 0, len(positions))
	for _, p := range positions {
		out = append(out, hierarchy.ToPositionSlot(p, counts[p.ID]))
	}
	return out, nil
}

func (s *service) GetPosition(ctx context.Context, actor access.Actor, positionID string) (hierarchy.PositionDetail, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return hierarchy.PositionDetail{}, err
	}
	id, err := parseID(positionID)
	if err != nil {
		return hierarchy.PositionDetail{}, err
	}
	return s.hierarchy.GetPositionDetail(ctx, id)
}

func (s *service) CreatePosition(ctx context.Context, actor access.Actor, req CreatePositionRequest) (hierarchy.PositionSlot, error) {
	log := s.log(ctx)
	log.Debug("create position requested",
		zap.String("unit_id", req.UnitID),
		zap.String("title", req.Title),
	)

	if err := actor.Require(access.CapabilityManage); err != nil {
		return hierarchy.PositionSlot{}, err
	}
	if err := apperror.ValidateStruct(req); err != nil {
		log.Warn("create position validation failed", zap.Error(err))
		return hierarchy.PositionSlot{}, err
	}
	if err := checkTrimmedLen("title", req.Title); err != nil {
		return hierarchy.PositionSlot{}, err
	}

	maxHolders := orgposition.DefaultMaxHolders
	if req.MaxHolders != nil {
		if *req.MaxHolders < 1 {
			return hierarchy.PositionSlot{}, apperror.Validation("max_holders", "must be at least 1")
		}
		maxHolders = *req.MaxHolders
	}

	unitID, err := parseFieldID("unit_id", req.UnitID)
	if err != nil {
		return hierarchy.PositionSlot{}, err
	}

	var reportsTo *uuid.UUID
	if req.ReportsTo != nil && strings.TrimSpace(*req.ReportsTo) != "" {
		id, err := parseFieldID("reports_to", *req.ReportsTo)
		if err != nil {
			return hierarchy.PositionSlot{}, err
		}
		reportsTo = &id
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	position := &orgposition.Position{
		ID:            uuid.New(),
		UnitID:        unitID,
		Title:         strings.TrimSpace(req.Title),
		PositionType:  orgposition.Type(req.PositionType),
		PositionLevel: orgposition.Level(req.PositionLevel),
		MaxHolders:    maxHolders,
		ReportsTo:     reportsTo,
		IsActive:      isActive,
	}

	err = s.tx.Run(ctx, "create_position", func(tx *sql.Tx) error {
		positions := s.positions.WithTx(tx)

		if _, err := s.units.WithTx(tx).FindByID(ctx, unitID); err != nil {
			return mapRepositoryError(err, structureerrors.ErrUnitNotFound)
		}
		if reportsTo != nil {
			if _, err := positions.FindByID(ctx, *reportsTo); err != nil {
				return mapRepositoryError(err, structureerrors.ErrReportsToNotFound)
			}
		}

		if err := positions.Create(ctx, position); err != nil {
			log.Error("create position persist failed", zap.Error(err))
			return mapRepositoryError(err, nil)
		}
		return nil
	})
	if err != nil {
		return hierarchy.PositionSlot{}, err
	}

	s.invalidate(ctx, "position_created")
	log.Info("create position success",
		zap.String("position_id", position.ID.String()),
		zap.String("unit_id", unitID.String()),
	)
	return hierarchy.ToPositionSlot(*position, 0), nil
}

func (s *service) UpdatePosition(ctx context.Context, actor access.Actor, positionID string, req UpdatePositionRequest) (hierarchy.PositionSlot, error) {
	log := s.log(ctx).With(zap.String("position_id", positionID))
	log.Debug("update position requested")

	if err := actor.Require(access.CapabilityManage); err != nil {
		return hierarchy.PositionSlot{}, err
	}
	id, err := parseID(positionID)
	if err != nil {
		return hierarchy.PositionSlot{}, err
	}
	if err := apperror.ValidateStruct(req); err != nil {
		log.Warn("update position validation failed", zap.Error(err))
		return hierarchy.PositionSlot{}, err
	}
	if req.Title != nil {
		if err := checkTrimmedLen("title", *req.Title); err != nil {
			return hierarchy.PositionSlot{}, err
		}
	}

	var newUnit *uuid.UUID
	if req.UnitID != nil && strings.TrimSpace(*req.UnitID) != "" {
		uid, err := parseFieldID("unit_id", *req.UnitID)
		if err != nil {
			return hierarchy.PositionSlot{}, err
		}
		newUnit = &uid
	}

	var newReportsTo *uuid.UUID
	if req.ReportsTo != nil && strings.TrimSpace(*req.ReportsTo) != "" {
		if req.ClearReportsTo {
			return hierarchy.PositionSlot{}, apperror.Validation("reports_to", "cannot be combined with clear_reports_to")
		}
		rid, err := parseFieldID("reports_to", *req.ReportsTo)
		if err != nil {
			return hierarchy.PositionSlot{}, err
		}
		if rid == id {
			return hierarchy.PositionSlot{}, apperror.Validation("reports_to", "cannot reference the position itself")
		}
		newReportsTo = &rid
	}

	var (
		updated orgposition.Position
		active  int64
	)
	err = s.tx.Run(ctx, "update_position", func(tx *sql.Tx) error {
		positions := s.positions.WithTx(tx)

		position, err := positions.LockByID(ctx, id)
		if err != nil {
			return mapRepositoryError(err, structureerrors.ErrPositionNotFound)
		}

		if newUnit != nil {
			if _, err := s.units.WithTx(tx).FindByID(ctx, *newUnit); err != nil {
				return mapRepositoryError(err, structureerrors.ErrUnitNotFound)
			}
			position.UnitID = *newUnit
		}

		switch {
		case req.ClearReportsTo:
			position.ReportsTo = nil
		case newReportsTo != nil:
			if _, err := positions.FindByID(ctx, *newReportsTo); err != nil {
				return mapRepositoryError(err, structureerrors.ErrReportsToNotFound)
			}
			position.ReportsTo = newReportsTo
		}

		active, err = s.assignments.WithTx(tx).CountActiveByPosition(ctx, position.ID)
		if err != nil {
			return err
		}

		if req.MaxHolders != nil {
			// okupansi dicek sebelum batas minimum
			if int64(*req.MaxHolders) < active {
				return structureerrors.CapacityBelowOccupancy(*req.MaxHolders, active)
			}
			if *req.MaxHolders < 1 {
				return apperror.Validation("max_holders", "must be at least 1")
			}
			position.MaxHolders = *req.MaxHolders
		}

		if req.Title != nil {
			position.Title = strings.TrimSpace(*req.Title)
		}
		if req.PositionType != nil {
			position.PositionType = orgposition.Type(*req.PositionType)
		}
		if req.PositionLevel != nil {
			position.PositionLevel = orgposition.Level(*req.PositionLevel)
		}
		if req.IsActive != nil {
			position.IsActive = *req.IsActive
		}

		if err := positions.Update(ctx, position); err != nil {
			log.Error("update position persist failed", zap.Error(err))
			return mapRepositoryError(err, nil)
		}
		updated = *position
		return nil
	})
	if err != nil {
		log.Warn("update position rejected", zap.Error(err))
		return hierarchy.PositionSlot{}, err
	}

	s.invalidate(ctx, "position_updated")
	log.Info("update position success", zap.Int("max_holders", updated.MaxHolders))
	return hierarchy.ToPositionSlot(updated, active), nil
}

func (s *service) DeletePosition(ctx context.Context, actor access.Actor, positionID string) error {
	log := s.log(ctx).With(zap.String("position_id", positionID))
	log.Debug("delete position requested")

	if err := actor.Require(access.CapabilityManage); err != nil {
		return err
	}
	id, err := parseID(positionID)
	if err != nil {
		return err
	}

	err = s.tx.Run(ctx, "delete_position", func(tx *sql.Tx) error {
		positions := s.positions.WithTx(tx)

		if _, err := positions.LockByID(ctx, id); err != nil {
			return mapRepositoryError(err, structureerrors.ErrPositionNotFound)
		}

		active, err := s.assignments.WithTx(tx).CountActiveByPosition(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return structureerrors.HasActiveAssignments(active)
		}

		// riwayat assignment yang sudah ended tetap disimpan
		if err := positions.Delete(ctx, id); err != nil {
			log.Error("delete position failed", zap.Error(err))
			return mapRepositoryError(err, structureerrors.ErrPositionNotFound)
		}
		return nil
	})
	if err != nil {
		log.Warn("delete position rejected", zap.Error(err))
		return err
	}

	s.invalidate(ctx, "position_deleted")
	log.Info("delete position success")
	return nil
}
