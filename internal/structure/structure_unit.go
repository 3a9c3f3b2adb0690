package structure

import (
	"context"
	"database/sql"
	"strings"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/hierarchy"
	"go-orgstructure/internal/orgunit"
	"go-orgstructure/internal/shared/apperror"
	structureerrors "go-orgstructure/internal/structure/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *service) ListUnits(ctx context.Context, actor access.Actor, filter hierarchy.Filter) ([]hierarchy.UnitView, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return nil, err
	}
	if err := apperror.ValidateStruct(filter); err != nil {
		return nil, err
	}

	filter = filter.Normalize()
	if !orgunit.ValidSort(filter.Sort) {
		return nil, structureerrors.ErrInvalidSort
	}

	units, err := s.units.List(ctx, filter.UnitFilter())
	if err != nil {
		s.log(ctx).Error("list units failed", zap.Error(err))
		return nil, err
	}
	return mapUnitViews(units), nil
}

func (s *service) GetUnit(ctx context.Context, actor access.Actor, unitID string) (hierarchy.UnitDetail, error) {
	if err := actor.Require(access.CapabilityView); err != nil {
		return hierarchy.UnitDetail{}, err
	}
	id, err := parseID(unitID)
	if err != nil {
		return hierarchy.UnitDetail{}, err
	}
	return s.hierarchy.GetUnitDetail(ctx, id)
}

// ListParentOptions: semua unit kecuali unit itu sendiri dan turunannya.
func (s *service) ListParentOptions(ctx context.Context, actor access.Actor, unitID string) ([]hierarchy.UnitView, error) {
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

	descendants, err := s.units.GetDescendantIDs(ctx, id)
	if err != nil {
		s.log(ctx).Error("parent options descendants failed", zap.String("unit_id", unitID), zap.Error(err))
		return nil, mapRepositoryError(err, nil)
	}

	all, err := s.units.List(ctx, orgunit.Filter{})
	if err != nil {
		s.log(ctx).Error("parent options list units failed", zap.Error(err))
		return nil, err
	}

	options := make([]orgunit.Unit, 0, len(all))
	for _, u := range all {
		if u.ID == id {
			continue
		}
		if _, isDescendant := descendants[u.ID]; isDescendant {
			continue
		}
		options = append(options, u)
	}
	return mapUnitViews(options), nil
}

func (s *service) CreateUnit(ctx context.Context, actor access.Actor, req CreateUnitRequest) (hierarchy.UnitView, error) {
	log := s.log(ctx)
	log.Debug("create unit requested",
		zap.String("name", req.Name),
		zap.String("scope", req.Scope),
	)

	if err := actor.Require(access.CapabilityManage); err != nil {
		return hierarchy.UnitView{}, err
	}
	if err := apperror.ValidateStruct(req); err != nil {
		log.Warn("create unit validation failed", zap.Error(err))
		return hierarchy.UnitView{}, err
	}
	if err := checkTrimmedLen("name", req.Name); err != nil {
		return hierarchy.UnitView{}, err
	}

	scope := orgunit.Scope(req.Scope)
	region := trimmedOrNil(req.RegionRef)
	if region != nil && !scope.AcceptsRegion() {
		return hierarchy.UnitView{}, apperror.Validation("region_ref", "is only allowed for wilayah or kampus scope")
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		id, err := parseFieldID("parent_id", *req.ParentID)
		if err != nil {
			return hierarchy.UnitView{}, err
		}
		parentID = &id
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	unit := &orgunit.Unit{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		Scope:     scope,
		Level:     *req.Level,
		ParentID:  parentID,
		RegionRef: region,
		IsActive:  isActive,
	}

	err := s.tx.Run(ctx, "create_unit", func(tx *sql.Tx) error {
		units := s.units.WithTx(tx)

		if parentID != nil {
			if err := units.LockTree(ctx); err != nil {
				return err
			}
			if _, err := units.FindByID(ctx, *parentID); err != nil {
				return mapRepositoryError(err, structureerrors.ErrParentUnitNotFound)
			}
		}

		if err := units.Create(ctx, unit); err != nil {
			log.Error("create unit persist failed", zap.Error(err))
			return mapRepositoryError(err, nil)
		}
		return nil
	})
	if err != nil {
		return hierarchy.UnitView{}, err
	}

	s.invalidate(ctx, "unit_created")
	log.Info("create unit success",
		zap.String("unit_id", unit.ID.String()),
		zap.String("scope", string(unit.Scope)),
	)
	return hierarchy.ToUnitView(*unit), nil
}

func (s *service) UpdateUnit(ctx context.Context, actor access.Actor, unitID string, req UpdateUnitRequest) (hierarchy.UnitView, error) {
	log := s.log(ctx).With(zap.String("unit_id", unitID))
	log.Debug("update unit requested", zap.Bool("clear_parent", req.ClearParent))

	if err := actor.Require(access.CapabilityManage); err != nil {
		return hierarchy.UnitView{}, err
	}
	id, err := parseID(unitID)
	if err != nil {
		return hierarchy.UnitView{}, err
	}
	if err := apperror.ValidateStruct(req); err != nil {
		log.Warn("update unit validation failed", zap.Error(err))
		return hierarchy.UnitView{}, err
	}
	if req.Name != nil {
		if err := checkTrimmedLen("name", *req.Name); err != nil {
			return hierarchy.UnitView{}, err
		}
	}

	var newParent *uuid.UUID
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		if req.ClearParent {
			return hierarchy.UnitView{}, apperror.Validation("parent_id", "cannot be combined with clear_parent")
		}
		pid, err := parseFieldID("parent_id", *req.ParentID)
		if err != nil {
			return hierarchy.UnitView{}, err
		}
		newParent = &pid
	}

	var updated orgunit.Unit
	err = s.tx.Run(ctx, "update_unit", func(tx *sql.Tx) error {
		units := s.units.WithTx(tx)

		// advisory lock dulu, baru row lock: urutan sama dengan create/delete
		if newParent != nil {
			if err := units.LockTree(ctx); err != nil {
				return err
			}
		}

		unit, err := units.LockByID(ctx, id)
		if err != nil {
			return mapRepositoryError(err, structureerrors.ErrUnitNotFound)
		}

		if req.Name != nil {
			unit.Name = strings.TrimSpace(*req.Name)
		}
		if req.Scope != nil {
			unit.Scope = orgunit.Scope(*req.Scope)
		}
		if req.Level != nil {
			unit.Level = *req.Level
		}
		if req.IsActive != nil {
			unit.IsActive = *req.IsActive
		}
		if req.RegionRef != nil {
			unit.RegionRef = trimmedOrNil(req.RegionRef)
			if unit.RegionRef != nil && !unit.Scope.AcceptsRegion() {
				return apperror.Validation("region_ref", "is only allowed for wilayah or kampus scope")
			}
		} else if unit.RegionRef != nil && !unit.Scope.AcceptsRegion() {
			// scope berubah ke level yang tidak punya wilayah
			unit.RegionRef = nil
		}

		switch {
		case req.ClearParent:
			unit.ParentID = nil
		case newParent != nil:
			if err := s.checkParent(ctx, units, unit.ID, *newParent); err != nil {
				return err
			}
			unit.ParentID = newParent
		}

		if err := units.Update(ctx, unit); err != nil {
			log.Error("update unit persist failed", zap.Error(err))
			return mapRepositoryError(err, nil)
		}
		updated = *unit
		return nil
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.Code == structureerrors.CodeCircularReference {
			log.Warn("update unit rejected: circular reference", zap.Stringp("parent_id", req.ParentID))
		}
		return hierarchy.UnitView{}, err
	}

	s.invalidate(ctx, "unit_updated")
	log.Info("update unit success")
	return hierarchy.ToUnitView(updated), nil
}

// checkParent: parent harus ada dan bukan unit itu sendiri maupun turunannya.
func (s *service) checkParent(ctx context.Context, units orgunit.Repository, unitID, parentID uuid.UUID) error {
	if parentID == unitID {
		return structureerrors.ErrCircularReference
	}

	if _, err := units.FindByID(ctx, parentID); err != nil {
		return mapRepositoryError(err, structureerrors.ErrParentUnitNotFound)
	}

	descendants, err := units.GetDescendantIDs(ctx, unitID)
	if err != nil {
		return mapRepositoryError(err, nil)
	}
	if _, ok := descendants[parentID]; ok {
		return structureerrors.ErrCircularReference
	}
	return nil
}

func (s *service) DeleteUnit(ctx context.Context, actor access.Actor, unitID string) error {
	log := s.log(ctx).With(zap.String("unit_id", unitID))
	log.Debug("delete unit requested")

	if err := actor.Require(access.CapabilityManage); err != nil {
		return err
	}
	id, err := parseID(unitID)
	if err != nil {
		return err
	}

	err = s.tx.Run(ctx, "delete_unit", func(tx *sql.Tx) error {
		units := s.units.WithTx(tx)
		positions := s.positions.WithTx(tx)

		if err := units.LockTree(ctx); err != nil {
			return err
		}
		if _, err := units.LockByID(ctx, id); err != nil {
			return mapRepositoryError(err, structureerrors.ErrUnitNotFound)
		}

		children, err := units.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return structureerrors.HasChildren(children)
		}

		positionCount, err := positions.CountByUnit(ctx, id)
		if err != nil {
			return err
		}
		if positionCount > 0 {
			return structureerrors.HasPositions(positionCount)
		}

		if err := units.Delete(ctx, id); err != nil {
			log.Error("delete unit failed", zap.Error(err))
			return mapRepositoryError(err, structureerrors.ErrUnitNotFound)
		}
		return nil
	})
	if err != nil {
		log.Warn("delete unit rejected", zap.Error(err))
		return err
	}

	s.invalidate(ctx, "unit_deleted")
	log.Info("delete unit success")
	return nil
}

func mapUnitViews(units []orgunit.Unit) []hierarchy.UnitView {
	out := make([]hierarchy.UnitView, 0, len(units))
	for _, u := range units {
		out = append(out, hierarchy.ToUnitView(u))
	}
	return out
}
