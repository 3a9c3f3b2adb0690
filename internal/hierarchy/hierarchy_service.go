package hierarchy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/member"
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/orgunit"
	"go-orgstructure/internal/shared/contextutil"
	"go-orgstructure/internal/shared/metrics"
	structureerrors "go-orgstructure/internal/structure/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	HierarchyVersionKey = "org:hierarchy:version"
	hierarchyKeyPrefix  = "org:hierarchy:"
	DefaultCacheTTL     = 5 * time.Minute
)

// HierarchyKey menyertakan versi supaya invalidasi cukup dengan INCR, tanpa SCAN/DEL.
func HierarchyKey(version int64, f Filter) string {
	active := "all"
	if f.IsActive != nil {
		active = strconv.FormatBool(*f.IsActive)
	}
	return fmt.Sprintf("%sv%d:%s:%s:%s:%s", hierarchyKeyPrefix, version, f.Scope, f.RegionID, active, f.Sort)
}

//go:generate mockgen -source=hierarchy_service.go -destination=mock/hierarchy_service_mock.go -package=mock
type Builder interface {
	GetHierarchy(ctx context.Context, filter Filter) ([]*TreeNode, error)
	GetUnitDetail(ctx context.Context, unitID uuid.UUID) (UnitDetail, error)
	GetPositionDetail(ctx context.Context, positionID uuid.UUID) (PositionDetail, error)
	GetStatistics(ctx context.Context) (Statistics, error)
	Invalidate(ctx context.Context, reason string)
}

type builder struct {
	units       orgunit.Repository
	positions   orgposition.Repository
	assignments assignment.Repository
	members     member.Directory
	rdb         *redis.Client
	ttl         time.Duration
	sf          *singleflight.Group
	logger      *zap.Logger
}

func NewBuilder(
	units orgunit.Repository,
	positions orgposition.Repository,
	assignments assignment.Repository,
	members member.Directory,
	rdb *redis.Client,
	ttl time.Duration,
	logger ...*zap.Logger,
) Builder {
	l := zap.L().Named("hierarchy.builder")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("hierarchy.builder")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &builder{
		units:       units,
		positions:   positions,
		assignments: assignments,
		members:     members,
		rdb:         rdb,
		ttl:         ttl,
		sf:          &singleflight.Group{},
		logger:      l,
	}
}

func (b *builder) GetHierarchy(ctx context.Context, filter Filter) ([]*TreeNode, error) {
	filter = filter.Normalize()
	log := contextutil.GetLogger(ctx, b.logger)
	log.Debug("get hierarchy requested",
		zap.String("scope", filter.Scope),
		zap.String("region_id", filter.RegionID),
		zap.String("sort", filter.Sort),
	)

	if !orgunit.ValidSort(filter.Sort) {
		return nil, structureerrors.ErrInvalidSort
	}

	cacheKey := ""
	if b.rdb != nil {
		cacheKey = HierarchyKey(b.version(ctx), filter)
		if cached, err := b.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var tree []*TreeNode
			if json.Unmarshal([]byte(cached), &tree) == nil {
				metrics.RecordCacheRequest("hierarchy", true)
				return tree, nil
			}
		}
		metrics.RecordCacheRequest("hierarchy", false)
	}

	sfKey := cacheKey
	if sfKey == "" {
		sfKey = HierarchyKey(0, filter)
	}

	v, err, _ := b.sf.Do(sfKey, func() (interface{}, error) {
		tree, err := b.buildHierarchy(ctx, filter)
		if err != nil {
			return nil, err
		}

		if cacheKey != "" {
			if payload, err := json.Marshal(tree); err == nil {
				if err := b.rdb.Set(ctx, cacheKey, string(payload), b.ttl).Err(); err != nil {
					log.Warn("cache hierarchy failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}
		return tree, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]*TreeNode), nil
}

// buildHierarchy: tepat tiga query (unit, posisi, agregat holder aktif).
func (b *builder) buildHierarchy(ctx context.Context, filter Filter) ([]*TreeNode, error) {
	units, err := b.units.List(ctx, filter.UnitFilter())
	if err != nil {
		b.logger.Error("list units failed", zap.Error(err))
		return nil, err
	}

	unitIDs := make([]uuid.UUID, len(units))
	for i, u := range units {
		unitIDs[i] = u.ID
	}

	allPositions, err := b.positions.ListByUnitIDs(ctx, unitIDs)
	if err != nil {
		b.logger.Error("list positions by units failed", zap.Int("unit_count", len(unitIDs)), zap.Error(err))
		return nil, err
	}

	positions := make([]orgposition.Position, 0, len(allPositions))
	positionIDs := make([]uuid.UUID, 0, len(allPositions))
	for _, p := range allPositions {
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		positions = append(positions, p)
		positionIDs = append(positionIDs, p.ID)
	}

	counts, err := b.assignments.ActiveCountsByPositions(ctx, positionIDs)
	if err != nil {
		b.logger.Error("count active assignments failed", zap.Error(err))
		return nil, err
	}

	tree := BuildTree(units, positions, counts)
	b.logger.Debug("hierarchy built",
		zap.Int("units", len(units)),
		zap.Int("positions", len(positions)),
		zap.Int("roots", len(tree)),
	)
	return tree, nil
}

func (b *builder) GetUnitDetail(ctx context.Context, unitID uuid.UUID) (UnitDetail, error) {
	unit, err := b.units.FindByID(ctx, unitID)
	if err != nil {
		return UnitDetail{}, b.mapNotFound(err, structureerrors.ErrUnitNotFound, "get unit detail")
	}

	detail := UnitDetail{
		Unit:      ToUnitView(*unit),
		Positions: []PositionSlot{},
		Children:  []UnitView{},
	}

	if unit.ParentID != nil {
		parent, err := b.units.FindByID(ctx, *unit.ParentID)
		switch {
		case err == nil:
			summary := ToUnitSummary(*parent)
			detail.Parent = &summary
		case !errors.Is(err, gorm.ErrRecordNotFound):
			b.logger.Error("get unit detail parent failed", zap.Error(err))
			return UnitDetail{}, err
		}
	}

	positions, err := b.positions.ListByUnit(ctx, unit.ID)
	if err != nil {
		b.logger.Error("get unit detail positions failed", zap.Error(err))
		return UnitDetail{}, err
	}
	ids := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	counts, err := b.assignments.ActiveCountsByPositions(ctx, ids)
	if err != nil {
		b.logger.Error("get unit detail counts failed", zap.Error(err))
		return UnitDetail{}, err
	}
	for _, p := range positions {
		detail.Positions = append(detail.Positions, ToPositionSlot(p, counts[p.ID]))
	}

	children, err := b.units.ListChildren(ctx, unit.ID)
	if err != nil {
		b.logger.Error("get unit detail children failed", zap.Error(err))
		return UnitDetail{}, err
	}
	for _, c := range children {
		detail.Children = append(detail.Children, ToUnitView(c))
	}

	return detail, nil
}

func (b *builder) GetPositionDetail(ctx context.Context, positionID uuid.UUID) (PositionDetail, error) {
	position, err := b.positions.FindByID(ctx, positionID)
	if err != nil {
		return PositionDetail{}, b.mapNotFound(err, structureerrors.ErrPositionNotFound, "get position detail")
	}

	unit, err := b.units.FindByID(ctx, position.UnitID)
	if err != nil {
		return PositionDetail{}, b.mapNotFound(err, structureerrors.ErrUnitNotFound, "get position detail unit")
	}

	holders, err := b.assignments.ListByPosition(ctx, position.ID, false)
	if err != nil {
		b.logger.Error("get position detail holders failed", zap.Error(err))
		return PositionDetail{}, err
	}

	detail := PositionDetail{
		PositionSlot: ToPositionSlot(*position, int64(len(holders))),
		Unit:         ToUnitSummary(*unit),
		Holders:      make([]HolderView, 0, len(holders)),
	}

	if position.ReportsTo != nil {
		superior, err := b.positions.FindByID(ctx, *position.ReportsTo)
		switch {
		case err == nil:
			detail.ReportsTo = &PositionSummary{ID: superior.ID.String(), Title: superior.Title}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			b.logger.Error("get position detail reports_to failed", zap.Error(err))
			return PositionDetail{}, err
		}
	}

	userIDs := make([]uuid.UUID, len(holders))
	for i, h := range holders {
		userIDs[i] = h.UserID
	}
	profiles := map[uuid.UUID]member.MemberResponse{}
	if b.members != nil && len(userIDs) > 0 {
		if found, err := b.members.GetByIDs(ctx, userIDs); err != nil {
			// nama pemegang hanya pelengkap; detail tetap dikirim
			b.logger.Warn("get position detail member profiles failed", zap.Error(err))
		} else {
			profiles = found
		}
	}

	for _, h := range holders {
		view := ToHolderView(h)
		if p, ok := profiles[h.UserID]; ok {
			view.FullName = p.FullName
			view.Email = p.Email
		}
		detail.Holders = append(detail.Holders, view)
	}

	return detail, nil
}

func (b *builder) GetStatistics(ctx context.Context) (Statistics, error) {
	byScope, err := b.units.CountByScope(ctx)
	if err != nil {
		b.logger.Error("statistics count units failed", zap.Error(err))
		return Statistics{}, err
	}

	stats := Statistics{UnitsByScope: make(map[string]int64, len(orgunit.Scopes))}
	for _, s := range orgunit.Scopes {
		stats.UnitsByScope[string(s)] = 0
	}
	for _, row := range byScope {
		stats.UnitsByScope[string(row.Scope)] = row.Total
		stats.TotalUnits += row.Total
	}

	if stats.ActiveAssignments, err = b.assignments.CountActive(ctx); err != nil {
		b.logger.Error("statistics count active assignments failed", zap.Error(err))
		return Statistics{}, err
	}

	positions, err := b.positions.ListAll(ctx)
	if err != nil {
		b.logger.Error("statistics list positions failed", zap.Error(err))
		return Statistics{}, err
	}
	counts, err := b.assignments.ActiveCounts(ctx)
	if err != nil {
		b.logger.Error("statistics active counts failed", zap.Error(err))
		return Statistics{}, err
	}

	// total, vacant dan rata-rata dihitung dari himpunan posisi yang sama
	stats.TotalPositions = int64(len(positions))
	stats.VacantPositions, stats.AverageOccupancyRate = occupancy(positions, counts)
	return stats, nil
}

// occupancy: rasio rata-rata active/max (0..1, 4 desimal) atas posisi dengan max_holders > 0.
func occupancy(positions []orgposition.Position, counts map[uuid.UUID]int64) (int64, float64) {
	var vacant int64
	var sum float64
	var n int
	for _, p := range positions {
		active := counts[p.ID]
		if active == 0 {
			vacant++
		}
		if p.MaxHolders > 0 {
			sum += float64(active) / float64(p.MaxHolders)
			n++
		}
	}
	if n == 0 {
		return vacant, 0
	}
	return vacant, math.Round(sum/float64(n)*10000) / 10000
}

// Invalidate menaikkan versi cache; entry lama kedaluwarsa sendiri lewat TTL.
func (b *builder) Invalidate(ctx context.Context, reason string) {
	metrics.RecordCacheInvalidate(reason)
	if b.rdb == nil {
		return
	}
	if err := b.rdb.Incr(ctx, HierarchyVersionKey).Err(); err != nil {
		b.logger.Error("failed to invalidate hierarchy cache",
			zap.String("key", HierarchyVersionKey),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func (b *builder) version(ctx context.Context) int64 {
	v, err := b.rdb.Get(ctx, HierarchyVersionKey).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			b.logger.Warn("read hierarchy cache version failed", zap.Error(err))
		}
		return 0
	}
	return v
}

func (b *builder) mapNotFound(err error, notFound error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	b.logger.Error(op+" failed", zap.Error(err))
	return err
}
