package orgunit

import (
	"context"
	"database/sql"
	"errors"

	"go-orgstructure/internal/shared/dbtx"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxTreeDepth membatasi traversal turunan supaya data korup tidak membuat loop tanpa akhir.
const MaxTreeDepth = 64

const treeLockKey = "org_units.tree"

var ErrTreeTooDeep = errors.New("org unit tree exceeds maximum depth")

type Filter struct {
	Scope     string
	RegionRef string
	IsActive  *bool
	Sort      string
}

var sortColumns = map[string]string{
	"":           "name ASC, id ASC",
	"name":       "name ASC, id ASC",
	"level":      "level ASC, name ASC, id ASC",
	"created_at": "created_at ASC, id ASC",
}

func ValidSort(sort string) bool {
	_, ok := sortColumns[sort]
	return ok
}

type ScopeCount struct {
	Scope Scope
	Total int64
}

//go:generate mockgen -source=orgunit_repo.go -destination=mock/orgunit_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, unit *Unit) error
	Update(ctx context.Context, unit *Unit) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Unit, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	List(ctx context.Context, filter Filter) ([]Unit, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]Unit, error)
	CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error)
	GetDescendantIDs(ctx context.Context, id uuid.UUID) (map[uuid.UUID]struct{}, error)
	LockTree(ctx context.Context) error
	CountByScope(ctx context.Context) ([]ScopeCount, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return dbtx.Conn(ctx, r.db, r.tx)
}

func (r *repository) Create(ctx context.Context, unit *Unit) error {
	return r.conn(ctx).Create(unit).Error
}

func (r *repository) Update(ctx context.Context, unit *Unit) error {
	return r.conn(ctx).Save(unit).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&Unit{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Unit, error) {
	var unit Unit
	if err := r.conn(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Unit, error) {
	if len(ids) == 0 {
		return []Unit{}, nil
	}
	var units []Unit
	err := r.conn(ctx).Where("id IN ?", ids).Find(&units).Error
	return units, err
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*Unit, error) {
	var unit Unit
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&unit, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Unit, error) {
	q := r.conn(ctx).Model(&Unit{})
	if filter.Scope != "" {
		q = q.Where("scope = ?", filter.Scope)
	}
	if filter.RegionRef != "" {
		q = q.Where("region_ref = ?", filter.RegionRef)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	order, ok := sortColumns[filter.Sort]
	if !ok {
		order = sortColumns[""]
	}

	var units []Unit
	err := q.Order(order).Find(&units).Error
	return units, err
}

func (r *repository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]Unit, error) {
	var units []Unit
	err := r.conn(ctx).
		Where("parent_id = ?", parentID).
		Order(sortColumns[""]).
		Find(&units).Error
	return units, err
}

func (r *repository) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error) {
	var total int64
	err := r.conn(ctx).Model(&Unit{}).Where("parent_id = ?", parentID).Count(&total).Error
	return total, err
}

// GetDescendantIDs menelusuri turunan per level (satu query per kedalaman).
// id sendiri tidak pernah ikut di hasil, walaupun data mengandung siklus.
func (r *repository) GetDescendantIDs(ctx context.Context, id uuid.UUID) (map[uuid.UUID]struct{}, error) {
	descendants := make(map[uuid.UUID]struct{})
	frontier := []uuid.UUID{id}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= MaxTreeDepth {
			return descendants, ErrTreeTooDeep
		}

		var children []uuid.UUID
		if err := r.conn(ctx).Model(&Unit{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}

		next := make([]uuid.UUID, 0, len(children))
		for _, child := range children {
			if child == id {
				continue
			}
			if _, seen := descendants[child]; seen {
				continue
			}
			descendants[child] = struct{}{}
			next = append(next, child)
		}
		frontier = next
	}

	return descendants, nil
}

// LockTree serializes structural moves for the rest of the transaction.
func (r *repository) LockTree(ctx context.Context) error {
	return r.conn(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", treeLockKey).Error
}

func (r *repository) CountByScope(ctx context.Context) ([]ScopeCount, error) {
	var rows []ScopeCount
	err := r.conn(ctx).
		Model(&Unit{}).
		Select("scope, COUNT(*) AS total").
		Group("scope").
		Order("scope").
		Scan(&rows).Error
	return rows, err
}
