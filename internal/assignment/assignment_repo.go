package assignment

import (
	"context"
	"database/sql"
	"time"

	"go-orgstructure/internal/shared/dbtx"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EndParams struct {
	EndedAt time.Time
	Reason  *string
	EndedBy *uuid.UUID
}

type positionCount struct {
	PositionID uuid.UUID
	Total      int64
}

//go:generate mockgen -source=assignment_repo.go -destination=mock/assignment_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *Assignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	End(ctx context.Context, id uuid.UUID, params EndParams) (int64, error)
	HasActive(ctx context.Context, positionID, userID uuid.UUID) (bool, error)
	CountActiveByPosition(ctx context.Context, positionID uuid.UUID) (int64, error)
	ActiveCountsByPositions(ctx context.Context, positionIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	ActiveCounts(ctx context.Context) (map[uuid.UUID]int64, error)
	CountActive(ctx context.Context) (int64, error)
	ListByPosition(ctx context.Context, positionID uuid.UUID, includeEnded bool) ([]Assignment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error)
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

func (r *repository) Create(ctx context.Context, a *Assignment) error {
	return r.conn(ctx).Create(a).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	var a Assignment
	if err := r.conn(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	var a Assignment
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// End hanya menyentuh baris yang masih active; hasil 0 berarti sudah diakhiri oleh transaksi lain.
func (r *repository) End(ctx context.Context, id uuid.UUID, params EndParams) (int64, error) {
	res := r.conn(ctx).
		Model(&Assignment{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]any{
			"status":       StatusEnded,
			"ended_at":     params.EndedAt,
			"ended_reason": params.Reason,
			"ended_by":     params.EndedBy,
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) HasActive(ctx context.Context, positionID, userID uuid.UUID) (bool, error) {
	var total int64
	err := r.conn(ctx).
		Model(&Assignment{}).
		Where("position_id = ? AND user_id = ? AND status = ?", positionID, userID, StatusActive).
		Count(&total).Error
	return total > 0, err
}

func (r *repository) CountActiveByPosition(ctx context.Context, positionID uuid.UUID) (int64, error) {
	var total int64
	err := r.conn(ctx).
		Model(&Assignment{}).
		Where("position_id = ? AND status = ?", positionID, StatusActive).
		Count(&total).Error
	return total, err
}

// ActiveCountsByPositions: satu query GROUP BY untuk seluruh posisi, bukan satu query per posisi.
func (r *repository) ActiveCountsByPositions(ctx context.Context, positionIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(positionIDs))
	if len(positionIDs) == 0 {
		return counts, nil
	}

	var rows []positionCount
	err := r.conn(ctx).
		Model(&Assignment{}).
		Select("position_id, COUNT(*) AS total").
		Where("position_id IN ? AND status = ?", positionIDs, StatusActive).
		Group("position_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.PositionID] = row.Total
	}
	return counts, nil
}

func (r *repository) ActiveCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []positionCount
	err := r.conn(ctx).
		Model(&Assignment{}).
		Select("position_id, COUNT(*) AS total").
		Where("status = ?", StatusActive).
		Group("position_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.PositionID] = row.Total
	}
	return counts, nil
}

func (r *repository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	err := r.conn(ctx).Model(&Assignment{}).Where("status = ?", StatusActive).Count(&total).Error
	return total, err
}

func (r *repository) ListByPosition(ctx context.Context, positionID uuid.UUID, includeEnded bool) ([]Assignment, error) {
	q := r.conn(ctx).Where("position_id = ?", positionID)
	if !includeEnded {
		q = q.Where("status = ?", StatusActive)
	}

	var items []Assignment
	err := q.Order("started_at DESC, created_at DESC").Find(&items).Error
	return items, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	var items []Assignment
	err := r.conn(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC, created_at DESC").
		Find(&items).Error
	return items, err
}
