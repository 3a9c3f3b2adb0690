package orgposition

import (
	"context"
	"database/sql"

	"go-orgstructure/internal/shared/dbtx"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=orgposition_repo.go -destination=mock/orgposition_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, position *Position) error
	Update(ctx context.Context, position *Position) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Position, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Position, error)
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]Position, error)
	ListByUnitIDs(ctx context.Context, unitIDs []uuid.UUID) ([]Position, error)
	ListAll(ctx context.Context) ([]Position, error)
	CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, position *Position) error {
	return r.conn(ctx).Create(position).Error
}

func (r *repository) Update(ctx context.Context, position *Position) error {
	return r.conn(ctx).Save(position).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&Position{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Position, error) {
	var position Position
	if err := r.conn(ctx).First(&position, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

// LockByID mengunci baris posisi (FOR UPDATE) sampai transaksi selesai.
// Semua cek kapasitas harus dilakukan setelah lock ini.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*Position, error) {
	var position Position
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&position, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *repository) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]Position, error) {
	var positions []Position
	err := r.conn(ctx).
		Where("unit_id = ?", unitID).
		Order("title ASC, id ASC").
		Find(&positions).Error
	return positions, err
}

func (r *repository) ListByUnitIDs(ctx context.Context, unitIDs []uuid.UUID) ([]Position, error) {
	if len(unitIDs) == 0 {
		return []Position{}, nil
	}
	var positions []Position
	err := r.conn(ctx).
		Where("unit_id IN ?", unitIDs).
		Order("title ASC, id ASC").
		Find(&positions).Error
	return positions, err
}

func (r *repository) ListAll(ctx context.Context) ([]Position, error) {
	var positions []Position
	err := r.conn(ctx).Order("title ASC").Find(&positions).Error
	return positions, err
}

func (r *repository) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var total int64
	err := r.conn(ctx).Model(&Position{}).Where("unit_id = ?", unitID).Count(&total).Error
	return total, err
}
