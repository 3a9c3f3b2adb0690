package member

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=member_repo.go -destination=mock/member_repo_mock.go -package=mock
type Repository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Member, error)
	FindActive(ctx context.Context) ([]Member, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&total).Error
	return total > 0, err
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Member, error) {
	if len(ids) == 0 {
		return []Member{}, nil
	}
	var members []Member
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error
	return members, err
}

func (r *repository) FindActive(ctx context.Context) ([]Member, error) {
	var members []Member
	err := r.db.WithContext(ctx).
		Select("id", "full_name", "email").
		Where("is_active = ?", true).
		Order("full_name ASC").
		Find(&members).Error
	return members, err
}
