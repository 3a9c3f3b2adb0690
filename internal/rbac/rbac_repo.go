package rbac

import (
	"context"

	"gorm.io/gorm"
)

// Repository hanya membaca data izin; pengelolaan role ada di luar layanan ini.
//
//go:generate mockgen -source=rbac_repo.go -destination=mock/rbac_repo_mock.go -package=mock
type Repository interface {
	GetMemberRoles(ctx context.Context) ([]MemberRoleRow, error)
	GetRolePermissions(ctx context.Context) ([]RolePermissionRow, error)
	ListRoles(ctx context.Context) ([]RoleRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type RoleRow struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Name        string
	Description string
}

func (RoleRow) TableName() string {
	return "roles"
}

type MemberRoleRow struct {
	UserID string
	RoleID string
}

type RolePermissionRow struct {
	RoleID   string
	Resource string
	Action   string
}

func (r *repository) GetMemberRoles(ctx context.Context) ([]MemberRoleRow, error) {
	var result []MemberRoleRow

	err := r.db.WithContext(ctx).
		Table("member_roles").
		Select("member_roles.user_id::text AS user_id, member_roles.role_id::text AS role_id").
		Joins("JOIN users ON users.id = member_roles.user_id").
		Where("users.is_active = ?", true).
		Scan(&result).Error

	return result, err
}

func (r *repository) GetRolePermissions(ctx context.Context) ([]RolePermissionRow, error) {
	var result []RolePermissionRow

	err := r.db.WithContext(ctx).
		Table("role_permissions").
		Select("role_permissions.role_id::text AS role_id, permissions.resource, permissions.action").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Scan(&result).Error

	return result, err
}

func (r *repository) ListRoles(ctx context.Context) ([]RoleRow, error) {
	var result []RoleRow
	err := r.db.WithContext(ctx).Order("name").Find(&result).Error
	return result, err
}
