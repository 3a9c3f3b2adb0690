package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/rbac/infra"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID    = "7f1c7a52-0c1f-4d0e-9a37-8a6c2f0d2b11"
	operatorID = "0b3f4c1e-5d6a-4e8b-9f10-2c3d4e5f6a7b"
	viewerID   = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

// =========================================
// Mock Repository
// =========================================

type mockRepo struct {
	calls int
	err   error
}

func (m *mockRepo) GetMemberRoles(ctx context.Context) ([]MemberRoleRow, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []MemberRoleRow{
		{UserID: adminID, RoleID: "role-admin"},
		{UserID: operatorID, RoleID: "role-operator"},
		{UserID: viewerID, RoleID: "role-viewer"},
	}, nil
}

func (m *mockRepo) GetRolePermissions(ctx context.Context) ([]RolePermissionRow, error) {
	return []RolePermissionRow{
		{RoleID: "role-admin", Resource: access.Resource, Action: "*"},
		{RoleID: "role-operator", Resource: access.Resource, Action: "view"},
		{RoleID: "role-operator", Resource: access.Resource, Action: "assign"},
		{RoleID: "role-viewer", Resource: access.Resource, Action: "view"},
		{RoleID: "role-viewer", Resource: "finance", Action: "manage"},
	}, nil
}

func (m *mockRepo) ListRoles(ctx context.Context) ([]RoleRow, error) {
	return []RoleRow{{ID: "role-admin", Name: "Admin"}}, nil
}

// =========================================
// Helper: Test Enforcer
// =========================================

func newTestEnforcer(t *testing.T) *casbin.Enforcer {
	m, err := model.NewModelFromString(infra.DefaultModel)
	require.NoError(t, err)

	e, err := casbin.NewEnforcer(m)
	require.NoError(t, err)

	return e
}

// =========================================
// TEST: ResolveActor
// =========================================

func TestRBACService_ResolveActor(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockRepo{}, newTestEnforcer(t), time.Minute)

	t.Run("wildcard grants every capability", func(t *testing.T) {
		actor, err := svc.ResolveActor(ctx, adminID)
		require.NoError(t, err)
		assert.Equal(t, []string{"view", "manage", "assign"}, actor.List())
	})

	t.Run("operator can view and assign", func(t *testing.T) {
		actor, err := svc.ResolveActor(ctx, operatorID)
		require.NoError(t, err)
		assert.True(t, actor.Can(access.CapabilityAssign))
		assert.False(t, actor.Can(access.CapabilityManage))
	})

	t.Run("permission on another resource does not leak", func(t *testing.T) {
		actor, err := svc.ResolveActor(ctx, viewerID)
		require.NoError(t, err)
		assert.Equal(t, []string{"view"}, actor.List())
	})

	t.Run("unknown member has nothing", func(t *testing.T) {
		actor, err := svc.ResolveActor(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Empty(t, actor.List())
	})
}

// =========================================
// TEST: Enforce + policy cache
// =========================================

func TestRBACService_Enforce(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	svc := NewService(repo, newTestEnforcer(t), time.Minute)

	allowed, err := svc.Enforce(ctx, EnforceRequest{UserID: viewerID, Resource: access.Resource, Action: "view"})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.Enforce(ctx, EnforceRequest{UserID: viewerID, Resource: access.Resource, Action: "manage"})
	require.NoError(t, err)
	assert.False(t, allowed)

	// policy masih segar: repository hanya dibaca sekali
	assert.Equal(t, 1, repo.calls)
}

func TestRBACService_PolicyReloadAfterTTL(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	svc := NewService(repo, newTestEnforcer(t), time.Minute).(*service)

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.ResolveActor(ctx, adminID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.ResolveActor(ctx, adminID)
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls)
}

func TestRBACService_LoadError(t *testing.T) {
	repo := &mockRepo{err: errors.New("db down")}
	svc := NewService(repo, newTestEnforcer(t), time.Minute)

	_, err := svc.ResolveActor(context.Background(), adminID)
	assert.Error(t, err)
}
