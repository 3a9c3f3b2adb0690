package rbac

import (
	"context"
	"sync"
	"time"

	"go-orgstructure/internal/access"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
)

const DefaultPolicyTTL = time.Minute

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	LoadPolicy(ctx context.Context) error
	Enforce(ctx context.Context, req EnforceRequest) (bool, error)
	ResolveActor(ctx context.Context, userID string) (access.Actor, error)
	ListRoles(ctx context.Context) ([]RoleResponse, error)
}

type service struct {
	repo     Repository
	enforcer *casbin.Enforcer
	ttl      time.Duration
	loadedAt time.Time
	now      func() time.Time
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewService: policy dimuat dari database dan disimpan di enforcer selama ttl.
func NewService(repo Repository, enforcer *casbin.Enforcer, ttl time.Duration, logger ...*zap.Logger) Service {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}
	if ttl <= 0 {
		ttl = DefaultPolicyTTL
	}
	return &service{
		repo:     repo,
		enforcer: enforcer,
		ttl:      ttl,
		now:      time.Now,
		logger:   l,
	}
}

func (s *service) LoadPolicy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadPolicyUnlocked(ctx)
}

func (s *service) loadPolicyUnlocked(ctx context.Context) error {
	s.enforcer.ClearPolicy()

	// Load grouping policy
	memberRoles, err := s.repo.GetMemberRoles(ctx)
	if err != nil {
		return err
	}
	for _, mr := range memberRoles {
		if _, err := s.enforcer.AddGroupingPolicy(mr.UserID, mr.RoleID); err != nil {
			return err
		}
	}

	// Load permission policy
	rolePerms, err := s.repo.GetRolePermissions(ctx)
	if err != nil {
		return err
	}
	for _, rp := range rolePerms {
		if _, err := s.enforcer.AddPolicy(rp.RoleID, rp.Resource, rp.Action); err != nil {
			return err
		}
	}

	s.loadedAt = s.now()
	s.logger.Debug("rbac policy loaded",
		zap.Int("member_roles", len(memberRoles)),
		zap.Int("role_permissions", len(rolePerms)),
	)
	return nil
}

func (s *service) ensureFreshUnlocked(ctx context.Context) error {
	if !s.loadedAt.IsZero() && s.now().Sub(s.loadedAt) < s.ttl {
		return nil
	}
	return s.loadPolicyUnlocked(ctx)
}

func (s *service) Enforce(ctx context.Context, req EnforceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFreshUnlocked(ctx); err != nil {
		return false, err
	}

	allowed, err := s.enforcer.Enforce(req.UserID, req.Resource, req.Action)
	if err != nil {
		s.logger.Error("rbac enforce failed",
			zap.String("user_id", req.UserID),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return false, err
	}

	s.logger.Debug("rbac enforce result",
		zap.String("user_id", req.UserID),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.Bool("allowed", allowed),
	)
	return allowed, nil
}

// ResolveActor mengevaluasi setiap capability org_structure untuk userID.
func (s *service) ResolveActor(ctx context.Context, userID string) (access.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFreshUnlocked(ctx); err != nil {
		return access.Actor{}, err
	}

	granted := make([]access.Capability, 0, len(access.AllCapabilities))
	for _, c := range access.AllCapabilities {
		ok, err := s.enforcer.Enforce(userID, access.Resource, string(c))
		if err != nil {
			return access.Actor{}, err
		}
		if ok {
			granted = append(granted, c)
		}
	}
	return access.NewActor(userID, granted...), nil
}

func (s *service) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	rows, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, RoleResponse{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	return out, nil
}
