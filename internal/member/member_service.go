package member

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go-orgstructure/internal/shared/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	OptionsKey = "members:options"
	optionsTTL = 10 * time.Minute
)

// Directory is the read-only member lookup consumed by the org structure service.
//
//go:generate mockgen -source=member_service.go -destination=mock/member_service_mock.go -package=mock
type Directory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]MemberResponse, error)
	SearchCandidates(ctx context.Context, query string, exclude map[uuid.UUID]struct{}, limit int) ([]MemberResponse, error)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewDirectory(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Directory {
	l := zap.L().Named("member.directory")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("member.directory")
	}
	return &service{
		repo:   repo,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		logger: l,
	}
}

func (s *service) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, userID)
	if err != nil {
		s.logger.Error("member exists lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return false, err
	}
	return ok, nil
}

func (s *service) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]MemberResponse, error) {
	members, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("member lookup by ids failed", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}

	out := make(map[uuid.UUID]MemberResponse, len(members))
	for _, m := range members {
		out[m.ID] = mapToResponse(m)
	}
	return out, nil
}

// SearchCandidates memfilter direktori aktif (dari cache) dengan query dan daftar exclude.
func (s *service) SearchCandidates(
	ctx context.Context,
	query string,
	exclude map[uuid.UUID]struct{},
	limit int,
) ([]MemberResponse, error) {
	options, err := s.options(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]MemberResponse, 0)
	for _, m := range options {
		if id, err := uuid.Parse(m.ID); err == nil {
			if _, skip := exclude[id]; skip {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(m.FullName), q) && !strings.Contains(strings.ToLower(m.Email), q) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *service) options(ctx context.Context) ([]MemberResponse, error) {
	// 1. Cek Redis
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, OptionsKey).Result(); err == nil {
			var resp []MemberResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				metrics.RecordCacheRequest("members", true)
				return resp, nil
			}
		}
	}
	metrics.RecordCacheRequest("members", false)

	// 2. Singleflight supaya form penugasan yang dibuka bersamaan tidak menghantam DB
	v, err, _ := s.sf.Do(OptionsKey, func() (interface{}, error) {
		members, err := s.repo.FindActive(ctx)
		if err != nil {
			s.logger.Error("load member options failed", zap.Error(err))
			return nil, err
		}

		resp := make([]MemberResponse, len(members))
		for i, m := range members {
			resp[i] = mapToResponse(m)
		}

		if s.rdb != nil {
			if payload, err := json.Marshal(resp); err == nil {
				if err := s.rdb.Set(ctx, OptionsKey, string(payload), optionsTTL).Err(); err != nil {
					s.logger.Warn("cache member options failed", zap.Error(err))
				}
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]MemberResponse), nil
}

func mapToResponse(m Member) MemberResponse {
	return MemberResponse{
		ID:       m.ID.String(),
		FullName: m.FullName,
		Email:    m.Email,
	}
}
