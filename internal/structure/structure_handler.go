package structure

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go-orgstructure/internal/hierarchy"
	"go-orgstructure/internal/middleware"
	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewHandler(service Service, rdb *redis.Client, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("structure.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("structure.handler")
	}
	return &Handler{service: service, rdb: rdb, logger: l}
}

// assignMemberBody: user_id ikut di body, sisanya AssignMemberRequest.
type assignMemberBody struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	AssignMemberRequest
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := response.Fail(c, err)
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	}
	if httpErr.Status >= http.StatusInternalServerError {
		h.logger.Error("structure request failed", append(fields, zap.Error(err))...)
	} else {
		h.logger.Warn("structure request failed", append(fields, zap.String("message", httpErr.Message))...)
	}
}

func (h *Handler) writeBindError(c *gin.Context, err error) {
	h.writeServiceError(c, apperror.MapValidationError(err))
}

// bindFilter membaca query scope, region_id, sort, dan is_active (true|false|all).
func (h *Handler) bindFilter(c *gin.Context) (hierarchy.Filter, bool) {
	var filter hierarchy.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.writeBindError(c, err)
		return filter, false
	}

	switch raw := strings.ToLower(strings.TrimSpace(c.Query("is_active"))); raw {
	case "":
	case "all":
		filter.AllStatuses = true
	default:
		active, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeServiceError(c, apperror.Validation("is_active", "must be true, false or all"))
			return filter, false
		}
		filter.IsActive = &active
	}
	return filter, true
}

func (h *Handler) GetHierarchy(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	tree, err := h.service.GetHierarchy(c.Request.Context(), middleware.ActorFromContext(c), filter)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tree, nil)
}

func (h *Handler) GetStatistics(c *gin.Context) {
	stats, err := h.service.GetStatistics(c.Request.Context(), middleware.ActorFromContext(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats, nil)
}

func (h *Handler) ListUnits(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	units, err := h.service.ListUnits(c.Request.Context(), middleware.ActorFromContext(c), filter)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, units, response.NewListMeta(len(units)))
}

func (h *Handler) GetUnit(c *gin.Context) {
	detail, err := h.service.GetUnit(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail, nil)
}

func (h *Handler) ListParentOptions(c *gin.Context) {
	options, err := h.service.ListParentOptions(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, options, nil)
}

func (h *Handler) CreateUnit(c *gin.Context) {
	h.logger.Debug("http create unit")

	var req CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	unit, err := h.service.CreateUnit(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, unit, nil)
}

func (h *Handler) UpdateUnit(c *gin.Context) {
	var req UpdateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	unit, err := h.service.UpdateUnit(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, unit, nil)
}

func (h *Handler) DeleteUnit(c *gin.Context) {
	if err := h.service.DeleteUnit(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

func (h *Handler) ListPositions(c *gin.Context) {
	positions, err := h.service.ListPositions(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, positions, nil)
}

func (h *Handler) GetPosition(c *gin.Context) {
	detail, err := h.service.GetPosition(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail, nil)
}

func (h *Handler) CreatePosition(c *gin.Context) {
	var req CreatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	position, err := h.service.CreatePosition(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, position, nil)
}

func (h *Handler) UpdatePosition(c *gin.Context) {
	var req UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	position, err := h.service.UpdatePosition(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, position, nil)
}

func (h *Handler) DeletePosition(c *gin.Context) {
	if err := h.service.DeletePosition(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

func (h *Handler) ListAssignments(c *gin.Context) {
	includeEnded, _ := strconv.ParseBool(c.DefaultQuery("include_ended", "false"))

	items, err := h.service.ListAssignments(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), includeEnded)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items, nil)
}

func (h *Handler) ListCandidates(c *gin.Context) {
	candidates, err := h.service.ListEligibleMembers(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), c.Query("q"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, candidates, nil)
}

func (h *Handler) AssignMember(c *gin.Context) {
	lockKey := c.GetString(middleware.ContextIdempotencyLockKey)
	cacheKey := c.GetString(middleware.ContextIdempotencyCacheKey)
	if h.rdb != nil && lockKey != "" {
		defer h.rdb.Del(c.Request.Context(), lockKey)
	}

	var body assignMemberBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.AssignMember(
		c.Request.Context(),
		middleware.ActorFromContext(c),
		c.Param("id"),
		body.UserID,
		body.AssignMemberRequest,
	)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if h.rdb != nil && cacheKey != "" {
		if payload, marshalErr := json.Marshal(resp); marshalErr == nil {
			if err := h.rdb.Set(c.Request.Context(), cacheKey, payload, middleware.IdempotencyTTL).Err(); err != nil {
				h.logger.Warn("store idempotent response failed", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) EndAssignment(c *gin.Context) {
	var req EndAssignmentRequest
	// body boleh kosong: alasan dan tanggal opsional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeBindError(c, err)
			return
		}
	}

	resp, err := h.service.EndAssignment(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ListMemberAssignments(c *gin.Context) {
	items, err := h.service.ListMemberAssignments(c.Request.Context(), middleware.ActorFromContext(c), c.Param("user_id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items, nil)
}
