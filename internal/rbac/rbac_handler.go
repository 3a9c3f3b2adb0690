package rbac

import (
	"net/http"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/middleware"
	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("rbac.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := response.Fail(c, err)
	h.logger.Warn("rbac request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.Error(err),
	)
}

// Capabilities mengembalikan capability org_structure milik pemanggil (untuk UI).
func (h *Handler) Capabilities(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	response.Success(c, http.StatusOK, CapabilitiesResponse{
		UserID:       actor.UserID,
		Resource:     access.Resource,
		Capabilities: actor.List(),
	}, nil)
}

func (h *Handler) Enforce(c *gin.Context) {
	var req EnforceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	allowed, err := h.service.Enforce(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, EnforceResponse{Allowed: allowed}, nil)
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles, nil)
}
