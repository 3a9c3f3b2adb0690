package rbac

import (
	"go-orgstructure/internal/access"
	"go-orgstructure/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes: r sudah membawa auth + ResolveActor.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/org/me/capabilities", handler.Capabilities)

	group := r.Group("/rbac")
	{
		group.GET("/roles", middleware.RequireCapability(access.CapabilityManage), handler.ListRoles)
		group.POST("/enforce", middleware.RequireCapability(access.CapabilityManage), handler.Enforce)
	}
}
