package structure

import (
	"go-orgstructure/internal/access"
	"go-orgstructure/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RegisterRoutes: r sudah membawa auth, ExtractUserID, ContextLogger, dan ResolveActor.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb *redis.Client) {
	view := middleware.RequireCapability(access.CapabilityView)
	manage := middleware.RequireCapability(access.CapabilityManage)
	assign := middleware.RequireCapability(access.CapabilityAssign)

	org := r.Group("/org")
	{
		org.GET("/hierarchy", middleware.RateLimitByUser(5, 20), view, handler.GetHierarchy)
		org.GET("/statistics", middleware.RateLimitByUser(3, 10), view, handler.GetStatistics)

		units := org.Group("/units")
		units.GET("", view, handler.ListUnits)
		units.POST("", middleware.RateLimitByUser(0.5, 2), manage, handler.CreateUnit)
		units.GET("/:id", view, handler.GetUnit)
		units.PUT("/:id", middleware.RateLimitByUser(0.5, 2), manage, handler.UpdateUnit)
		units.DELETE("/:id", middleware.RateLimitByUser(0.1, 1), manage, handler.DeleteUnit)
		units.GET("/:id/parent-options", view, handler.ListParentOptions)
		units.GET("/:id/positions", view, handler.ListPositions)

		positions := org.Group("/positions")
		positions.POST("", middleware.RateLimitByUser(0.5, 2), manage, handler.CreatePosition)
		positions.GET("/:id", view, handler.GetPosition)
		positions.PUT("/:id", middleware.RateLimitByUser(0.5, 2), manage, handler.UpdatePosition)
		positions.DELETE("/:id", middleware.RateLimitByUser(0.1, 1), manage, handler.DeletePosition)
		positions.GET("/:id/assignments", view, handler.ListAssignments)
		positions.GET("/:id/candidates", view, handler.ListCandidates)
		positions.POST("/:id/assignments",
			middleware.RateLimitByUser(1, 3),
			assign,
			middleware.Idempotency(rdb),
			handler.AssignMember,
		)

		org.POST("/assignments/:id/end", middleware.RateLimitByUser(1, 3), assign, handler.EndAssignment)
		org.GET("/members/:user_id/assignments", view, handler.ListMemberAssignments)
	}
}
