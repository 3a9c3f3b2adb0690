package middleware

import (
	"context"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ContextActor = "actor"

// ActorResolver adalah interface lokal; rbac.Service memenuhinya.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID string) (access.Actor, error)
}

// ResolveActor menghitung capability pemanggil sekali per request dan menyimpannya di context.
func ResolveActor(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			abortWithError(c, apperror.ErrUnauthorized)
			return
		}

		actor, err := resolver.ResolveActor(c.Request.Context(), userID)
		if err != nil {
			contextutil.GetLogger(c.Request.Context(), zap.L()).Error("resolve actor failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			abortWithError(c, err)
			return
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// RequireCapability menolak lebih awal di router; service tetap mengecek ulang.
func RequireCapability(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ActorFromContext(c).Require(capability); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// ActorFromContext mengembalikan actor tanpa capability bila ResolveActor belum jalan.
func ActorFromContext(c *gin.Context) access.Actor {
	if v, ok := c.Get(ContextActor); ok {
		if actor, ok := v.(access.Actor); ok {
			return actor
		}
	}
	return access.NewActor(c.GetString(ContextUserID))
}
