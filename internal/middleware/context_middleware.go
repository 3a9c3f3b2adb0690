package middleware

import (
	"go-orgstructure/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextLogger dipasang setelah ExtractUserID supaya actor ikut tercatat.
// Service mengambil logger ini lewat contextutil.GetLogger tanpa tahu Gin.
func ContextLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if contextutil.GetRequestID(c.Request.Context()) == "" {
			// route tanpa RequestID()
			assignRequestID(c)
		}
		ctx := c.Request.Context()
		ctx = contextutil.WithUserID(ctx, c.GetString(ContextUserID))

		reqLogger := logger.With(contextutil.Fields(ctx)...).With(
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
		)
		c.Request = c.Request.WithContext(contextutil.WithLogger(ctx, reqLogger))
		c.Next()
	}
}
