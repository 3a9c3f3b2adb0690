package middleware

import (
	"net/http"

	"go-orgstructure/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextTokenUserID diisi AuthMiddleware dari claim token, belum divalidasi.
	ContextTokenUserID = "user_id"
	// ContextUserID adalah id anggota yang sudah pasti uuid; dipakai sebagai actor.
	ContextUserID = "user_id_validated"
)

var ErrInvalidUserID = apperror.New(apperror.CodeInvalidUserID, "Invalid user_id format", http.StatusUnauthorized)

// ExtractUserID memastikan user_id dari token adalah uuid sebelum dipakai sebagai actor.
func ExtractUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(ContextTokenUserID)
		if !exists {
			abortWithError(c, apperror.ErrUnauthorized)
			return
		}

		id, ok := raw.(string)
		if !ok {
			abortWithError(c, ErrInvalidUserID)
			return
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			abortWithError(c, ErrInvalidUserID)
			return
		}

		// bentuk kanonik supaya key rate limit dan idempotency konsisten
		c.Set(ContextUserID, parsed.String())
		c.Next()
	}
}
