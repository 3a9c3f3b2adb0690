package middleware

import (
	"regexp"

	"go-orgstructure/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID  = "X-Request-ID"
	ContextRequestID = "request_id"
)

// request id ikut disimpan di outbox (varchar 64), jadi nilai dari klien dibatasi
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestID memakai X-Request-ID dari klien bila formatnya aman, selain itu membuat uuid baru.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		assignRequestID(c)
		c.Next()
	}
}

func assignRequestID(c *gin.Context) string {
	rid := c.GetHeader(HeaderRequestID)
	if !requestIDPattern.MatchString(rid) {
		rid = uuid.NewString()
	}

	c.Set(ContextRequestID, rid)
	c.Header(HeaderRequestID, rid)
	c.Request = c.Request.WithContext(contextutil.WithRequestID(c.Request.Context(), rid))
	return rid
}
