package middleware

import (
	"net/http"
	"sync"

	"go-orgstructure/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var ErrTooManyRequests = apperror.New(apperror.CodeTooManyRequests, "Too many requests", http.StatusTooManyRequests)

// KeyedRateLimiter menyimpan satu token bucket per key (IP atau user).
type KeyedRateLimiter struct {
	keys map[string]*rate.Limiter
	mu   *sync.RWMutex
	r    rate.Limit // jumlah request per detik
	b    int        // burst (kapasitas kantong)
}

func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		keys: make(map[string]*rate.Limiter),
		mu:   &sync.RWMutex{},
		r:    r,
		b:    b,
	}
}

func (i *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.keys[key]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.keys[key] = limiter
	}

	return limiter
}

func RateLimitByIP(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			abortWithError(c, ErrTooManyRequests.WithDetails(map[string]string{"scope": "ip"}))
			return
		}
		c.Next()
	}
}

// RateLimitByUser: r = request per detik, b = burst
func RateLimitByUser(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.Next() // belum login: biarkan middleware auth yang menolak
			return
		}
		if !limiter.GetLimiter(userID).Allow() {
			abortWithError(c, ErrTooManyRequests.WithDetails(map[string]string{"scope": "user"}))
			return
		}
		c.Next()
	}
}
