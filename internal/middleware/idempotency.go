package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/contextutil"
	"go-orgstructure/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ContextIdempotencyCacheKey = "idempotency_cache_key"
	ContextIdempotencyLockKey  = "idempotency_lock_key"

	IdempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second

	maxIdempotencyKeyLen = 128
)

var ErrRequestInProgress = apperror.New(
	apperror.CodeProcessing,
	"The same request is still being processed, please wait",
	http.StatusConflict,
)

// Idempotency untuk POST dengan header Idempotency-Key.
// Handler yang memakai ini wajib menyimpan hasil ke cache key dan menghapus lock key.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader("Idempotency-Key")
		userID := c.GetString(ContextUserID)

		if rdb == nil || idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		if len(idempKey) > maxIdempotencyKeyLen {
			abortWithError(c, apperror.Validation("Idempotency-Key", fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLen)))
			return
		}

		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), userID, idempKey)
		lockKey := cacheKey + ":lock"

		// 1. Hasil request sebelumnya
		val, err := rdb.Get(c.Request.Context(), cacheKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			// redis bermasalah: request tetap diproses tanpa jaminan idempoten
			contextutil.GetLogger(c.Request.Context(), zap.L()).Warn("idempotency lookup failed", zap.Error(err))
		}
		if err == nil {
			var cachedRes any
			if json.Unmarshal([]byte(val), &cachedRes) == nil {
				response.Success(c, http.StatusOK, cachedRes, nil)
				c.Abort()
				return
			}
		}

		// 2. Lock atomik; TTL pendek supaya lock tidak tertinggal saat server crash
		isNew, err := rdb.SetNX(c.Request.Context(), lockKey, "locked", idempotencyLockTTL).Result()
		if err == nil && !isNew {
			abortWithError(c, ErrRequestInProgress)
			return
		}

		c.Set(ContextIdempotencyCacheKey, cacheKey)
		c.Set(ContextIdempotencyLockKey, lockKey)

		ctx := contextutil.WithIdempotencyKey(c.Request.Context(), idempKey)
		log := contextutil.GetLogger(ctx, zap.L()).With(zap.String("idempotency_key", idempKey))
		c.Request = c.Request.WithContext(contextutil.WithLogger(ctx, log))

		c.Next()
	}
}
