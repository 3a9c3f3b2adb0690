package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenNotFound = apperror.New(apperror.CodeUnauthorized, "Token not found", http.StatusUnauthorized)
	ErrInvalidToken  = apperror.New(apperror.CodeInvalidToken, "Invalid token", http.StatusUnauthorized)
	ErrTokenExpired  = apperror.New(apperror.CodeTokenExpired, "Token has expired", http.StatusUnauthorized)
)

// AuthMiddleware hanya memverifikasi identitas pemanggil (claim user_id).
// Hak akses di-resolve terpisah oleh ResolveActor.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}

		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			abortWithError(c, ErrTokenNotFound)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			errObj := ErrInvalidToken
			if errors.Is(err, jwt.ErrTokenExpired) {
				errObj = ErrTokenExpired
			}
			abortWithError(c, errObj)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWithError(c, ErrInvalidToken)
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			abortWithError(c, ErrInvalidToken.WithDetails(map[string]string{"claim": "user_id"}))
			return
		}

		c.Set(ContextTokenUserID, userID)
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	response.Fail(c, err)
	c.Abort()
}
