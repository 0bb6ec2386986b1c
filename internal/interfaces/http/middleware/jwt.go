package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rkbridge/backend/internal/infrastructure/auth"
	"github.com/rkbridge/backend/internal/infrastructure/logger"
	"github.com/rkbridge/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// JWTClaimsKey is the gin context key of the validated claims
	JWTClaimsKey = "jwt_claims"
	bearerPrefix = "Bearer "
)

// JWTAuth requires a bearer token carrying scope. A service without a
// secret lets every request through and says so once at startup.
func JWTAuth(svc *auth.JWTService, scope string, log *zap.Logger) gin.HandlerFunc {
	if !svc.Enabled() {
		log.Warn("JWT secret not configured, POS endpoints are unauthenticated")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || len(header) == len(bearerPrefix) {
			abortAuth(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Missing bearer token")
			return
		}

		claims, err := svc.Validate(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortAuth(c, http.StatusUnauthorized, dto.ErrCodeTokenExpired, "Token has expired")
				return
			}
			abortAuth(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid token")
			return
		}
		if !claims.HasScope(scope) {
			abortAuth(c, http.StatusForbidden, dto.ErrCodeForbidden, "Token lacks scope "+scope)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithOperator(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, logger.GetRequestID(c.Request.Context())))
}

// GetClaims returns the validated claims, or nil on unauthenticated routes
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
