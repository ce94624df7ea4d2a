package middleware

import (
	"errors"
	"net/http"
	"strings"

	"thsnd/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user's id.
const UserIDKey = "user_id"

type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token: 401 when no
// token is presented, 403 when it is invalid or expired.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))

		claims, err := validator.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrMissingToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied. No token provided."})
			case errors.Is(err, jwt.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token expired."})
			default:
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token."})
			}
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID returns the id stored by AuthMiddleware.
func UserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
