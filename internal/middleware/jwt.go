package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	"github.com/mentix-trading/mentix-api/pkg/response"
)

const (
	// ContextAdminKey is the gin context key storing the admin session claims.
	ContextAdminKey = "adminSession"
	// SessionCookie carries the admin session for browser clients.
	SessionCookie = "admin_session"
)

// SessionValidator verifies admin session tokens.
type SessionValidator interface {
	ValidateToken(token string) (*models.AdminClaims, error)
}

// AdminSession protects routes by requiring a valid admin session, read from
// the Authorization header or the session cookie.
func AdminSession(validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := sessionToken(c)
		if err != nil {
			response.Abort(c, err)
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}

func sessionToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", appErrors.ErrUnauthorized
}
