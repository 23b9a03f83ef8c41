package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"case_track_app_go/db"
	"case_track_app_go/models"
	"case_track_app_go/services"
)

const (
	// ContextKeyUser is the context key for the authenticated attorney
	ContextKeyUser = "user"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
)

// RequireAuth validates the bearer session token on attorney API requests.
// Token issuance happens in the identity service; this only checks that a
// presented token maps to a live session.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			}

			session, err := services.ValidateSession(db.DB, token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Invalid or expired session."})
			}

			if !session.User.IsActive {
				return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Invalid or expired session."})
			}

			c.Set(ContextKeyUser, &session.User)
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

// GetCurrentUser returns the authenticated attorney from the request context
func GetCurrentUser(c echo.Context) *models.User {
	if user, ok := c.Get(ContextKeyUser).(*models.User); ok {
		return user
	}
	return nil
}
