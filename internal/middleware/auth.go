package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/epessoa/epessoa/internal/models"
	"github.com/epessoa/epessoa/internal/tokens"
)

const (
	ContextUsername = "username"
	ContextRole     = "role"
)

type Auth struct {
	AccessSecret []byte
}

func NewAuth(accessSecret []byte) *Auth {
	return &Auth{AccessSecret: accessSecret}
}

// RequireAuth validates the bearer access token and stores the verified
// subject and role on the echo context. No ambient security holder: callers
// read the identity from the context they were handed.
func (a *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		claims, err := tokens.AccessClaimsFromToken(tokenStr, a.AccessSecret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		c.Set(ContextUsername, claims.Subject)
		c.Set(ContextRole, claims.Role)
		return next(c)
	}
}

// RequireAdmin must run after RequireAuth.
func (a *Auth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get(ContextRole).(string)
		if role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}
