package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skvortsov-lab/auth_service/internal/service"
	"github.com/skvortsov-lab/auth_service/internal/tokens"
)

type AuthMiddleware struct {
	Svc *service.AuthService
}

// RequireAuth admits only requests carrying a live bearer access token:
// signature, expiry and ledger activity are all checked.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		accessToken := tokens.FromBearer(c.Request().Header.Get(echo.HeaderAuthorization))
		if accessToken == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Svc.ValidateAccess(ctx, accessToken)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := m.Svc.Repo.FindUserByUsername(ctx, claims.Username())
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set("username", user.Username)
		c.Set("role", user.Role)

		return next(c)
	}
}

func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if role, _ := c.Get("role").(string); role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}
