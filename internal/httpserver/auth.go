package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skvortsov-lab/auth_service/internal/logging"
	"github.com/skvortsov-lab/auth_service/internal/service"
	"github.com/skvortsov-lab/auth_service/internal/tokens"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      string `json:"role"`
	}

	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Register(ctx, service.RegisterParams{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			return echo.NewHTTPError(http.StatusConflict, "username already taken")
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	refreshToken := tokens.FromBearer(c.Request().Header.Get(echo.HeaderAuthorization))
	if refreshToken == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed authorization header")
	}

	pair, err := h.Svc.Refresh(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrSignatureInvalid),
			errors.Is(err, tokens.ErrMalformed),
			errors.Is(err, service.ErrTokenExpired),
			errors.Is(err, service.ErrTokenNotActive),
			errors.Is(err, service.ErrUnknownSubject):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
	}

	return c.JSON(http.StatusOK, pair)
}

// LogOut always returns 200: an absent or unrecognized token must not be
// distinguishable from a successful revocation.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	accessToken := tokens.FromBearer(c.Request().Header.Get(echo.HeaderAuthorization))

	if err := h.Svc.Logout(ctx, accessToken); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}

	return c.NoContent(http.StatusOK)
}

// Me returns the authenticated identity resolved by RequireAuth.
func (h *AuthHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"username": c.Get("username"),
		"role":     c.Get("role"),
	})
}
