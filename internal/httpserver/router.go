package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	AuthHandler *AuthHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh_token", d.AuthHandler.Refresh)

	// Logout stays outside the auth group: it must succeed even with a
	// garbage or absent token.
	e.POST("/logout", d.AuthHandler.LogOut)

	authMw := &AuthMiddleware{Svc: d.AuthHandler.Svc}

	private := e.Group("")
	private.Use(authMw.RequireAuth)
	private.GET("/me", d.AuthHandler.Me)

	admin := e.Group("/admin_only")
	admin.Use(authMw.RequireAuth, authMw.RequireAdmin)
	admin.GET("", d.AuthHandler.Me)
}
