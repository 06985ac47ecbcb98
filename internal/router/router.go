// Package router registers the HTTP routes of the API on an Echo instance.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-space-reservation/internal/handler"
	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
	"github.com/iliyamo/coworking-space-reservation/internal/model"
)

// Prefix is the mount point of every versioned route.
const Prefix = "/api/v1"

// RegisterRoutes registers the unauthenticated liveness endpoints.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers /auth.  Register, login and logout need no
// session; me and checkBan do.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group(Prefix + "/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/logout", a.Logout)

	auth := middleware.JWTAuth(jwtSecret)
	g.GET("/me", a.Me, auth)
	g.GET("/checkBan", a.CheckBan, auth)
}

// RegisterUsers registers the user directory.  Listing is admin only.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	g := e.Group(Prefix + "/users")
	g.GET("", u.List, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("/:id", u.Get)
}
