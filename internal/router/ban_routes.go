package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-space-reservation/internal/handler"
	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
	"github.com/iliyamo/coworking-space-reservation/internal/model"
)

// RegisterBans registers /banIssues and /banAppeals.  Issuing, resolving
// and deciding appeals are admin only; targets read their own bans, appeal
// and comment.
func RegisterBans(e *echo.Echo, h *handler.BanHandler, jwtSecret string) {
	admin := middleware.RequireRole(model.RoleAdmin)

	g := e.Group(Prefix+"/banIssues", middleware.JWTAuth(jwtSecret))
	g.GET("", h.ListActive)
	g.GET("/user/:id", h.ListForUser)
	g.POST("/user/:id", h.Create, admin)
	g.GET("/:id", h.Get)
	g.POST("/:id", h.FileAppeal)
	g.PUT("/:id", h.Resolve, admin)
	g.GET("/:id/:appeal", h.GetAppeal)
	g.POST("/:id/:appeal", h.Comment)
	g.PUT("/:id/:appeal", h.ResolveAppeal, admin)

	e.GET(Prefix+"/banAppeals", h.ListAppeals, middleware.JWTAuth(jwtSecret), admin)
}
