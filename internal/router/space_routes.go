package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-space-reservation/internal/handler"
	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
)

// SpacesPath is the route of the cached space listing.
const SpacesPath = Prefix + "/coworkingSpaces"

// RegisterCoworkingSpaces registers /coworkingSpaces.  Browsing is public
// and the listing goes through the response cache when one is given.
func RegisterCoworkingSpaces(e *echo.Echo, h *handler.CoworkingSpaceHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(SpacesPath)
	auth := middleware.JWTAuth(jwtSecret)

	if cache != nil {
		g.GET("", h.List, cache)
	} else {
		g.GET("", h.List)
	}
	g.GET("/:id", h.Get)
	g.POST("", h.Create, auth)
	g.PUT("/:id", h.Update, auth)
	g.DELETE("/:id", h.Delete, auth)
	g.GET("/:id/frequency", h.Frequency, auth)
	g.GET("/:id/totalReservation", h.TotalReservation, auth)
}
