package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-space-reservation/internal/handler"
	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
)

// RegisterReservations registers /reservations.  Every route needs a
// session; per-reservation access is decided in the handler.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group(Prefix+"/reservations", middleware.JWTAuth(jwtSecret))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/coworkingSpaces/:id", h.ListBySpace)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
