package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Root answers GET / so load balancers and humans can see the API is up.
func Root(c echo.Context) error {
	return c.String(http.StatusOK, "Co-Working Space API is running!")
}

// Health pings the database and reports ok or 503.
func Health(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "db": "down"})
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "db": "up"})
	}
}
