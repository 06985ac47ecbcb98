package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole lets through only actors whose role is one of roles.  It must
// run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false})
			}
			if !allowed[a.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"message": fmt.Sprintf("User role %s is not authorized to access this route", a.Role),
				})
			}
			return next(c)
		}
	}
}
