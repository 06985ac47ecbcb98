package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-space-reservation/internal/policy"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// TokenCookie is the name of the cookie carrying the session token.
const TokenCookie = "token"

const actorKey = "actor"

// rawToken returns the session token from the Authorization header or,
// failing that, from the token cookie.  Logout leaves the literal "none"
// in the cookie, which never parses.
func rawToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(TokenCookie); err == nil && ck.Value != "none" {
		return ck.Value
	}
	return ""
}

func actorFromToken(secret, raw string) (policy.Actor, bool) {
	if raw == "" {
		return policy.Actor{}, false
	}
	claims, err := utils.ParseSessionToken(secret, raw)
	if err != nil {
		return policy.Actor{}, false
	}
	id, err := claims.UserID()
	if err != nil || id == 0 {
		return policy.Actor{}, false
	}
	return policy.Actor{ID: id, Role: claims.Role}, true
}

// JWTAuth rejects requests without a valid session token and stores the
// token's actor in the context for ActorFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := actorFromToken(secret, rawToken(c))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "Not authorized to access this route",
				})
			}
			c.Set(actorKey, a)
			return next(c)
		}
	}
}

// ReadToken is the optional form of JWTAuth: a valid token sets the actor,
// anything else lets the request through anonymously.
func ReadToken(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if a, ok := actorFromToken(secret, rawToken(c)); ok {
				c.Set(actorKey, a)
			}
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by JWTAuth or ReadToken.
func ActorFrom(c echo.Context) (policy.Actor, bool) {
	a, ok := c.Get(actorKey).(policy.Actor)
	return a, ok
}

// SetActor stores a; handler tests use it to skip token parsing.
func SetActor(c echo.Context, a policy.Actor) { c.Set(actorKey, a) }
