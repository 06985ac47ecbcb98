package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/repository"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// UserHandler serves the user directory.
type UserHandler struct {
	base
	Users *repository.UserRepo
}

func NewUserHandler(u *repository.UserRepo, log *zap.Logger) *UserHandler {
	return &UserHandler{base: newBase(log, nil), Users: u}
}

// List handles GET /users (admin).  Pages are zero-based like every other
// listing.
func (h *UserHandler) List(c echo.Context) error {
	p := utils.ReadPagination(c, utils.DefaultLimit)
	ctx, cancel := dbCtx(c)
	defer cancel()

	users, total, err := h.Users.List(ctx, p)
	if err != nil {
		return h.internal(c, "list users", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"count":   len(users),
		"total":   total,
		"users":   users,
	})
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusNotFound)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "get user", err)
	}
	return ok(c, http.StatusOK, u)
}
