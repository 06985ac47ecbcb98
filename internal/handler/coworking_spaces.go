package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/policy"
	"github.com/iliyamo/coworking-space-reservation/internal/repository"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// CoworkingSpaceHandler serves space listings, their mutation and the
// per-space reservation statistics.
type CoworkingSpaceHandler struct {
	base
	Spaces *repository.CoworkingSpaceRepo
	Stats  *repository.ReservationStats
	Cache  ListingCache
}

// ListingCache is implemented by middleware.CachePurger.
type ListingCache interface {
	Purge(ctx context.Context) error
}

// NewCoworkingSpaceHandler wires the handler.  cache may be nil when the
// listing is not cached.
func NewCoworkingSpaceHandler(s *repository.CoworkingSpaceRepo, st *repository.ReservationStats, cache ListingCache, log *zap.Logger) *CoworkingSpaceHandler {
	return &CoworkingSpaceHandler{base: newBase(log, nil), Spaces: s, Stats: st, Cache: cache}
}

// invalidate drops the cached listing after a write.  A failure only
// leaves entries that expire with their TTL.
func (h *CoworkingSpaceHandler) invalidate(c echo.Context) {
	if h.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), dbTimeout)
	defer cancel()
	if err := h.Cache.Purge(ctx); err != nil {
		h.log.Warn("purge space listing cache failed", zap.Error(err))
	}
}

// load fetches the space named by :id and writes 404 itself when absent;
// a nil error with ok=false means the response is already written.
func (h *CoworkingSpaceHandler) load(c echo.Context) (model.CoworkingSpace, bool, error) {
	id, valid := idParam(c, "id")
	if !valid {
		return model.CoworkingSpace{}, false, fail(c, http.StatusNotFound)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	s, err := h.Spaces.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return s, false, fail(c, http.StatusNotFound)
	case err != nil:
		return s, false, h.internal(c, "get coworking space", err)
	}
	return s, true, nil
}

// List handles GET /coworkingSpaces.
func (h *CoworkingSpaceHandler) List(c echo.Context) error {
	p := utils.ReadPagination(c, utils.DefaultLimit)
	ctx, cancel := dbCtx(c)
	defer cancel()

	spaces, total, err := h.Spaces.List(ctx, p)
	if err != nil {
		return h.internal(c, "list coworking spaces", err)
	}
	return list(c, spaces, total)
}

// Get handles GET /coworkingSpaces/:id.
func (h *CoworkingSpaceHandler) Get(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusNotFound)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	v, err := h.Spaces.GetView(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound)
	case err != nil:
		return h.internal(c, "get coworking space", err)
	}
	return ok(c, http.StatusOK, v)
}

// Create handles POST /coworkingSpaces.  The caller becomes the owner.
func (h *CoworkingSpaceHandler) Create(c echo.Context) error {
	a, found := actor(c)
	if !found || !policy.CanCreateSpace(a) {
		return unauthorized(c)
	}
	var in model.CoworkingSpaceInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	s := model.CoworkingSpace{Owner: a.ID}
	in.Apply(&s)
	if err := c.Validate(&s); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Spaces.Create(ctx, &s); err != nil {
		return h.internal(c, "create coworking space", err)
	}
	h.invalidate(c)
	return ok(c, http.StatusCreated, s)
}

// Update handles PUT /coworkingSpaces/:id for the owner or an admin.
// Omitted fields keep their value.
func (h *CoworkingSpaceHandler) Update(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	s, found, err := h.load(c)
	if !found {
		return err
	}
	if !policy.CanMutateSpace(a, s.Owner) {
		return failMsg(c, http.StatusForbidden, "Not authorized to update this coworking space")
	}
	var in model.CoworkingSpaceInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	in.Apply(&s)
	if err := c.Validate(&s); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Spaces.Update(ctx, s); err != nil {
		return h.internal(c, "update coworking space", err)
	}
	h.invalidate(c)
	return ok(c, http.StatusOK, s)
}

// Delete handles DELETE /coworkingSpaces/:id.  Authorization is checked
// before anything is removed; the space and its reservations go in one
// transaction.
func (h *CoworkingSpaceHandler) Delete(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	s, found, err := h.load(c)
	if !found {
		return err
	}
	if !policy.CanMutateSpace(a, s.Owner) {
		return failMsg(c, http.StatusForbidden, "Not authorized to delete this coworking space")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	removed, err := h.Spaces.Delete(ctx, s.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "delete coworking space", err)
	}
	h.invalidate(c)
	h.log.Info("coworking space deleted",
		zap.Uint64("coworking_space_id", s.ID), zap.Int64("reservations_removed", removed))
	return ok(c, http.StatusOK, echo.Map{})
}

// Frequency handles GET /coworkingSpaces/:id/frequency.
func (h *CoworkingSpaceHandler) Frequency(c echo.Context) error {
	s, found, err := h.load(c)
	if !found {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	f, err := h.Stats.Frequency(ctx, s.ID)
	if err != nil {
		return h.internal(c, "reservation frequency", err)
	}
	return ok(c, http.StatusOK, f)
}

// TotalReservation handles GET /coworkingSpaces/:id/totalReservation.
func (h *CoworkingSpaceHandler) TotalReservation(c echo.Context) error {
	s, found, err := h.load(c)
	if !found {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	t, err := h.Stats.StatusTotals(ctx, s.ID)
	if err != nil {
		return h.internal(c, "reservation totals", err)
	}
	return ok(c, http.StatusOK, t)
}
