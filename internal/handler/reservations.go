package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/policy"
	"github.com/iliyamo/coworking-space-reservation/internal/queue"
	"github.com/iliyamo/coworking-space-reservation/internal/repository"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// ownReservationsLimit is the default page size of GET /reservations.
const ownReservationsLimit = 10

// ReservationHandler serves reservation CRUD and listings.
type ReservationHandler struct {
	base
	Reservations *repository.ReservationRepo
	Spaces       *repository.CoworkingSpaceRepo
}

func NewReservationHandler(r *repository.ReservationRepo, s *repository.CoworkingSpaceRepo, events EventPublisher, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{base: newBase(log, events), Reservations: r, Spaces: s}
}

// readFilter parses ?min, ?max, ?status and ?search.  Unparsable bounds
// are ignored and a search that does not compile matches nothing.
func readFilter(c echo.Context) repository.ReservationFilter {
	f := repository.ReservationFilter{
		Min:      intQuery(c, "min"),
		Max:      intQuery(c, "max"),
		Statuses: model.ParseStatusFilter(c.QueryParam("status")),
	}
	if s := c.QueryParam("search"); s != "" {
		f.Search = utils.ValidateRegex(s)
	}
	return f
}

func intQuery(c echo.Context, name string) *int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &n
}

// loadAccessible fetches :id and checks that the caller may touch it.
// ok=false means the response has been written.
func (h *ReservationHandler) loadAccessible(c echo.Context, a policy.Actor) (model.ReservationWithSpace, bool, error) {
	id, valid := idParam(c, "id")
	if !valid {
		return model.ReservationWithSpace{}, false, fail(c, http.StatusNotFound)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	r, err := h.Reservations.GetWithSpace(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return r, false, fail(c, http.StatusNotFound)
	case err != nil:
		return r, false, h.internal(c, "get reservation", err)
	}
	if !policy.CanAccessReservation(a, r.Reservation.User, r.CoworkingSpace.Owner) {
		return r, false, fail(c, http.StatusForbidden)
	}
	return r, true, nil
}

// List handles GET /reservations: the caller's own reservations with the
// booked space inlined.
func (h *ReservationHandler) List(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	p := utils.ReadPagination(c, ownReservationsLimit)
	ctx, cancel := dbCtx(c)
	defer cancel()

	items, total, err := h.Reservations.ListByUser(ctx, a.ID, readFilter(c), p)
	if err != nil {
		return h.internal(c, "list reservations", err)
	}
	return list(c, items, total)
}

// ListBySpace handles GET /reservations/coworkingSpaces/:id.  The owner
// and admins see every reservation, anyone else only their own.
func (h *ReservationHandler) ListBySpace(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	spaceID, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusNotFound)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	s, err := h.Spaces.GetByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "get coworking space", err)
	}
	var onlyUser uint64
	if !policy.CanSeeAllReservationsOfSpace(a, s.Owner) {
		onlyUser = a.ID
	}
	items, total, err := h.Reservations.ListBySpace(ctx, s.ID, onlyUser, readFilter(c), utils.ReadPagination(c, utils.DefaultLimit))
	if err != nil {
		return h.internal(c, "list space reservations", err)
	}
	return list(c, items, total)
}

// Get handles GET /reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	r, found, err := h.loadAccessible(c, a)
	if !found {
		return err
	}
	return ok(c, http.StatusOK, r)
}

// Create handles POST /reservations.  The booking always starts pending.
func (h *ReservationHandler) Create(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	var in model.ReservationInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	in.Normalize()
	if err := c.Validate(&in); err != nil {
		return invalidInput(c, err)
	}
	if err := in.CheckDates(); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	r, err := h.Reservations.Create(ctx, a.ID, a.IsAdmin(), in)
	switch {
	case errors.Is(err, repository.ErrReservationLimit):
		return failMsg(c, http.StatusBadRequest, "Reservation limit of 3 reached")
	case errors.Is(err, repository.ErrNotFound):
		return failMsg(c, http.StatusNotFound, "Coworking space not found")
	case err != nil:
		return h.internal(c, "create reservation", err)
	}
	h.emit(queue.Event{
		Type: queue.ReservationCreated, ActorID: a.ID, EntityID: r.ID,
		UserID: r.User, SpaceID: r.CoworkingSpace, Status: r.ApprovalStatus,
	})
	return ok(c, http.StatusCreated, r)
}

// Update handles PUT /reservations/:id.  Only pending reservations change;
// approving or rejecting is reserved for the space owner and admins.
func (h *ReservationHandler) Update(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	cur, found, err := h.loadAccessible(c, a)
	if !found {
		return err
	}
	if cur.ApprovalStatus != model.StatusPending {
		return failMsg(c, http.StatusBadRequest, "Only pending reservations can be changed")
	}
	var patch model.ReservationPatch
	if err := c.Bind(&patch); err != nil {
		return invalidInput(c, err)
	}
	if patch.ApprovalStatus != nil && !policy.CanSetApprovalStatus(a, *patch.ApprovalStatus, cur.CoworkingSpace.Owner) {
		return failMsg(c, http.StatusForbidden, "Only the space owner or an admin can approve or reject")
	}
	next := cur.Reservation
	if err := patch.Apply(&next); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Reservations.Update(ctx, next); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotPending):
			return failMsg(c, http.StatusBadRequest, "Only pending reservations can be changed")
		case errors.Is(err, repository.ErrNotFound):
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "update reservation", err)
	}
	h.emit(queue.Event{
		Type: queue.ReservationUpdated, ActorID: a.ID, EntityID: next.ID,
		UserID: next.User, SpaceID: next.CoworkingSpace, Status: next.ApprovalStatus,
	})
	return ok(c, http.StatusOK, next)
}

// Delete handles DELETE /reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	r, found, err := h.loadAccessible(c, a)
	if !found {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Reservations.Delete(ctx, r.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "delete reservation", err)
	}
	h.emit(queue.Event{
		Type: queue.ReservationDeleted, ActorID: a.ID, EntityID: r.ID,
		UserID: r.Reservation.User, SpaceID: r.CoworkingSpace.ID,
	})
	return ok(c, http.StatusOK, echo.Map{})
}
