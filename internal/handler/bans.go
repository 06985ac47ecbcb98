package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/policy"
	"github.com/iliyamo/coworking-space-reservation/internal/queue"
	"github.com/iliyamo/coworking-space-reservation/internal/repository"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// BanHandler serves ban issues, their appeals and appeal comments.
type BanHandler struct {
	base
	Issues  *repository.BanIssueRepo
	Appeals *repository.BanAppealRepo
}

func NewBanHandler(i *repository.BanIssueRepo, a *repository.BanAppealRepo, events EventPublisher, log *zap.Logger) *BanHandler {
	return &BanHandler{base: newBase(log, events), Issues: i, Appeals: a}
}

// expire runs the lazy expiry before a ban-status read.  Failure is logged
// and the read goes ahead.
func (h *BanHandler) expire(c echo.Context) {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Issues.ResolveExpired(ctx, h.now()); err != nil {
		h.log.Warn("resolve expired bans", zap.Error(err))
	}
}

// loadIssue fetches the issue named by :id; ok=false means the response
// has been written.
func (h *BanHandler) loadIssue(c echo.Context) (model.BanIssue, bool, error) {
	id, valid := idParam(c, "id")
	if !valid {
		return model.BanIssue{}, false, fail(c, http.StatusNotFound)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	b, err := h.Issues.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return b, false, failMsg(c, http.StatusNotFound, "Ban issue not found")
	case err != nil:
		return b, false, h.internal(c, "get ban issue", err)
	}
	return b, true, nil
}

// ListActive handles GET /banIssues: every active ban for admins, the
// caller's own active bans for everyone else.
func (h *BanHandler) ListActive(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	h.expire(c)

	q := repository.BanIssueQuery{ActiveOnly: true, Now: h.now()}
	if !a.IsAdmin() {
		q.UserID = a.ID
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	items, total, err := h.Issues.List(ctx, q, utils.ReadPagination(c, utils.DefaultLimit))
	if err != nil {
		return h.internal(c, "list active ban issues", err)
	}
	return list(c, items, total)
}

// ListForUser handles GET /banIssues/user/:id: the full ban history of a
// user, visible to that user and to admins.
func (h *BanHandler) ListForUser(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	userID, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusNotFound)
	}
	if !policy.CanViewUserBans(a, userID) {
		return fail(c, http.StatusForbidden)
	}
	h.expire(c)

	ctx, cancel := dbCtx(c)
	defer cancel()
	items, total, err := h.Issues.List(ctx, repository.BanIssueQuery{UserID: userID},
		utils.ReadPagination(c, utils.DefaultLimit))
	if err != nil {
		return h.internal(c, "list user ban issues", err)
	}
	return list(c, items, total)
}

// Get handles GET /banIssues/:id: the issue with target and admin, its
// appeals without comments, and the caller's privilege label.
func (h *BanHandler) Get(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	id, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusNotFound)
	}
	h.expire(c)

	ctx, cancel := dbCtx(c)
	defer cancel()

	v, err := h.Issues.GetView(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "get ban issue", err)
	}
	if !policy.CanViewBanIssue(a, v.BanIssue.User) {
		return fail(c, http.StatusForbidden)
	}
	appeals, err := h.Appeals.ListByIssue(ctx, id)
	if err != nil {
		return h.internal(c, "list ban appeals", err)
	}
	return ok(c, http.StatusOK, model.BanIssueDetail{
		BanIssue:   v,
		BanAppeals: appeals,
		Privilege:  policy.BanPrivilege(a, v.BanIssue.User),
	})
}

// Create handles POST /banIssues/user/:id (admin).
func (h *BanHandler) Create(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	targetID, valid := idParam(c, "id")
	if !valid {
		return failMsg(c, http.StatusNotFound, "User not found")
	}
	var in model.BanIssueInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	in.Normalize()
	if err := c.Validate(&in); err != nil {
		return invalidInput(c, err)
	}
	now := h.now()
	if err := in.CheckEndDate(now); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	b, err := h.Issues.Create(ctx, targetID, a.ID, in, now)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return failMsg(c, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrAlreadyBanned):
		return failMsg(c, http.StatusBadRequest, "User is already banned")
	case err != nil:
		return h.internal(c, "create ban issue", err)
	}
	h.emit(queue.Event{Type: queue.BanIssued, ActorID: a.ID, EntityID: b.ID, UserID: b.User})
	return ok(c, http.StatusCreated, b)
}

// Resolve handles PUT /banIssues/:id (admin).  A resolved issue is not
// touched again; its stored state is returned with success=false.
func (h *BanHandler) Resolve(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	id, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusNotFound)
	}
	h.expire(c)

	ctx, cancel := dbCtx(c)
	defer cancel()

	b, err := h.Issues.Resolve(ctx, id, h.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound)
	case errors.Is(err, repository.ErrAlreadyResolved):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Ban issue already resolved", "data": b})
	case err != nil:
		return h.internal(c, "resolve ban issue", err)
	}
	h.emit(queue.Event{Type: queue.BanResolved, ActorID: a.ID, EntityID: b.ID, UserID: b.User})
	return ok(c, http.StatusOK, b)
}

// FileAppeal handles POST /banIssues/:id.  Only the target may appeal, once,
// and only while the issue is active.
func (h *BanHandler) FileAppeal(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	b, found, err := h.loadIssue(c)
	if !found {
		return err
	}
	if !policy.CanAppeal(a, b.User) {
		return failMsg(c, http.StatusForbidden, "You are not this ban issue target")
	}
	var in model.BanAppealInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	in.Normalize()
	if err := c.Validate(&in); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	ap, err := h.Appeals.Create(ctx, b.ID, in, h.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return failMsg(c, http.StatusNotFound, "Ban issue not found")
	case errors.Is(err, repository.ErrAlreadyResolved):
		return failMsg(c, http.StatusBadRequest, "Ban issue is no longer active")
	case errors.Is(err, repository.ErrAppealExists):
		return failMsg(c, http.StatusBadRequest, "Ban issue already has an appeal")
	case err != nil:
		return h.internal(c, "create ban appeal", err)
	}
	h.emit(queue.Event{Type: queue.AppealFiled, ActorID: a.ID, EntityID: ap.ID, BanIssueID: b.ID, UserID: b.User})
	return ok(c, http.StatusCreated, ap)
}

// GetAppeal handles GET /banIssues/:id/:appeal.
func (h *BanHandler) GetAppeal(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	issueID, okIssue := idParam(c, "id")
	appealID, okAppeal := idParam(c, "appeal")
	if !okIssue || !okAppeal {
		return fail(c, http.StatusNotFound)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	d, err := h.Appeals.GetDetail(ctx, issueID, appealID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "get ban appeal", err)
	}
	if !policy.CanViewBanIssue(a, d.BanIssue.User) {
		return fail(c, http.StatusForbidden)
	}
	return ok(c, http.StatusOK, d)
}

// Comment handles POST /banIssues/:id/:appeal.  The target and admins
// discuss a pending appeal; comments are append-only.
func (h *BanHandler) Comment(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	b, found, err := h.loadIssue(c)
	if !found {
		return err
	}
	appealID, valid := idParam(c, "appeal")
	if !valid {
		return fail(c, http.StatusNotFound)
	}
	if !policy.CanComment(a, b.User) {
		return fail(c, http.StatusForbidden)
	}
	var in model.CommentInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	in.Normalize()
	if err := c.Validate(&in); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	cm, err := h.Appeals.AddComment(ctx, b.ID, appealID, a.ID, in, h.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound)
	case errors.Is(err, repository.ErrNotPending):
		return failMsg(c, http.StatusBadRequest, "Appeal is already decided")
	case err != nil:
		return h.internal(c, "add appeal comment", err)
	}
	return ok(c, http.StatusCreated, cm)
}

// ResolveAppeal handles PUT /banIssues/:id/:appeal (admin).  The decision
// is applied at most once; "resolved" also lifts the ban.
func (h *BanHandler) ResolveAppeal(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	issueID, okIssue := idParam(c, "id")
	appealID, okAppeal := idParam(c, "appeal")
	if !okIssue || !okAppeal {
		return fail(c, http.StatusNotFound)
	}
	var in model.AppealDecision
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	if err := c.Validate(&in); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	ap, err := h.Appeals.Resolve(ctx, issueID, appealID, in.ResolveStatus, h.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound)
	case errors.Is(err, repository.ErrNotPending):
		return failMsg(c, http.StatusBadRequest, "Appeal is already decided")
	case err != nil:
		return h.internal(c, "resolve ban appeal", err)
	}
	h.emit(queue.Event{Type: queue.AppealResolved, ActorID: a.ID, EntityID: ap.ID, BanIssueID: issueID, Status: ap.ResolveStatus})
	if ap.ResolveStatus == model.AppealResolved {
		h.emit(queue.Event{Type: queue.BanResolved, ActorID: a.ID, EntityID: issueID})
	}
	return ok(c, http.StatusOK, ap)
}

// ListAppeals handles GET /banAppeals (admin).
func (h *BanHandler) ListAppeals(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	items, total, err := h.Appeals.List(ctx, utils.ReadPagination(c, utils.DefaultLimit))
	if err != nil {
		return h.internal(c, "list ban appeals", err)
	}
	return list(c, items, total)
}
