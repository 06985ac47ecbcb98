package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/policy"
	"github.com/iliyamo/coworking-space-reservation/internal/queue"
)

const dbTimeout = 5 * time.Second

// EventPublisher is implemented by service.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// base carries what every handler needs: a logger, the event publisher
// and a clock.
type base struct {
	log    *zap.Logger
	events EventPublisher
	now    func() time.Time
}

func newBase(log *zap.Logger, events EventPublisher) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{log: log, events: events, now: func() time.Time { return time.Now().UTC() }}
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// emit publishes ev in the background; the response never waits for the
// broker.
func (b base) emit(ev queue.Event) {
	if b.events == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = b.now()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		if err := b.events.Publish(ctx, ev); err != nil {
			b.log.Warn("publish event failed", zap.String("type", ev.Type), zap.Error(err))
		}
	}()
}

// internal logs err and answers 500 without detail.
func (b base) internal(c echo.Context, op string, err error) error {
	b.log.Error(op, zap.Error(err), zap.String("path", c.Request().URL.Path))
	return fail(c, http.StatusInternalServerError)
}

func fail(c echo.Context, status int) error {
	return c.JSON(status, echo.Map{"success": false})
}

func failMsg(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// invalidInput answers 400 for bind and validation errors.
func invalidInput(c echo.Context, err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": ve.Error(), "field": ve.Field})
	}
	return failMsg(c, http.StatusBadRequest, "Invalid request body")
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// list writes the pagination-with-total envelope.
func list[T any](c echo.Context, data []T, total int) error {
	if data == nil {
		data = []T{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"count":   len(data),
		"total":   total,
		"data":    data,
	})
}

// idParam parses a numeric path parameter.  A malformed id cannot match
// any row, so callers answer 404.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// actor returns the authenticated caller.  Routes that call it sit behind
// JWTAuth, so a missing actor is a wiring error and answers 401.
func actor(c echo.Context) (policy.Actor, bool) {
	return middleware.ActorFrom(c)
}

func unauthorized(c echo.Context) error {
	return failMsg(c, http.StatusUnauthorized, "Not authorized to access this route")
}
