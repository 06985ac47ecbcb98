package handler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/coworking-space-reservation/internal/config"
	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/policy"
	"github.com/iliyamo/coworking-space-reservation/internal/queue"
	"github.com/iliyamo/coworking-space-reservation/internal/repository"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// call runs h against a JSON request, with path params and an optional
// authenticated actor.
func call(h echo.HandlerFunc, method, body string, a *policy.Actor, params ...string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Validator = model.Validator{}
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if a != nil {
		middleware.SetActor(c, *a)
	}
	_ = h(c)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func spaceRow(id, owner int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "address", "district", "province",
		"postal_code", "tel", "region", "open_time", "close_time", "owner_id", "created_at"}).
		AddRow(id, "Hub", "1 Main St", "Pathum Wan", "Bangkok", "10330", "021234567",
			"Central", "08:00", "20:00", owner, fixedNow)
}

type recordingPublisher struct{ ch chan queue.Event }

func (p recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.ch <- ev
	return nil
}

func testConfig() config.Config {
	return config.Config{JWTSecret: "s3cret", JWTExpireDays: 1, JWTCookieExpireDays: 1, BcryptCost: bcrypt.MinCost}
}

func TestRegister_SetsCookie(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testConfig(), repository.NewUserRepo(db), repository.NewBanIssueRepo(db), nil)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("Ann", "ann@example.com", "0812345678", sqlmock.AnyArg(), "user", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	rec := call(h.Register, http.MethodPost,
		`{"name":" Ann ","email":"Ann@Example.com","phone":"0812345678","password":"secret1"}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), middleware.TokenCookie+"=")
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "7", body["data"].(map[string]any)["_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testConfig(), repository.NewUserRepo(db), repository.NewBanIssueRepo(db), nil)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	rec := call(h.Register, http.MethodPost,
		`{"name":"Ann","email":"ann@example.com","phone":"0812345678","password":"secret1"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decode(t, rec)["message"])
}

func TestRegister_InvalidInput(t *testing.T) {
	h := NewAuthHandler(testConfig(), nil, nil, nil)
	rec := call(h.Register, http.MethodPost, `{"name":"Ann","email":"nope","phone":"0812345678","password":"secret1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode(t, rec)["field"])
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	userRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "email", "phone", "role", "created_at", "password_hash"}).
			AddRow(4, "Ann", "ann@example.com", "0812345678", "user", fixedNow, hash)
	}

	t.Run("wrong password", func(t *testing.T) {
		db, mock := newMock(t)
		h := NewAuthHandler(testConfig(), repository.NewUserRepo(db), nil, nil)
		mock.ExpectQuery("SELECT .* FROM users WHERE email = \\?").
			WithArgs("ann@example.com").WillReturnRows(userRow())

		rec := call(h.Login, http.MethodPost, `{"email":"ann@example.com","password":"wrong"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", decode(t, rec)["msg"])
		assert.Empty(t, rec.Header().Get("Set-Cookie"))
	})

	t.Run("unknown email", func(t *testing.T) {
		db, mock := newMock(t)
		h := NewAuthHandler(testConfig(), repository.NewUserRepo(db), nil, nil)
		mock.ExpectQuery("SELECT .* FROM users WHERE email = \\?").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rec := call(h.Login, http.MethodPost, `{"email":"who@example.com","password":"secret1"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", decode(t, rec)["msg"])
	})

	t.Run("missing fields", func(t *testing.T) {
		h := NewAuthHandler(testConfig(), nil, nil, nil)
		rec := call(h.Login, http.MethodPost, `{"email":"ann@example.com"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Please provide an email and password", decode(t, rec)["msg"])
	})

	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		h := NewAuthHandler(testConfig(), repository.NewUserRepo(db), nil, nil)
		mock.ExpectQuery("SELECT .* FROM users WHERE email = \\?").
			WithArgs("ann@example.com").WillReturnRows(userRow())

		rec := call(h.Login, http.MethodPost, `{"email":"ANN@example.com","password":"secret1"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		tok := decode(t, rec)["token"].(string)
		claims, err := utils.ParseSessionToken("s3cret", tok)
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, uint64(4), id)
	})
}

func TestLogout(t *testing.T) {
	h := NewAuthHandler(testConfig(), nil, nil, nil)
	rec := call(h.Logout, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "token=none")
}

func TestCheckBan(t *testing.T) {
	t.Run("expired ban is repaired first", func(t *testing.T) {
		db, mock := newMock(t)
		h := NewAuthHandler(testConfig(), nil, repository.NewBanIssueRepo(db), nil)
		h.now = func() time.Time { return fixedNow }

		mock.ExpectExec("UPDATE ban_issues SET is_resolved = 1, resolved_at = end_date").
			WithArgs(fixedNow).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ban_issues WHERE user_id = \\?").
			WithArgs(5, fixedNow).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

		rec := call(h.CheckBan, http.MethodGet, "", &policy.Actor{ID: 5, Role: "user"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decode(t, rec)["isBanned"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure reports banned", func(t *testing.T) {
		db, mock := newMock(t)
		h := NewAuthHandler(testConfig(), nil, repository.NewBanIssueRepo(db), nil)
		mock.ExpectExec("UPDATE ban_issues").WillReturnError(sql.ErrConnDone)

		rec := call(h.CheckBan, http.MethodGet, "", &policy.Actor{ID: 5, Role: "user"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, true, decode(t, rec)["isBanned"])
	})

	t.Run("no actor", func(t *testing.T) {
		h := NewAuthHandler(testConfig(), nil, nil, nil)
		rec := call(h.CheckBan, http.MethodGet, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDeleteSpace_NonOwnerForbidden(t *testing.T) {
	db, mock := newMock(t)
	h := NewCoworkingSpaceHandler(repository.NewCoworkingSpaceRepo(db), repository.NewReservationStats(db), nil, nil)

	mock.ExpectQuery("SELECT .* FROM coworking_spaces cs WHERE cs.id = \\?").
		WithArgs(9).WillReturnRows(spaceRow(9, 1))

	rec := call(h.Delete, http.MethodDelete, "", &policy.Actor{ID: 2, Role: "user"}, "id", "9")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	// No DELETE was expected, so any mutation would fail here.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSpace_Owner(t *testing.T) {
	db, mock := newMock(t)
	h := NewCoworkingSpaceHandler(repository.NewCoworkingSpaceRepo(db), repository.NewReservationStats(db), nil, nil)

	mock.ExpectQuery("SELECT .* FROM coworking_spaces cs").WithArgs(9).WillReturnRows(spaceRow(9, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM reservations WHERE coworking_space_id = \\?").WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM coworking_spaces WHERE id = \\?").WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := call(h.Delete, http.MethodDelete, "", &policy.Actor{ID: 1, Role: "user"}, "id", "9")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSpace_MalformedID(t *testing.T) {
	h := NewCoworkingSpaceHandler(nil, nil, nil, nil)
	rec := call(h.Get, http.MethodGet, "", nil, "id", "not-a-number")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSpace_OwnerIsCaller(t *testing.T) {
	db, mock := newMock(t)
	h := NewCoworkingSpaceHandler(repository.NewCoworkingSpaceRepo(db), nil, nil, nil)

	mock.ExpectExec("INSERT INTO coworking_spaces").
		WillReturnResult(sqlmock.NewResult(11, 1))

	body := `{"name":"Hub","address":"1 Main St","district":"Pathum Wan","province":"Bangkok",
		"postalcode":"10330","tel":"021234567","region":"Central","openTime":"08:00","closeTime":"20:00"}`
	rec := call(h.Create, http.MethodPost, body, &policy.Actor{ID: 3, Role: "user"})

	require.Equal(t, http.StatusCreated, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "3", data["owner"])
	assert.Equal(t, "11", data["_id"])
}

func TestCreateSpace_TagValidation(t *testing.T) {
	h := NewCoworkingSpaceHandler(nil, nil, nil, nil)
	body := `{"name":"Hub","address":"1 Main St","postalcode":"10-33","openTime":"08:00","closeTime":"20:00"}`
	rec := call(h.Create, http.MethodPost, body, &policy.Actor{ID: 3, Role: "user"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "postalcode", out["field"])
	assert.Equal(t, "postalcode: must contain digits only", out["message"])
}

type countingCache struct{ purges int }

func (c *countingCache) Purge(context.Context) error {
	c.purges++
	return nil
}

func TestSpaceWrites_PurgeListingCache(t *testing.T) {
	db, mock := newMock(t)
	cache := &countingCache{}
	h := NewCoworkingSpaceHandler(repository.NewCoworkingSpaceRepo(db), nil, cache, nil)

	mock.ExpectExec("INSERT INTO coworking_spaces").WillReturnResult(sqlmock.NewResult(11, 1))
	body := `{"name":"Hub","address":"1 Main St","openTime":"08:00","closeTime":"20:00"}`
	rec := call(h.Create, http.MethodPost, body, &policy.Actor{ID: 3, Role: "user"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, cache.purges)

	mock.ExpectQuery("SELECT .* FROM coworking_spaces cs WHERE cs.id = \\?").
		WithArgs(9).WillReturnRows(spaceRow(9, 3))
	mock.ExpectExec("UPDATE coworking_spaces").WillReturnResult(sqlmock.NewResult(0, 1))
	rec = call(h.Update, http.MethodPut, `{"name":"Hub 2"}`, &policy.Actor{ID: 3, Role: "user"}, "id", "9")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, cache.purges)

	// A rejected write leaves the cache alone.
	mock.ExpectQuery("SELECT .* FROM coworking_spaces cs WHERE cs.id = \\?").
		WithArgs(9).WillReturnRows(spaceRow(9, 3))
	rec = call(h.Delete, http.MethodDelete, "", &policy.Actor{ID: 4, Role: "user"}, "id", "9")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 2, cache.purges)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var spaceViewCols = []string{"id", "name", "address", "district", "province", "postal_code", "tel",
	"region", "open_time", "close_time", "owner_id", "created_at",
	"o_id", "o_name", "o_email", "o_phone", "o_role", "o_created_at"}

func TestGetSpace_InlinesOwner(t *testing.T) {
	db, mock := newMock(t)
	h := NewCoworkingSpaceHandler(repository.NewCoworkingSpaceRepo(db), nil, nil, nil)

	mock.ExpectQuery("FROM coworking_spaces cs LEFT JOIN users o ON o.id = cs.owner_id WHERE cs.id = \\?").
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(spaceViewCols).AddRow(9, "Hub", "1 Main St", "", "", "", "", "",
			"08:00", "20:00", 3, fixedNow, 3, "Olive", "olive@example.com", "0812345678", "user", fixedNow))

	rec := call(h.Get, http.MethodGet, "", nil, "id", "9")
	require.Equal(t, http.StatusOK, rec.Code)
	owner, isObject := decode(t, rec)["data"].(map[string]any)["owner"].(map[string]any)
	require.True(t, isObject, "owner is inlined")
	assert.Equal(t, "Olive", owner["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSpaces_MissingOwnerIsNull(t *testing.T) {
	db, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	h := NewCoworkingSpaceHandler(repository.NewCoworkingSpaceRepo(db), nil, nil, nil)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM coworking_spaces").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("LEFT JOIN users o ON o.id = cs.owner_id ORDER BY cs.id LIMIT").
		WillReturnRows(sqlmock.NewRows(spaceViewCols).AddRow(9, "Hub", "1 Main St", "", "", "", "", "",
			"08:00", "20:00", 3, fixedNow, nil, nil, nil, nil, nil, nil))

	rec := call(h.List, http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	items := out["data"].([]any)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].(map[string]any)["owner"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func reservationWithSpaceRow(status string, user, owner int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "coworking_space_id", "start_date", "end_date",
		"person_count", "approval_status", "created_at",
		"cs_id", "name", "address", "district", "province", "postal_code", "tel", "region",
		"open_time", "close_time", "owner_id", "cs_created_at"}).
		AddRow(21, user, 9, fixedNow, fixedNow.Add(2*time.Hour), 2, status, fixedNow,
			9, "Hub", "1 Main St", "Pathum Wan", "Bangkok", "10330", "021234567", "Central",
			"08:00", "20:00", owner, fixedNow)
}

func TestUpdateReservation_NotPending(t *testing.T) {
	db, mock := newMock(t)
	h := NewReservationHandler(repository.NewReservationRepo(db), repository.NewCoworkingSpaceRepo(db), nil, nil)

	mock.ExpectQuery("SELECT .* FROM reservations r\\s+JOIN coworking_spaces cs").
		WithArgs(21).WillReturnRows(reservationWithSpaceRow("approved", 5, 1))

	rec := call(h.Update, http.MethodPut, `{"personCount":3}`, &policy.Actor{ID: 5, Role: "user"}, "id", "21")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReservation_ApprovalNeedsOwner(t *testing.T) {
	db, mock := newMock(t)
	h := NewReservationHandler(repository.NewReservationRepo(db), repository.NewCoworkingSpaceRepo(db), nil, nil)

	mock.ExpectQuery("SELECT .* FROM reservations r").
		WithArgs(21).WillReturnRows(reservationWithSpaceRow("pending", 5, 1))

	rec := call(h.Update, http.MethodPut, `{"approvalStatus":"approved"}`, &policy.Actor{ID: 5, Role: "user"}, "id", "21")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReservation_OwnerApproves(t *testing.T) {
	db, mock := newMock(t)
	h := NewReservationHandler(repository.NewReservationRepo(db), repository.NewCoworkingSpaceRepo(db), nil, nil)

	mock.ExpectQuery("SELECT .* FROM reservations r").
		WithArgs(21).WillReturnRows(reservationWithSpaceRow("pending", 5, 1))
	mock.ExpectExec("UPDATE reservations").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 2, "approved", 21).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := call(h.Update, http.MethodPut, `{"approvalStatus":"approved"}`, &policy.Actor{ID: 1, Role: "user"}, "id", "21")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", decode(t, rec)["data"].(map[string]any)["approvalStatus"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReservation_Stranger(t *testing.T) {
	db, mock := newMock(t)
	h := NewReservationHandler(repository.NewReservationRepo(db), nil, nil, nil)

	mock.ExpectQuery("SELECT .* FROM reservations r").
		WithArgs(21).WillReturnRows(reservationWithSpaceRow("pending", 5, 1))

	rec := call(h.Get, http.MethodGet, "", &policy.Actor{ID: 8, Role: "user"}, "id", "21")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

const reservationBody = `{"coworkingSpace":"9","startDate":"2025-03-02T09:00:00Z","endDate":"2025-03-02T11:00:00Z","personCount":2}`

func TestCreateReservation_FourthIsRejected(t *testing.T) {
	db, mock := newMock(t)
	h := NewReservationHandler(repository.NewReservationRepo(db), nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users WHERE id = \\? FOR UPDATE").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reservations WHERE user_id = \\?").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectRollback()

	rec := call(h.Create, http.MethodPost, reservationBody, &policy.Actor{ID: 5, Role: "user"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Reservation limit of 3 reached", decode(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservation_PublishesEvent(t *testing.T) {
	db, mock := newMock(t)
	pub := recordingPublisher{ch: make(chan queue.Event, 1)}
	h := NewReservationHandler(repository.NewReservationRepo(db), nil, pub, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reservations").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("SELECT id FROM coworking_spaces WHERE id = \\?").WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(5, 9, sqlmock.AnyArg(), sqlmock.AnyArg(), 2, "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectCommit()

	rec := call(h.Create, http.MethodPost, reservationBody, &policy.Actor{ID: 5, Role: "user"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", decode(t, rec)["data"].(map[string]any)["approvalStatus"])

	select {
	case ev := <-pub.ch:
		assert.Equal(t, queue.ReservationCreated, ev.Type)
		assert.Equal(t, uint64(30), ev.EntityID)
		assert.Equal(t, uint64(9), ev.SpaceID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservation_EndBeforeStart(t *testing.T) {
	h := NewReservationHandler(nil, nil, nil, nil)
	body := `{"coworkingSpace":"9","startDate":"2025-03-02T11:00:00Z","endDate":"2025-03-02T09:00:00Z"}`
	rec := call(h.Create, http.MethodPost, body, &policy.Actor{ID: 5, Role: "user"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "endDate", decode(t, rec)["field"])
}

func TestCreateBan_AlreadyBanned(t *testing.T) {
	db, mock := newMock(t)
	h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)
	h.now = func() time.Time { return fixedNow }

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ban_issues").WithArgs(5, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	body := `{"title":"Spam","description":"Repeated no-shows","endDate":"2025-04-01T00:00:00Z"}`
	rec := call(h.Create, http.MethodPost, body, &policy.Actor{ID: 1, Role: "admin"}, "id", "5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User is already banned", decode(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBan_PastEndDate(t *testing.T) {
	h := NewBanHandler(nil, nil, nil, nil)
	h.now = func() time.Time { return fixedNow }
	body := `{"title":"Spam","description":"Repeated no-shows","endDate":"2025-02-01T00:00:00Z"}`
	rec := call(h.Create, http.MethodPost, body, &policy.Actor{ID: 1, Role: "admin"}, "id", "5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "endDate", decode(t, rec)["field"])
}

func banIssueRow(user int64, resolved bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "admin_id", "title", "description",
		"created_at", "end_date", "is_resolved", "resolved_at"}).
		AddRow(40, user, 1, "Spam", "Repeated no-shows", fixedNow, fixedNow.Add(72*time.Hour), resolved, nil)
}

func TestFileAppeal_OnlyTarget(t *testing.T) {
	db, mock := newMock(t)
	h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)

	mock.ExpectQuery("SELECT .* FROM ban_issues").WithArgs(40).WillReturnRows(banIssueRow(5, false))

	rec := call(h.FileAppeal, http.MethodPost, `{"description":"It was a mistake"}`,
		&policy.Actor{ID: 6, Role: "user"}, "id", "40")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You are not this ban issue target", decode(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBan_Twice(t *testing.T) {
	db, mock := newMock(t)
	h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)
	h.now = func() time.Time { return fixedNow }

	mock.ExpectExec("UPDATE ban_issues SET is_resolved = 1, resolved_at = end_date").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE ban_issues SET is_resolved = 1, resolved_at = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM ban_issues").WithArgs(40).WillReturnRows(banIssueRow(5, true))

	rec := call(h.Resolve, http.MethodPut, "", &policy.Actor{ID: 1, Role: "admin"}, "id", "40")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["data"].(map[string]any)["isResolved"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAppeal_InvalidStatus(t *testing.T) {
	h := NewBanHandler(nil, nil, nil, nil)
	rec := call(h.ResolveAppeal, http.MethodPut, `{"resolveStatus":"pending"}`,
		&policy.Actor{ID: 1, Role: "admin"}, "id", "40", "appeal", "3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "resolveStatus", decode(t, rec)["field"])
}

func TestListUsers_Envelope(t *testing.T) {
	db, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	h := NewUserHandler(repository.NewUserRepo(db), nil)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("SELECT id, name, email, phone, role, created_at FROM users ORDER BY id LIMIT").
		WithArgs(25, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "role", "created_at"}).
			AddRow(1, "Ann", "ann@example.com", "0812345678", "admin", fixedNow))

	rec := call(h.List, http.MethodGet, "", &policy.Actor{ID: 1, Role: "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 1, body["total"])
	assert.Len(t, body["users"], 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var reservationUserCols = []string{"id", "user_id", "coworking_space_id", "start_date", "end_date",
	"person_count", "approval_status", "created_at",
	"u_id", "u_name", "u_email", "u_phone", "u_role", "u_created_at"}

func TestListBySpace_Visibility(t *testing.T) {
	cases := []struct {
		name      string
		actor     policy.Actor
		countArgs []driver.Value
		pageArgs  []driver.Value
	}{
		{"stranger sees own rows", policy.Actor{ID: 5, Role: "user"}, []driver.Value{9, 5}, []driver.Value{9, 5, 25, 0}},
		{"owner sees all", policy.Actor{ID: 1, Role: "user"}, []driver.Value{9}, []driver.Value{9, 25, 0}},
		{"admin sees all", policy.Actor{ID: 2, Role: "admin"}, []driver.Value{9}, []driver.Value{9, 25, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.MatchExpectationsInOrder(false)
			h := NewReservationHandler(repository.NewReservationRepo(db), repository.NewCoworkingSpaceRepo(db), nil, nil)

			mock.ExpectQuery("FROM coworking_spaces cs WHERE cs.id = \\?").WithArgs(9).WillReturnRows(spaceRow(9, 1))
			mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reservations r").
				WithArgs(tc.countArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
			mock.ExpectQuery("LEFT JOIN users u .* ORDER BY r.id LIMIT").
				WithArgs(tc.pageArgs...).
				WillReturnRows(sqlmock.NewRows(reservationUserCols).
					AddRow(21, 5, 9, fixedNow, fixedNow.Add(time.Hour), 1, "pending", fixedNow,
						5, "Ann", "ann@example.com", "0812345678", "user", fixedNow))

			a := tc.actor
			rec := call(h.ListBySpace, http.MethodGet, "", &a, "id", "9")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.EqualValues(t, 1, decode(t, rec)["count"])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func appealDetailRows(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "ban_issue_id", "description", "created_at", "resolve_status", "resolved_at",
		"b_id", "user_id", "admin_id", "title", "b_description", "b_created_at", "end_date", "is_resolved", "b_resolved_at"}).
		AddRow(50, 40, "It was a mistake", fixedNow, status, nil,
			40, 5, 1, "Spam", "Repeated no-shows", fixedNow, fixedNow.Add(72*time.Hour), false, nil)
}

func TestGetAppeal_Access(t *testing.T) {
	cases := []struct {
		name  string
		actor policy.Actor
		want  int
	}{
		{"target", policy.Actor{ID: 5, Role: "user"}, http.StatusOK},
		{"admin", policy.Actor{ID: 1, Role: "admin"}, http.StatusOK},
		{"stranger", policy.Actor{ID: 6, Role: "user"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)

			mock.ExpectQuery("FROM ban_appeals ap\\s+JOIN ban_issues b").
				WithArgs(50, 40).WillReturnRows(appealDetailRows("pending"))
			mock.ExpectQuery("FROM ban_appeal_comments c").WithArgs(50).
				WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "text", "created_at",
					"u_id", "u_name", "u_email", "u_phone", "u_role", "u_created_at"}).
					AddRow(60, 1, "Looking into it", fixedNow, 1, "Root", "root@example.com", "0800000000", "admin", fixedNow))

			a := tc.actor
			rec := call(h.GetAppeal, http.MethodGet, "", &a, "id", "40", "appeal", "50")
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				data := decode(t, rec)["data"].(map[string]any)
				assert.Len(t, data["comment"], 1)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestComment_StrangerForbidden(t *testing.T) {
	db, mock := newMock(t)
	h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)

	mock.ExpectQuery("SELECT .* FROM ban_issues").WithArgs(40).WillReturnRows(banIssueRow(5, false))

	rec := call(h.Comment, http.MethodPost, `{"text":"Me too"}`,
		&policy.Actor{ID: 6, Role: "user"}, "id", "40", "appeal", "50")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	// No INSERT was expected.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComment_DecidedAppeal(t *testing.T) {
	db, mock := newMock(t)
	h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)
	h.now = func() time.Time { return fixedNow }

	mock.ExpectQuery("SELECT .* FROM ban_issues").WithArgs(40).WillReturnRows(banIssueRow(5, false))
	mock.ExpectExec("INSERT INTO ban_appeal_comments").
		WithArgs(5, "Please reconsider", fixedNow, 50, 40).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM ban_appeals ap WHERE ap.id = \\? AND ap.ban_issue_id = \\?").
		WithArgs(50, 40).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ban_issue_id", "description", "created_at", "resolve_status", "resolved_at"}).
			AddRow(50, 40, "It was a mistake", fixedNow, "denied", fixedNow))

	rec := call(h.Comment, http.MethodPost, `{"text":"Please reconsider"}`,
		&policy.Actor{ID: 5, Role: "user"}, "id", "40", "appeal", "50")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Appeal is already decided", decode(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBan_ExpiresBeforeRead(t *testing.T) {
	db, mock := newMock(t)
	h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)
	h.now = func() time.Time { return fixedNow }

	mock.ExpectExec("UPDATE ban_issues SET is_resolved = 1, resolved_at = end_date").
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM ban_issues b\\s+LEFT JOIN users u").WithArgs(40).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "admin_id", "title", "description",
			"created_at", "end_date", "is_resolved", "resolved_at",
			"u_id", "u_name", "u_email", "u_phone", "u_role", "u_created_at",
			"a_id", "a_name", "a_email", "a_phone", "a_role", "a_created_at"}).
			AddRow(40, 5, 1, "Spam", "Repeated no-shows", fixedNow.Add(-72*time.Hour), fixedNow.Add(-time.Hour), true, fixedNow.Add(-time.Hour),
				5, "Ann", "ann@example.com", "0812345678", "user", fixedNow,
				1, "Root", "root@example.com", "0800000000", "admin", fixedNow))
	mock.ExpectQuery("FROM ban_appeals ap WHERE ap.ban_issue_id = \\?").WithArgs(40).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ban_issue_id", "description", "created_at", "resolve_status", "resolved_at"}))

	rec := call(h.Get, http.MethodGet, "", &policy.Actor{ID: 5, Role: "user"}, "id", "40")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "target", data["privilege"])
	assert.Equal(t, true, data["banIssue"].(map[string]any)["isResolved"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveBans_ExpiresBeforeRead(t *testing.T) {
	db, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	h := NewBanHandler(repository.NewBanIssueRepo(db), repository.NewBanAppealRepo(db), nil, nil)
	h.now = func() time.Time { return fixedNow }

	mock.ExpectExec("UPDATE ban_issues SET is_resolved = 1, resolved_at = end_date").
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ban_issues b").
		WithArgs(5, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("ORDER BY b.created_at DESC, b.id DESC LIMIT").
		WithArgs(5, fixedNow, 25, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := call(h.ListActive, http.MethodGet, "", &policy.Actor{ID: 5, Role: "user"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
