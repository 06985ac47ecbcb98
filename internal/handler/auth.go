package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/config"
	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/repository"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	base
	Cfg   config.Config
	Users *repository.UserRepo
	Bans  *repository.BanIssueRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, b *repository.BanIssueRepo, log *zap.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(log, nil), Cfg: cfg, Users: u, Bans: b}
}

type authUser struct {
	ID    uint64 `json:"_id,string"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// sendToken signs a session token for u, sets it as the httpOnly token
// cookie and echoes it in the body.
func (h *AuthHandler) sendToken(c echo.Context, status int, u model.User) error {
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.JWTExpireDays)
	if err != nil {
		return h.internal(c, "sign session token", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    tok.Token,
		Path:     "/",
		Expires:  h.now().Add(time.Duration(h.Cfg.JWTCookieExpireDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
	})
	return c.JSON(status, echo.Map{
		"success": true,
		"token":   tok.Token,
		"data":    authUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
	})
}

// Register handles POST /auth/register.  New accounts always get the user
// role.
func (h *AuthHandler) Register(c echo.Context) error {
	var in model.RegisterInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	in.Normalize()
	if err := c.Validate(&in); err != nil {
		return invalidInput(c, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, in, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return failMsg(c, http.StatusBadRequest, "Email already exists")
		}
		return h.internal(c, "create user", err)
	}
	return h.sendToken(c, http.StatusCreated, u)
}

// Login handles POST /auth/login.  Unknown email and wrong password get
// the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
	var in model.LoginInput
	if err := c.Bind(&in); err != nil {
		return invalidInput(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "msg": "Please provide an email and password"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return h.internal(c, "load user", err)
	}
	if err != nil || !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "msg": "Invalid credentials"})
	}
	return h.sendToken(c, http.StatusOK, u)
}

// Logout overwrites the token cookie with a sentinel that expires in ten
// seconds.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "none",
		Path:     "/",
		Expires:  h.now().Add(10 * time.Second),
		HttpOnly: true,
	})
	return ok(c, http.StatusOK, echo.Map{})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, a.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound)
		}
		return h.internal(c, "load user", err)
	}
	return ok(c, http.StatusOK, u)
}

// CheckBan repairs expired bans, then reports whether the caller has an
// active one.  On failure the caller is treated as banned.
func (h *AuthHandler) CheckBan(c echo.Context) error {
	a, found := actor(c)
	if !found {
		return unauthorized(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	now := h.now()
	if _, err := h.Bans.ResolveExpired(ctx, now); err != nil {
		h.log.Error("resolve expired bans", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "isBanned": true})
	}
	n, err := h.Bans.CountActiveForUser(ctx, a.ID, now)
	if err != nil {
		h.log.Error("count active bans", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "isBanned": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "isBanned": n > 0})
}
