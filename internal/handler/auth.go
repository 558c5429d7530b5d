package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/middleware"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

const minPasswordLen = 5

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Log    logrus.FieldLogger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID      uint64 `json:"id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
	Role    string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, IsStaff: u.IsStaff, Role: u.Role()}
}

func (r credentialsReq) validate(register bool) error {
	verr := &repository.ValidationError{}
	if r.Email == "" {
		verr.Add("email", "this field is required")
	} else if _, err := mail.ParseAddress(r.Email); err != nil && register {
		verr.Add("email", "enter a valid email address")
	}
	switch {
	case r.Password == "":
		verr.Add("password", "this field is required")
	case register && len(r.Password) < minPasswordLen:
		verr.Add("password", "ensure this field has at least 5 characters")
	}
	return verr.OrNil()
}

// issue creates an access token and a stored refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a regular user and returns tokens immediately.  Staff
// accounts are only created from the command line.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if err := req.validate(true); err != nil {
		return respond(c, h.Log, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, false, h.Cfg.BcryptCost)
	if err != nil {
		return respond(c, h.Log, err)
	}
	u := model.User{ID: uid, Email: req.Email, IsActive: true}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if err := req.validate(false); err != nil {
		return respond(c, h.Log, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return respond(c, h.Log, err)
	}
	if err := utils.VerifyPassword(u.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, utils.ErrPasswordMismatch) {
			h.Log.WithError(err).WithField("user_id", u.ID).Error("stored password hash is unusable")
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// refreshUser resolves the owner of a valid refresh token.
func (h *AuthHandler) refreshUser(ctx context.Context, c echo.Context) (model.User, string, error) {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return model.User{}, "", repository.NewValidationError("refresh_token", "this field is required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return model.User{}, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh")
	}
	if err != nil {
		return model.User{}, "", err
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
		return model.User{}, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh")
	}
	return u, hash, err
}

// Refresh validates by hash, revokes the old token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, hash, err := h.refreshUser(ctx, c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respond(c, h.Log, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, _, err := h.refreshUser(ctx, c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes one refresh token when refresh_token is in the body,
// otherwise every refresh token of the authenticated caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := dbCtx(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrTokenInvalid) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
			}
			return respond(c, h.Log, err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return respond(c, h.Log, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
