package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/auth"
	"github.com/safar/go-travel-store/internal/config"
	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/middleware"
	"github.com/safar/go-travel-store/internal/models"
	"github.com/safar/go-travel-store/internal/store"
)

type AuthHandler struct {
	db       *sql.DB
	sessions *auth.Manager
	cfg      config.SessionConfig
	logger   *zap.Logger

	// checked when the username is unknown
	dummyHash string
}

func NewAuthHandler(db *sql.DB, sessions *auth.Manager, cfg config.SessionConfig, logger *zap.Logger) *AuthHandler {
	dummy, err := auth.HashPassword(uuid.NewString(), cfg.BcryptCost)
	if err != nil {
		logger.Warn("Failed to prepare dummy password hash", zap.Error(err))
	}
	return &AuthHandler{db: db, sessions: sessions, cfg: cfg, logger: logger, dummyHash: dummy}
}

type registerReq struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FullName  string `json:"fullName" validate:"max=255"`
	SessionID string `json:"sessionId"`
}

type loginReq struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	SessionID string `json:"sessionId"`
}

type authResp struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}

	if len(req.Password) > auth.MaxPasswordBytes {
		return invalid("password", "must be at most 72 bytes")
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := store.CreateUser(ctx, h.db, store.NewUser{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleUser,
	})
	if err != nil {
		return err
	}

	h.mergeCart(c, req.SessionID, user.ID)
	return h.startSession(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := store.GetUserByUsername(ctx, h.db, strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, database.ErrUserNotFound) {
			return err
		}
		user = nil
	}
	if !h.checkPassword(user, req.Password) {
		return auth.ErrInvalidCredentials
	}

	if auth.IsLegacyHash(user.PasswordHash) {
		h.upgradeHash(c, user.ID, req.Password)
	}
	h.mergeCart(c, req.SessionID, user.ID)

	return h.startSession(c, http.StatusOK, user)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if s := middleware.CurrentSession(c); s != nil {
		if err := h.sessions.Revoke(c.Request().Context(), s); err != nil {
			h.logger.Warn("Failed to revoke session", zap.Int64("user_id", s.UserID), zap.Error(err))
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *AuthHandler) Me(c echo.Context) error {
	s := middleware.CurrentSession(c)
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := store.GetUser(ctx, h.db, s.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
		}
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// checkPassword verifies password against user's hash. A nil user is
// checked against the dummy hash and always fails.
func (h *AuthHandler) checkPassword(user *models.User, password string) bool {
	if user == nil {
		auth.VerifyPassword(h.dummyHash, password)
		return false
	}
	return auth.VerifyPassword(user.PasswordHash, password)
}

func (h *AuthHandler) startSession(c echo.Context, status int, user *models.User) error {
	tok, err := h.sessions.Issue(user)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    tok.Value,
		Path:     "/",
		Expires:  tok.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(status, authResp{User: user, Token: tok.Value, ExpiresAt: tok.ExpiresAt})
}

func (h *AuthHandler) mergeCart(c echo.Context, sessionID string, userID int64) {
	if sessionID == "" {
		return
	}
	n, err := store.MergeGuestCart(c.Request().Context(), h.db, sessionID, userID)
	if err != nil {
		h.logger.Warn("Failed to merge guest cart", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if n > 0 {
		h.logger.Info("Guest cart merged", zap.Int64("user_id", userID), zap.Int64("items", n))
	}
}

func (h *AuthHandler) upgradeHash(c echo.Context, userID int64, password string) {
	hash, err := auth.HashPassword(password, h.cfg.BcryptCost)
	if err == nil {
		err = store.UpdatePasswordHash(c.Request().Context(), h.db, userID, hash)
	}
	if err != nil {
		h.logger.Warn("Failed to upgrade legacy password hash", zap.Int64("user_id", userID), zap.Error(err))
	}
}
