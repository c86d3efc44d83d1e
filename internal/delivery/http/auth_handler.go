package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"rtlab-dashboard/configs"
	"rtlab-dashboard/internal/domain"
	"rtlab-dashboard/internal/middleware"
	"rtlab-dashboard/internal/utils"
)

// sanitizedNext reduces the caller-supplied return path to a safe same-origin
// one.
func sanitizedNext(c echo.Context) string {
	return utils.SanitizeReturnPath(c.QueryParam("next"))
}

// AuthHandler handles login, logout and session echo for the two configured
// credential pairs.
type AuthHandler struct {
	codec        *middleware.SessionCodec
	secureCookie bool
	accounts     map[string]account
}

type account struct {
	role         string
	passwordHash []byte
}

// NewAuthHandler hashes the configured credentials once so login compares
// constant-time bcrypt digests instead of raw strings.
func NewAuthHandler(cfg *configs.Config, codec *middleware.SessionCodec) (*AuthHandler, error) {
	accounts := make(map[string]account, 2)
	for _, pair := range []struct {
		username, password, role string
	}{
		{cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, domain.RoleAdmin},
		{cfg.Auth.ViewerUsername, cfg.Auth.ViewerPassword, domain.RoleViewer},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(pair.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s credentials: %w", pair.role, err)
		}
		accounts[pair.username] = account{role: pair.role, passwordHash: hash}
	}
	return &AuthHandler{
		codec:        codec,
		secureCookie: cfg.IsProduction(),
		accounts:     accounts,
	}, nil
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserOutput is the identity block returned to the UI.
type UserOutput struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login handles POST /api/auth/login. On credential match it issues the
// 12-hour session cookie and reports the sanitized return path for the UI to
// navigate to.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request payload")
	}
	if req.Username == "" || req.Password == "" {
		return BadRequest(c, "username and password are required")
	}

	acct, ok := h.accounts[req.Username]
	if !ok {
		return Unauthorized(c, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)); err != nil {
		return Unauthorized(c, "invalid credentials")
	}

	token, err := h.codec.Sign(req.Username, acct.role)
	if err != nil {
		log.Error().Err(err).Msg("session sign failed")
		return JSONError(c, http.StatusInternalServerError, "failed to create session")
	}
	c.SetCookie(middleware.NewSessionCookie(token, h.secureCookie))

	log.Info().Str("username", req.Username).Str("role", acct.role).Msg("login")
	return c.JSON(http.StatusOK, map[string]any{
		"ok":   true,
		"user": UserOutput{Username: req.Username, Role: acct.role},
		"next": sanitizedNext(c),
	})
}

// Logout handles POST /api/auth/logout by clearing the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(middleware.ClearSessionCookie(h.secureCookie))
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /api/auth/me, echoing the verified session for the UI.
func (h *AuthHandler) Me(c echo.Context) error {
	session := middleware.SessionFromContext(c)
	if session == nil {
		return Unauthorized(c, "authentication required")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user": UserOutput{Username: session.Username, Role: session.Role},
	})
}
