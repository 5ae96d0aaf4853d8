package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dimitrije/atlas-api/internal/config"
	"github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type AuthHandler struct {
	cfg            config.SessionConfig
	userService    UserServiceInterface
	sessionService SessionServiceInterface
	observer       middleware.FailureObserver
}

func NewAuthHandler(
	cfg config.SessionConfig,
	userService UserServiceInterface,
	sessionService SessionServiceInterface,
	observer middleware.FailureObserver,
) *AuthHandler {
	return &AuthHandler{
		cfg:            cfg,
		userService:    userService,
		sessionService: sessionService,
		observer:       observer,
	}
}

func (h *AuthHandler) Register(c *drift.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Password, req.InviteCode)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInviteCode) {
			h.fail("invalid_invite")
		}
		respondError(c, err, "failed to register")
		return
	}

	h.startSession(c, user, req.Remember)
}

func (h *AuthHandler) Login(c *drift.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.fail("invalid_credentials")
		}
		respondError(c, err, "failed to log in")
		return
	}

	h.startSession(c, user, req.Remember)
}

// Logout works with or without a live session; the cookies are cleared either way.
func (h *AuthHandler) Logout(c *drift.Context) {
	if cookie, err := c.Request.Cookie(h.cfg.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessionService.Revoke(c.Request.Context(), cookie.Value); err != nil {
			respondError(c, err, "failed to log out")
			return
		}
	}

	h.clearCookies(c)
	_ = c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AuthHandler) Me(c *drift.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.Unauthorized("Not authenticated")
		return
	}
	_ = c.JSON(http.StatusOK, dto.AuthResponse{User: toUserOut(user)})
}

func (h *AuthHandler) startSession(c *drift.Context, user *models.User, remember bool) {
	token, expiresAt, err := h.sessionService.Create(c.Request.Context(), user.ID, remember)
	if err != nil {
		respondError(c, err, "failed to create session")
		return
	}
	csrfToken, err := services.GenerateCSRFToken()
	if err != nil {
		respondError(c, err, "failed to create session")
		return
	}

	var expires time.Time
	if remember {
		expires = expiresAt
	}
	http.SetCookie(c.Response, h.cookie(h.cfg.CookieName, token, true, expires))
	http.SetCookie(c.Response, h.cookie(h.cfg.CSRFCookieName, csrfToken, false, expires))

	_ = c.JSON(http.StatusOK, dto.AuthResponse{User: toUserOut(user)})
}

func (h *AuthHandler) clearCookies(c *drift.Context) {
	for _, name := range []string{h.cfg.CookieName, h.cfg.CSRFCookieName} {
		cookie := h.cookie(name, "", name == h.cfg.CookieName, time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(c.Response, cookie)
	}
}

// cookie builds an auth cookie. A zero expires makes it a browser-session cookie.
func (h *AuthHandler) cookie(name, value string, httpOnly bool, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: httpOnly,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) fail(reason string) {
	if h.observer != nil {
		h.observer.ObserveAuthFailure(reason)
	}
}

func toUserOut(u *models.User) dto.UserOut {
	return dto.UserOut{ID: u.ID, Email: u.Email, Role: u.Role.String()}
}
