package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	users map[string]*models.User
}

func (s stubResolver) Resolve(_ context.Context, token string) (*models.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, services.ErrUnauthenticated
}

type reasons []string

func (r *reasons) ObserveAuthFailure(reason string) { *r = append(*r, reason) }

func newSessionApp(resolver SessionResolver, observer FailureObserver, extra ...drift.HandlerFunc) http.Handler {
	app := drift.New()
	app.Use(Session(resolver, "atlas_session", observer))
	for _, mw := range extra {
		app.Use(mw)
	}
	app.Get("/me", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{
			"id":    GetUserID(c).String(),
			"email": GetUser(c).Email,
		})
	})
	return app
}

func TestSession_MissingCookie(t *testing.T) {
	var seen reasons
	app := newSessionApp(stubResolver{}, &seen)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not authenticated")
	assert.Equal(t, reasons{"missing_session"}, seen)
}

func TestSession_UnknownToken(t *testing.T) {
	var seen reasons
	app := newSessionApp(stubResolver{}, &seen)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "atlas_session", Value: "stale"})
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not authenticated")
	assert.NotContains(t, rec.Body.String(), "Invalid session")
	assert.Equal(t, reasons{"invalid_session"}, seen)
}

func TestSession_Valid(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "a@example.com", Role: rbac.RoleView}
	app := newSessionApp(stubResolver{users: map[string]*models.User{"tok": user}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "atlas_session", Value: "tok"})
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID.String())
	assert.Contains(t, rec.Body.String(), "a@example.com")
}

func TestRequireGlobalRole(t *testing.T) {
	viewer := &models.User{ID: uuid.New(), Email: "v@example.com", Role: rbac.RoleView}
	admin := &models.User{ID: uuid.New(), Email: "a@example.com", Role: rbac.RoleAdmin}
	resolver := stubResolver{users: map[string]*models.User{"viewer": viewer, "admin": admin}}
	app := newSessionApp(resolver, nil, RequireGlobalRole(rbac.RoleAdmin, "Admin access required"))

	tests := []struct {
		token string
		want  int
	}{
		{"viewer", http.StatusForbidden},
		{"admin", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.AddCookie(&http.Cookie{Name: "atlas_session", Value: tt.token})
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), "Admin access required")
			}
		})
	}
}

func TestGetUserID_Unset(t *testing.T) {
	app := drift.New()
	var got uuid.UUID
	app.Get("/", func(c *drift.Context) {
		got = GetUserID(c)
		_ = c.JSON(http.StatusOK, nil)
	})

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, uuid.Nil, got)
}
