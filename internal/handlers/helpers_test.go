package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/require"
)

// asUser stands in for the session middleware.
func asUser(user *models.User) drift.HandlerFunc {
	return func(c *drift.Context) {
		c.Set(middleware.UserIDKey, user.ID)
		c.Set(middleware.UserKey, user)
		c.Next()
	}
}

func testUser(role rbac.GlobalRole) *models.User {
	return &models.User{ID: uuid.New(), Email: string(role) + "@example.com", Role: role}
}

func doJSON(app http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// newCSRFRequest carries a matching CSRF cookie and header.
func newCSRFRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(&http.Cookie{Name: "atlas_csrf", Value: token})
	req.Header.Set("X-CSRF-Token", token)
	return req
}

func serve(app http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}
