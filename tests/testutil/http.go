package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const (
	SessionCookie = "atlas_session"
	CSRFCookie    = "atlas_csrf"
	CSRFHeader    = "X-CSRF-Token"
)

// HTTPTestClient behaves like a browser tab: it keeps the cookies the server
// sets and echoes the CSRF cookie into the header on every request.
type HTTPTestClient struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie

	// SkipCSRF sends the cookies without the header.
	SkipCSRF bool
}

func NewHTTPTestClient(t *testing.T, handler http.Handler) *HTTPTestClient {
	return &HTTPTestClient{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

func (c *HTTPTestClient) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if csrf, ok := c.cookies[CSRFCookie]; ok && !c.SkipCSRF {
		req.Header.Set(CSRFHeader, csrf.Value)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *HTTPTestClient) GET(path string) *httptest.ResponseRecorder {
	return c.Request(http.MethodGet, path, nil)
}

func (c *HTTPTestClient) POST(path string, body interface{}) *httptest.ResponseRecorder {
	return c.Request(http.MethodPost, path, body)
}

func (c *HTTPTestClient) PUT(path string, body interface{}) *httptest.ResponseRecorder {
	return c.Request(http.MethodPut, path, body)
}

func (c *HTTPTestClient) PATCH(path string, body interface{}) *httptest.ResponseRecorder {
	return c.Request(http.MethodPatch, path, body)
}

func (c *HTTPTestClient) DELETE(path string) *httptest.ResponseRecorder {
	return c.Request(http.MethodDelete, path, nil)
}

// Cookie returns the stored cookie value, or "".
func (c *HTTPTestClient) Cookie(name string) string {
	if ck, ok := c.cookies[name]; ok {
		return ck.Value
	}
	return ""
}

// ParseJSON parses the response body as JSON
func ParseJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to parse response JSON: %v", err)
	}
}

// AssertStatus asserts the response status code
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rec.Code, rec.Body.String())
	}
}
