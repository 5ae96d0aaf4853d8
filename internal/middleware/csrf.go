package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/dimitrije/atlas-api/internal/config"
	"github.com/m1z23r/drift/pkg/drift"
)

// CSRF enforces the double-submit check: state-changing requests must echo
// the CSRF cookie value in the configured header.
func CSRF(cfg config.SessionConfig, observer FailureObserver) drift.HandlerFunc {
	return func(c *drift.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookie, err := c.Request.Cookie(cfg.CSRFCookieName)
		header := c.GetHeader(cfg.CSRFHeader)
		if err != nil || cookie.Value == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
			observe(observer, "csrf")
			c.Forbidden("Invalid CSRF token")
			return
		}

		c.Next()
	}
}
