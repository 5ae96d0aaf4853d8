package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "")
	t.Setenv("REMEMBER_TTL_DAYS", "")
	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("ALLOWED_SIGNUP_CODES", "")
	t.Setenv("XERO_SCOPES", DefaultXeroScopes)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "atlas_session", cfg.Session.CookieName)
	assert.Equal(t, "atlas_csrf", cfg.Session.CSRFCookieName)
	assert.Equal(t, "X-CSRF-Token", cfg.Session.CSRFHeader)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.RememberTTL)
	assert.False(t, cfg.Session.CookieSecure)
	assert.Empty(t, cfg.AllowedSignupCodes)
	assert.Contains(t, cfg.Xero.Scopes, "offline_access")
	assert.Len(t, cfg.Xero.Scopes, 5)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("REMEMBER_TTL_DAYS", "30")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("ALLOWED_SIGNUP_CODES", " alpha, beta ,,")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.RememberTTL)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.AllowedSignupCodes)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "twelve")
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 1, cfg.RateLimit.Capacity)
	assert.Equal(t, 5*time.Second, cfg.RateLimit.TTL)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.RateLimit.TrustedProxies)
}

func TestXeroConfig_Configured(t *testing.T) {
	assert.False(t, XeroConfig{}.Configured())
	assert.False(t, XeroConfig{ClientID: "id", ClientSecret: "secret"}.Configured())
	assert.True(t, XeroConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://x/cb"}.Configured())
}
