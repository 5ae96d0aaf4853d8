package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultXeroScopes = "offline_access accounting.reports.read accounting.journals.read accounting.transactions.read app.connections"

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	LogLevel    string

	AllowedOrigins []string

	Session SessionConfig

	BcryptCost         int
	AllowedSignupCodes []string

	Redis     RedisConfig
	RateLimit RateLimitConfig

	Xero XeroConfig
}

type SessionConfig struct {
	CookieName     string
	CSRFCookieName string
	CSRFHeader     string
	TTL            time.Duration
	RememberTTL    time.Duration
	CookieSecure   bool
}

type RedisConfig struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
	// X-Forwarded-For is only read when the peer is one of these IPs or CIDRs.
	TrustedProxies []string
}

type XeroConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Configured reports whether the OAuth client credentials are all present.
func (x XeroConfig) Configured() bool {
	return x.ClientID != "" && x.ClientSecret != "" && x.RedirectURL != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		Session: SessionConfig{
			CookieName:     getEnv("SESSION_COOKIE_NAME", "atlas_session"),
			CSRFCookieName: getEnv("CSRF_COOKIE_NAME", "atlas_csrf"),
			CSRFHeader:     "X-CSRF-Token",
			TTL:            time.Duration(getEnvInt("SESSION_TTL_HOURS", 12)) * time.Hour,
			RememberTTL:    time.Duration(getEnvInt("REMEMBER_TTL_DAYS", 14)) * 24 * time.Hour,
			CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		},

		BcryptCost:         getEnvInt("BCRYPT_COST", 0),
		AllowedSignupCodes: splitList(getEnv("ALLOWED_SIGNUP_CODES", "")),

		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", ""),
			DB:      getEnvInt("REDIS_DB", 0),
			Timeout: getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
		},

		RateLimit: loadRateLimit(),

		Xero: XeroConfig{
			ClientID:     getEnv("XERO_CLIENT_ID", ""),
			ClientSecret: getEnv("XERO_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("XERO_REDIRECT_URI", ""),
			Scopes:       strings.Fields(getEnv("XERO_SCOPES", DefaultXeroScopes)),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadRateLimit() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
		Capacity:       getEnvInt("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   getEnvInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            getEnvDuration("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl"),
		TrustedProxies: splitList(getEnv("RATE_LIMIT_TRUSTED_PROXIES", "")),
	}
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
