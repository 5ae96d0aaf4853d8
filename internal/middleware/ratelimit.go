package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dimitrije/atlas-api/internal/config"
	"github.com/dimitrije/atlas-api/internal/logger"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] bucket; ARGV now_ms, capacity, refill_tokens, interval_ms, ttl_seconds.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + (intervals * refill_tokens))
	last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RateLimit throttles requests per client IP and route with a Redis token
// bucket. It is a no-op when disabled or without a client, and lets requests
// through when Redis fails.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) drift.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *drift.Context) { c.Next() }
	}

	proxies := parseProxies(cfg.TrustedProxies)

	return func(c *drift.Context) {
		key := rateKey(cfg.Prefix, clientIP(c.Request, proxies), c.Request)
		args := []any{
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL / time.Second),
		}

		vals, err := tokenBucketScript.Run(c.Request.Context(), rdb, []string{key}, args...).Int64Slice()
		if err != nil || len(vals) != 3 {
			logger.Get().Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		h := c.Response.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

		if vals[0] != 1 {
			secs := int(math.Ceil(float64(vals[2]) / 1000.0))
			h.Set("Retry-After", strconv.Itoa(secs))
			_ = c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":       "Too many requests",
				"retry_after": secs,
			})
			return
		}

		c.Next()
	}
}

func rateKey(prefix, ip string, r *http.Request) string {
	return strings.Join([]string{prefix, ip, r.Method, r.URL.Path}, ":")
}

// parseProxies accepts CIDRs and bare addresses. Unparseable entries are
// logged and ignored.
func parseProxies(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				logger.Get().Warn().Str("proxy", entry).Msg("ignoring invalid trusted proxy")
				continue
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Get().Warn().Str("proxy", entry).Msg("ignoring invalid trusted proxy")
			continue
		}
		nets = append(nets, n)
	}
	return nets
}

func trusted(proxies []*net.IPNet, addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP is the connection peer unless that peer is a trusted proxy, in
// which case it is the right-most X-Forwarded-For hop not added by one.
func clientIP(r *http.Request, proxies []*net.IPNet) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !trusted(proxies, peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !trusted(proxies, hop) {
			return hop
		}
	}
	return peer
}
