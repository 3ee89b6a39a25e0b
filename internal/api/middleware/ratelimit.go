package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/foodiemap/foodiemap/internal/api/models"
)

// RateLimitConfig is a fixed-window request budget.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Budgets per endpoint class.
var (
	// AdminRateLimit covers the admin rates and cache endpoints.
	AdminRateLimit = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}

	// RouteRateLimit covers route computation, which spends provider quota.
	RouteRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// ToolRateLimit covers polyline and cost endpoints computed locally.
	ToolRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// OrDefault returns c, or def when c has no limit configured.
func (c RateLimitConfig) OrDefault(def RateLimitConfig) RateLimitConfig {
	if c.RequestLimit <= 0 {
		return def
	}
	if c.WindowLength <= 0 {
		c.WindowLength = def.WindowLength
	}
	return c
}

// RateLimit limits requests per key. Rejections are 429 problems with a
// Retry-After of the whole window, since httprate does not expose the reset time.
func RateLimit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			models.NewTooManyRequests(GetRequestID(r.Context()), "rate limit exceeded, retry later").
				At(r.URL.Path).
				Write(w)
		}),
	)
}

// RateLimitByIP keys on the client address as resolved by chi's RealIP.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return RateLimit(cfg, httprate.KeyByRealIP)
}

// RateLimitByUser keys on the token subject so an admin keeps one budget
// across networks. It must run after Auth.
func RateLimitByUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return RateLimit(cfg, KeyBySubject)
}

// KeyBySubject uses the authenticated subject, falling back to the client IP.
func KeyBySubject(r *http.Request) (string, error) {
	if subject := GetSubject(r.Context()); subject != "" {
		return "sub:" + subject, nil
	}
	return httprate.KeyByRealIP(r)
}
