package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atendo/booking-core/internal/config"
	"github.com/atendo/booking-core/internal/httputil"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration for a specific
// endpoint class.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates the limiter for each endpoint class. The
// public confirmation endpoints take unauthenticated tokens from
// anyone on the internet, so they get far tighter limits than the
// authenticated API.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			"public": noOp,
			"api":    noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		"public": RateLimit(RateLimitConfig{
			Requests: cfg.PublicRequests,
			Window:   cfg.PublicWindow,
			Logger:   logger,
		}),
		"api": RateLimit(RateLimitConfig{
			Requests: cfg.APIRequests,
			Window:   cfg.APIWindow,
			Logger:   logger,
		}),
	}
}
