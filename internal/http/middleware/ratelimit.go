package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// RateLimiter limits anonymous traffic per client IP and authenticated traffic
// per user. Whitelisted paths and IPs are never limited.
type RateLimiter struct {
	cfg          *config.RateLimitConfig
	logger       *zap.Logger
	byIP         func(http.Handler) http.Handler
	byUser       func(http.Handler) http.Handler
	whitelistIPs map[string]struct{}
	exactPaths   map[string]struct{}
	pathPrefixes []string
}

func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:          cfg,
		logger:       logger,
		whitelistIPs: make(map[string]struct{}, len(cfg.WhitelistIPs)),
		exactPaths:   make(map[string]struct{}, len(cfg.WhitelistPaths)),
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.whitelistIPs[ip] = struct{}{}
	}
	for _, p := range cfg.WhitelistPaths {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			rl.pathPrefixes = append(rl.pathPrefixes, prefix)
			continue
		}
		rl.exactPaths[p] = struct{}{}
	}

	rl.byIP = httprate.Limit(cfg.RequestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return "ip:" + service.ClientIP(r), nil
		}),
		httprate.WithLimitHandler(rl.exceeded))
	rl.byUser = httprate.Limit(cfg.RequestsPerMinuteAuth, time.Minute,
		httprate.WithKeyFuncs(userOrIPKey),
		httprate.WithLimitHandler(rl.exceeded))

	logger.Info("Rate limiter initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("requests_per_minute_auth", cfg.RequestsPerMinuteAuth))
	return rl
}

func userOrIPKey(r *http.Request) (string, error) {
	if userCtx, ok := auth.FromContext(r.Context()); ok && userCtx != nil {
		return "user:" + userCtx.UserID.String(), nil
	}
	return "ip:" + service.ClientIP(r), nil
}

// LimitByIP is applied globally, before authentication
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}
	limited := rl.byIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// LimitByUser is applied after authentication
func (rl *RateLimiter) LimitByUser(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}
	limited := rl.byUser(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) exempt(r *http.Request) bool {
	if _, ok := rl.whitelistIPs[service.ClientIP(r)]; ok {
		return true
	}
	if _, ok := rl.exactPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range rl.pathPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) exceeded(w http.ResponseWriter, r *http.Request) {
	key, _ := userOrIPKey(r)
	rl.logger.Warn("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("key", key))

	w.Header().Set("Retry-After", "60")
	writeProblem(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")
}
