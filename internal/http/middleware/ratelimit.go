package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"go.uber.org/zap"
)

// RateLimiter builds httprate limiters from configuration. Whitelisted IPs and paths
// bypass every limiter.
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	whitelistIPs   map[string]bool
	whitelistPaths []string
}

func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:            cfg,
		logger:         logger,
		whitelistIPs:   make(map[string]bool, len(cfg.WhitelistIPs)),
		whitelistPaths: cfg.WhitelistPaths,
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.whitelistIPs[ip] = true
	}
	return rl
}

// PerIP limits anonymous traffic by client IP
func (rl *RateLimiter) PerIP() func(http.Handler) http.Handler {
	return rl.limit(rl.cfg.RequestsPerMinute, time.Minute, rl.keyByIP)
}

// PerUser limits authenticated traffic by user, falling back to the client IP
func (rl *RateLimiter) PerUser() func(http.Handler) http.Handler {
	return rl.limit(rl.cfg.RequestsPerMinuteAuth, time.Minute, func(r *http.Request) (string, error) {
		if user, ok := auth.FromContext(r.Context()); ok {
			return "user:" + user.ID(), nil
		}
		return rl.keyByIP(r)
	})
}

// QuotationSubmits caps quotation previews and confirmations per IP and hour
func (rl *RateLimiter) QuotationSubmits() func(http.Handler) http.Handler {
	return rl.limit(rl.cfg.QuotationSubmitsPerHour, time.Hour, func(r *http.Request) (string, error) {
		key, err := rl.keyByIP(r)
		return "quote:" + key, err
	})
}

func (rl *RateLimiter) limit(requests int, window time.Duration, key httprate.KeyFunc) func(http.Handler) http.Handler {
	if !rl.cfg.Enabled || requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := httprate.Limit(requests, window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(rl.exceeded(window)),
	)
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.whitelisted(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) whitelisted(r *http.Request) bool {
	if rl.whitelistIPs[clientIP(r)] {
		return true
	}
	for _, p := range rl.whitelistPaths {
		if p == r.URL.Path {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "/*"); ok && strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) keyByIP(r *http.Request) (string, error) {
	return "ip:" + clientIP(r), nil
}

func (rl *RateLimiter) exceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		rl.logger.Warn("rate limit exceeded",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", clientIP(r)))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", retryAfter)
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(domain.APIError{
			Type:      domain.ErrorTypeRateLimited,
			Title:     "Too Many Requests",
			Status:    http.StatusTooManyRequests,
			Detail:    "Too many requests. Please try again later.",
			Retryable: true,
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
