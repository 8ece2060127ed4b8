package middleware

import (
	"net/http"
	"strings"

	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/unrolled/secure"
)

// SecurityHeaders sets the configured security headers on every response.
// HSTS is only sent over HTTPS, including behind a TLS-terminating proxy.
func SecurityHeaders(cfg *config.SecurityConfig, environment string) func(http.Handler) http.Handler {
	opts := secure.Options{
		ContentTypeNosniff:    cfg.ContentTypeNosniff,
		ContentSecurityPolicy: cfg.ContentSecurityPolicy,
		ReferrerPolicy:        cfg.ReferrerPolicy,
		PermissionsPolicy:     cfg.PermissionsPolicy,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         environment == "development" || environment == "local",
	}

	switch strings.ToUpper(cfg.FrameOptions) {
	case "":
	case "DENY":
		opts.FrameDeny = true
	default:
		opts.CustomFrameOptionsValue = strings.ToUpper(cfg.FrameOptions)
	}

	if cfg.EnableHSTS {
		opts.STSSeconds = int64(cfg.HSTSMaxAge)
		opts.STSIncludeSubdomains = cfg.HSTSIncludeSubdomains
		opts.STSPreload = cfg.HSTSPreload
	}

	s := secure.New(opts)
	return func(next http.Handler) http.Handler {
		return s.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Del("X-Powered-By")
			next.ServeHTTP(w, r)
		}))
	}
}
