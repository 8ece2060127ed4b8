package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"go.uber.org/zap"
)

// SystemUserID identifies requests authenticated with the API key
var SystemUserID = uuid.Nil

// Middleware authenticates requests with an API key or a Bearer access token
type Middleware struct {
	validator *JWTValidator
	apiKey    string
	logger    *zap.Logger
}

func NewMiddleware(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		validator: NewJWTValidator(&cfg.Auth),
		apiKey:    cfg.ApiKey.Value,
		logger:    logger,
	}
}

// Authenticate rejects requests without valid credentials
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err))
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", err.Error())
			return
		}

		m.logger.Debug("request authenticated",
			zap.String("path", r.URL.Path),
			zap.String("user_id", user.ID()),
			zap.Strings("roles", user.RolesAsStrings()))

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), user)))
	})
}

// OptionalAuthenticate attaches the caller when credentials are valid and lets anonymous
// requests through. Public quotation endpoints use it to record the owning user.
func (m *Middleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasCredentials(r) {
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.authenticate(r)
		if err != nil {
			m.logger.Debug("optional auth: continuing unauthenticated",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), user)))
	})
}

// RequireRole lets the request through when the caller has any of roles
func (m *Middleware) RequireRole(roles ...domain.UserRoleType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !user.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "Forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff is RequireRole for the back-office roles
func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return m.RequireRole(domain.RoleAdmin, domain.RoleStaff, domain.RoleAPIService)(next)
}

func (m *Middleware) authenticate(r *http.Request) (*UserContext, error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		if !m.validAPIKey(key) {
			return nil, errors.New("invalid API key")
		}
		return &UserContext{
			UserID:      SystemUserID,
			DisplayName: "System",
			Roles:       []domain.UserRoleType{domain.RoleAPIService},
		}, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, errors.New("invalid authorization header format")
	}
	return m.validator.ValidateToken(strings.TrimSpace(token))
}

func (m *Middleware) validAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func hasCredentials(r *http.Request) bool {
	return r.Header.Get("X-API-Key") != "" || r.Header.Get("Authorization") != ""
}

func writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
