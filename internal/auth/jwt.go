package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const clockSkew = 30 * time.Second

// Claims is the payload of access tokens issued by the identity provider
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email,omitempty"`
	Name         string       `json:"name,omitempty"`
	Roles        []string     `json:"roles,omitempty"`
	UserMetadata userMetadata `json:"user_metadata,omitempty"`
	AppMetadata  appMetadata  `json:"app_metadata,omitempty"`
}

type userMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

type appMetadata struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// JWTValidator validates HS256 access tokens signed with a shared secret
type JWTValidator struct {
	secret []byte
	opts   []jwt.ParserOption
}

func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWTValidator{secret: []byte(cfg.JWTSecret), opts: opts}
}

// ValidateToken verifies the signature and registered claims and returns the caller
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	name := claims.Name
	if name == "" {
		name = claims.UserMetadata.FullName
	}
	if name == "" {
		name = claims.Email
	}

	return &UserContext{
		UserID:      userID,
		DisplayName: name,
		Email:       claims.Email,
		Roles:       claims.roles(),
	}, nil
}

// roles collects the known roles of every role claim. The api_service role is reserved
// for API keys. Signed-in users without a back-office role are clients.
func (c *Claims) roles() []domain.UserRoleType {
	raw := make([]string, 0, len(c.Roles)+len(c.AppMetadata.Roles)+1)
	raw = append(raw, c.Roles...)
	raw = append(raw, c.AppMetadata.Roles...)
	raw = append(raw, c.AppMetadata.Role)

	seen := make(map[domain.UserRoleType]bool, len(raw))
	roles := make([]domain.UserRoleType, 0, len(raw))
	for _, r := range raw {
		role := domain.UserRoleType(strings.ToLower(strings.TrimSpace(r)))
		if !role.IsValid() || role == domain.RoleAPIService || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = append(roles, domain.RoleClient)
	}
	return roles
}

// SignToken signs claims with secret. Used by tooling and tests to mint tokens.
func SignToken(secret string, claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
