package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret   = "test-secret-with-enough-entropy"
	testIssuer   = "https://auth.example.com"
	testAudience = "authenticated"
	testAPIKey   = "test-api-key-12345"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth:   config.AuthConfig{JWTSecret: testSecret, Issuer: testIssuer, Audience: testAudience},
		ApiKey: config.ApiKeyConfig{Value: testAPIKey},
	}
}

func validClaims(sub string) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: "ana@example.com",
	}
}

func mustSign(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token, err := SignToken(secret, claims)
	require.NoError(t, err)
	return token
}

func TestJWTValidator_ValidToken(t *testing.T) {
	v := NewJWTValidator(&testConfig().Auth)
	id := uuid.New()

	claims := validClaims(id.String())
	claims.UserMetadata.FullName = "Ana López"
	claims.AppMetadata.Roles = []string{"Staff", "staff", "api_service", "superuser"}

	user, err := v.ValidateToken(mustSign(t, testSecret, claims))
	require.NoError(t, err)
	assert.Equal(t, id, user.UserID)
	assert.Equal(t, "Ana López", user.DisplayName)
	assert.Equal(t, []domain.UserRoleType{domain.RoleStaff}, user.Roles)
	assert.True(t, user.IsStaff())
}

func TestJWTValidator_DefaultsToClient(t *testing.T) {
	v := NewJWTValidator(&testConfig().Auth)

	user, err := v.ValidateToken(mustSign(t, testSecret, validClaims(uuid.NewString())))
	require.NoError(t, err)
	assert.Equal(t, []domain.UserRoleType{domain.RoleClient}, user.Roles)
	assert.Equal(t, "ana@example.com", user.DisplayName)
	assert.False(t, user.IsStaff())
}

func TestJWTValidator_Rejects(t *testing.T) {
	v := NewJWTValidator(&testConfig().Auth)

	expired := validClaims(uuid.NewString())
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongIssuer := validClaims(uuid.NewString())
	wrongIssuer.Issuer = "https://evil.example.com"

	wrongAudience := validClaims(uuid.NewString())
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}

	noExpiry := validClaims(uuid.NewString())
	noExpiry.ExpiresAt = nil

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(uuid.NewString())).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", mustSign(t, testSecret, expired), ErrExpiredToken},
		{"wrong secret", mustSign(t, "another-secret", validClaims(uuid.NewString())), ErrInvalidToken},
		{"wrong issuer", mustSign(t, testSecret, wrongIssuer), ErrInvalidToken},
		{"wrong audience", mustSign(t, testSecret, wrongAudience), ErrInvalidToken},
		{"missing expiry", mustSign(t, testSecret, noExpiry), ErrInvalidToken},
		{"subject not a uuid", mustSign(t, testSecret, validClaims("user-42")), ErrInvalidToken},
		{"unsigned", none, ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func captureUser(called *bool, user **UserContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*user, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Authenticate(t *testing.T) {
	m := NewMiddleware(testConfig(), zap.NewNop())
	token := mustSign(t, testSecret, validClaims(uuid.NewString()))

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantRole   domain.UserRoleType
	}{
		{"api key", map[string]string{"X-API-Key": testAPIKey}, http.StatusOK, domain.RoleAPIService},
		{"bearer token", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK, domain.RoleClient},
		{"lowercase scheme", map[string]string{"Authorization": "bearer " + token}, http.StatusOK, domain.RoleClient},
		{"wrong api key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, ""},
		{"missing header", nil, http.StatusUnauthorized, ""},
		{"basic auth", map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}, http.StatusUnauthorized, ""},
		{"bad token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			var user *UserContext
			req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			m.Authenticate(captureUser(&called, &user)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, user)
				assert.True(t, user.HasRole(tt.wantRole))
			} else {
				assert.Contains(t, rec.Body.String(), `"type":"unauthorized"`)
			}
		})
	}
}

func TestMiddleware_OptionalAuthenticate(t *testing.T) {
	m := NewMiddleware(testConfig(), zap.NewNop())
	handler := func(called *bool, user **UserContext) http.Handler {
		return m.OptionalAuthenticate(captureUser(called, user))
	}

	var called bool
	var user *UserContext
	rec := httptest.NewRecorder()
	handler(&called, &user).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/public/quotations/preview", nil))
	assert.True(t, called)
	assert.Nil(t, user)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/quotations/preview", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	called, user = false, nil
	handler(&called, &user).ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
	assert.Nil(t, user)

	id := uuid.New()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/public/quotations/preview", nil)
	req.Header.Set("Authorization", "Bearer "+mustSign(t, testSecret, validClaims(id.String())))
	called, user = false, nil
	handler(&called, &user).ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
	require.NotNil(t, user)
	assert.Equal(t, id, user.UserID)
}

func TestMiddleware_RequireStaff(t *testing.T) {
	m := NewMiddleware(testConfig(), zap.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	run := func(ctx context.Context) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/services/x", nil).WithContext(ctx)
		m.RequireStaff(ok).ServeHTTP(rec, req)
		return rec.Code
	}

	staff := WithUserContext(context.Background(), &UserContext{UserID: uuid.New(), Roles: []domain.UserRoleType{domain.RoleStaff}})
	client := WithUserContext(context.Background(), &UserContext{UserID: uuid.New(), Roles: []domain.UserRoleType{domain.RoleClient}})

	assert.Equal(t, http.StatusNoContent, run(staff))
	assert.Equal(t, http.StatusForbidden, run(client))
	assert.Equal(t, http.StatusUnauthorized, run(context.Background()))
}

func TestActor(t *testing.T) {
	id, name := Actor(context.Background())
	assert.Empty(t, id)
	assert.Empty(t, name)

	user := &UserContext{UserID: uuid.New(), DisplayName: "Ana"}
	id, name = Actor(WithUserContext(context.Background(), user))
	assert.Equal(t, user.UserID.String(), id)
	assert.Equal(t, "Ana", name)
}
