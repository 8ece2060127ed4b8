package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/cache"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/http/handler"
	"github.com/nexo-studio/agency-api/internal/http/middleware"
	"github.com/nexo-studio/agency-api/internal/http/router"
	"github.com/nexo-studio/agency-api/internal/notify"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/service"
	"github.com/nexo-studio/agency-api/internal/storage"
	"github.com/nexo-studio/agency-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "router-test-secret"
	testAPIKey = "router-test-api-key"
)

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Name: "agency-api", Environment: "test", Version: "test"},
		Auth:      config.AuthConfig{JWTSecret: testSecret},
		ApiKey:    config.ApiKeyConfig{Value: testAPIKey},
		Quotation: config.QuotationConfig{ValidityDays: 30, PreviewTTL: 1800, NumberPrefix: "COT"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"https://nexo.studio"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		},
		Security: config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
	}
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	activities := service.NewActivityService(repository.NewActivityRepository(db), log)
	catalog := service.NewCatalogService(
		repository.NewServiceRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewTechnologyRepository(db),
		log,
	)
	files := service.NewFileService(repository.NewFileRepository(db), store, log)
	quotations := service.NewQuotationService(
		repository.NewQuotationRepository(db),
		repository.NewContactRepository(db),
		repository.NewDealRepository(db),
		repository.NewTechnologyRepository(db),
		catalog,
		activities,
		cache.NewMemoryPreviewStore(),
		notify.NewLogNotifier(log),
		cfg.Quotation,
		log,
		db,
	)
	deals := service.NewDealService(
		repository.NewDealRepository(db),
		repository.NewDealStageHistoryRepository(db),
		repository.NewContactRepository(db),
		activities,
		log,
		db,
	)

	testutil.CreateTestService(t, db, "web-app")

	handlers := router.Handlers{
		Health:    handler.NewHealthHandler("test", func(ctx context.Context) error { return nil }, log),
		Auth:      handler.NewAuthHandler(log),
		Catalog:   handler.NewCatalogHandler(catalog, log),
		Quotation: handler.NewQuotationHandler(quotations, log),
		Contact:   handler.NewContactHandler(service.NewContactService(repository.NewContactRepository(db), activities, log), log),
		Deal:      handler.NewDealHandler(deals, log),
		Activity:  handler.NewActivityHandler(activities, log),
		Post:      handler.NewPostHandler(service.NewPostService(repository.NewPostRepository(db), files, activities, log), 1, log),
		File:      handler.NewFileHandler(files, log),
	}

	return router.NewRouter(
		cfg,
		log,
		auth.NewMiddleware(cfg, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		handlers,
	).Setup()
}

func bearer(t *testing.T, roles ...string) string {
	t.Helper()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "user@example.com",
	}
	claims.AppMetadata.Roles = roles
	token, err := auth.SignToken(testSecret, claims)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(h http.Handler, method, target string, headers map[string]string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Access(t *testing.T) {
	h := setupRouter(t)

	staff := map[string]string{"Authorization": bearer(t, "staff")}
	client := map[string]string{"Authorization": bearer(t)}
	apiKey := map[string]string{"X-API-Key": testAPIKey}

	tests := []struct {
		name    string
		method  string
		target  string
		headers map[string]string
		want    int
	}{
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"readiness", http.MethodGet, "/health/ready", nil, http.StatusOK},
		{"public services", http.MethodGet, "/api/v1/public/services", nil, http.StatusOK},
		{"public catalog by slug", http.MethodGet, "/api/v1/public/services/web-app", nil, http.StatusOK},
		{"public posts", http.MethodGet, "/api/v1/public/posts", nil, http.StatusOK},
		{"public posts with bad token", http.MethodGet, "/api/v1/public/posts", map[string]string{"Authorization": "Bearer junk"}, http.StatusOK},
		{"me without credentials", http.MethodGet, "/api/v1/auth/me", nil, http.StatusUnauthorized},
		{"me with bad token", http.MethodGet, "/api/v1/auth/me", map[string]string{"Authorization": "Bearer junk"}, http.StatusUnauthorized},
		{"me with wrong api key", http.MethodGet, "/api/v1/auth/me", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"me as client", http.MethodGet, "/api/v1/auth/me", client, http.StatusOK},
		{"client lists own quotations", http.MethodGet, "/api/v1/quotations", client, http.StatusOK},
		{"client may not read stats", http.MethodGet, "/api/v1/quotations/stats", client, http.StatusForbidden},
		{"staff reads stats", http.MethodGet, "/api/v1/quotations/stats", staff, http.StatusOK},
		{"client may not convert", http.MethodPost, "/api/v1/quotations/" + uuid.NewString() + "/convert", client, http.StatusForbidden},
		{"client may not list contacts", http.MethodGet, "/api/v1/contacts", client, http.StatusForbidden},
		{"staff lists contacts", http.MethodGet, "/api/v1/contacts", staff, http.StatusOK},
		{"api key lists deals", http.MethodGet, "/api/v1/deals", apiKey, http.StatusOK},
		{"deal board", http.MethodGet, "/api/v1/deals/board", staff, http.StatusOK},
		{"technologies for any user", http.MethodGet, "/api/v1/technologies", client, http.StatusOK},
		{"client may not add technologies", http.MethodPost, "/api/v1/technologies", client, http.StatusForbidden},
		{"malformed id", http.MethodGet, "/api/v1/deals/not-a-uuid", staff, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/invoices", staff, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.method, tt.target, tt.headers, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_Middleware(t *testing.T) {
	h := setupRouter(t)

	w := do(h, http.MethodGet, "/api/v1/public/services?lang=en", map[string]string{"Origin": "https://nexo.studio"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "en", w.Header().Get("Content-Language"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "https://nexo.studio", w.Header().Get("Access-Control-Allow-Origin"))

	var services []domain.ServiceDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &services))
	require.Len(t, services, 1)
	assert.Equal(t, "Service web-app", services[0].Title)
}

func TestRouter_APIKeyIdentity(t *testing.T) {
	h := setupRouter(t)

	w := do(h, http.MethodGet, "/api/v1/auth/me", map[string]string{"X-API-Key": testAPIKey}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me domain.AuthUserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, uuid.Nil.String(), me.ID)
	assert.Equal(t, []string{string(domain.RoleAPIService)}, me.Roles)
}

func TestRouter_PublicQuotationFlow(t *testing.T) {
	h := setupRouter(t)

	w := do(h, http.MethodPost, "/api/v1/public/quotations/preview", nil, []byte(`{"serviceId":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, http.MethodPost, "/api/v1/public/quotations/preview/unknown-token/confirm", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
