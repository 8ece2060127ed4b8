package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/cache"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/notify"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/service"
	"github.com/nexo-studio/agency-api/internal/storage"
	"github.com/nexo-studio/agency-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServices struct {
	db         *gorm.DB
	catalog    *service.CatalogService
	quotations *service.QuotationService
	contacts   *service.ContactService
	deals      *service.DealService
	activities *service.ActivityService
	posts      *service.PostService
	files      *service.FileService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := testutil.Logger()

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

	return &testServices{
		db:      db,
		catalog: catalog,
		quotations: service.NewQuotationService(
			repository.NewQuotationRepository(db),
			repository.NewContactRepository(db),
			repository.NewDealRepository(db),
			repository.NewTechnologyRepository(db),
			catalog,
			activities,
			cache.NewMemoryPreviewStore(),
			notify.NewLogNotifier(log),
			config.QuotationConfig{ValidityDays: 30, PreviewTTL: 1800, NumberPrefix: "COT"},
			log,
			db,
		),
		contacts: service.NewContactService(repository.NewContactRepository(db), activities, log),
		deals: service.NewDealService(
			repository.NewDealRepository(db),
			repository.NewDealStageHistoryRepository(db),
			repository.NewContactRepository(db),
			activities,
			log,
			db,
		),
		activities: activities,
		posts:      service.NewPostService(repository.NewPostRepository(db), files, activities, log),
		files:      files,
	}
}

func staffContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Staff User",
		Email:       "staff@nexo.studio",
		Roles:       []domain.UserRoleType{domain.RoleStaff},
	})
}

func clientContext(id uuid.UUID) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      id,
		DisplayName: "Client User",
		Roles:       []domain.UserRoleType{domain.RoleClient},
	})
}

// newRequest builds a request with a JSON body and chi URL params
func newRequest(ctx context.Context, method, target string, body interface{}, params map[string]string) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return withParams(ctx, req, params)
}

func withParams(ctx context.Context, req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
