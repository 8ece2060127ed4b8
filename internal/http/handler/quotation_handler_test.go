package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/http/handler"
	"github.com/nexo-studio/agency-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type quotationPage struct {
	Data  []domain.QuotationDTO `json:"data"`
	Total int64                 `json:"total"`
}

type quotationHandlerFixture struct {
	s        *testServices
	h        *handler.QuotationHandler
	service  *domain.Service
	question *domain.Question
}

func newQuotationHandlerFixture(t *testing.T) *quotationHandlerFixture {
	t.Helper()
	s := newTestServices(t)
	svc := testutil.CreateTestService(t, s.db, "web-app")
	return &quotationHandlerFixture{
		s:        s,
		h:        handler.NewQuotationHandler(s.quotations, zap.NewNop()),
		service:  svc,
		question: testutil.CreateYesNoQuestion(t, s.db, svc, 500, 0),
	}
}

func (f *quotationHandlerFixture) answers(answer string) map[string]json.RawMessage {
	return map[string]json.RawMessage{f.question.ID.String(): json.RawMessage(answer)}
}

func (f *quotationHandlerFixture) create(t *testing.T, ctx context.Context) domain.QuotationDTO {
	t.Helper()
	req := domain.CreateQuotationRequest{
		ServiceID: f.service.ID,
		Answers:   f.answers(`"yes"`),
		Client:    domain.QuotationClientRequest{Name: "Luis Pérez", Email: "luis@example.com"},
	}
	w := serve(f.h.Create, newRequest(ctx, http.MethodPost, "/api/v1/quotations", req, nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.QuotationSubmitResultDTO](t, w).Quotation
}

func TestQuotationHandler_PreviewAndConfirm(t *testing.T) {
	f := newQuotationHandlerFixture(t)
	ctx := context.Background()

	req := domain.QuotationPreviewRequest{
		ServiceID: f.service.ID,
		Answers:   f.answers(`"yes"`),
		Client:    domain.QuotationClientRequest{Name: "Ana López", Email: "ana@example.com"},
	}
	w := serve(f.h.Preview, newRequest(ctx, http.MethodPost, "/api/v1/public/quotations/preview", req, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[domain.QuotationPreviewDTO](t, w)
	assert.NotEmpty(t, preview.Token)
	assert.Equal(t, 500.0, preview.Totals.Subtotal)
	assert.Equal(t, 80.0, preview.Totals.Tax)
	assert.Equal(t, 580.0, preview.Totals.Total)
	assert.Equal(t, "MXN", preview.Totals.Currency)

	params := map[string]string{"token": preview.Token}
	w = serve(f.h.ConfirmPreview, newRequest(ctx, http.MethodPost, "/", nil, params))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quotation := decode[domain.QuotationDTO](t, w)
	assert.Empty(t, w.Header().Get("Location"), "anonymous submitters cannot read the quotation resource")
	assert.True(t, strings.HasPrefix(quotation.Number, "COT-"))
	assert.Equal(t, domain.QuotationStatusPending, quotation.Status)
	assert.Equal(t, domain.QuotationSourcePublic, quotation.Source)

	t.Run("token is single use", func(t *testing.T) {
		w := serve(f.h.ConfirmPreview, newRequest(ctx, http.MethodPost, "/", nil, params))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQuotationHandler_PreviewErrors(t *testing.T) {
	f := newQuotationHandlerFixture(t)
	ctx := context.Background()

	t.Run("service without questions", func(t *testing.T) {
		empty := testutil.CreateTestService(t, f.s.db, "empty")
		req := domain.QuotationPreviewRequest{
			ServiceID: empty.ID,
			Client:    domain.QuotationClientRequest{Name: "Ana", Email: "ana@example.com"},
		}
		w := serve(f.h.Preview, newRequest(ctx, http.MethodPost, "/", req, nil))

		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		apiErr := decode[domain.APIError](t, w)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "serviceId")
	})

	t.Run("client fields", func(t *testing.T) {
		req := domain.QuotationPreviewRequest{
			ServiceID: f.service.ID,
			Answers:   f.answers(`"yes"`),
			Client:    domain.QuotationClientRequest{Email: "nope"},
		}
		w := serve(f.h.Preview, newRequest(ctx, http.MethodPost, "/", req, nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
		apiErr := decode[domain.APIError](t, w)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "client.name")
		assert.Contains(t, apiErr.Errors, "client.email")
	})

	t.Run("unknown question", func(t *testing.T) {
		req := domain.QuotationPreviewRequest{
			ServiceID: f.service.ID,
			Answers:   map[string]json.RawMessage{uuid.NewString(): json.RawMessage(`"yes"`)},
			Client:    domain.QuotationClientRequest{Name: "Ana", Email: "ana@example.com"},
		}
		w := serve(f.h.Preview, newRequest(ctx, http.MethodPost, "/", req, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown service", func(t *testing.T) {
		req := domain.QuotationPreviewRequest{
			ServiceID: uuid.New(),
			Client:    domain.QuotationClientRequest{Name: "Ana", Email: "ana@example.com"},
		}
		w := serve(f.h.Preview, newRequest(ctx, http.MethodPost, "/", req, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := serve(f.h.Preview, newRequest(ctx, http.MethodPost, "/", `{"serviceId":`, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		w := serve(f.h.ConfirmPreview, newRequest(ctx, http.MethodPost, "/", nil, map[string]string{"token": "missing"}))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQuotationHandler_ListOwnership(t *testing.T) {
	f := newQuotationHandlerFixture(t)

	clientID := uuid.New()
	own := f.create(t, clientContext(clientID))
	f.create(t, staffContext())

	t.Run("staff sees everything", func(t *testing.T) {
		w := serve(f.h.List, newRequest(staffContext(), http.MethodGet, "/api/v1/quotations", nil, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(2), decode[quotationPage](t, w).Total)
	})

	t.Run("client sees own quotations", func(t *testing.T) {
		w := serve(f.h.List, newRequest(clientContext(clientID), http.MethodGet, "/api/v1/quotations", nil, nil))
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[quotationPage](t, w)
		require.Len(t, page.Data, 1)
		assert.Equal(t, own.ID, page.Data[0].ID)
	})

	t.Run("foreign quotation is hidden", func(t *testing.T) {
		params := map[string]string{"id": own.ID.String()}
		w := serve(f.h.GetByID, newRequest(clientContext(uuid.New()), http.MethodGet, "/", nil, params))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid filters", func(t *testing.T) {
		for _, target := range []string{
			"/api/v1/quotations?status=archived",
			"/api/v1/quotations?source=email",
			"/api/v1/quotations?serviceId=web-app",
		} {
			w := serve(f.h.List, newRequest(staffContext(), http.MethodGet, target, nil, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		w := serve(f.h.List, newRequest(staffContext(), http.MethodGet, "/api/v1/quotations?status=approved", nil, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(0), decode[quotationPage](t, w).Total)
	})
}

func TestQuotationHandler_StatusAndConvert(t *testing.T) {
	f := newQuotationHandlerFixture(t)
	ctx := staffContext()
	quotation := f.create(t, ctx)
	params := map[string]string{"id": quotation.ID.String()}

	t.Run("pending cannot convert", func(t *testing.T) {
		w := serve(f.h.Convert, newRequest(ctx, http.MethodPost, "/", nil, params))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("converted is not a manual status", func(t *testing.T) {
		req := domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusConverted}
		w := serve(f.h.UpdateStatus, newRequest(ctx, http.MethodPatch, "/", req, params))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		req := domain.UpdateQuotationStatusRequest{Status: "archived"}
		w := serve(f.h.UpdateStatus, newRequest(ctx, http.MethodPatch, "/", req, params))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	req := domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusApproved}
	w := serve(f.h.UpdateStatus, newRequest(ctx, http.MethodPatch, "/", req, params))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.QuotationStatusApproved, decode[domain.QuotationDTO](t, w).Status)

	w = serve(f.h.Convert, newRequest(ctx, http.MethodPost, "/", domain.ConvertQuotationRequest{Title: "Portal de clientes"}, params))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[domain.QuotationConversionDTO](t, w)
	assert.Equal(t, "/api/v1/deals/"+result.Deal.ID.String(), w.Header().Get("Location"))
	assert.Equal(t, "Portal de clientes", result.Deal.Title)
	assert.Equal(t, domain.DealStageProposal, result.Deal.Stage)
	assert.Equal(t, domain.QuotationStatusConverted, result.Quotation.Status)

	t.Run("second conversion", func(t *testing.T) {
		w := serve(f.h.Convert, newRequest(ctx, http.MethodPost, "/", nil, params))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		w := serve(f.h.Stats, newRequest(ctx, http.MethodGet, "/", nil, nil))
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[domain.QuotationStatsDTO](t, w)
		assert.Equal(t, int64(1), stats.Total)
		assert.Equal(t, int64(1), stats.ByStatus[domain.QuotationStatusConverted])
		assert.Equal(t, int64(0), stats.ByStatus[domain.QuotationStatusPending])
	})
}

func TestQuotationHandler_Delete(t *testing.T) {
	f := newQuotationHandlerFixture(t)
	ctx := staffContext()
	quotation := f.create(t, ctx)
	params := map[string]string{"id": quotation.ID.String()}

	w := serve(f.h.Delete, newRequest(ctx, http.MethodDelete, "/", nil, params))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(f.h.GetByID, newRequest(ctx, http.MethodGet, "/", nil, params))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(f.h.Delete, newRequest(ctx, http.MethodDelete, "/", nil, map[string]string{"id": "nope"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
