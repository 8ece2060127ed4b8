package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

type QuotationHandler struct {
	quotationService *service.QuotationService
	logger           *zap.Logger
}

func NewQuotationHandler(quotationService *service.QuotationService, logger *zap.Logger) *QuotationHandler {
	return &QuotationHandler{
		quotationService: quotationService,
		logger:           logger,
	}
}

// @Summary Preview quotation
// @Description Validates the answers of a public form and prices it. Nothing is stored until the preview is confirmed.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param lang query string false "Response language (es, en)"
// @Param request body domain.QuotationPreviewRequest true "Form answers and client data"
// @Success 200 {object} domain.QuotationPreviewDTO
// @Failure 400 {object} domain.APIError "Invalid answers or client data"
// @Failure 404 {object} domain.APIError "Unknown or inactive service"
// @Failure 429 {object} domain.APIError
// @Router /public/quotations/preview [post]
func (h *QuotationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req domain.QuotationPreviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	preview, err := h.quotationService.Preview(r.Context(), &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "preview quotation")
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// @Summary Confirm previewed quotation
// @Description Stores a previewed quotation. A token can be confirmed once.
// @Tags Quotations
// @Produce json
// @Param token path string true "Preview token"
// @Param lang query string false "Response language (es, en)"
// @Success 201 {object} domain.QuotationDTO
// @Failure 404 {object} domain.APIError "Unknown or expired preview"
// @Failure 503 {object} domain.APIError "Storage failed, the preview can be confirmed again"
// @Router /public/quotations/preview/{token}/confirm [post]
func (h *QuotationHandler) ConfirmPreview(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "Preview token is required")
		return
	}

	quotation, err := h.quotationService.ConfirmPreview(r.Context(), token, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "confirm quotation")
		return
	}

	respondJSON(w, http.StatusCreated, quotation)
}

// @Summary Create quotation
// @Description Validates, prices and stores a quotation owned by the caller
// @Tags Quotations
// @Accept json
// @Produce json
// @Param request body domain.CreateQuotationRequest true "Form answers, client data and links"
// @Success 201 {object} domain.QuotationSubmitResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations [post]
func (h *QuotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuotationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.quotationService.SubmitInternal(r.Context(), &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "create quotation")
		return
	}

	w.Header().Set("Location", "/api/v1/quotations/"+result.Quotation.ID.String())
	respondJSON(w, http.StatusCreated, result)
}

// @Summary List quotations
// @Description Lists quotations. Clients only see their own.
// @Tags Quotations
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status (pending, approved, rejected, converted)"
// @Param serviceId query string false "Filter by service ID"
// @Param source query string false "Filter by source (public, internal)"
// @Param search query string false "Search number, client name, email or company"
// @Param sortBy query string false "Sort field (createdAt, number, total, status, clientName)"
// @Param sortOrder query string false "Sort order (asc, desc)"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations [get]
func (h *QuotationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()

	filters := &repository.QuotationFilters{Search: q.Get("search")}

	if s := q.Get("status"); s != "" {
		status := domain.QuotationStatus(s)
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filters.Status = &status
	}

	if s := q.Get("source"); s != "" {
		source := domain.QuotationSource(s)
		if !source.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid source filter")
			return
		}
		filters.Source = &source
	}

	serviceID, err := queryUUID(r, "serviceId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid service ID: must be a valid UUID")
		return
	}
	filters.ServiceID = serviceID

	result, err := h.quotationService.List(r.Context(), page, pageSize, filters, sortConfig(r), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list quotations")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// @Summary Quotation statistics
// @Tags Quotations
// @Produce json
// @Success 200 {object} domain.QuotationStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/stats [get]
func (h *QuotationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.quotationService.Stats(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "count quotations")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// @Summary Get quotation
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} domain.QuotationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id} [get]
func (h *QuotationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "quotation")
	if !ok {
		return
	}

	quotation, err := h.quotationService.GetByID(r.Context(), id, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "get quotation")
		return
	}
	respondJSON(w, http.StatusOK, quotation)
}

// @Summary Update quotation status
// @Description Approves or rejects a quotation
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param request body domain.UpdateQuotationStatusRequest true "New status"
// @Success 200 {object} domain.QuotationDTO
// @Failure 409 {object} domain.APIError "Transition not allowed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/status [patch]
func (h *QuotationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "quotation")
	if !ok {
		return
	}
	var req domain.UpdateQuotationStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	quotation, err := h.quotationService.UpdateStatus(r.Context(), id, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "update quotation status")
		return
	}
	respondJSON(w, http.StatusOK, quotation)
}

// @Summary Convert quotation to deal
// @Description Creates a deal in the proposal stage from an approved quotation
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param request body domain.ConvertQuotationRequest false "Deal overrides"
// @Success 201 {object} domain.QuotationConversionDTO
// @Failure 409 {object} domain.APIError "Not approved or already converted"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/convert [post]
func (h *QuotationHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "quotation")
	if !ok {
		return
	}

	var req domain.ConvertQuotationRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.quotationService.Convert(r.Context(), id, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "convert quotation")
		return
	}

	w.Header().Set("Location", "/api/v1/deals/"+result.Deal.ID.String())
	respondJSON(w, http.StatusCreated, result)
}

// @Summary Delete quotation
// @Tags Quotations
// @Param id path string true "Quotation ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id} [delete]
func (h *QuotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "quotation")
	if !ok {
		return
	}
	if err := h.quotationService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete quotation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
