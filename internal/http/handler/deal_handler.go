package handler

import (
	"net/http"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

type DealHandler struct {
	dealService *service.DealService
	logger      *zap.Logger
}

func NewDealHandler(dealService *service.DealService, logger *zap.Logger) *DealHandler {
	return &DealHandler{
		dealService: dealService,
		logger:      logger,
	}
}

// @Summary List deals
// @Description List deals with optional filters
// @Tags Deals
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param stage query string false "Filter by stage (lead, contacted, proposal, negotiation, won, lost)"
// @Param ownerId query string false "Filter by owner ID"
// @Param contactId query string false "Filter by contact ID"
// @Param search query string false "Search title or notes"
// @Param sortBy query string false "Sort field (createdAt, updatedAt, value, probability, expectedCloseDate, title)"
// @Param sortOrder query string false "Sort order (asc, desc)"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals [get]
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()

	filters := &repository.DealFilters{Search: q.Get("search")}

	// Stage filter
	if s := q.Get("stage"); s != "" {
		stage := domain.DealStage(s)
		if !stage.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid stage filter")
			return
		}
		filters.Stage = &stage
	}

	// Owner filter
	if o := q.Get("ownerId"); o != "" {
		filters.OwnerID = &o
	}

	// Contact filter
	contactID, err := queryUUID(r, "contactId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid contact ID: must be a valid UUID")
		return
	}
	filters.ContactID = contactID

	result, err := h.dealService.List(r.Context(), page, pageSize, filters, sortConfig(r), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list deals")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// @Summary Deal board
// @Description Returns one column per stage with its deals ordered by position
// @Tags Deals
// @Produce json
// @Success 200 {object} domain.BoardDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/board [get]
func (h *DealHandler) Board(w http.ResponseWriter, r *http.Request) {
	board, err := h.dealService.Board(r.Context(), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "load deal board")
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// @Summary Create deal
// @Tags Deals
// @Accept json
// @Produce json
// @Param request body domain.CreateDealRequest true "Deal"
// @Success 201 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals [post]
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Create(r.Context(), &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "create deal")
		return
	}

	w.Header().Set("Location", "/api/v1/deals/"+deal.ID.String())
	respondJSON(w, http.StatusCreated, deal)
}

// @Summary Get deal
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} domain.DealDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [get]
func (h *DealHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "deal")
	if !ok {
		return
	}

	deal, err := h.dealService.GetByID(r.Context(), id, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "get deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Update deal
// @Description Updates deal details. The stage is changed through the stage endpoint.
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.UpdateDealRequest true "Deal"
// @Success 200 {object} domain.DealDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [put]
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "deal")
	if !ok {
		return
	}
	var req domain.UpdateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Update(r.Context(), id, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "update deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Move deal
// @Description Moves a deal to a stage and position on the board. Moving to lost requires a reason.
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.MoveDealStageRequest true "Target stage and position"
// @Success 200 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/stage [patch]
func (h *DealHandler) MoveStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "deal")
	if !ok {
		return
	}
	var req domain.MoveDealStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.MoveStage(r.Context(), id, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "move deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Deal stage history
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {array} domain.DealStageHistoryDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/history [get]
func (h *DealHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "deal")
	if !ok {
		return
	}

	history, err := h.dealService.History(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get deal history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// @Summary Delete deal
// @Tags Deals
// @Param id path string true "Deal ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [delete]
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "deal")
	if !ok {
		return
	}
	if err := h.dealService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete deal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
