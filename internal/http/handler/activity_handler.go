package handler

import (
	"net/http"
	"strconv"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

// ActivityHandler handles HTTP requests for the activity log
type ActivityHandler struct {
	activityService *service.ActivityService
	logger          *zap.Logger
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activityService *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// List godoc
// @Summary List activities
// @Description Lists activities across all entities, newest first
// @Tags Activities
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Param targetType query string false "Filter by entity type" Enums(contact, deal, quotation, post)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /activities [get]
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	var targetType *domain.ActivityTargetType
	if t := r.URL.Query().Get("targetType"); t != "" {
		tt := domain.ActivityTargetType(t)
		if !tt.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid targetType: must be one of contact, deal, quotation, post")
			return
		}
		targetType = &tt
	}

	result, err := h.activityService.List(r.Context(), page, pageSize, targetType)
	if err != nil {
		respondServiceError(w, h.logger, err, "list activities")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create activity
// @Description Adds a manual note to a contact, deal, quotation or post
// @Tags Activities
// @Accept json
// @Produce json
// @Param request body domain.CreateActivityRequest true "Activity"
// @Success 201 {object} domain.ActivityDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /activities [post]
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	activity, err := h.activityService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create activity")
		return
	}
	respondJSON(w, http.StatusCreated, activity)
}

// ListByTarget returns a handler listing the latest activities of the entity in the {id} path parameter.
//
// @Summary List entity activities
// @Tags Activities
// @Produce json
// @Param id path string true "Entity ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {array} domain.ActivityDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contacts/{id}/activities [get]
// @Router /deals/{id}/activities [get]
// @Router /quotations/{id}/activities [get]
func (h *ActivityHandler) ListByTarget(targetType domain.ActivityTargetType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", string(targetType))
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		activities, err := h.activityService.ListByTarget(r.Context(), targetType, id, limit)
		if err != nil {
			respondServiceError(w, h.logger, err, "list activities")
			return
		}
		respondJSON(w, http.StatusOK, activities)
	}
}
