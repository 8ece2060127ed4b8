package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
	logger         *zap.Logger
}

func NewCatalogHandler(catalogService *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// @Summary List services
// @Description Lists the services that can be quoted
// @Tags Catalog
// @Produce json
// @Param lang query string false "Response language (es, en)"
// @Success 200 {array} domain.ServiceDTO
// @Router /public/services [get]
func (h *CatalogHandler) ListPublicServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalogService.ListServices(r.Context(), true, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list services")
		return
	}
	respondJSON(w, http.StatusOK, services)
}

// @Summary Get service catalog
// @Description Returns an active service and its ordered questions, by slug or ID
// @Tags Catalog
// @Produce json
// @Param id path string true "Service slug or ID"
// @Param lang query string false "Response language (es, en)"
// @Success 200 {object} domain.ServiceCatalogDTO
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /public/services/{id} [get]
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalogService.GetCatalog(r.Context(), chi.URLParam(r, "id"), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "load catalog")
		return
	}
	respondJSON(w, http.StatusOK, catalog)
}

// @Summary List service questions
// @Description Returns the ordered question catalog of an active service
// @Tags Catalog
// @Produce json
// @Param id path string true "Service ID"
// @Param lang query string false "Response language (es, en)"
// @Success 200 {array} domain.QuestionDTO
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /public/services/{id}/questions [get]
func (h *CatalogHandler) GetPublicQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "service")
	if !ok {
		return
	}
	catalog, err := h.catalogService.GetCatalog(r.Context(), id.String(), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "load catalog")
		return
	}
	respondJSON(w, http.StatusOK, catalog.Questions)
}

// @Summary List all services
// @Description Lists active and inactive services
// @Tags Catalog
// @Produce json
// @Success 200 {array} domain.ServiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services [get]
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalogService.ListServices(r.Context(), false, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list services")
		return
	}
	respondJSON(w, http.StatusOK, services)
}

// @Summary Create service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body domain.CreateServiceRequest true "Service"
// @Success 201 {object} domain.ServiceDTO
// @Failure 409 {object} domain.APIError "Slug already used"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services [post]
func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateServiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	svc, err := h.catalogService.CreateService(r.Context(), &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "create service")
		return
	}

	w.Header().Set("Location", "/api/v1/services/"+svc.ID.String())
	respondJSON(w, http.StatusCreated, svc)
}

// @Summary Get service
// @Tags Catalog
// @Produce json
// @Param id path string true "Service ID or slug"
// @Success 200 {object} domain.ServiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services/{id} [get]
func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.catalogService.GetService(r.Context(), chi.URLParam(r, "id"), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "get service")
		return
	}
	respondJSON(w, http.StatusOK, svc)
}

// @Summary Update service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Service ID"
// @Param request body domain.UpdateServiceRequest true "Service"
// @Success 200 {object} domain.ServiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services/{id} [put]
func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "service")
	if !ok {
		return
	}
	var req domain.UpdateServiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	svc, err := h.catalogService.UpdateService(r.Context(), id, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "update service")
		return
	}
	respondJSON(w, http.StatusOK, svc)
}

// @Summary Delete service
// @Tags Catalog
// @Param id path string true "Service ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services/{id} [delete]
func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "service")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteService(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List questions
// @Tags Catalog
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {array} domain.QuestionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services/{id}/questions [get]
func (h *CatalogHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "service")
	if !ok {
		return
	}
	questions, err := h.catalogService.ListQuestions(r.Context(), id, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list questions")
		return
	}
	respondJSON(w, http.StatusOK, questions)
}

// @Summary Create question
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Service ID"
// @Param request body domain.QuestionRequest true "Question"
// @Success 201 {object} domain.QuestionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services/{id}/questions [post]
func (h *CatalogHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathUUID(w, r, "id", "service")
	if !ok {
		return
	}
	var req domain.QuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	question, err := h.catalogService.CreateQuestion(r.Context(), serviceID, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "create question")
		return
	}
	respondJSON(w, http.StatusCreated, question)
}

// @Summary Reorder questions
// @Description Sets the order of every question of a service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Service ID"
// @Param request body domain.ReorderQuestionsRequest true "Question IDs in the new order"
// @Success 200 {array} domain.QuestionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /services/{id}/questions/order [put]
func (h *CatalogHandler) ReorderQuestions(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathUUID(w, r, "id", "service")
	if !ok {
		return
	}
	var req domain.ReorderQuestionsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	questions, err := h.catalogService.ReorderQuestions(r.Context(), serviceID, req.QuestionIDs, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "reorder questions")
		return
	}
	respondJSON(w, http.StatusOK, questions)
}

// @Summary Update question
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param request body domain.QuestionRequest true "Question"
// @Success 200 {object} domain.QuestionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /questions/{id} [put]
func (h *CatalogHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "question")
	if !ok {
		return
	}
	var req domain.QuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	question, err := h.catalogService.UpdateQuestion(r.Context(), id, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "update question")
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// @Summary Delete question
// @Tags Catalog
// @Param id path string true "Question ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /questions/{id} [delete]
func (h *CatalogHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "question")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteQuestion(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete question")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List technologies
// @Tags Technologies
// @Produce json
// @Param category query string false "Filter by category"
// @Success 200 {array} domain.TechnologyDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /technologies [get]
func (h *CatalogHandler) ListTechnologies(w http.ResponseWriter, r *http.Request) {
	techs, err := h.catalogService.ListTechnologies(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		respondServiceError(w, h.logger, err, "list technologies")
		return
	}
	respondJSON(w, http.StatusOK, techs)
}

// @Summary Create technology
// @Tags Technologies
// @Accept json
// @Produce json
// @Param request body domain.CreateTechnologyRequest true "Technology"
// @Success 201 {object} domain.TechnologyDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /technologies [post]
func (h *CatalogHandler) CreateTechnology(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTechnologyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tech, err := h.catalogService.CreateTechnology(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create technology")
		return
	}
	respondJSON(w, http.StatusCreated, tech)
}

// @Summary Delete technology
// @Tags Technologies
// @Param id path string true "Technology ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /technologies/{id} [delete]
func (h *CatalogHandler) DeleteTechnology(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "technology")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteTechnology(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete technology")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
