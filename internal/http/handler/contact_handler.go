package handler

import (
	"net/http"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

// ContactHandler handles HTTP requests for contacts
type ContactHandler struct {
	contactService *service.ContactService
	logger         *zap.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService *service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

// ListContacts godoc
// @Summary List contacts
// @Description Get paginated list of contacts
// @Tags Contacts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Param search query string false "Search by name, email or company"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, firstName, lastName, company)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contacts [get]
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	result, err := h.contactService.List(r.Context(), page, pageSize, r.URL.Query().Get("search"), sortConfig(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list contacts")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetContact godoc
// @Summary Get contact
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} domain.ContactDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contacts/{id} [get]
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "contact")
	if !ok {
		return
	}

	contact, err := h.contactService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get contact")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// CreateContact godoc
// @Summary Create contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Param request body domain.CreateContactRequest true "Contact"
// @Success 201 {object} domain.ContactDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contacts [post]
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contact, err := h.contactService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create contact")
		return
	}

	w.Header().Set("Location", "/api/v1/contacts/"+contact.ID.String())
	respondJSON(w, http.StatusCreated, contact)
}

// UpdateContact godoc
// @Summary Update contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param request body domain.UpdateContactRequest true "Contact"
// @Success 200 {object} domain.ContactDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contacts/{id} [put]
func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "contact")
	if !ok {
		return
	}
	var req domain.UpdateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contact, err := h.contactService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update contact")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// DeleteContact godoc
// @Summary Delete contact
// @Tags Contacts
// @Param id path string true "Contact ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "contact")
	if !ok {
		return
	}
	if err := h.contactService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
