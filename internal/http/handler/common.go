package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/i18n"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

var validate = domain.NewValidator()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends the field messages of a validator or domain validation error
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)

	var ve validator.ValidationErrors
	var de *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		for _, fe := range ve {
			fields[fieldPath(fe.Namespace())] = formatValidationError(fe)
		}
	case errors.As(err, &de):
		for k, v := range de.Fields {
			fields[k] = v
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// fieldPath drops the struct name from a namespace: "PostRequest.tags[0]" becomes "tags[0]"
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return domain.ErrorTypeConflict
	case http.StatusServiceUnavailable:
		return domain.ErrorTypeUnavailable
	default:
		return domain.ErrorTypeInternal
	}
}

var notFoundErrors = []error{
	service.ErrNotFound,
	service.ErrServiceNotFound,
	service.ErrQuestionNotFound,
	service.ErrQuotationNotFound,
	service.ErrContactNotFound,
	service.ErrDealNotFound,
	service.ErrPostNotFound,
	service.ErrFileNotFound,
	service.ErrTechnologyNotFound,
	service.ErrPreviewNotFound,
}

// respondServiceError maps service errors to responses. Unexpected errors are logged
// with action and answered with a generic 500.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			respondWithError(w, http.StatusNotFound, capitalize(target.Error()))
			return
		}
	}

	switch {
	case errors.Is(err, service.ErrLostReasonRequired):
		respondValidationError(w, domain.NewValidationError("lostReason", "A reason is required when a deal is lost"))
	case errors.Is(err, service.ErrInvalidInput):
		var de *domain.ValidationError
		if errors.As(err, &de) {
			respondValidationError(w, de)
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidStatusTransition), errors.Is(err, service.ErrAlreadyConverted):
		respondWithError(w, http.StatusConflict, capitalize(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "You do not have access to this resource")
	case errors.Is(err, service.ErrPersistenceFailed), errors.Is(err, service.ErrCatalogUnavailable):
		logger.Error("failed to "+action, zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, domain.APIError{
			Type:      domain.ErrorTypeUnavailable,
			Title:     http.StatusText(http.StatusServiceUnavailable),
			Status:    http.StatusServiceUnavailable,
			Detail:    "The request could not be completed. Please try again.",
			Retryable: true,
		})
	default:
		logger.Error("failed to "+action, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// pathUUID parses a UUID path parameter, answering 400 when it is malformed
func pathUUID(w http.ResponseWriter, r *http.Request, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID: must be a valid UUID", resource))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))
	return repository.NormalizePage(page, pageSize)
}

func sortConfig(r *http.Request) repository.SortConfig {
	sort := repository.DefaultSortConfig()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}
	return sort
}

func locale(r *http.Request) domain.Locale {
	return i18n.FromContext(r.Context())
}
