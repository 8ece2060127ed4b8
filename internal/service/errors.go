package service

import (
	"errors"
	"fmt"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/quoteform"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate slug)
	ErrConflict = errors.New("resource conflict")

	// ErrForbidden is returned when the caller may not touch the resource
	ErrForbidden = errors.New("forbidden")

	ErrServiceNotFound    = errors.New("service not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrQuotationNotFound  = errors.New("quotation not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrDealNotFound       = errors.New("deal not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrTechnologyNotFound = errors.New("technology not found")

	// ErrEmptyCatalog is returned when a service without questions is quoted
	ErrEmptyCatalog = quoteform.ErrEmptyCatalog

	// ErrPreviewNotFound is returned when a preview token is unknown or expired
	ErrPreviewNotFound = errors.New("preview not found or expired")

	// ErrCatalogUnavailable is returned when the question catalog cannot be loaded; retrying may succeed
	ErrCatalogUnavailable = errors.New("question catalog unavailable")

	// ErrPersistenceFailed is returned when a quotation could not be stored; retrying may succeed
	ErrPersistenceFailed = errors.New("quotation could not be saved")

	// ErrInvalidStatusTransition is returned for a forbidden quotation status change
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrAlreadyConverted is returned when converting a quotation twice
	ErrAlreadyConverted = errors.New("quotation already converted")

	// ErrLostReasonRequired is returned when a deal is moved to lost without a reason
	ErrLostReasonRequired = errors.New("lost reason is required")
)

// invalidField builds a field-level validation error wrapping ErrInvalidInput
func invalidField(field, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, domain.NewValidationError(field, message))
}
