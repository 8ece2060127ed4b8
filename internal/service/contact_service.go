package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/mapper"
	"github.com/nexo-studio/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ContactService struct {
	contactRepo *repository.ContactRepository
	activities  *ActivityService
	logger      *zap.Logger
}

func NewContactService(
	contactRepo *repository.ContactRepository,
	activities *ActivityService,
	logger *zap.Logger,
) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		activities:  activities,
		logger:      logger,
	}
}

func (s *ContactService) Create(ctx context.Context, req *domain.CreateContactRequest) (*domain.ContactDTO, error) {
	contact := &domain.Contact{}
	applyContactRequest(contact, req)
	if contact.Source == "" {
		contact.Source = "manual"
	}

	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetContact, contact.ID,
		"Contact created", fmt.Sprintf("Contact '%s' was created", contact.FullName()))

	dto := mapper.ToContactDTO(contact)
	return &dto, nil
}

func (s *ContactService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContactDTO, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	dto := mapper.ToContactDTO(contact)
	return &dto, nil
}

func (s *ContactService) List(ctx context.Context, page, pageSize int, search string, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	contacts, total, err := s.contactRepo.List(ctx, page, pageSize, search, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	dtos := make([]domain.ContactDTO, len(contacts))
	for i := range contacts {
		dtos[i] = mapper.ToContactDTO(&contacts[i])
	}

	return domain.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

func (s *ContactService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateContactRequest) (*domain.ContactDTO, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	applyContactRequest(contact, req)

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetContact, contact.ID,
		"Contact updated", fmt.Sprintf("Contact '%s' was updated", contact.FullName()))

	dto := mapper.ToContactDTO(contact)
	return &dto, nil
}

func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContactNotFound
		}
		return fmt.Errorf("failed to get contact: %w", err)
	}

	if err := s.contactRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetContact, id,
		"Contact deleted", fmt.Sprintf("Contact '%s' was deleted", contact.FullName()))

	return nil
}

func applyContactRequest(contact *domain.Contact, req *domain.CreateContactRequest) {
	contact.FirstName = strings.TrimSpace(req.FirstName)
	contact.LastName = strings.TrimSpace(req.LastName)
	contact.Email = strings.ToLower(strings.TrimSpace(req.Email))
	contact.Phone = strings.TrimSpace(req.Phone)
	contact.Company = strings.TrimSpace(req.Company)
	contact.Source = req.Source
	contact.Notes = req.Notes
}

// contactFromClient splits a client name into a CRM contact
func contactFromClient(name, email string, company, phone *string, source string) *domain.Contact {
	name = strings.TrimSpace(name)
	first, last := name, ""
	if i := strings.LastIndex(name, " "); i > 0 {
		first, last = strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
	}
	contact := &domain.Contact{
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Source:    source,
	}
	if company != nil {
		contact.Company = *company
	}
	if phone != nil {
		contact.Phone = *phone
	}
	return contact
}
