package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/mapper"
	"github.com/nexo-studio/agency-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// catalogLoadTimeout bounds a shared catalog query once it no longer follows any caller's context
const catalogLoadTimeout = 10 * time.Second

// CatalogService manages services, their question catalogs and the technology list
type CatalogService struct {
	serviceRepo  *repository.ServiceRepository
	questionRepo *repository.QuestionRepository
	techRepo     *repository.TechnologyRepository
	loads        singleflight.Group
	logger       *zap.Logger
}

func NewCatalogService(
	serviceRepo *repository.ServiceRepository,
	questionRepo *repository.QuestionRepository,
	techRepo *repository.TechnologyRepository,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		serviceRepo:  serviceRepo,
		questionRepo: questionRepo,
		techRepo:     techRepo,
		logger:       logger,
	}
}

// LoadCatalog returns the ordered questions of a service. Concurrent loads of the same
// service share one query, which keeps running when the caller that started it goes away.
// Failures are reported as ErrCatalogUnavailable.
func (s *CatalogService) LoadCatalog(ctx context.Context, serviceID uuid.UUID) ([]domain.Question, error) {
	resultChan := s.loads.DoChan(serviceID.String(), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogLoadTimeout)
		defer cancel()
		return s.questionRepo.ListByService(loadCtx, serviceID)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, ctx.Err())
	case res := <-resultChan:
		if res.Err != nil {
			s.logger.Error("failed to load question catalog",
				zap.String("service_id", serviceID.String()),
				zap.Error(res.Err))
			return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, res.Err)
		}
		shared := res.Val.([]domain.Question)
		// callers own their copy; the slice may be shared with concurrent loads
		questions := make([]domain.Question, len(shared))
		copy(questions, shared)
		return questions, nil
	}
}

// GetCatalog returns an active service with its localized questions, by id or slug
func (s *CatalogService) GetCatalog(ctx context.Context, idOrSlug string, loc domain.Locale) (*domain.ServiceCatalogDTO, error) {
	svc, err := s.lookupService(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, ErrServiceNotFound
	}

	questions, err := s.LoadCatalog(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	return &domain.ServiceCatalogDTO{
		Service:   mapper.ToServiceDTO(svc, loc),
		Questions: mapper.ToQuestionDTOs(questions, loc),
	}, nil
}

// GetActiveService returns the service if it exists and is offered
func (s *CatalogService) GetActiveService(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	svc, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if !svc.IsActive {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

func (s *CatalogService) lookupService(ctx context.Context, idOrSlug string) (*domain.Service, error) {
	var (
		svc *domain.Service
		err error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		svc, err = s.serviceRepo.GetByID(ctx, id)
	} else {
		svc, err = s.serviceRepo.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return svc, nil
}

// Services

func (s *CatalogService) ListServices(ctx context.Context, activeOnly bool, loc domain.Locale) ([]domain.ServiceDTO, error) {
	services, err := s.serviceRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	dtos := make([]domain.ServiceDTO, len(services))
	for i := range services {
		dtos[i] = mapper.ToServiceDTO(&services[i], loc)
	}
	return dtos, nil
}

func (s *CatalogService) GetService(ctx context.Context, idOrSlug string, loc domain.Locale) (*domain.ServiceDTO, error) {
	svc, err := s.lookupService(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToServiceDTO(svc, loc)
	return &dto, nil
}

func (s *CatalogService) CreateService(ctx context.Context, req *domain.CreateServiceRequest, loc domain.Locale) (*domain.ServiceDTO, error) {
	if err := s.ensureSlugFree(ctx, req.Slug, uuid.Nil); err != nil {
		return nil, err
	}

	svc := &domain.Service{
		Slug:          req.Slug,
		TitleES:       req.TitleES,
		TitleEN:       req.TitleEN,
		DescriptionES: req.DescriptionES,
		DescriptionEN: req.DescriptionEN,
		IsActive:      req.IsActive == nil || *req.IsActive,
	}

	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	s.logger.Info("service created", zap.String("service_id", svc.ID.String()), zap.String("slug", svc.Slug))

	dto := mapper.ToServiceDTO(svc, loc)
	return &dto, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id uuid.UUID, req *domain.UpdateServiceRequest, loc domain.Locale) (*domain.ServiceDTO, error) {
	svc, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	if req.Slug != svc.Slug {
		if err := s.ensureSlugFree(ctx, req.Slug, svc.ID); err != nil {
			return nil, err
		}
	}

	svc.Slug = req.Slug
	svc.TitleES = req.TitleES
	svc.TitleEN = req.TitleEN
	svc.DescriptionES = req.DescriptionES
	svc.DescriptionEN = req.DescriptionEN
	svc.IsActive = req.IsActive

	if err := s.serviceRepo.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	dto := mapper.ToServiceDTO(svc, loc)
	return &dto, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, id uuid.UUID) error {
	if err := s.serviceRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceNotFound
		}
		return fmt.Errorf("failed to delete service: %w", err)
	}
	s.logger.Info("service deleted", zap.String("service_id", id.String()))
	return nil
}

func (s *CatalogService) ensureSlugFree(ctx context.Context, slug string, self uuid.UUID) error {
	existing, err := s.serviceRepo.GetBySlug(ctx, slug)
	if err == nil && existing.ID != self {
		return fmt.Errorf("%w: slug %q is already used", ErrConflict, slug)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	return nil
}

// Questions

// ListQuestions returns the catalog of any service, active or not, for staff editing
func (s *CatalogService) ListQuestions(ctx context.Context, serviceID uuid.UUID, loc domain.Locale) ([]domain.QuestionDTO, error) {
	exists, err := s.serviceRepo.Exists(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	if !exists {
		return nil, ErrServiceNotFound
	}

	questions, err := s.LoadCatalog(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return mapper.ToQuestionDTOs(questions, loc), nil
}

func (s *CatalogService) CreateQuestion(ctx context.Context, serviceID uuid.UUID, req *domain.QuestionRequest, loc domain.Locale) (*domain.QuestionDTO, error) {
	exists, err := s.serviceRepo.Exists(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	if !exists {
		return nil, ErrServiceNotFound
	}

	q := &domain.Question{ServiceID: serviceID}
	applyQuestionRequest(q, req)
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	dto := mapper.ToQuestionDTO(q, loc)
	return &dto, nil
}

func (s *CatalogService) UpdateQuestion(ctx context.Context, id uuid.UUID, req *domain.QuestionRequest, loc domain.Locale) (*domain.QuestionDTO, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	applyQuestionRequest(q, req)
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	dto := mapper.ToQuestionDTO(q, loc)
	return &dto, nil
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	if err := s.questionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

// ReorderQuestions sets order_index from the position of each id
func (s *CatalogService) ReorderQuestions(ctx context.Context, serviceID uuid.UUID, ids []uuid.UUID, loc domain.Locale) ([]domain.QuestionDTO, error) {
	if err := s.questionRepo.Reorder(ctx, serviceID, ids); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to reorder questions: %w", err)
	}
	return s.ListQuestions(ctx, serviceID, loc)
}

func applyQuestionRequest(q *domain.Question, req *domain.QuestionRequest) {
	q.Type = req.Type
	q.PromptES = req.PromptES
	q.PromptEN = req.PromptEN
	q.IsRequired = req.IsRequired
	q.OrderIndex = req.OrderIndex
	q.BasePrice = req.BasePrice
	q.PriceMultiplier = req.PriceMultiplier

	q.Options = nil
	if len(req.Options) > 0 {
		q.Options = make([]domain.QuestionOption, len(req.Options))
		for i, opt := range req.Options {
			q.Options[i] = domain.QuestionOption{
				LabelES: opt.LabelES,
				LabelEN: opt.LabelEN,
				Price:   opt.Price,
			}
		}
	}
}

// Technologies

func (s *CatalogService) ListTechnologies(ctx context.Context, category string) ([]domain.TechnologyDTO, error) {
	techs, err := s.techRepo.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list technologies: %w", err)
	}
	dtos := make([]domain.TechnologyDTO, len(techs))
	for i := range techs {
		dtos[i] = mapper.ToTechnologyDTO(&techs[i])
	}
	return dtos, nil
}

func (s *CatalogService) CreateTechnology(ctx context.Context, req *domain.CreateTechnologyRequest) (*domain.TechnologyDTO, error) {
	tech := &domain.Technology{
		Name:     req.Name,
		Slug:     req.Slug,
		Category: req.Category,
	}
	if err := s.techRepo.Create(ctx, tech); err != nil {
		return nil, fmt.Errorf("failed to create technology: %w", err)
	}
	dto := mapper.ToTechnologyDTO(tech)
	return &dto, nil
}

func (s *CatalogService) DeleteTechnology(ctx context.Context, id uuid.UUID) error {
	if err := s.techRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTechnologyNotFound
		}
		return fmt.Errorf("failed to delete technology: %w", err)
	}
	return nil
}
