package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/mapper"
	"github.com/nexo-studio/agency-api/internal/repository"
	"go.uber.org/zap"
)

const defaultActivityLimit = 50

// ActivityService keeps the CRM activity log
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	logger       *zap.Logger
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(activityRepo *repository.ActivityRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// Create adds a manual activity, such as a call note, to an entity
func (s *ActivityService) Create(ctx context.Context, req *domain.CreateActivityRequest) (*domain.ActivityDTO, error) {
	if !req.TargetType.IsValid() {
		return nil, invalidField("targetType", "unknown target type")
	}

	activity := s.newActivity(ctx, req.TargetType, req.TargetID, req.Title, req.Body)
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	dto := mapper.ToActivityDTO(activity)
	return &dto, nil
}

// ListByTarget returns the latest activities of one entity
func (s *ActivityService) ListByTarget(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, limit int) ([]domain.ActivityDTO, error) {
	if limit <= 0 || limit > repository.MaxPageSize {
		limit = defaultActivityLimit
	}

	activities, err := s.activityRepo.ListByTarget(ctx, targetType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	dtos := make([]domain.ActivityDTO, len(activities))
	for i := range activities {
		dtos[i] = mapper.ToActivityDTO(&activities[i])
	}
	return dtos, nil
}

// List returns a page of activities across all entities
func (s *ActivityService) List(ctx context.Context, page, pageSize int, targetType *domain.ActivityTargetType) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	activities, total, err := s.activityRepo.List(ctx, page, pageSize, targetType)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	dtos := make([]domain.ActivityDTO, len(activities))
	for i := range activities {
		dtos[i] = mapper.ToActivityDTO(&activities[i])
	}
	return domain.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

// Record logs a system activity. Failures are logged and never returned.
func (s *ActivityService) Record(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, title, body string) {
	activity := s.newActivity(ctx, targetType, targetID, title, body)
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("target_type", string(targetType)),
			zap.String("target_id", targetID.String()),
			zap.Error(err))
	}
}

func (s *ActivityService) newActivity(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, title, body string) *domain.Activity {
	creatorID, creatorName := auth.Actor(ctx)
	if creatorID == "" {
		creatorName = "system"
	}
	return &domain.Activity{
		TargetType:  targetType,
		TargetID:    targetID,
		Title:       title,
		Body:        body,
		OccurredAt:  time.Now(),
		CreatorID:   creatorID,
		CreatorName: creatorName,
	}
}
