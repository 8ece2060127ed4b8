package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, service *domain.Service) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(service).Error
}

func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	var service domain.Service
	err := r.db.WithContext(ctx).First(&service, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *ServiceRepository) GetBySlug(ctx context.Context, slug string) (*domain.Service, error) {
	var service domain.Service
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *ServiceRepository) Update(ctx context.Context, service *domain.Service) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(service).Error
}

// Delete removes the service and its question catalog
func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_id = ?", id).Delete(&domain.Question{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Service{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns services ordered by Spanish title; activeOnly hides retired offerings
func (r *ServiceRepository) List(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	var services []domain.Service
	query := r.db.WithContext(ctx).Model(&domain.Service{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("title_es ASC").Find(&services).Error
	return services, err
}

// Exists reports whether a service with the id exists
func (r *ServiceRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Service{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
