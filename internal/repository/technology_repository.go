package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
)

type TechnologyRepository struct {
	db *gorm.DB
}

func NewTechnologyRepository(db *gorm.DB) *TechnologyRepository {
	return &TechnologyRepository{db: db}
}

func (r *TechnologyRepository) Create(ctx context.Context, tech *domain.Technology) error {
	return r.db.WithContext(ctx).Create(tech).Error
}

func (r *TechnologyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Technology{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns technologies, optionally restricted to one category
func (r *TechnologyRepository) List(ctx context.Context, category string) ([]domain.Technology, error) {
	var techs []domain.Technology
	query := r.db.WithContext(ctx).Model(&domain.Technology{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("category ASC, name ASC").Find(&techs).Error
	return techs, err
}

// GetByIDs returns the technologies with the given ids
func (r *TechnologyRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Technology, error) {
	var techs []domain.Technology
	if len(ids) == 0 {
		return techs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&techs).Error
	return techs, err
}

// ListByQuotation returns the technologies linked to a quotation
func (r *TechnologyRepository) ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]domain.Technology, error) {
	var techs []domain.Technology
	err := r.db.WithContext(ctx).
		Joins("JOIN quotation_technologies qt ON qt.technology_id = technologies.id").
		Where("qt.quotation_id = ?", quotationID).
		Order("technologies.name ASC").
		Find(&techs).Error
	return techs, err
}

// LinkToQuotation writes the quotation/technology join rows in one transaction
func (r *TechnologyRepository) LinkToQuotation(ctx context.Context, quotationID uuid.UUID, technologyIDs []uuid.UUID) error {
	if len(technologyIDs) == 0 {
		return nil
	}
	links := make([]domain.QuotationTechnology, 0, len(technologyIDs))
	for _, id := range technologyIDs {
		links = append(links, domain.QuotationTechnology{QuotationID: quotationID, TechnologyID: id})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}
