package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DealFilters contains the filter options for listing deals
type DealFilters struct {
	Stage     *domain.DealStage
	OwnerID   *string
	ContactID *uuid.UUID
	Search    string
}

var dealSortFields = map[string]string{
	"createdAt":         "created_at",
	"updatedAt":         "updated_at",
	"value":             "value",
	"probability":       "probability",
	"expectedCloseDate": "expected_close_date",
	"title":             "title",
}

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	// Omit associations to avoid GORM trying to upsert the contact
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(deal).Error
}

func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Contact").
		First(&deal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(deal).Error
}

func (r *DealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Deal{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DealRepository) List(ctx context.Context, page, pageSize int, filters *DealFilters, sort SortConfig) ([]domain.Deal, int64, error) {
	var deals []domain.Deal
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Deal{})
	if filters != nil {
		if filters.Stage != nil {
			query = query.Where("stage = ?", *filters.Stage)
		}
		if filters.OwnerID != nil {
			query = query.Where("owner_id = ?", *filters.OwnerID)
		}
		if filters.ContactID != nil {
			query = query.Where("contact_id = ?", *filters.ContactID)
		}
		query = ApplySearch(query, filters.Search, "title", "notes")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Preload("Contact").
		Order(BuildOrderClause(sort, dealSortFields, "created_at")), page, pageSize).
		Find(&deals).Error

	return deals, total, err
}

// ListForBoard returns all deals ordered by stage column position
func (r *DealRepository) ListForBoard(ctx context.Context) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Contact").
		Order("position ASC, updated_at DESC").
		Find(&deals).Error
	return deals, err
}

// ListByStage returns the deals of one kanban column in position order
func (r *DealRepository) ListByStage(ctx context.Context, stage domain.DealStage) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Where("stage = ?", stage).
		Order("position ASC, updated_at DESC").
		Find(&deals).Error
	return deals, err
}

// MaxPosition returns the highest position in a column, or -1 when it is empty
func (r *DealRepository) MaxPosition(ctx context.Context, stage domain.DealStage) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Where("stage = ?", stage).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

// UpdatePositions writes the position of each deal in one transaction
func (r *DealRepository) UpdatePositions(ctx context.Context, positions map[uuid.UUID]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, pos := range positions {
			if err := tx.Model(&domain.Deal{}).Where("id = ?", id).Update("position", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByQuotationID returns the deal a quotation was converted into
func (r *DealRepository) GetByQuotationID(ctx context.Context, quotationID uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).Where("quotation_id = ?", quotationID).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}
