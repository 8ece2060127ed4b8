package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotationFilters contains the filter options for listing quotations
type QuotationFilters struct {
	Status       *domain.QuotationStatus
	ServiceID    *uuid.UUID
	OwningUserID *string
	Source       *domain.QuotationSource
	Search       string
}

var quotationSortFields = map[string]string{
	"createdAt":  "created_at",
	"total":      "total",
	"clientName": "client_name",
	"number":     "number",
	"status":     "status",
}

type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) Create(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(quotation).Error
}

func (r *QuotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Contact").
		First(&quotation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

func (r *QuotationRepository) Update(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(quotation).Error
}

// Delete removes the quotation and its technology links
func (r *QuotationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quotation_id = ?", id).Delete(&domain.QuotationTechnology{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Quotation{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *QuotationRepository) List(ctx context.Context, page, pageSize int, filters *QuotationFilters, sort SortConfig) ([]domain.Quotation, int64, error) {
	var quotations []domain.Quotation
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Quotation{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Preload("Service").
		Order(BuildOrderClause(sort, quotationSortFields, "created_at")), page, pageSize).
		Find(&quotations).Error

	return quotations, total, err
}

func (r *QuotationRepository) applyFilters(query *gorm.DB, filters *QuotationFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ServiceID != nil {
		query = query.Where("service_id = ?", *filters.ServiceID)
	}
	if filters.OwningUserID != nil {
		query = query.Where("owning_user_id = ?", *filters.OwningUserID)
	}
	if filters.Source != nil {
		query = query.Where("source = ?", *filters.Source)
	}
	return ApplySearch(query, filters.Search, "client_name", "client_email", "client_company", "number")
}

// ListPendingForReminder returns pending quotations created before the cutoff that were never reminded
func (r *QuotationRepository) ListPendingForReminder(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Quotation, error) {
	var quotations []domain.Quotation
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminded_at IS NULL AND created_at < ?", domain.QuotationStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&quotations).Error
	return quotations, err
}

// MarkReminded stamps reminded_at on the given quotations
func (r *QuotationRepository) MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.Quotation{}).
		Where("id IN ?", ids).
		Update("reminded_at", at).Error
}

// CountByStatus returns the number of quotations per status
func (r *QuotationRepository) CountByStatus(ctx context.Context) (map[domain.QuotationStatus]int64, error) {
	type result struct {
		Status domain.QuotationStatus
		Count  int64
	}
	var results []result
	err := r.db.WithContext(ctx).Model(&domain.Quotation{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.QuotationStatus]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}
