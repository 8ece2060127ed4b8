package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
)

type DealStageHistoryRepository struct {
	db *gorm.DB
}

func NewDealStageHistoryRepository(db *gorm.DB) *DealStageHistoryRepository {
	return &DealStageHistoryRepository{db: db}
}

// Create records a new stage transition
func (r *DealStageHistoryRepository) Create(ctx context.Context, history *domain.DealStageHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// GetByDealID returns all stage history for a deal, most recent first
func (r *DealStageHistoryRepository) GetByDealID(ctx context.Context, dealID uuid.UUID) ([]domain.DealStageHistory, error) {
	var history []domain.DealStageHistory
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("changed_at DESC").
		Find(&history).Error
	return history, err
}
