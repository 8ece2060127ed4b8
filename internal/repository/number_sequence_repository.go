package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequenceRepository hands out human-readable document numbers per scope and year.
type NumberSequenceRepository struct {
	db *gorm.DB
}

// NewNumberSequenceRepository creates a new NumberSequenceRepository. Pass a transaction
// handle to allocate the number inside the caller's transaction.
func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// GetNextNumber atomically retrieves and increments the sequence for a scope/year.
// The row is locked with SELECT FOR UPDATE where the database supports it.
// If no sequence exists yet, it is created starting at 1.
func (r *NumberSequenceRepository) GetNextNumber(ctx context.Context, scope string, year int) (int, error) {
	var nextSeq int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq domain.NumberSequence
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("scope = ? AND year = ?", scope, year).
			First(&seq)

		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			seq = domain.NumberSequence{
				Scope:        scope,
				Year:         year,
				LastSequence: 1,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}
			if err := tx.Create(&seq).Error; err != nil {
				return fmt.Errorf("failed to create number sequence: %w", err)
			}
			nextSeq = 1
		case result.Error != nil:
			return fmt.Errorf("failed to get number sequence: %w", result.Error)
		default:
			nextSeq = seq.LastSequence + 1
			if err := tx.Model(&domain.NumberSequence{}).
				Where("scope = ? AND year = ?", scope, year).
				Updates(map[string]interface{}{
					"last_sequence": nextSeq,
					"updated_at":    time.Now(),
				}).Error; err != nil {
				return fmt.Errorf("failed to update number sequence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return nextSeq, nil
}

// GetCurrentSequence retrieves the current sequence value without incrementing.
// Returns 0 if no sequence exists for the scope/year.
func (r *NumberSequenceRepository) GetCurrentSequence(ctx context.Context, scope string, year int) (int, error) {
	var seq domain.NumberSequence
	result := r.db.WithContext(ctx).
		Where("scope = ? AND year = ?", scope, year).
		First(&seq)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	}

	return seq.LastSequence, nil
}
