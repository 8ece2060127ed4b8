package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts the question with the next insertion sequence of its service,
// which breaks ties between equal order indexes.
func (r *QuestionRepository) Create(ctx context.Context, question *domain.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&domain.Question{}).
			Where("service_id = ?", question.ServiceID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		question.Seq = maxSeq + 1
		return tx.Create(question).Error
	})
}

func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	var question domain.Question
	err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) Update(ctx context.Context, question *domain.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Question{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByService returns the catalog in evaluation order: order_index, then insertion order
func (r *QuestionRepository) ListByService(ctx context.Context, serviceID uuid.UUID) ([]domain.Question, error) {
	questions := []domain.Question{}
	err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("order_index ASC, seq ASC, created_at ASC").
		Find(&questions).Error
	return questions, err
}

// Reorder assigns order_index by the position of each id in orderedIDs
func (r *QuestionRepository) Reorder(ctx context.Context, serviceID uuid.UUID, orderedIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			result := tx.Model(&domain.Question{}).
				Where("id = ? AND service_id = ?", id, serviceID).
				Update("order_index", i)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
