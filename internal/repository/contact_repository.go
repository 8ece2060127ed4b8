package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
)

var contactSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"firstName": "first_name",
	"lastName":  "last_name",
	"company":   "company",
}

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByEmail finds a contact by email, ignoring case
func (r *ContactRepository) GetByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("created_at ASC").
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *ContactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Contact{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContactRepository) List(ctx context.Context, page, pageSize int, search string, sort SortConfig) ([]domain.Contact, int64, error) {
	var contacts []domain.Contact
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Contact{})
	query = ApplySearch(query, search, "first_name", "last_name", "email", "company")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Order(BuildOrderClause(sort, contactSortFields, "created_at")), page, pageSize).
		Find(&contacts).Error

	return contacts, total, err
}
