package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"gorm.io/gorm"
)

// PostFilters contains the filter options for listing posts
type PostFilters struct {
	Kind          *domain.PostKind
	PublishedOnly bool
	Search        string
}

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	var post domain.Post
	err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetBySlug finds a post by slug; publishedOnly hides drafts
func (r *PostRepository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*domain.Post, error) {
	var post domain.Post
	query := r.db.WithContext(ctx).Where("slug = ?", slug)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}
	if err := query.First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Post{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns a page of posts, newest publication first
func (r *PostRepository) List(ctx context.Context, page, pageSize int, filters PostFilters) ([]domain.Post, int64, error) {
	var posts []domain.Post
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Post{})
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.PublishedOnly {
		query = query.Where("published = ?", true)
	}
	query = ApplySearch(query, filters.Search, "title_es", "title_en")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Order("published_at DESC, created_at DESC"), page, pageSize).Find(&posts).Error
	return posts, total, err
}
