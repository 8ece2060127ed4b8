package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/mapper"
	"github.com/nexo-studio/agency-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PostService manages blog and portfolio entries
type PostService struct {
	postRepo   *repository.PostRepository
	files      *FileService
	activities *ActivityService
	logger     *zap.Logger
}

func NewPostService(postRepo *repository.PostRepository, files *FileService, activities *ActivityService, logger *zap.Logger) *PostService {
	return &PostService{
		postRepo:   postRepo,
		files:      files,
		activities: activities,
		logger:     logger,
	}
}

// ListPublished returns published posts for the public site, newest first, without bodies
func (s *PostService) ListPublished(ctx context.Context, page, pageSize int, kind *domain.PostKind, search string, loc domain.Locale) (*domain.PaginatedResponse, error) {
	return s.list(ctx, page, pageSize, repository.PostFilters{Kind: kind, PublishedOnly: true, Search: search}, loc, false)
}

// List returns drafts and published posts for staff
func (s *PostService) List(ctx context.Context, page, pageSize int, filters repository.PostFilters, loc domain.Locale) (*domain.PaginatedResponse, error) {
	return s.list(ctx, page, pageSize, filters, loc, false)
}

func (s *PostService) list(ctx context.Context, page, pageSize int, filters repository.PostFilters, loc domain.Locale, withBody bool) (*domain.PaginatedResponse, error) {
	if filters.Kind != nil && !filters.Kind.IsValid() {
		return nil, invalidField("kind", "unknown post kind")
	}
	page, pageSize = repository.NormalizePage(page, pageSize)

	posts, total, err := s.postRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	dtos := make([]domain.PostDTO, len(posts))
	for i := range posts {
		dtos[i] = mapper.ToPostDTO(&posts[i], loc, withBody)
	}
	return domain.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

// GetPublishedBySlug returns a published post with its body
func (s *PostService) GetPublishedBySlug(ctx context.Context, slug string, loc domain.Locale) (*domain.PostDTO, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	dto := mapper.ToPostDTO(post, loc, true)
	return &dto, nil
}

func (s *PostService) GetByID(ctx context.Context, id uuid.UUID, loc domain.Locale) (*domain.PostDTO, error) {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToPostDTO(post, loc, true)
	return &dto, nil
}

func (s *PostService) getPost(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, req *domain.PostRequest, loc domain.Locale) (*domain.PostDTO, error) {
	if !req.Kind.IsValid() {
		return nil, invalidField("kind", "unknown post kind")
	}
	if err := s.ensureSlugFree(ctx, req.Slug, uuid.Nil); err != nil {
		return nil, err
	}

	authorID, authorName := auth.Actor(ctx)
	post := &domain.Post{AuthorID: authorID, AuthorName: authorName}
	applyPostRequest(post, req)
	setPublished(post, req.Published)

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetPost, post.ID,
		"Post created", fmt.Sprintf("%s '%s' was created", post.Kind, post.TitleES))

	dto := mapper.ToPostDTO(post, loc, true)
	return &dto, nil
}

func (s *PostService) Update(ctx context.Context, id uuid.UUID, req *domain.PostRequest, loc domain.Locale) (*domain.PostDTO, error) {
	if !req.Kind.IsValid() {
		return nil, invalidField("kind", "unknown post kind")
	}
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Slug != post.Slug {
		if err := s.ensureSlugFree(ctx, req.Slug, post.ID); err != nil {
			return nil, err
		}
	}

	applyPostRequest(post, req)
	setPublished(post, req.Published)

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetPost, post.ID,
		"Post updated", fmt.Sprintf("%s '%s' was updated", post.Kind, post.TitleES))

	dto := mapper.ToPostDTO(post, loc, true)
	return &dto, nil
}

// SetPublished publishes or withdraws a post. The first publication date is kept on republish.
func (s *PostService) SetPublished(ctx context.Context, id uuid.UUID, published bool, loc domain.Locale) (*domain.PostDTO, error) {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.Published != published {
		setPublished(post, published)
		if err := s.postRepo.Update(ctx, post); err != nil {
			return nil, fmt.Errorf("failed to update post: %w", err)
		}

		title := "Post unpublished"
		if published {
			title = "Post published"
		}
		s.activities.Record(ctx, domain.ActivityTargetPost, post.ID, title, post.TitleES)
	}

	dto := mapper.ToPostDTO(post, loc, true)
	return &dto, nil
}

// Delete removes the post and its uploaded files
func (s *PostService) Delete(ctx context.Context, id uuid.UUID) error {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.removeFiles(ctx, post.ID)
	s.logger.Info("post deleted", zap.String("post_id", id.String()), zap.String("slug", post.Slug))
	return nil
}

// UploadCover stores an image and makes it the cover of the post, replacing any previous cover
func (s *PostService) UploadCover(ctx context.Context, id uuid.UUID, filename, contentType string, data io.Reader, loc domain.Locale) (*domain.PostDTO, error) {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	file, err := s.files.UploadImage(ctx, "posts/covers", filename, contentType, data, &post.ID)
	if err != nil {
		return nil, err
	}

	previous := post.CoverFileID
	post.CoverFileID = &file.ID
	if err := s.postRepo.Update(ctx, post); err != nil {
		if delErr := s.files.Delete(ctx, file.ID); delErr != nil {
			s.logger.Warn("failed to remove unused cover", zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if previous != nil {
		if err := s.files.Delete(ctx, *previous); err != nil && !errors.Is(err, ErrFileNotFound) {
			s.logger.Warn("failed to delete previous cover",
				zap.String("file_id", previous.String()),
				zap.Error(err))
		}
	}

	dto := mapper.ToPostDTO(post, loc, true)
	return &dto, nil
}

// OpenCover returns the cover image of a published post. The caller closes the reader.
func (s *PostService) OpenCover(ctx context.Context, slug string) (io.ReadCloser, *domain.File, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPostNotFound
		}
		return nil, nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post.CoverFileID == nil {
		return nil, nil, ErrFileNotFound
	}
	return s.files.Download(ctx, *post.CoverFileID)
}

func (s *PostService) removeFiles(ctx context.Context, postID uuid.UUID) {
	files, err := s.files.fileRepo.ListByPost(ctx, postID)
	if err != nil {
		s.logger.Warn("failed to list post files", zap.String("post_id", postID.String()), zap.Error(err))
		return
	}
	for _, f := range files {
		if err := s.files.Delete(ctx, f.ID); err != nil {
			s.logger.Warn("failed to delete post file", zap.String("file_id", f.ID.String()), zap.Error(err))
		}
	}
}

func (s *PostService) ensureSlugFree(ctx context.Context, slug string, self uuid.UUID) error {
	existing, err := s.postRepo.GetBySlug(ctx, slug, false)
	if err == nil && existing.ID != self {
		return fmt.Errorf("%w: slug %q is already used", ErrConflict, slug)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	return nil
}

func applyPostRequest(post *domain.Post, req *domain.PostRequest) {
	post.Kind = req.Kind
	post.Slug = req.Slug
	post.TitleES = strings.TrimSpace(req.TitleES)
	post.TitleEN = strings.TrimSpace(req.TitleEN)
	post.ExcerptES = req.ExcerptES
	post.ExcerptEN = req.ExcerptEN
	post.BodyES = req.BodyES
	post.BodyEN = req.BodyEN

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	post.Tags = datatypes.JSONSlice[string](tags)
}

func setPublished(post *domain.Post, published bool) {
	post.Published = published
	if published && post.PublishedAt == nil {
		now := time.Now()
		post.PublishedAt = &now
	}
}
