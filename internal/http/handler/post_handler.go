package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

// PostHandler serves the blog and portfolio
type PostHandler struct {
	postService   *service.PostService
	maxUploadSize int64
	logger        *zap.Logger
}

// NewPostHandler creates a PostHandler. maxUploadSizeMB limits cover uploads.
func NewPostHandler(postService *service.PostService, maxUploadSizeMB int64, logger *zap.Logger) *PostHandler {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = 20
	}
	return &PostHandler{
		postService:   postService,
		maxUploadSize: maxUploadSizeMB << 20,
		logger:        logger,
	}
}

func postKind(w http.ResponseWriter, r *http.Request) (*domain.PostKind, bool) {
	k := r.URL.Query().Get("kind")
	if k == "" {
		return nil, true
	}
	kind := domain.PostKind(k)
	if !kind.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Invalid kind: must be blog or portfolio")
		return nil, false
	}
	return &kind, true
}

// ListPublished godoc
// @Summary List published posts
// @Tags Posts
// @Produce json
// @Param kind query string false "Post kind" Enums(blog, portfolio)
// @Param search query string false "Search titles"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Param lang query string false "Response language (es, en)"
// @Success 200 {object} domain.PaginatedResponse
// @Router /public/posts [get]
func (h *PostHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	kind, ok := postKind(w, r)
	if !ok {
		return
	}
	page, pageSize := pagination(r)

	result, err := h.postService.ListPublished(r.Context(), page, pageSize, kind, r.URL.Query().Get("search"), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list posts")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetPublished godoc
// @Summary Get published post
// @Tags Posts
// @Produce json
// @Param slug path string true "Post slug"
// @Param lang query string false "Response language (es, en)"
// @Success 200 {object} domain.PostDTO
// @Failure 404 {object} domain.APIError
// @Router /public/posts/{slug} [get]
func (h *PostHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"), locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "get post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Cover godoc
// @Summary Get post cover image
// @Tags Posts
// @Produce image/jpeg,image/png,image/webp,image/gif
// @Param slug path string true "Post slug"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Router /public/posts/{slug}/cover [get]
func (h *PostHandler) Cover(w http.ResponseWriter, r *http.Request) {
	reader, file, err := h.postService.OpenCover(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, h.logger, err, "load cover")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream cover", zap.String("file_id", file.ID.String()), zap.Error(err))
	}
}

// List godoc
// @Summary List posts
// @Description Lists drafts and published posts
// @Tags Posts
// @Produce json
// @Param kind query string false "Post kind" Enums(blog, portfolio)
// @Param published query bool false "Only published posts"
// @Param search query string false "Search titles"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts [get]
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := postKind(w, r)
	if !ok {
		return
	}
	page, pageSize := pagination(r)
	publishedOnly, _ := strconv.ParseBool(r.URL.Query().Get("published"))

	result, err := h.postService.List(r.Context(), page, pageSize, repository.PostFilters{
		Kind:          kind,
		PublishedOnly: publishedOnly,
		Search:        r.URL.Query().Get("search"),
	}, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list posts")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get post
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} domain.PostDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts/{id} [get]
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "post")
	if !ok {
		return
	}
	post, err := h.postService.GetByID(r.Context(), id, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "get post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Create godoc
// @Summary Create post
// @Tags Posts
// @Accept json
// @Produce json
// @Param request body domain.PostRequest true "Post"
// @Success 201 {object} domain.PostDTO
// @Failure 409 {object} domain.APIError "Slug already used"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts [post]
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.postService.Create(r.Context(), &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "create post")
		return
	}

	w.Header().Set("Location", "/api/v1/posts/"+post.ID.String())
	respondJSON(w, http.StatusCreated, post)
}

// Update godoc
// @Summary Update post
// @Tags Posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body domain.PostRequest true "Post"
// @Success 200 {object} domain.PostDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts/{id} [put]
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "post")
	if !ok {
		return
	}
	var req domain.PostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.postService.Update(r.Context(), id, &req, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "update post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Publish godoc
// @Summary Publish post
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} domain.PostDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts/{id}/publish [post]
func (h *PostHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// Unpublish godoc
// @Summary Unpublish post
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} domain.PostDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts/{id}/unpublish [post]
func (h *PostHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *PostHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	id, ok := pathUUID(w, r, "id", "post")
	if !ok {
		return
	}
	post, err := h.postService.SetPublished(r.Context(), id, published, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "publish post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// UploadCover godoc
// @Summary Upload post cover
// @Description Replaces the cover image of a post
// @Tags Posts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID"
// @Param file formData file true "Image (jpeg, png, webp or gif)"
// @Success 200 {object} domain.PostDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts/{id}/cover [post]
func (h *PostHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "post")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload limit")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	post, err := h.postService.UploadCover(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), file, locale(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "upload cover")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Delete godoc
// @Summary Delete post
// @Tags Posts
// @Param id path string true "Post ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "post")
	if !ok {
		return
	}
	if err := h.postService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
