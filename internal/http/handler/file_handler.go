package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/nexo-studio/agency-api/internal/service"
	"go.uber.org/zap"
)

type FileHandler struct {
	fileService *service.FileService
	logger      *zap.Logger
}

func NewFileHandler(fileService *service.FileService, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		logger:      logger,
	}
}

// GetByID godoc
// @Summary Get file metadata
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} domain.FileDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /files/{id} [get]
func (h *FileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "file")
	if !ok {
		return
	}

	file, err := h.fileService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get file")
		return
	}
	respondJSON(w, http.StatusOK, file)
}

// Download godoc
// @Summary Download file
// @Tags Files
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /files/{id}/download [get]
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "file")
	if !ok {
		return
	}

	reader, file, err := h.fileService.Download(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "download file")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream file", zap.String("file_id", file.ID.String()), zap.Error(err))
	}
}
