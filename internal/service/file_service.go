package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/mapper"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Image types accepted as post covers
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// FileService stores uploaded media and tracks it in the files table
type FileService struct {
	fileRepo *repository.FileRepository
	storage  storage.Storage
	logger   *zap.Logger
}

func NewFileService(fileRepo *repository.FileRepository, storage storage.Storage, logger *zap.Logger) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		storage:  storage,
		logger:   logger,
	}
}

// UploadImage stores an image under folder and records it, optionally attached to a post
func (s *FileService) UploadImage(ctx context.Context, folder, filename, contentType string, data io.Reader, postID *uuid.UUID) (*domain.File, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedImageTypes[contentType] {
		return nil, invalidField("file", "unsupported image type")
	}

	storagePath, size, err := s.storage.Upload(ctx, folder, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	file := &domain.File{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
		PostID:      postID,
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", storagePath), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}

	s.logger.Info("file uploaded",
		zap.String("file_id", file.ID.String()),
		zap.String("path", storagePath),
		zap.Int64("size", size))
	return file, nil
}

func (s *FileService) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileDTO, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	dto := mapper.ToFileDTO(file)
	return &dto, nil
}

// Download opens the stored content of a file. The caller closes the reader.
func (s *FileService) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *domain.File, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("failed to get file: %w", err)
	}

	reader, err := s.storage.Download(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("failed to download file: %w", err)
	}
	return reader, file, nil
}

// Delete removes the record and then the stored object. A missing object is not an error.
func (s *FileService) Delete(ctx context.Context, id uuid.UUID) error {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to get file: %w", err)
	}

	if err := s.fileRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	if err := s.storage.Delete(ctx, file.StoragePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("failed to delete stored object", zap.String("path", file.StoragePath), zap.Error(err))
	}
	return nil
}
