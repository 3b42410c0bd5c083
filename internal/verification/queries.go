package verification

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

// List returns applications, optionally filtered by status, newest first.
func (s *Service) List(ctx context.Context, status models.ApplicationStatus, page, limit int) ([]models.VeterinarianApplication, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	q := s.DB.WithContext(ctx).Model(&models.VeterinarianApplication{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("failed to count applications", err)
	}
	var apps []models.VeterinarianApplication
	if err := q.Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&apps).Error; err != nil {
		return nil, 0, apperr.Internal("failed to fetch applications", err)
	}
	return apps, total, nil
}

// Get returns an application with its document metadata.
func (s *Service) Get(ctx context.Context, id string) (*models.VeterinarianApplication, error) {
	var app models.VeterinarianApplication
	err := s.DB.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "application_id", "kind", "file_name", "content_type", "size", "object_key", "created_at", "updated_at")
		}).
		First(&app, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, apperr.Internal("failed to load application", err)
	}
	return &app, nil
}

// Document returns one uploaded document including its content.
func (s *Service) Document(ctx context.Context, applicationID, documentID string) (*models.ApplicationDocument, error) {
	var doc models.ApplicationDocument
	err := s.DB.WithContext(ctx).First(&doc, "id = ? AND application_id = ?", documentID, applicationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, apperr.Internal("failed to load document", err)
	}
	return &doc, nil
}
