// Package stories stores pet diary entries.
package stories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

// DefaultSaveTimeout bounds a diary save.
const DefaultSaveTimeout = 10 * time.Second

// Service persists stories.
type Service struct {
	DB          *gorm.DB
	SaveTimeout time.Duration
}

// NewService creates a stories Service.
func NewService(db *gorm.DB, saveTimeout time.Duration) *Service {
	return &Service{DB: db, SaveTimeout: saveTimeout}
}

// Input is a new diary entry.
type Input struct {
	PatientID string
	Title     string
	Content   string
	Mood      string
}

// Save stores a story for owner. If the write has not finished within the
// save timeout it returns SaveTimeout; the write may still complete.
func (s *Service) Save(ctx context.Context, owner *models.PetOwner, in Input) (*models.Story, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	story := &models.Story{
		PetOwnerID: owner.ID,
		Title:      title,
		Content:    in.Content,
		Mood:       strings.TrimSpace(in.Mood),
	}

	timeout := s.SaveTimeout
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.write(ctx, owner, in.PatientID, story)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return story, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn().Str("pet_owner_id", owner.ID).Dur("timeout", timeout).Msg("story save timed out")
			return nil, apperr.New(apperr.KindTimeout, apperr.CodeSaveTimeout,
				"saving your story took too long; it may or may not have been saved, please check before retrying")
		}
		return nil, ctx.Err()
	}
}

func (s *Service) write(ctx context.Context, owner *models.PetOwner, patientID string, story *models.Story) error {
	db := s.DB.WithContext(ctx)
	if patientID != "" {
		var count int64
		if err := db.Model(&models.Patient{}).Where("id = ? AND owner_id = ?", patientID, owner.ID).Count(&count).Error; err != nil {
			return apperr.Internal("failed to check pet", err)
		}
		if count == 0 {
			return apperr.NotFound("pet not found")
		}
		story.PatientID = &patientID
	}
	if err := db.Create(story).Error; err != nil {
		return apperr.Internal("failed to save story", err)
	}
	return nil
}

// List returns the stories of owner, newest first, optionally for one pet.
func (s *Service) List(ctx context.Context, owner *models.PetOwner, patientID string) ([]models.Story, error) {
	q := s.DB.WithContext(ctx).Where("pet_owner_id = ?", owner.ID)
	if patientID != "" {
		q = q.Where("patient_id = ?", patientID)
	}
	var items []models.Story
	if err := q.Order("created_at desc").Find(&items).Error; err != nil {
		return nil, apperr.Internal("failed to fetch stories", err)
	}
	return items, nil
}

// Delete removes one of owner's stories.
func (s *Service) Delete(ctx context.Context, owner *models.PetOwner, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND pet_owner_id = ?", id, owner.ID).Delete(&models.Story{})
	if res.Error != nil {
		return apperr.Internal("failed to delete story", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("story not found")
	}
	return nil
}
