// Package reviews records appointment reviews and keeps veterinarian ratings
// current.
package reviews

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vetcare-server/internal/analytics"
	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

// Service creates and reads reviews.
type Service struct {
	DB *gorm.DB
}

// NewService creates a reviews Service.
func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Create stores owner's review of a completed appointment and recomputes the
// veterinarian's average rating.
func (s *Service) Create(ctx context.Context, owner *models.PetOwner, appointmentID string, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	review := &models.Review{
		AppointmentID: appointmentID,
		PetOwnerID:    owner.ID,
		Rating:        rating,
		Comment:       strings.TrimSpace(comment),
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appointment models.Appointment
		if err := tx.First(&appointment, "id = ?", appointmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("appointment not found")
			}
			return apperr.Internal("failed to load appointment", err)
		}
		if appointment.PetOwnerID != owner.ID {
			return apperr.New(apperr.KindForbidden, apperr.CodeUnauthorized, "you can only review your own appointments")
		}
		if appointment.Status != models.StatusCompleted {
			return apperr.Validation("only completed appointments can be reviewed")
		}
		review.VeterinarianID = appointment.VeterinarianID

		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "this appointment has already been reviewed")
			}
			return apperr.Internal("failed to save review", err)
		}

		var vet models.Veterinarian
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&vet, "id = ?", review.VeterinarianID).Error; err != nil {
			return apperr.Internal("failed to lock veterinarian", err)
		}
		var avg float64
		if err := tx.Model(&models.Review{}).Where("veterinarian_id = ?", review.VeterinarianID).
			Select("COALESCE(AVG(rating), 0)").Scan(&avg).Error; err != nil {
			return apperr.Internal("failed to compute rating", err)
		}
		if err := tx.Model(&models.Veterinarian{}).Where("id = ?", review.VeterinarianID).
			Update("rating", analytics.Round2(avg)).Error; err != nil {
			return apperr.Internal("failed to update rating", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ForVeterinarian returns the reviews of a veterinarian, newest first, and
// their summary.
func (s *Service) ForVeterinarian(ctx context.Context, veterinarianID string) ([]models.Review, analytics.RatingSummary, error) {
	var items []models.Review
	if err := s.DB.WithContext(ctx).Where("veterinarian_id = ?", veterinarianID).Order("created_at desc").Find(&items).Error; err != nil {
		return nil, analytics.RatingSummary{}, apperr.Internal("failed to fetch reviews", err)
	}
	ratings := make([]int, len(items))
	for i, r := range items {
		ratings[i] = r.Rating
	}
	return items, analytics.Ratings(ratings), nil
}
