package booking

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

// DefaultDailyLimit is the number of active appointments a pet owner may hold
// on one calendar date.
const DefaultDailyLimit = 5

// Candidate is a booking request reduced to what the checks need. Date and
// Time must already be normalized.
type Candidate struct {
	PetOwnerID     string
	PatientID      string
	VeterinarianID string
	Date           string
	Time           string
}

// Checker decides whether a candidate appointment may be created.
type Checker struct {
	DailyLimit int
}

// Check runs the ownership, availability, slot and daily cap checks in that
// order and stops at the first failure. When tx is a transaction the
// veterinarian and pet owner rows are locked until it ends, so concurrent
// bookings for either are serialized. It returns the veterinarian.
func (c Checker) Check(ctx context.Context, tx *gorm.DB, cand Candidate) (*models.Veterinarian, error) {
	db := tx.WithContext(ctx)

	var patient models.Patient
	if err := db.Select("id", "owner_id").First(&patient, "id = ?", cand.PatientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("patient not found")
		}
		return nil, apperr.Internal("failed to load patient", err)
	}
	if patient.OwnerID != cand.PetOwnerID {
		return nil, apperr.New(apperr.KindForbidden, apperr.CodeUnauthorized, "you can only book appointments for your own pets")
	}

	var owner models.PetOwner
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&owner, "id = ?", cand.PetOwnerID).Error; err != nil {
		return nil, apperr.Internal("failed to lock pet owner", err)
	}

	var vet models.Veterinarian
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vet, "id = ?", cand.VeterinarianID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("veterinarian not found")
		}
		return nil, apperr.Internal("failed to load veterinarian", err)
	}
	if !vet.IsAvailable {
		return nil, apperr.ErrVeterinarianUnavailable
	}

	var taken int64
	if err := db.Model(&models.Appointment{}).
		Where("veterinarian_id = ? AND appointment_date = ? AND appointment_time = ? AND status IN ?",
			cand.VeterinarianID, cand.Date, cand.Time, models.ActiveStatuses).
		Count(&taken).Error; err != nil {
		return nil, apperr.Internal("failed to check slot", err)
	}
	if taken > 0 {
		return nil, apperr.ErrSlotTaken
	}

	limit := c.DailyLimit
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	var booked int64
	if err := db.Model(&models.Appointment{}).
		Where("pet_owner_id = ? AND appointment_date = ? AND status IN ?", cand.PetOwnerID, cand.Date, models.ActiveStatuses).
		Count(&booked).Error; err != nil {
		return nil, apperr.Internal("failed to check daily limit", err)
	}
	if booked >= int64(limit) {
		return nil, apperr.New(apperr.KindConflict, apperr.CodeDailyLimitExceeded,
			fmt.Sprintf("You already have %d appointments on %s. Please try another date.", booked, cand.Date))
	}

	return &vet, nil
}
