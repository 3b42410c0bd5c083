package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

// ListFilter narrows appointment listings.
type ListFilter struct {
	Status         models.AppointmentStatus
	Date           string
	PetOwnerID     string
	VeterinarianID string
	ClinicID       string
	Page           int
	Limit          int
}

func (f ListFilter) offset() (int, int) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return (page - 1) * limit, limit
}

// List returns one page of appointments matching f, newest date first, with
// patient, veterinarian and clinic summaries, plus the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Appointment, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Appointment{})
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, 0, apperr.Validation(fmt.Sprintf("unknown status %q", f.Status))
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		date, err := ParseDate(f.Date)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("appointment_date = ?", date)
	}
	if f.PetOwnerID != "" {
		q = q.Where("pet_owner_id = ?", f.PetOwnerID)
	}
	if f.VeterinarianID != "" {
		q = q.Where("veterinarian_id = ?", f.VeterinarianID)
	}
	if f.ClinicID != "" {
		q = q.Where("clinic_id = ?", f.ClinicID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("failed to count appointments", err)
	}

	offset, limit := f.offset()
	var appointments []models.Appointment
	err := q.Preload("Patient").Preload("Veterinarian").Preload("Clinic").
		Order("appointment_date desc, appointment_time desc").
		Offset(offset).Limit(limit).
		Find(&appointments).Error
	if err != nil {
		return nil, 0, apperr.Internal("failed to fetch appointments", err)
	}
	return appointments, total, nil
}

// SlotLength is the granularity of bookable slots.
const SlotLength = 30 * time.Minute

var defaultHours = models.OpeningHours{Open: "09:00", Close: "17:00"}

// Slot is one bookable time on a date.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Availability lists the slots of a veterinarian on date. Slots follow the
// clinic's opening hours for that weekday, defaulting to 09:00-17:00, and are
// unavailable when taken by an active appointment or already past.
func (s *Service) Availability(ctx context.Context, veterinarianID, date string) ([]Slot, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	var vet models.Veterinarian
	if err := s.DB.WithContext(ctx).Preload("Clinic").First(&vet, "id = ?", veterinarianID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("veterinarian not found")
		}
		return nil, apperr.Internal("failed to load veterinarian", err)
	}
	if !vet.IsAvailable {
		return []Slot{}, nil
	}

	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	day, _ := time.ParseInLocation(dateLayout, date, loc)

	hours := defaultHours
	if vet.Clinic != nil {
		h, open, configured := vet.Clinic.HoursFor(day.Weekday())
		if configured && !open {
			return []Slot{}, nil
		}
		if configured {
			hours = h
		}
	}
	start, err := clockOn(day, hours.Open)
	if err != nil {
		return nil, apperr.Internal("invalid clinic opening hours", err)
	}
	end, err := clockOn(day, hours.Close)
	if err != nil {
		return nil, apperr.Internal("invalid clinic opening hours", err)
	}

	var taken []string
	if err := s.DB.WithContext(ctx).Model(&models.Appointment{}).
		Where("veterinarian_id = ? AND appointment_date = ? AND status IN ?", veterinarianID, date, models.ActiveStatuses).
		Pluck("appointment_time", &taken).Error; err != nil {
		return nil, apperr.Internal("failed to load booked slots", err)
	}
	busy := make(map[string]bool, len(taken))
	for _, t := range taken {
		busy[t] = true
	}

	now := s.now()
	slots := []Slot{}
	for t := start; t.Add(SlotLength).Compare(end) <= 0; t = t.Add(SlotLength) {
		clock := t.Format(clockLayout)
		slots = append(slots, Slot{
			Time:      t.Format("15:04"),
			Available: !busy[clock] && t.After(now),
		})
	}
	return slots, nil
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	clock, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := time.Parse(clockLayout, clock)
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location()), nil
}
