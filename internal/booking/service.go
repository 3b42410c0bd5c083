// Package booking implements appointment booking and the appointment status
// state machine.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/models"
)

const (
	DefaultDuration = 30
	MinDuration     = 15
	MaxDuration     = 180
)

// Notifier records in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Service creates appointments and moves them through their lifecycle.
type Service struct {
	DB         *gorm.DB
	Notifier   Notifier
	DailyLimit int
	Location   *time.Location
	Now        func() time.Time
}

// NewService creates a booking Service.
func NewService(db *gorm.DB, notifier Notifier, dailyLimit int, loc *time.Location) *Service {
	return &Service{DB: db, Notifier: notifier, DailyLimit: dailyLimit, Location: loc, Now: time.Now}
}

// CreateInput is a booking request from a pet owner.
type CreateInput struct {
	PatientID         string
	VeterinarianID    string
	ClinicID          string
	ServiceID         string
	Date              string
	Time              string
	ReasonForVisit    string
	Symptoms          string
	Notes             string
	EstimatedDuration *int
	TotalAmount       *float64
	BookingType       string
}

// ClampDuration applies the default and the 15..180 minute bounds.
func ClampDuration(d *int) int {
	if d == nil || *d == 0 {
		return DefaultDuration
	}
	return min(max(*d, MinDuration), MaxDuration)
}

// FloorAmount defaults a missing amount to 0 and floors negatives at 0.
func FloorAmount(a *float64) float64 {
	if a == nil || math.IsNaN(*a) {
		return 0
	}
	return math.Max(*a, 0)
}

// Create books an appointment for owner. The checks and the insert run in one
// transaction; the unique active slot key rejects a concurrent double booking
// that slips past the pre-check.
func (s *Service) Create(ctx context.Context, owner *models.PetOwner, in CreateInput) (*models.Appointment, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	clock, err := ParseClock(in.Time)
	if err != nil {
		return nil, err
	}
	if IsPast(date, s.now(), s.Location) {
		return nil, apperr.Validation("appointment date cannot be in the past")
	}

	bookingType := strings.TrimSpace(in.BookingType)
	if bookingType == "" {
		bookingType = "online"
	}
	appointment := &models.Appointment{
		PetOwnerID:        owner.ID,
		PatientID:         in.PatientID,
		VeterinarianID:    in.VeterinarianID,
		ClinicID:          in.ClinicID,
		AppointmentDate:   date,
		AppointmentTime:   clock,
		Status:            models.StatusPending,
		ReasonForVisit:    in.ReasonForVisit,
		Symptoms:          in.Symptoms,
		Notes:             in.Notes,
		EstimatedDuration: ClampDuration(in.EstimatedDuration),
		TotalAmount:       FloorAmount(in.TotalAmount),
		PaymentStatus:     models.PaymentUnpaid,
		BookingType:       bookingType,
	}
	if in.ServiceID != "" {
		appointment.ServiceID = &in.ServiceID
	}

	var vet *models.Veterinarian
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		vet, err = Checker{DailyLimit: s.DailyLimit}.Check(ctx, tx, Candidate{
			PetOwnerID:     owner.ID,
			PatientID:      in.PatientID,
			VeterinarianID: in.VeterinarianID,
			Date:           date,
			Time:           clock,
		})
		if err != nil {
			return err
		}
		if appointment.ClinicID == "" && vet.ClinicID != nil {
			appointment.ClinicID = *vet.ClinicID
		}
		if appointment.ServiceID != nil {
			var svc models.ClinicService
			if err := tx.First(&svc, "id = ? AND clinic_id = ?", *appointment.ServiceID, appointment.ClinicID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("service not found at this clinic")
				}
				return apperr.Internal("failed to load service", err)
			}
		}
		key := models.SlotKey(vet.ID, date, clock)
		appointment.ActiveSlotKey = &key
		if err := tx.Create(appointment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrSlotTaken
			}
			return apperr.Internal("failed to create appointment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, vet.UserID, models.NotificationAppointmentBooked, "New appointment request",
		fmt.Sprintf("A new appointment was requested for %s at %s.", date, clock[:5]), appointment)
	return appointment, nil
}

// Actor is the party performing a transition.
type Actor int

const (
	ActorPetOwner Actor = iota
	ActorVeterinarian
	ActorAdmin
)

func actorOf(p *identity.Principal) Actor {
	return identity.Match(p,
		func(*models.PetOwner) Actor { return ActorPetOwner },
		func(*models.Veterinarian) Actor { return ActorVeterinarian },
		func() Actor { return ActorAdmin },
	)
}

type edge struct {
	from, to models.AppointmentStatus
}

var transitions = map[edge][]Actor{
	{models.StatusPending, models.StatusConfirmed}:    {ActorVeterinarian, ActorAdmin},
	{models.StatusPending, models.StatusCancelled}:    {ActorPetOwner, ActorVeterinarian},
	{models.StatusConfirmed, models.StatusInProgress}: {ActorVeterinarian},
	{models.StatusConfirmed, models.StatusCompleted}:  {ActorVeterinarian},
	{models.StatusInProgress, models.StatusCompleted}: {ActorVeterinarian},
	{models.StatusConfirmed, models.StatusCancelled}:  {ActorPetOwner},
	{models.StatusPending, models.StatusNoShow}:       {ActorVeterinarian, ActorAdmin},
	{models.StatusConfirmed, models.StatusNoShow}:     {ActorVeterinarian, ActorAdmin},
	{models.StatusInProgress, models.StatusNoShow}:    {ActorVeterinarian, ActorAdmin},
}

// CanTransition reports whether actor may move an appointment from one status to another.
func CanTransition(from, to models.AppointmentStatus, actor Actor) bool {
	for _, a := range transitions[edge{from, to}] {
		if a == actor {
			return true
		}
	}
	return false
}

// Get returns the appointment if p is a party to it.
func (s *Service) Get(ctx context.Context, p *identity.Principal, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := s.DB.WithContext(ctx).
		Preload("Patient").Preload("Veterinarian").Preload("Clinic").
		First(&appointment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, apperr.Internal("failed to load appointment", err)
	}
	if !involved(p, &appointment) {
		return nil, apperr.New(apperr.KindForbidden, apperr.CodeUnauthorized, "you are not authorized to view this appointment")
	}
	return &appointment, nil
}

func involved(p *identity.Principal, a *models.Appointment) bool {
	return identity.Match(p,
		func(o *models.PetOwner) bool { return o.ID == a.PetOwnerID },
		func(v *models.Veterinarian) bool { return v.ID == a.VeterinarianID },
		func() bool { return true },
	)
}

// Transition moves an appointment to status to on behalf of p.
func (s *Service) Transition(ctx context.Context, p *identity.Principal, id string, to models.AppointmentStatus, reason string) (*models.Appointment, error) {
	if !to.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown status %q", to))
	}
	appointment, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	from := appointment.Status

	if to == models.StatusCancelled {
		if err := s.cancellable(appointment); err != nil {
			return nil, err
		}
	}
	if !CanTransition(from, to, actorOf(p)) {
		return nil, apperr.New(apperr.KindConflict, apperr.CodeInvalidTransition,
			fmt.Sprintf("cannot change appointment from %s to %s", from, to))
	}

	updates := map[string]interface{}{"status": to}
	if to.IsTerminal() {
		updates["active_slot_key"] = nil
	}
	if to == models.StatusCancelled {
		now := s.now()
		updates["cancelled_at"] = now
		updates["cancellation_reason"] = strings.TrimSpace(reason)
	}
	res := s.DB.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", appointment.ID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Internal("failed to update appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindConflict, apperr.CodeInvalidTransition, "appointment was changed by someone else, reload and try again")
	}

	updated, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	s.notifyCounterparty(ctx, p, updated)
	return updated, nil
}

// Cancel cancels an appointment. Only pending or confirmed appointments dated
// today or later can be cancelled.
func (s *Service) Cancel(ctx context.Context, p *identity.Principal, id, reason string) (*models.Appointment, error) {
	return s.Transition(ctx, p, id, models.StatusCancelled, reason)
}

func (s *Service) cancellable(a *models.Appointment) error {
	if IsPast(a.AppointmentDate, s.now(), s.Location) {
		return apperr.New(apperr.KindConflict, apperr.CodeCannotCancel, "past appointments cannot be cancelled")
	}
	if a.Status != models.StatusPending && a.Status != models.StatusConfirmed {
		return apperr.New(apperr.KindConflict, apperr.CodeCannotCancel,
			fmt.Sprintf("a %s appointment cannot be cancelled", a.Status))
	}
	return nil
}

func (s *Service) notifyCounterparty(ctx context.Context, p *identity.Principal, a *models.Appointment) {
	var recipient string
	switch actorOf(p) {
	case ActorPetOwner:
		if a.Veterinarian != nil {
			recipient = a.Veterinarian.UserID
		}
	default:
		var owner models.PetOwner
		if err := s.DB.WithContext(ctx).Select("user_id").First(&owner, "id = ?", a.PetOwnerID).Error; err != nil {
			log.Warn().Err(err).Str("appointment_id", a.ID).Msg("failed to resolve pet owner for notification")
			return
		}
		recipient = owner.UserID
	}
	if recipient == "" {
		return
	}
	s.notify(ctx, recipient, models.NotificationAppointmentUpdated, "Appointment updated",
		fmt.Sprintf("Your appointment on %s is now %s.", a.AppointmentDate, a.Status), a)
}

// notify is best-effort: failures are logged and never undo the booking.
func (s *Service) notify(ctx context.Context, userID string, typ models.NotificationType, title, message string, a *models.Appointment) {
	if s.Notifier == nil {
		return
	}
	data, _ := models.JSONData(map[string]string{"appointmentId": a.ID, "status": string(a.Status)})
	n := &models.Notification{UserID: userID, Type: typ, Title: title, Message: message, Data: data}
	if err := s.Notifier.Notify(ctx, n); err != nil {
		log.Warn().Err(err).Str("appointment_id", a.ID).Str("user_id", userID).Msg("failed to create appointment notification")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
