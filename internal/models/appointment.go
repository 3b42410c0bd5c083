package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "pending"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// ActiveStatuses are the statuses that occupy a slot and count toward the daily cap.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusInProgress}

// IsActive reports whether the status occupies its slot.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Appointment is a booked visit of a patient with a veterinarian.
type Appointment struct {
	BaseModel
	PetOwnerID        string            `gorm:"size:36;index;not null" json:"petOwnerId"`
	PatientID         string            `gorm:"size:36;index;not null" json:"patientId"`
	VeterinarianID    string            `gorm:"size:36;index:idx_appointment_vet_date;not null" json:"veterinarianId"`
	ClinicID          string            `gorm:"size:36;index" json:"clinicId"`
	ServiceID         *string           `gorm:"size:36" json:"serviceId,omitempty"`
	AppointmentDate   string            `gorm:"size:10;index:idx_appointment_vet_date;not null" json:"appointmentDate"`
	AppointmentTime   string            `gorm:"size:8;not null" json:"appointmentTime"`
	Status            AppointmentStatus `gorm:"size:20;index;not null" json:"status"`
	ReasonForVisit    string            `gorm:"size:255" json:"reasonForVisit"`
	Symptoms          string            `gorm:"type:text" json:"symptoms,omitempty"`
	Notes             string            `gorm:"type:text" json:"notes,omitempty"`
	EstimatedDuration int               `json:"estimatedDuration"`
	TotalAmount       float64           `json:"totalAmount"`
	PaymentStatus     PaymentStatus     `gorm:"size:20" json:"paymentStatus"`
	BookingType       string            `gorm:"size:20" json:"bookingType"`
	// ActiveSlotKey is set while the appointment is active and cleared once it
	// reaches a terminal state; the unique index rejects double booking.
	ActiveSlotKey      *string    `gorm:"size:120;uniqueIndex" json:"-"`
	CancellationReason string     `gorm:"size:255" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`

	Patient      *Patient      `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Veterinarian *Veterinarian `gorm:"foreignKey:VeterinarianID" json:"veterinarian,omitempty"`
	Clinic       *Clinic       `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
}

// SlotKey identifies a (veterinarian, date, time) slot.
func SlotKey(veterinarianID, date, clock string) string {
	return veterinarianID + "|" + date + "|" + clock
}
