package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType tags an in-app notification.
type NotificationType string

const (
	NotificationAppointmentBooked  NotificationType = "appointment_booked"
	NotificationAppointmentUpdated NotificationType = "appointment_updated"
	NotificationApplicationResult  NotificationType = "application_result"
)

// Notification is a user-facing in-app notification record.
type Notification struct {
	BaseModel
	UserID  string           `gorm:"size:36;index;not null" json:"userId"`
	Type    NotificationType `gorm:"size:40;not null" json:"type"`
	Title   string           `gorm:"size:255" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	IsRead  bool             `json:"isRead"`
	ReadAt  *time.Time       `json:"readAt,omitempty"`
	Data    datatypes.JSON   `json:"data,omitempty"`
}
