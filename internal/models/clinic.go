package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// OpeningHours holds "HH:MM" open/close times for one weekday.
type OpeningHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Clinic is an independent location that employs veterinarians.
type Clinic struct {
	BaseModel
	Name         string         `gorm:"size:200;not null;index" json:"name"`
	Address      string         `gorm:"size:255" json:"address"`
	City         string         `gorm:"size:100;index" json:"city"`
	Phone        string         `gorm:"size:50" json:"phone,omitempty"`
	Email        string         `gorm:"size:255" json:"email,omitempty"`
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	OpeningHours datatypes.JSON `json:"openingHours,omitempty"` // weekday name (lower case) -> OpeningHours
	IsActive     bool           `gorm:"not null" json:"isActive"`

	Veterinarians []Veterinarian  `gorm:"foreignKey:ClinicID" json:"veterinarians,omitempty"`
	Services      []ClinicService `gorm:"foreignKey:ClinicID" json:"services,omitempty"`
}

// HoursFor returns the opening hours of the clinic on the given weekday.
// ok is false when the clinic has no hours configured at all; a configured
// weekday with empty times means closed.
func (c *Clinic) HoursFor(day time.Weekday) (hours OpeningHours, open bool, ok bool) {
	if len(c.OpeningHours) == 0 {
		return OpeningHours{}, false, false
	}
	var byDay map[string]OpeningHours
	if err := json.Unmarshal(c.OpeningHours, &byDay); err != nil {
		return OpeningHours{}, false, false
	}
	h, found := byDay[strings.ToLower(day.String())]
	if !found || h.Open == "" || h.Close == "" {
		return OpeningHours{}, false, true
	}
	return h, true, true
}

// ClinicService is an optional billable service an appointment may reference.
type ClinicService struct {
	BaseModel
	ClinicID        string  `gorm:"size:36;index;not null" json:"clinicId"`
	Name            string  `gorm:"size:200;not null" json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
}
