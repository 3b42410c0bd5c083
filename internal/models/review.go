package models

// Review is left once per completed appointment and never edited.
type Review struct {
	BaseModel
	AppointmentID  string `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	PetOwnerID     string `gorm:"size:36;index;not null" json:"petOwnerId"`
	VeterinarianID string `gorm:"size:36;index;not null" json:"veterinarianId"`
	Rating         int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment        string `gorm:"type:text" json:"comment,omitempty"`
}
