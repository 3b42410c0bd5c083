package models

// Story is a pet diary entry written by a pet owner.
type Story struct {
	BaseModel
	PetOwnerID string  `gorm:"size:36;index;not null" json:"petOwnerId"`
	PatientID  *string `gorm:"size:36;index" json:"patientId,omitempty"`
	Title      string  `gorm:"size:200;not null" json:"title"`
	Content    string  `gorm:"type:text" json:"content"`
	Mood       string  `gorm:"size:30" json:"mood,omitempty"`
}
