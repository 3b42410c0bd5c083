package models

// Veterinarian is linked 1:1 with a user identity and optionally to a clinic.
type Veterinarian struct {
	BaseModel
	UserID          string  `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	ClinicID        *string `gorm:"size:36;index" json:"clinicId,omitempty"`
	FullName        string  `gorm:"size:200" json:"fullName"`
	Specialization  string  `gorm:"size:100;index" json:"specialization"`
	LicenseNumber   string  `gorm:"size:100" json:"licenseNumber"`
	YearsExperience int     `json:"yearsExperience"`
	ConsultationFee float64 `json:"consultationFee"`
	IsAvailable     bool    `gorm:"not null" json:"isAvailable"`
	Rating          float64 `json:"rating"`
	Bio             string  `gorm:"type:text" json:"bio,omitempty"`

	Clinic *Clinic `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
}
