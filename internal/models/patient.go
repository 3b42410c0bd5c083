package models

// Patient is a pet. It belongs to exactly one pet owner.
type Patient struct {
	BaseModel
	OwnerID      string  `gorm:"size:36;index;not null" json:"ownerId"`
	Name         string  `gorm:"size:100;not null" json:"name"`
	Species      string  `gorm:"size:50;index" json:"species"`
	Breed        string  `gorm:"size:100" json:"breed,omitempty"`
	Gender       string  `gorm:"size:20" json:"gender,omitempty"`
	DateOfBirth  string  `gorm:"size:10" json:"dateOfBirth,omitempty"`
	WeightKg     float64 `json:"weightKg,omitempty"`
	Color        string  `gorm:"size:50" json:"color,omitempty"`
	Allergies    string  `gorm:"type:text" json:"allergies,omitempty"`
	MedicalNotes string  `gorm:"type:text" json:"medicalNotes,omitempty"`
}
