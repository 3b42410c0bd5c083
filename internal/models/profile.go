package models

import "time"

// VerificationStatus tracks where an account is in the veterinarian review flow.
type VerificationStatus string

const (
	VerificationNotRequired VerificationStatus = "not_required"
	VerificationPending     VerificationStatus = "pending"
	VerificationApproved    VerificationStatus = "approved"
	VerificationRejected    VerificationStatus = "rejected"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Profile is 1:1 with a User and shares its id.
type Profile struct {
	ID                 string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email              string             `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName           string             `gorm:"size:200" json:"fullName"`
	Phone              string             `gorm:"size:50" json:"phone,omitempty"`
	Role               Role               `gorm:"size:20;not null" json:"role"`
	IsActive           bool               `gorm:"not null" json:"isActive"`
	VerificationStatus VerificationStatus `gorm:"size:20;not null" json:"verificationStatus"`
	Theme              string             `gorm:"size:10" json:"theme"`
	Locale             string             `gorm:"size:10" json:"locale"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// PetOwner is the role profile of a pet owner; patients reference its id.
type PetOwner struct {
	BaseModel
	UserID           string `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	Address          string `gorm:"size:255" json:"address,omitempty"`
	City             string `gorm:"size:100" json:"city,omitempty"`
	EmergencyContact string `gorm:"size:100" json:"emergencyContact,omitempty"`
}
