package models

import "time"

// ApplicationStatus is the review state of a veterinarian application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// VeterinarianApplication is created at self-registration and reviewed once by an admin.
type VeterinarianApplication struct {
	BaseModel
	UserID          string            `gorm:"size:36;index" json:"userId"`
	Email           string            `gorm:"size:255;index;not null" json:"email"`
	FullName        string            `gorm:"size:200;not null" json:"fullName"`
	Phone           string            `gorm:"size:50" json:"phone"`
	Specialization  string            `gorm:"size:100" json:"specialization"`
	LicenseNumber   string            `gorm:"size:100" json:"licenseNumber"`
	YearsExperience int               `json:"yearsExperience"`
	ConsultationFee float64           `json:"consultationFee"`
	Status          ApplicationStatus `gorm:"size:20;index;not null" json:"status"`
	ReviewedBy      *string           `gorm:"size:36" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewedAt,omitempty"`
	Remarks         string            `gorm:"type:text" json:"remarks,omitempty"`

	Documents []ApplicationDocument `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
}

const (
	DocumentBusinessPermit = "business_permit"
	DocumentGovernmentID   = "government_id"
)

// ApplicationDocument is an uploaded file. Objects are append-only and keyed
// by a generated unique ObjectKey.
type ApplicationDocument struct {
	BaseModel
	ApplicationID string `gorm:"size:36;index;not null" json:"applicationId"`
	Kind          string `gorm:"size:30;not null" json:"kind"`
	FileName      string `gorm:"size:255" json:"fileName"`
	ContentType   string `gorm:"size:100" json:"contentType"`
	Size          int64  `json:"size"`
	ObjectKey     string `gorm:"size:255;uniqueIndex;not null" json:"objectKey"`
	Data          []byte `gorm:"not null" json:"-"`
}
