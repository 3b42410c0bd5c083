package models

import (
	"time"
)

// MedicalRecordType represents the type of medical record
type MedicalRecordType string

const (
	RecordTypeConsultation MedicalRecordType = "ConsultationNote"
	RecordTypeLabResult    MedicalRecordType = "LabResult"
	RecordTypePrescription MedicalRecordType = "Prescription"
	RecordTypeVaccination  MedicalRecordType = "VaccinationRecord"
	RecordTypeSurgery      MedicalRecordType = "SurgeryReport"
	RecordTypeAllergy      MedicalRecordType = "AllergyRecord"
)

// MedicalRecord is a clinical entry a veterinarian writes for a patient.
type MedicalRecord struct {
	BaseModel
	PatientID      string            `gorm:"size:36;index" json:"patientId"`
	VeterinarianID string            `gorm:"size:36;index" json:"veterinarianId"`
	AppointmentID  *string           `gorm:"size:36;index" json:"appointmentId,omitempty"`
	RecordType     MedicalRecordType `gorm:"size:50" json:"recordType"`
	RecordDate     time.Time         `json:"date"`
	Title          string            `gorm:"size:255;not null" json:"title"`
	Diagnosis      string            `gorm:"type:text" json:"diagnosis,omitempty"`
	Treatment      string            `gorm:"type:text" json:"treatment,omitempty"`
	Summary        string            `gorm:"type:text" json:"summary"`

	Attachments []MedicalRecordAttachment `gorm:"foreignKey:MedicalRecordID" json:"attachments,omitempty"`
}

// MedicalRecordAttachment represents a file attached to a medical record
type MedicalRecordAttachment struct {
	BaseModel
	MedicalRecordID string `json:"medicalRecordId" gorm:"not null;type:varchar(36)"`
	FileName        string `json:"fileName" gorm:"not null"`
	FileType        string `json:"fileType" gorm:"not null"`
	FileData        []byte `json:"-" gorm:"not null"`
}
