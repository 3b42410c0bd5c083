package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// MedicalRecordHandler handles medical record related requests.
type MedicalRecordHandler struct {
	DB             *gorm.DB
	UploadMaxBytes int64
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(db *gorm.DB, uploadMaxBytes int64) *MedicalRecordHandler {
	return &MedicalRecordHandler{DB: db, UploadMaxBytes: uploadMaxBytes}
}

var recordTypes = map[models.MedicalRecordType]bool{
	models.RecordTypeConsultation: true,
	models.RecordTypeLabResult:    true,
	models.RecordTypePrescription: true,
	models.RecordTypeVaccination:  true,
	models.RecordTypeSurgery:      true,
	models.RecordTypeAllergy:      true,
}

// treats reports whether the veterinarian has an appointment with the patient.
func (h *MedicalRecordHandler) treats(ctx context.Context, vetID, patientID string) (bool, error) {
	var n int64
	err := h.DB.WithContext(ctx).Model(&models.Appointment{}).
		Where("veterinarian_id = ? AND patient_id = ?", vetID, patientID).
		Count(&n).Error
	return n > 0, err
}

// canRead reports whether the principal may read records of the patient.
// Owners read their own pets, veterinarians the pets they treat.
func (h *MedicalRecordHandler) canRead(ctx context.Context, p *identity.Principal, patientID string) bool {
	return identity.Match(p,
		func(o *models.PetOwner) bool {
			var n int64
			h.DB.WithContext(ctx).Model(&models.Patient{}).Where("id = ? AND owner_id = ?", patientID, o.ID).Count(&n)
			return n > 0
		},
		func(v *models.Veterinarian) bool {
			ok, _ := h.treats(ctx, v.ID, patientID)
			return ok
		},
		func() bool { return true },
	)
}

// CreateMedicalRecordRequest represents the request body for creating a medical record.
type CreateMedicalRecordRequest struct {
	PatientID     string                   `json:"patientId" binding:"required"`
	AppointmentID *string                  `json:"appointmentId"`
	RecordType    models.MedicalRecordType `json:"recordType" binding:"required"`
	RecordDate    string                   `json:"recordDate"`
	Title         string                   `json:"title" binding:"required,max=255"`
	Diagnosis     string                   `json:"diagnosis"`
	Treatment     string                   `json:"treatment"`
	Summary       string                   `json:"summary" binding:"required"`
}

// CreateMedicalRecord creates a record for a patient the calling veterinarian treats.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	vet, ok := requireVeterinarian(c)
	if !ok {
		return
	}
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !recordTypes[req.RecordType] {
		utils.BadRequest(c, "Invalid record type")
		return
	}

	ctx := c.Request.Context()
	treats, err := h.treats(ctx, vet.ID, req.PatientID)
	if err != nil {
		utils.RespondError(c, apperr.Internal("failed to check appointments", err))
		return
	}
	if !treats {
		utils.Forbidden(c, "You can only write records for patients you have an appointment with")
		return
	}
	if req.AppointmentID != nil {
		var n int64
		h.DB.WithContext(ctx).Model(&models.Appointment{}).
			Where("id = ? AND veterinarian_id = ? AND patient_id = ?", *req.AppointmentID, vet.ID, req.PatientID).
			Count(&n)
		if n == 0 {
			utils.NotFound(c, "Appointment not found")
			return
		}
	}

	recordDate := time.Now()
	if req.RecordDate != "" {
		recordDate, err = time.Parse(time.RFC3339, req.RecordDate)
		if err != nil {
			utils.BadRequest(c, "Invalid date format. Please use ISO 8601 format (YYYY-MM-DDTHH:MM:SSZ)")
			return
		}
	}

	record := models.MedicalRecord{
		PatientID:      req.PatientID,
		VeterinarianID: vet.ID,
		AppointmentID:  req.AppointmentID,
		RecordType:     req.RecordType,
		RecordDate:     recordDate,
		Title:          req.Title,
		Diagnosis:      req.Diagnosis,
		Treatment:      req.Treatment,
		Summary:        req.Summary,
	}
	if err := h.DB.WithContext(ctx).Create(&record).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to create medical record", err))
		return
	}
	utils.Created(c, "Medical record created successfully", record)
}

// GetMedicalRecordsForPatient lists the records of a patient the caller may read.
func (h *MedicalRecordHandler) GetMedicalRecordsForPatient(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	patientID := c.Param("id")
	if !h.canRead(c.Request.Context(), principal, patientID) {
		utils.Forbidden(c, "You are not authorized to view these medical records")
		return
	}

	var records []models.MedicalRecord
	if err := h.DB.WithContext(c.Request.Context()).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Omit("FileData") }).
		Where("patient_id = ?", patientID).
		Order("record_date desc").
		Find(&records).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to fetch medical records", err))
		return
	}
	utils.Success(c, "Medical records fetched successfully", records)
}

func (h *MedicalRecordHandler) load(c *gin.Context, id string) (*models.MedicalRecord, bool) {
	var record models.MedicalRecord
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Omit("FileData") }).
		First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.RespondError(c, apperr.Internal("failed to fetch medical record", err))
		}
		return nil, false
	}
	return &record, true
}

// GetMedicalRecordByID fetches one record the caller may read.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	record, ok := h.load(c, c.Param("id"))
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(c)
	if !h.canRead(c.Request.Context(), principal, record.PatientID) {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return
	}
	utils.Success(c, "Medical record fetched successfully", record)
}

// UpdateMedicalRecordRequest represents the request body for updating a medical record.
type UpdateMedicalRecordRequest struct {
	RecordType models.MedicalRecordType `json:"recordType,omitempty"`
	RecordDate string                   `json:"recordDate,omitempty"`
	Title      string                   `json:"title,omitempty" binding:"max=255"`
	Diagnosis  *string                  `json:"diagnosis,omitempty"`
	Treatment  *string                  `json:"treatment,omitempty"`
	Summary    string                   `json:"summary,omitempty"`
}

// UpdateMedicalRecord updates a record. Only its author may update it.
func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	vet, ok := requireVeterinarian(c)
	if !ok {
		return
	}
	var req UpdateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	record, ok := h.load(c, c.Param("id"))
	if !ok {
		return
	}
	if record.VeterinarianID != vet.ID {
		utils.Forbidden(c, "You are not authorized to update this medical record")
		return
	}

	if req.RecordType != "" {
		if !recordTypes[req.RecordType] {
			utils.BadRequest(c, "Invalid record type")
			return
		}
		record.RecordType = req.RecordType
	}
	if req.RecordDate != "" {
		parsedDate, err := time.Parse(time.RFC3339, req.RecordDate)
		if err != nil {
			utils.BadRequest(c, "Invalid date format for recordDate. Please use ISO 8601 format (YYYY-MM-DDTHH:MM:SSZ)")
			return
		}
		record.RecordDate = parsedDate
	}
	if req.Title != "" {
		record.Title = req.Title
	}
	if req.Diagnosis != nil {
		record.Diagnosis = *req.Diagnosis
	}
	if req.Treatment != nil {
		record.Treatment = *req.Treatment
	}
	if req.Summary != "" {
		record.Summary = req.Summary
	}

	if err := h.DB.WithContext(c.Request.Context()).Omit("Attachments").Save(record).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to update medical record", err))
		return
	}
	utils.Success(c, "Medical record updated successfully", record)
}

// AttachmentResponse is an attachment without its content.
type AttachmentResponse struct {
	ID              string    `json:"id"`
	MedicalRecordID string    `json:"medicalRecordId"`
	FileName        string    `json:"fileName"`
	FileType        string    `json:"fileType"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UploadMedicalRecordAttachment stores a file against a record written by the caller.
func (h *MedicalRecordHandler) UploadMedicalRecordAttachment(c *gin.Context) {
	vet, ok := requireVeterinarian(c)
	if !ok {
		return
	}
	record, ok := h.load(c, c.Param("id"))
	if !ok {
		return
	}
	if record.VeterinarianID != vet.ID {
		utils.Forbidden(c, "You are not authorized to update this medical record")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Error retrieving file from form: "+err.Error())
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, h.UploadMaxBytes+1))
	if err != nil {
		utils.RespondError(c, apperr.Internal("failed to read file", err))
		return
	}
	if int64(len(fileData)) > h.UploadMaxBytes {
		utils.BadRequest(c, fmt.Sprintf("File exceeds the %d byte limit", h.UploadMaxBytes))
		return
	}

	attachment := models.MedicalRecordAttachment{
		MedicalRecordID: record.ID,
		FileName:        header.Filename,
		FileType:        mimetype.Detect(fileData).String(),
		FileData:        fileData,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&attachment).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to store attachment", err))
		return
	}

	utils.Created(c, "File uploaded and linked to medical record successfully", AttachmentResponse{
		ID:              attachment.ID,
		MedicalRecordID: attachment.MedicalRecordID,
		FileName:        attachment.FileName,
		FileType:        attachment.FileType,
		CreatedAt:       attachment.CreatedAt,
	})
}

// GetMedicalRecordAttachment serves the content of an attachment.
func (h *MedicalRecordHandler) GetMedicalRecordAttachment(c *gin.Context) {
	var attachment models.MedicalRecordAttachment
	if err := h.DB.WithContext(c.Request.Context()).First(&attachment, "id = ? AND medical_record_id = ?", c.Param("attachmentId"), c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Attachment not found")
		} else {
			utils.RespondError(c, apperr.Internal("failed to fetch attachment", err))
		}
		return
	}
	record, ok := h.load(c, attachment.MedicalRecordID)
	if !ok {
		return
	}
	principal, _ := middleware.GetPrincipal(c)
	if !h.canRead(c.Request.Context(), principal, record.PatientID) {
		utils.Forbidden(c, "You are not authorized to view this attachment.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	c.Data(http.StatusOK, attachment.FileType, attachment.FileData)
}
