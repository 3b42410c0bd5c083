package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/booking"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// DirectoryHandler serves the clinic and veterinarian directory.
type DirectoryHandler struct {
	DB *gorm.DB
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(db *gorm.DB) *DirectoryHandler {
	return &DirectoryHandler{DB: db}
}

func likeLower(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// GetClinics lists active clinics matching an optional name search and city.
func (h *DirectoryHandler) GetClinics(c *gin.Context) {
	p := utils.GetPagination(c)
	q := h.DB.WithContext(c.Request.Context()).Model(&models.Clinic{}).Where("is_active = ?", true)
	if search := c.Query("search"); search != "" {
		q = q.Where("LOWER(name) LIKE ?", likeLower(search))
	}
	if city := c.Query("city"); city != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(strings.TrimSpace(city)))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to count clinics", err))
		return
	}
	var clinics []models.Clinic
	if err := q.Order("name").Offset(p.Offset()).Limit(p.Limit).Find(&clinics).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to fetch clinics", err))
		return
	}
	utils.Paginated(c, "Clinics fetched successfully", clinics, total, p)
}

// GetClinic fetches a clinic with its veterinarians and services.
func (h *DirectoryHandler) GetClinic(c *gin.Context) {
	var clinic models.Clinic
	if err := h.DB.WithContext(c.Request.Context()).
		Preload("Veterinarians", "is_available = ?", true).
		Preload("Services").
		First(&clinic, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Clinic not found")
		} else {
			utils.RespondError(c, apperr.Internal("failed to fetch clinic", err))
		}
		return
	}
	utils.Success(c, "Clinic fetched successfully", clinic)
}

// ClinicRequest represents the request body for creating or updating a clinic.
type ClinicRequest struct {
	Name         string                         `json:"name" binding:"required,max=200"`
	Address      string                         `json:"address" binding:"max=255"`
	City         string                         `json:"city" binding:"max=100"`
	Phone        string                         `json:"phone" binding:"max=50"`
	Email        string                         `json:"email" binding:"omitempty,email"`
	Description  string                         `json:"description"`
	OpeningHours map[string]models.OpeningHours `json:"openingHours"`
	IsActive     *bool                          `json:"isActive"`
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func (r ClinicRequest) apply(clinic *models.Clinic) error {
	hours := make(map[string]models.OpeningHours, len(r.OpeningHours))
	for day, h := range r.OpeningHours {
		day = strings.ToLower(day)
		if !weekdays[day] {
			return apperr.Validation("unknown weekday " + strconv.Quote(day))
		}
		if h.Open == "" && h.Close == "" {
			hours[day] = models.OpeningHours{}
			continue
		}
		open, err := booking.ParseClock(h.Open)
		if err != nil {
			return err
		}
		closing, err := booking.ParseClock(h.Close)
		if err != nil {
			return err
		}
		if closing <= open {
			return apperr.Validation(day + ": closing time must be after opening time")
		}
		hours[day] = models.OpeningHours{Open: open[:5], Close: closing[:5]}
	}
	if r.OpeningHours != nil {
		data, err := models.JSONData(hours)
		if err != nil {
			return apperr.Validation("invalid opening hours")
		}
		clinic.OpeningHours = data
	}
	clinic.Name = strings.TrimSpace(r.Name)
	clinic.Address = r.Address
	clinic.City = strings.TrimSpace(r.City)
	clinic.Phone = r.Phone
	clinic.Email = r.Email
	clinic.Description = r.Description
	if r.IsActive != nil {
		clinic.IsActive = *r.IsActive
	}
	return nil
}

// CreateClinic adds a clinic (admin).
func (h *DirectoryHandler) CreateClinic(c *gin.Context) {
	var req ClinicRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	clinic := models.Clinic{IsActive: true}
	if err := req.apply(&clinic); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&clinic).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to create clinic", err))
		return
	}
	utils.Created(c, "Clinic created successfully", clinic)
}

// UpdateClinic replaces the details of a clinic (admin).
func (h *DirectoryHandler) UpdateClinic(c *gin.Context) {
	var req ClinicRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	var clinic models.Clinic
	if err := h.DB.WithContext(c.Request.Context()).First(&clinic, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Clinic not found")
		} else {
			utils.RespondError(c, apperr.Internal("failed to fetch clinic", err))
		}
		return
	}
	if err := req.apply(&clinic); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Save(&clinic).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to update clinic", err))
		return
	}
	utils.Success(c, "Clinic updated successfully", clinic)
}

// GetVeterinarians searches veterinarians by name, specialization, clinic and availability.
func (h *DirectoryHandler) GetVeterinarians(c *gin.Context) {
	p := utils.GetPagination(c)
	q := h.DB.WithContext(c.Request.Context()).Model(&models.Veterinarian{})
	if search := c.Query("search"); search != "" {
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(specialization) LIKE ?", likeLower(search), likeLower(search))
	}
	if spec := c.Query("specialization"); spec != "" {
		q = q.Where("LOWER(specialization) = ?", strings.ToLower(strings.TrimSpace(spec)))
	}
	if clinicID := c.Query("clinic_id"); clinicID != "" {
		q = q.Where("clinic_id = ?", clinicID)
	}
	if available := c.Query("available"); available != "" {
		b, err := strconv.ParseBool(available)
		if err != nil {
			utils.BadRequest(c, "available must be true or false")
			return
		}
		q = q.Where("is_available = ?", b)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to count veterinarians", err))
		return
	}
	var vets []models.Veterinarian
	if err := q.Preload("Clinic").Order("rating DESC, full_name").Offset(p.Offset()).Limit(p.Limit).Find(&vets).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to fetch veterinarians", err))
		return
	}
	utils.Paginated(c, "Veterinarians fetched successfully", vets, total, p)
}

// GetVeterinarian fetches one veterinarian with its clinic.
func (h *DirectoryHandler) GetVeterinarian(c *gin.Context) {
	var vet models.Veterinarian
	if err := h.DB.WithContext(c.Request.Context()).Preload("Clinic").First(&vet, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Veterinarian not found")
		} else {
			utils.RespondError(c, apperr.Internal("failed to fetch veterinarian", err))
		}
		return
	}
	utils.Success(c, "Veterinarian fetched successfully", vet)
}
