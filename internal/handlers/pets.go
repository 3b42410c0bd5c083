package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/booking"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// PetHandler handles the caller's pets.
type PetHandler struct {
	DB *gorm.DB
}

// NewPetHandler creates a new PetHandler.
func NewPetHandler(db *gorm.DB) *PetHandler {
	return &PetHandler{DB: db}
}

// PetRequest represents the request body for creating or replacing a pet.
type PetRequest struct {
	Name         string  `json:"name" binding:"required,max=100"`
	Species      string  `json:"species" binding:"required,max=50"`
	Breed        string  `json:"breed" binding:"max=100"`
	Gender       string  `json:"gender" binding:"omitempty,oneof=male female unknown"`
	DateOfBirth  string  `json:"dateOfBirth"`
	WeightKg     float64 `json:"weightKg" binding:"gte=0"`
	Color        string  `json:"color" binding:"max=50"`
	Allergies    string  `json:"allergies"`
	MedicalNotes string  `json:"medicalNotes"`
}

func (r PetRequest) apply(p *models.Patient) error {
	if r.DateOfBirth != "" {
		if _, err := booking.ParseDate(r.DateOfBirth); err != nil {
			return err
		}
	}
	p.Name = strings.TrimSpace(r.Name)
	p.Species = strings.ToLower(strings.TrimSpace(r.Species))
	p.Breed = r.Breed
	p.Gender = r.Gender
	p.DateOfBirth = r.DateOfBirth
	p.WeightKg = r.WeightKg
	p.Color = r.Color
	p.Allergies = r.Allergies
	p.MedicalNotes = r.MedicalNotes
	return nil
}

// GetPets lists the caller's pets.
func (h *PetHandler) GetPets(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	var pets []models.Patient
	if err := h.DB.WithContext(c.Request.Context()).Where("owner_id = ?", owner.ID).Order("name").Find(&pets).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to fetch pets", err))
		return
	}
	utils.Success(c, "Pets fetched successfully", pets)
}

// CreatePet registers a pet for the caller.
func (h *PetHandler) CreatePet(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	var req PetRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	pet := models.Patient{OwnerID: owner.ID}
	if err := req.apply(&pet); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&pet).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to create pet", err))
		return
	}
	utils.Created(c, "Pet created successfully", pet)
}

func (h *PetHandler) load(c *gin.Context, owner *models.PetOwner) (*models.Patient, bool) {
	var pet models.Patient
	if err := h.DB.WithContext(c.Request.Context()).First(&pet, "id = ? AND owner_id = ?", c.Param("id"), owner.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Pet not found")
		} else {
			utils.RespondError(c, apperr.Internal("failed to fetch pet", err))
		}
		return nil, false
	}
	return &pet, true
}

// GetPet fetches one of the caller's pets.
func (h *PetHandler) GetPet(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	pet, ok := h.load(c, owner)
	if !ok {
		return
	}
	utils.Success(c, "Pet fetched successfully", pet)
}

// UpdatePet replaces the details of one of the caller's pets.
func (h *PetHandler) UpdatePet(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	var req PetRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	pet, ok := h.load(c, owner)
	if !ok {
		return
	}
	if err := req.apply(pet); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Save(pet).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to update pet", err))
		return
	}
	utils.Success(c, "Pet updated successfully", pet)
}

// DeletePet removes a pet. Pets with active appointments are kept.
func (h *PetHandler) DeletePet(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	pet, ok := h.load(c, owner)
	if !ok {
		return
	}
	var active int64
	if err := h.DB.WithContext(c.Request.Context()).Model(&models.Appointment{}).
		Where("patient_id = ? AND status IN ?", pet.ID, models.ActiveStatuses).
		Count(&active).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to check appointments", err))
		return
	}
	if active > 0 {
		utils.BadRequest(c, "This pet has upcoming appointments. Cancel them before removing the pet.")
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(pet).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to delete pet", err))
		return
	}
	utils.Success(c, "Pet deleted successfully", nil)
}
