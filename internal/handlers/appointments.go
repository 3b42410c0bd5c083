package handlers

import (
	"github.com/gin-gonic/gin"

	"vetcare-server/internal/booking"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Booking *booking.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *booking.Service) *AppointmentHandler {
	return &AppointmentHandler{Booking: svc}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	PatientID         string   `json:"patient_id" binding:"required"`
	VeterinarianID    string   `json:"veterinarian_id" binding:"required"`
	ClinicID          string   `json:"clinic_id"`
	ServiceID         string   `json:"service_id"`
	AppointmentDate   string   `json:"appointment_date" binding:"required"`
	AppointmentTime   string   `json:"appointment_time" binding:"required"`
	ReasonForVisit    string   `json:"reason_for_visit" binding:"required,max=255"`
	Symptoms          string   `json:"symptoms"`
	Notes             string   `json:"notes"`
	EstimatedDuration *int     `json:"estimated_duration"`
	TotalAmount       *float64 `json:"total_amount"`
	BookingType       string   `json:"booking_type" binding:"omitempty,oneof=online walk_in phone"`
}

// CreateAppointment books an appointment for the calling pet owner.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Booking.Create(c.Request.Context(), owner, booking.CreateInput{
		PatientID:         req.PatientID,
		VeterinarianID:    req.VeterinarianID,
		ClinicID:          req.ClinicID,
		ServiceID:         req.ServiceID,
		Date:              req.AppointmentDate,
		Time:              req.AppointmentTime,
		ReasonForVisit:    req.ReasonForVisit,
		Symptoms:          req.Symptoms,
		Notes:             req.Notes,
		EstimatedDuration: req.EstimatedDuration,
		TotalAmount:       req.TotalAmount,
		BookingType:       req.BookingType,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appointment)
}

func listFilter(c *gin.Context) (booking.ListFilter, utils.Pagination) {
	p := utils.GetPagination(c)
	return booking.ListFilter{
		Status: models.AppointmentStatus(c.Query("status")),
		Date:   c.Query("date"),
		Page:   p.Page,
		Limit:  p.Limit,
	}, p
}

// GetAppointments lists the calling pet owner's appointments.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	f, p := listFilter(c)
	f.PetOwnerID = owner.ID
	h.respondList(c, f, p)
}

// GetVeterinarianAppointments lists the calling veterinarian's appointments.
func (h *AppointmentHandler) GetVeterinarianAppointments(c *gin.Context) {
	vet, ok := requireVeterinarian(c)
	if !ok {
		return
	}
	f, p := listFilter(c)
	f.VeterinarianID = vet.ID
	h.respondList(c, f, p)
}

// GetAllAppointments lists every appointment (admin).
func (h *AppointmentHandler) GetAllAppointments(c *gin.Context) {
	f, p := listFilter(c)
	f.VeterinarianID = c.Query("veterinarian_id")
	f.ClinicID = c.Query("clinic_id")
	h.respondList(c, f, p)
}

func (h *AppointmentHandler) respondList(c *gin.Context, f booking.ListFilter, p utils.Pagination) {
	items, total, err := h.Booking.List(c.Request.Context(), f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Paginated(c, "Appointments fetched successfully", items, total, p)
}

// GetAppointmentByID fetches one appointment the caller is party to.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	appointment, err := h.Booking.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateStatusRequest represents the request body for an appointment status change.
type UpdateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
	Reason string                   `json:"reason" binding:"max=255"`
}

// UpdateAppointmentStatus moves an appointment along its lifecycle.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	appointment, err := h.Booking.Transition(c.Request.Context(), principal, c.Param("id"), req.Status, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", appointment)
}

// CancelAppointmentRequest represents the request body for cancelling an appointment.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// CancelAppointment cancels a pending or confirmed appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	var req CancelAppointmentRequest
	if c.Request.ContentLength > 0 && !utils.BindAndValidate(c, &req) {
		return
	}
	appointment, err := h.Booking.Cancel(c.Request.Context(), principal, c.Param("id"), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// GetAvailability lists the bookable slots of a veterinarian on a date.
func (h *AppointmentHandler) GetAvailability(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		utils.BadRequest(c, "date is required")
		return
	}
	slots, err := h.Booking.Availability(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Availability fetched successfully", slots)
}
