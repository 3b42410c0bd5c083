package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
	"vetcare-server/internal/verification"
)

// VerificationHandler handles veterinarian self-registration and the admin review of applications.
type VerificationHandler struct {
	Verification   *verification.Service
	UploadMaxBytes int64
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(svc *verification.Service, uploadMaxBytes int64) *VerificationHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = verification.DefaultMaxDocumentBytes
	}
	return &VerificationHandler{Verification: svc, UploadMaxBytes: uploadMaxBytes}
}

// readDocument reads at most one byte past the limit so oversize files are
// rejected by validation without buffering them whole.
func (h *VerificationHandler) readDocument(c *gin.Context, field string) (*verification.Document, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperr.Validation("invalid " + field + " upload")
	}
	return h.read(fh)
}

func (h *VerificationHandler) read(fh *multipart.FileHeader) (*verification.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Internal("failed to open upload", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.UploadMaxBytes+1))
	if err != nil {
		return nil, apperr.Internal("failed to read upload", err)
	}
	return &verification.Document{FileName: fh.Filename, Data: data}, nil
}

func formInt(c *gin.Context, field string) (int, error) {
	v := c.PostForm(field)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(field + " must be a whole number")
	}
	return n, nil
}

func formFloat(c *gin.Context, field string) (float64, error) {
	v := c.PostForm(field)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apperr.Validation(field + " must be a number")
	}
	return f, nil
}

// Register handles a veterinarian self-registration with its two documents.
func (h *VerificationHandler) Register(c *gin.Context) {
	// two documents plus form fields
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.UploadMaxBytes+1<<20)
	if err := c.Request.ParseMultipartForm(2 << 20); err != nil {
		utils.BadRequest(c, "Invalid multipart form or upload too large")
		return
	}

	years, err := formInt(c, "yearsExperience")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	fee, err := formFloat(c, "consultationFee")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	permit, err := h.readDocument(c, "businessPermit")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	govID, err := h.readDocument(c, "governmentId")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	app, err := h.Verification.Register(c.Request.Context(), verification.RegistrationInput{
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		FullName:        c.PostForm("fullName"),
		Phone:           c.PostForm("phone"),
		Specialization:  c.PostForm("specialization"),
		LicenseNumber:   c.PostForm("licenseNumber"),
		YearsExperience: years,
		ConsultationFee: fee,
		BusinessPermit:  permit,
		GovernmentID:    govID,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Registration submitted. Your account will be activated once an administrator reviews your application.", gin.H{
		"applicationId": app.ID,
		"status":        app.Status,
	})
}

// GetApplications lists applications, optionally filtered by status (admin).
func (h *VerificationHandler) GetApplications(c *gin.Context) {
	p := utils.GetPagination(c)
	status := models.ApplicationStatus(c.Query("status"))
	switch status {
	case "", models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
	default:
		utils.BadRequest(c, "Invalid status filter")
		return
	}
	apps, total, err := h.Verification.List(c.Request.Context(), status, p.Page, p.Limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Paginated(c, "Applications fetched successfully", apps, total, p)
}

// ApplicationDetail is an application with its cascade step history.
type ApplicationDetail struct {
	*models.VeterinarianApplication
	Steps []models.CascadeStep `json:"steps"`
}

// GetApplication fetches one application with documents and cascade steps (admin).
func (h *VerificationHandler) GetApplication(c *gin.Context) {
	ctx := c.Request.Context()
	app, err := h.Verification.Get(ctx, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	steps, err := h.Verification.Steps(ctx, app.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Application fetched successfully", ApplicationDetail{VeterinarianApplication: app, Steps: steps})
}

// GetApplicationDocument serves an uploaded document (admin).
func (h *VerificationHandler) GetApplicationDocument(c *gin.Context) {
	doc, err := h.Verification.Document(c.Request.Context(), c.Param("id"), c.Param("docId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// ReviewRequest represents the request body for approving or rejecting an application.
type ReviewRequest struct {
	Remarks string `json:"remarks"`
}

// ReviewResponse reports the reviewed application and any best-effort step that failed.
type ReviewResponse struct {
	Application *models.VeterinarianApplication `json:"application"`
	FailedSteps []string                        `json:"failedSteps,omitempty"`
}

// ApproveApplication approves a pending application (admin).
func (h *VerificationHandler) ApproveApplication(c *gin.Context) {
	h.review(c, h.Verification.Approve, "Application approved successfully")
}

// RejectApplication rejects a pending application; remarks are required (admin).
func (h *VerificationHandler) RejectApplication(c *gin.Context) {
	h.review(c, h.Verification.Reject, "Application rejected successfully")
}

func (h *VerificationHandler) review(c *gin.Context, decide func(ctx context.Context, applicationID, reviewerID, remarks string) (*verification.Outcome, error), message string) {
	var req ReviewRequest
	if c.Request.ContentLength > 0 && !utils.BindAndValidate(c, &req) {
		return
	}
	reviewerID, _ := middleware.GetUserIDFromContext(c)
	out, err := decide(c.Request.Context(), c.Param("id"), reviewerID, req.Remarks)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, message, ReviewResponse{Application: out.Application, FailedSteps: out.Failed})
}
