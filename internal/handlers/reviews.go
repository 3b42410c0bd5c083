package handlers

import (
	"github.com/gin-gonic/gin"

	"vetcare-server/internal/analytics"
	"vetcare-server/internal/models"
	"vetcare-server/internal/reviews"
	"vetcare-server/internal/utils"
)

// ReviewHandler handles appointment reviews.
type ReviewHandler struct {
	Reviews *reviews.Service
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(svc *reviews.Service) *ReviewHandler {
	return &ReviewHandler{Reviews: svc}
}

// CreateReviewRequest represents the request body for reviewing an appointment.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// CreateReview reviews a completed appointment of the caller.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	var req CreateReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	review, err := h.Reviews.Create(c.Request.Context(), owner, c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Review submitted successfully", review)
}

// VeterinarianReviews is the list of reviews with their summary.
type VeterinarianReviews struct {
	Items   []models.Review         `json:"items"`
	Summary analytics.RatingSummary `json:"summary"`
}

// GetVeterinarianReviews lists the reviews of a veterinarian.
func (h *ReviewHandler) GetVeterinarianReviews(c *gin.Context) {
	items, summary, err := h.Reviews.ForVeterinarian(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Reviews fetched successfully", VeterinarianReviews{Items: items, Summary: summary})
}
