package handlers

import (
	"github.com/gin-gonic/gin"

	"vetcare-server/internal/stories"
	"vetcare-server/internal/utils"
)

// StoryHandler handles the pet diary.
type StoryHandler struct {
	Stories *stories.Service
}

// NewStoryHandler creates a new StoryHandler.
func NewStoryHandler(svc *stories.Service) *StoryHandler {
	return &StoryHandler{Stories: svc}
}

// CreateStoryRequest represents the request body for a diary entry.
type CreateStoryRequest struct {
	PatientID string `json:"patientId"`
	Title     string `json:"title" binding:"required,max=200"`
	Content   string `json:"content"`
	Mood      string `json:"mood" binding:"max=30"`
}

// CreateStory saves a diary entry. A save that does not finish in time
// answers 504; the entry may still have been written.
func (h *StoryHandler) CreateStory(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	var req CreateStoryRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	story, err := h.Stories.Save(c.Request.Context(), owner, stories.Input{
		PatientID: req.PatientID,
		Title:     req.Title,
		Content:   req.Content,
		Mood:      req.Mood,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Story saved successfully", story)
}

// GetStories lists the caller's diary entries, optionally for one pet.
func (h *StoryHandler) GetStories(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	items, err := h.Stories.List(c.Request.Context(), owner, c.Query("patient_id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Stories fetched successfully", items)
}

// DeleteStory removes one of the caller's diary entries.
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	owner, ok := requirePetOwner(c)
	if !ok {
		return
	}
	if err := h.Stories.Delete(c.Request.Context(), owner, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Story deleted successfully", nil)
}
