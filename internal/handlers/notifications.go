package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/notify"
	"vetcare-server/internal/utils"
)

// NotificationHandler serves the caller's in-app notifications.
type NotificationHandler struct {
	InApp *notify.InApp
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(inApp *notify.InApp) *NotificationHandler {
	return &NotificationHandler{InApp: inApp}
}

// NotificationList is the list response with the unread badge count.
type NotificationList struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int64                 `json:"unreadCount"`
}

// GetNotifications lists the caller's notifications, newest first.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	items, unread, err := h.InApp.List(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Notifications fetched successfully", NotificationList{Items: items, UnreadCount: unread})
}

// MarkNotificationAsRead marks one notification as read.
func (h *NotificationHandler) MarkNotificationAsRead(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	if err := h.InApp.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Notification marked as read", nil)
}

// MarkAllNotificationsAsRead marks every unread notification as read.
func (h *NotificationHandler) MarkAllNotificationsAsRead(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	n, err := h.InApp.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Notifications marked as read", gin.H{"updated": n})
}
