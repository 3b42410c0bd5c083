package notify

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
)

// InApp stores user facing notifications.
type InApp struct {
	DB *gorm.DB
}

// NewInApp creates an InApp store.
func NewInApp(db *gorm.DB) *InApp {
	return &InApp{DB: db}
}

// Notify persists n.
func (s *InApp) Notify(ctx context.Context, n *models.Notification) error {
	return s.DB.WithContext(ctx).Create(n).Error
}

// List returns the notifications of userID, newest first, and the unread count.
func (s *InApp) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, int64, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var items []models.Notification
	if err := q.Order("created_at desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, apperr.Internal("failed to fetch notifications", err)
	}
	var unread int64
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&unread).Error; err != nil {
		return nil, 0, apperr.Internal("failed to count notifications", err)
	}
	return items, unread, nil
}

// MarkRead marks one notification of userID as read.
func (s *InApp) MarkRead(ctx context.Context, userID, id string) error {
	var n models.Notification
	if err := s.DB.WithContext(ctx).First(&n, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("failed to load notification", err)
	}
	if n.IsRead {
		return nil
	}
	now := time.Now()
	return s.DB.WithContext(ctx).Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}

// MarkAllRead marks every unread notification of userID as read.
func (s *InApp) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, apperr.Internal("failed to mark notifications read", res.Error)
	}
	return res.RowsAffected, nil
}
