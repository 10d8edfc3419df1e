package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/heytrack/purchasing_backend/config"
)

type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	UserId    string           `gorm:"size:36;index" json:"userId"`
	Type      NotificationType `gorm:"size:20" json:"type"`
	Title     string           `gorm:"size:191" json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `gorm:"default:false" json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// AddNotification is best-effort: a failed insert is logged and swallowed.
func AddNotification(ctx context.Context, userId string, notificationType NotificationType, title string, message string) {
	notification := &Notification{
		ID:        uuid.NewString(),
		UserId:    userId,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := config.GetDB().WithContext(ctx).Create(notification).Error; err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "models", "AddNotification", "create failed", map[string]interface{}{
			"userId": userId,
			"title":  title,
		}, err)
	}
}
