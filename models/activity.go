package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/heytrack/purchasing_backend/config"
)

// Activity is one line of the user's audit trail.
type Activity struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserId    string    `gorm:"size:36;index" json:"userId"`
	Title     string    `gorm:"size:191" json:"title"`
	Detail    string    `json:"detail"`
	Type      string    `gorm:"size:50" json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Activity) TableName() string {
	return "activities"
}

// AddActivity is best-effort: a failed insert is logged and swallowed.
func AddActivity(ctx context.Context, userId string, title string, detail string, activityType string) {
	activity := &Activity{
		ID:        uuid.NewString(),
		UserId:    userId,
		Title:     title,
		Detail:    detail,
		Type:      activityType,
		CreatedAt: time.Now().UTC(),
	}
	if err := config.GetDB().WithContext(ctx).Create(activity).Error; err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "models", "AddActivity", "create failed", map[string]interface{}{
			"userId": userId,
			"title":  title,
		}, err)
	}
}
