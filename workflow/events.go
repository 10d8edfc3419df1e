package workflow

import (
	"context"
	"fmt"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/models"
)

type ChangeEventType string

const (
	ChangeEventInsert ChangeEventType = "INSERT"
	ChangeEventUpdate ChangeEventType = "UPDATE"
	ChangeEventDelete ChangeEventType = "DELETE"
)

// ChangeEvent mirrors a row change on the purchases table for subscribers
// (dashboards, report caches).
type ChangeEvent struct {
	EventType ChangeEventType  `json:"eventType"`
	New       *models.Purchase `json:"new,omitempty"`
	Old       *models.Purchase `json:"old,omitempty"`
}

// StatusChangedEvent is the richer event emitted on lifecycle transitions,
// carrying the resolved supplier display name for notification consumers.
type StatusChangedEvent struct {
	PurchaseId   string                `json:"purchaseId"`
	SupplierName string                `json:"supplierName"`
	OldStatus    models.PurchaseStatus `json:"oldStatus"`
	NewStatus    models.PurchaseStatus `json:"newStatus"`
}

// EventPublisher is the change-stream surface. Publishing is best-effort:
// implementations log failures and never propagate them.
type EventPublisher interface {
	PublishChange(ctx context.Context, userId string, event ChangeEvent)
	PublishStatusChanged(ctx context.Context, userId string, event StatusChangedEvent)
}

// RedisEventPublisher fans changes out over Redis pub/sub. Per-user channels
// keep one tenant's stream out of another's subscription.
type RedisEventPublisher struct{}

func (RedisEventPublisher) PublishChange(ctx context.Context, userId string, event ChangeEvent) {
	channel := fmt.Sprintf("purchases:%s", userId)
	if err := config.PublishRedisMessage(ctx, channel, event); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "events.go", "PublishChange", channel, event.EventType, err)
	}
}

func (RedisEventPublisher) PublishStatusChanged(ctx context.Context, userId string, event StatusChangedEvent) {
	if err := config.PublishRedisMessage(ctx, "purchase:status:changed", event); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "events.go", "PublishStatusChanged", event.PurchaseId, event, err)
	}
}
