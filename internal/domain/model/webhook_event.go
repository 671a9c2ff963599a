package model

import (
	"time"

	"gorm.io/datatypes"
)

// Processor event types handled by the pipeline.
const (
	EventPaymentAuthorized = "payment_intent.amount_capturable_updated"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventPaymentCanceled   = "payment_intent.canceled"
	EventChargeRefunded    = "charge.refunded"
	EventDisputeCreated    = "charge.dispute.created"
	EventPayoutPaid        = "payout.paid"
	EventPayoutFailed      = "payout.failed"
	EventAccountUpdated    = "account.updated"
)

// Resource types an event can refer to.
const (
	ResourcePaymentIntent = "payment_intent"
	ResourcePayout        = "payout"
	ResourceAccount       = "account"
	ResourceUnknown       = "unknown"
)

// WebhookEvent is the event log row of an accepted processor event.
// Rows are never deleted.
type WebhookEvent struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID        string         `gorm:"column:event_id;uniqueIndex;not null;size:255" json:"event_id"`
	EventType      string         `gorm:"not null;size:100;index" json:"event_type"`
	ResourceType   string         `gorm:"size:50;not null" json:"resource_type"`
	ResourceID     string         `gorm:"size:255;index:idx_webhook_events_resource" json:"resource_id"`
	EventCreated   time.Time      `gorm:"not null" json:"event_created"`
	Priority       int            `gorm:"not null;default:0" json:"priority"`
	Payload        datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Processed      bool           `gorm:"not null;default:false;index:idx_webhook_events_resource" json:"processed"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
	DependsOnEvent *string        `gorm:"column:depends_on_event;size:255" json:"depends_on_event,omitempty"`
	Error          *string        `json:"error,omitempty"`
	RetryCount     int            `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt      time.Time      `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// ProcessedWebhook is the replay table. The primary key on event_id makes
// check-and-insert a single atomic statement.
type ProcessedWebhook struct {
	EventID     string    `gorm:"column:event_id;primaryKey;size:255" json:"event_id"`
	EventType   string    `gorm:"size:100;not null" json:"event_type"`
	PayloadHash string    `gorm:"size:64;not null" json:"payload_hash"`
	CreatedAt   time.Time `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ProcessedWebhook) TableName() string {
	return "processed_webhooks"
}
