package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobType is the closed set of work item kinds.
type JobType string

const (
	JobTypeDistributeCommissions JobType = "distribute-commissions"
	JobTypeReverseCommissions    JobType = "reverse-commissions"
	JobTypeSendNotification      JobType = "send-notification"
	JobTypeSyncAnalytics         JobType = "sync-analytics"
	JobTypeProcessWebhook        JobType = "process-webhook"
	JobTypeCleanupData           JobType = "cleanup-data"
	JobTypeReleaseRevenues       JobType = "release-revenues"
)

// AllJobTypes lists every job type.
var AllJobTypes = []JobType{
	JobTypeDistributeCommissions,
	JobTypeReverseCommissions,
	JobTypeSendNotification,
	JobTypeSyncAnalytics,
	JobTypeProcessWebhook,
	JobTypeCleanupData,
	JobTypeReleaseRevenues,
}

// ParseJobType validates s against the known job types.
func ParseJobType(s string) (JobType, bool) {
	for _, t := range AllJobTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Default priorities for jobs not derived from an event.
const (
	PriorityReverseCommissions    = 80
	PriorityDistributeCommissions = 50
	PriorityReleaseRevenues       = 20
	PrioritySendNotification      = 10
	PrioritySyncAnalytics         = 5
	PriorityCleanupData           = 0
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Scan implements sql.Scanner interface
func (s *JobStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = JobStatus(v)
	case []byte:
		*s = JobStatus(v)
	default:
		*s = JobStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s JobStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Job is a durable work item. Jobs are transitioned, never deleted.
type Job struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobType     JobType        `gorm:"column:job_type;size:50;not null;index" json:"job_type"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Priority    int            `gorm:"not null;default:0" json:"priority"`
	Status      JobStatus      `gorm:"size:20;not null;default:'pending'" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int            `gorm:"not null;default:3" json:"max_attempts"`
	Deferrals   int            `gorm:"not null;default:0" json:"deferrals"`
	LastError   *string        `json:"last_error,omitempty"`
	ScheduledAt time.Time      `gorm:"not null;default:now()" json:"scheduled_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "jobs"
}

// NewJob builds a pending job with a JSON encoded payload.
func NewJob(jobType JobType, payload interface{}, priority, maxAttempts int) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", jobType, err)
	}
	now := time.Now()
	return &Job{
		ID:          uuid.New(),
		JobType:     jobType,
		Payload:     datatypes.JSON(data),
		Priority:    priority,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DecodePayload unmarshals the job payload into dst.
func (j *Job) DecodePayload(dst interface{}) error {
	if err := json.Unmarshal(j.Payload, dst); err != nil {
		return fmt.Errorf("invalid %s payload: %w", j.JobType, err)
	}
	return nil
}

// Job payloads.

type ProcessWebhookPayload struct {
	EventID string `json:"event_id"`
}

type DistributeCommissionsPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

type ReverseCommissionsPayload struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason,omitempty"`
}

type SendNotificationPayload struct {
	UserID  uuid.UUID         `json:"user_id"`
	Kind    string            `json:"kind"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

type SyncAnalyticsPayload struct {
	SellerID uuid.UUID `json:"seller_id"`
}

type CleanupDataPayload struct {
	RetentionDays int `json:"retention_days"`
}

type ReleaseRevenuesPayload struct{}
