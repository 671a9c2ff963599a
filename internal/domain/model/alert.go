package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert is a persisted operational alert.
type Alert struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Severity  AlertSeverity  `gorm:"size:20;not null;index" json:"severity"`
	Source    string         `gorm:"size:100;not null" json:"source"`
	Message   string         `gorm:"not null" json:"message"`
	Context   datatypes.JSON `gorm:"type:jsonb" json:"context,omitempty"`
	CreatedAt time.Time      `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}
