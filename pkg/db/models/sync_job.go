package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// SyncJob is a durable unit of outbound crowdfunding work. Attempts counts
// every processing try including the first, so MaxAttempts bounds total tries.
type SyncJob struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Type        enums.SyncJobType   `gorm:"column:type;type:text;not null"`
	Payload     json.RawMessage     `gorm:"column:payload;type:jsonb;not null"`
	Status      enums.SyncJobStatus `gorm:"column:status;type:text;not null;default:'PENDING';index"`
	Attempts    int                 `gorm:"column:attempts;not null;default:0"`
	MaxAttempts int                 `gorm:"column:max_attempts;not null;default:3"`
	LastError   *string             `gorm:"column:last_error"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
