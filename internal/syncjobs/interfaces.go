package syncjobs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
)

// Repository defines persistence operations for sync jobs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)
	FindOldestPending(ctx context.Context, limit int) ([]models.SyncJob, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
