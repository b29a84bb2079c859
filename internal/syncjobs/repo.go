package syncjobs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sync-jobs repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) FindOldestPending(ctx context.Context, limit int) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.SyncJobStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}
