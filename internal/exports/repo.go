package exports

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

// NewRepository builds a pending-exports repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, export *models.PendingExport) (*models.PendingExport, error) {
	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(export).Error; err != nil {
		return nil, err
	}
	return export, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PendingExport, error) {
	var export models.PendingExport
	if err := r.db.WithContext(ctx).First(&export, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &export, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.PendingExport, error) {
	query := r.db.WithContext(ctx).Model(&models.PendingExport{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	var exports []models.PendingExport
	if err := query.Order("created_at DESC").Find(&exports).Error; err != nil {
		return nil, err
	}
	return exports, nil
}

func (r *repository) ListByPurchaseID(ctx context.Context, purchaseID uuid.UUID) ([]models.PendingExport, error) {
	var exports []models.PendingExport
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("created_at DESC").
		Find(&exports).Error
	if err != nil {
		return nil, err
	}
	return exports, nil
}

func (r *repository) CountsByStatus(ctx context.Context) (map[enums.ExportStatus]int64, error) {
	var rows []struct {
		Status enums.ExportStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.PendingExport{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.ExportStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingExport{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

// UpdateByPurchaseID applies updates to every export row staged for the
// purchase, regardless of current status. Returns the number of rows touched.
func (r *repository) UpdateByPurchaseID(ctx context.Context, purchaseID uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingExport{}).
		Where("purchase_id = ?", purchaseID).
		UpdateColumns(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
