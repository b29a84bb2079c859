package exports

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// Repository defines persistence operations for pending exports.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, export *models.PendingExport) (*models.PendingExport, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PendingExport, error)
	List(ctx context.Context, filters ListFilters) ([]models.PendingExport, error)
	ListByPurchaseID(ctx context.Context, purchaseID uuid.UUID) ([]models.PendingExport, error)
	CountsByStatus(ctx context.Context) (map[enums.ExportStatus]int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateByPurchaseID(ctx context.Context, purchaseID uuid.UUID, updates map[string]any) (int64, error)
}

// ListFilters narrow the export listing.
type ListFilters struct {
	Status *enums.ExportStatus
}
