package deals

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// Repository defines persistence operations for deals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, deal *models.Deal) (*models.Deal, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	List(ctx context.Context, filters ListFilters) ([]models.Deal, error)
	DecrementAvailableQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (int64, error)
	Close(ctx context.Context, id uuid.UUID, buyerID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DealStatus) error
}

// ListFilters narrow the deal listing.
type ListFilters struct {
	Status *enums.DealStatus
}
