package purchases

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
)

// Repository defines persistence operations for purchases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Purchase, error)
	Update(ctx context.Context, purchase *models.Purchase) error
	PortfolioSummary(ctx context.Context, buyerID uuid.UUID) (*PortfolioSummary, error)
	SumDeliveredQuantity(ctx context.Context, dealID uuid.UUID) (decimal.Decimal, error)
}

// PortfolioSummary aggregates a buyer's confirmed holdings.
type PortfolioSummary struct {
	PurchaseCount int64
	TotalValue    decimal.Decimal
	TotalQuantity decimal.Decimal
}
