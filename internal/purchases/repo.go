package purchases

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchases repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Deal").Create(purchase).Error; err != nil {
		return nil, err
	}
	return purchase, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Deal").
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Deal").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *repository) Update(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Omit("Deal").Save(purchase).Error
}

func (r *repository) SumDeliveredQuantity(ctx context.Context, dealID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Where("deal_id = ? AND status = ?", dealID, enums.PurchaseStatusDelivered).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *repository) PortfolioSummary(ctx context.Context, buyerID uuid.UUID) (*PortfolioSummary, error) {
	var row struct {
		PurchaseCount int64
		TotalValue    decimal.Decimal
		TotalQuantity decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("COUNT(*) AS purchase_count, COALESCE(SUM(total_price), 0) AS total_value, COALESCE(SUM(quantity), 0) AS total_quantity").
		Where("buyer_id = ? AND status IN ?", buyerID, []enums.PurchaseStatus{
			enums.PurchaseStatusConfirmed,
			enums.PurchaseStatusShipped,
			enums.PurchaseStatusDelivered,
		}).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &PortfolioSummary{
		PurchaseCount: row.PurchaseCount,
		TotalValue:    row.TotalValue,
		TotalQuantity: row.TotalQuantity,
	}, nil
}
