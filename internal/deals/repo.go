package deals

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

// NewRepository builds a deals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, deal *models.Deal) (*models.Deal, error) {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(deal).Error; err != nil {
		return nil, err
	}
	return deal, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.WithContext(ctx).First(&deal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.Deal, error) {
	query := r.db.WithContext(ctx).Model(&models.Deal{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	var deals []models.Deal
	if err := query.Order("created_at DESC").Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// DecrementAvailableQuantity conditionally reduces inventory. The WHERE guard
// keeps availableQuantity from going negative under concurrent purchases;
// zero rows affected means the deal was closed or short on inventory.
func (r *repository) DecrementAvailableQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ? AND status = ? AND available_quantity >= ?", id, enums.DealStatusOpen, quantity).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) Close(ctx context.Context, id uuid.UUID, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":   enums.DealStatusClosed,
			"buyer_id": buyerID,
		}).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DealStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}
