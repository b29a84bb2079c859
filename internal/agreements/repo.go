package agreements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// Repository defines persistence operations for sale-purchase agreements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, agreement *models.Agreement) (*models.Agreement, error)
	FindByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (*models.Agreement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AgreementStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an agreements repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, agreement *models.Agreement) (*models.Agreement, error) {
	if agreement.ID == uuid.Nil {
		agreement.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(agreement).Error; err != nil {
		return nil, err
	}
	return agreement, nil
}

func (r *repository) FindByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (*models.Agreement, error) {
	var agreement models.Agreement
	if err := r.db.WithContext(ctx).Where("purchase_id = ?", purchaseID).First(&agreement).Error; err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AgreementStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Agreement{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}
