package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// Purchase records one buyer's commitment against a deal. Price and quantity
// are locked at creation; only logistics fields mutate afterwards.
type Purchase struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	DealID           uuid.UUID            `gorm:"column:deal_id;type:uuid;not null;index"`
	BuyerID          uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	Quantity         decimal.Decimal      `gorm:"column:quantity;type:numeric(18,3);not null"`
	PricePerKg       decimal.Decimal      `gorm:"column:price_per_kg;type:numeric(18,2);not null"`
	TotalPrice       decimal.Decimal      `gorm:"column:total_price;type:numeric(18,2);not null"`
	DeliveryLocation string               `gorm:"column:delivery_location;not null;default:''"`
	Status           enums.PurchaseStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Notes            string               `gorm:"column:notes;not null;default:''"`

	LogisticsCompany *string    `gorm:"column:logistics_company"`
	TrackingNumber   *string    `gorm:"column:tracking_number"`
	ShippedAt        *time.Time `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time `gorm:"column:delivered_at"`
	LogisticsNotes   *string    `gorm:"column:logistics_notes"`

	Deal *Deal `gorm:"foreignKey:DealID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
