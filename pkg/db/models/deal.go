package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// Deal is a lot of commodity offered for sale.
//
// PricePerKg is authoritative for FIXED pricing only; DYNAMIC deals recompute
// their effective unit price from the live quote at read time and keep the
// stored value as a display fallback.
type Deal struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Company           string              `gorm:"column:company;not null"`
	Commodity         string              `gorm:"column:commodity;not null"`
	Type              string              `gorm:"column:type;not null"`
	Purity            float64             `gorm:"column:purity;not null"`
	PricePerKg        decimal.Decimal     `gorm:"column:price_per_kg;type:numeric(18,2);not null"`
	Discount          float64             `gorm:"column:discount;not null;default:0"`
	AvailableQuantity decimal.Decimal     `gorm:"column:available_quantity;type:numeric(18,3);not null"`
	DeliveryLocation  string              `gorm:"column:delivery_location;not null"`
	Status            enums.DealStatus    `gorm:"column:status;type:text;not null;default:'OPEN'"`
	PricingModel      enums.PricingModel  `gorm:"column:pricing_model;type:text;not null;default:'FIXED'"`
	Frequency         enums.DealFrequency `gorm:"column:frequency;type:text;not null;default:'SPOT'"`
	TotalQuantity     *decimal.Decimal    `gorm:"column:total_quantity;type:numeric(18,3)"`
	ContractDuration  *int                `gorm:"column:contract_duration"`
	AutoSync          bool                `gorm:"column:auto_sync;not null;default:false"`
	BuyerID           *uuid.UUID          `gorm:"column:buyer_id;type:uuid"`

	CFIcon            string          `gorm:"column:cf_icon;not null;default:'gold-bar'"`
	CFRisk            string          `gorm:"column:cf_risk;not null;default:'Low'"`
	CFTargetAPY       float64         `gorm:"column:cf_target_apy;not null;default:0"`
	CFDuration        int             `gorm:"column:cf_duration;not null;default:12"`
	CFMinInvestment   decimal.Decimal `gorm:"column:cf_min_investment;type:numeric(18,2);not null;default:0"`
	CFOrigin          string          `gorm:"column:cf_origin;not null;default:''"`
	CFTransportMethod string          `gorm:"column:cf_transport_method;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
