package deals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// DealDTO is the transport shape for a deal, including the effective per-kg
// price a buyer would pay right now.
type DealDTO struct {
	ID                uuid.UUID           `json:"id"`
	Company           string              `json:"company"`
	Commodity         string              `json:"commodity"`
	Type              string              `json:"type"`
	Purity            float64             `json:"purity"`
	PricePerKg        decimal.Decimal     `json:"price_per_kg"`
	EffectivePrice    decimal.Decimal     `json:"effective_price_per_kg"`
	Discount          float64             `json:"discount"`
	AvailableQuantity decimal.Decimal     `json:"available_quantity"`
	DeliveryLocation  string              `json:"delivery_location"`
	Status            enums.DealStatus    `json:"status"`
	PricingModel      enums.PricingModel  `json:"pricing_model"`
	Frequency         enums.DealFrequency `json:"frequency"`
	TotalQuantity     *decimal.Decimal    `json:"total_quantity,omitempty"`
	ContractDuration  *int                `json:"contract_duration,omitempty"`
	AutoSync          bool                `json:"auto_sync"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toDTO(deal *models.Deal, effectivePrice decimal.Decimal) DealDTO {
	return DealDTO{
		ID:                deal.ID,
		Company:           deal.Company,
		Commodity:         deal.Commodity,
		Type:              deal.Type,
		Purity:            deal.Purity,
		PricePerKg:        deal.PricePerKg,
		EffectivePrice:    effectivePrice,
		Discount:          deal.Discount,
		AvailableQuantity: deal.AvailableQuantity,
		DeliveryLocation:  deal.DeliveryLocation,
		Status:            deal.Status,
		PricingModel:      deal.PricingModel,
		Frequency:         deal.Frequency,
		TotalQuantity:     deal.TotalQuantity,
		ContractDuration:  deal.ContractDuration,
		AutoSync:          deal.AutoSync,
		CreatedAt:         deal.CreatedAt,
		UpdatedAt:         deal.UpdatedAt,
	}
}
