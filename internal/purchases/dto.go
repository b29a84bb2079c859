package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// PurchaseInput is what a buyer submits against a deal.
type PurchaseInput struct {
	Quantity         decimal.Decimal
	DeliveryLocation string
	AgreementTerms   string
}

// LogisticsInput is the admin-side logistics update for a purchase.
type LogisticsInput struct {
	Status           enums.PurchaseStatus
	LogisticsCompany *string
	TrackingNumber   *string
	Notes            *string
}

// PurchaseDTO is the transport shape for a purchase.
type PurchaseDTO struct {
	ID               uuid.UUID            `json:"id"`
	DealID           uuid.UUID            `json:"deal_id"`
	BuyerID          uuid.UUID            `json:"buyer_id"`
	Quantity         decimal.Decimal      `json:"quantity"`
	PricePerKg       decimal.Decimal      `json:"price_per_kg"`
	TotalPrice       decimal.Decimal      `json:"total_price"`
	DeliveryLocation string               `json:"delivery_location"`
	Status           enums.PurchaseStatus `json:"status"`
	Notes            string               `json:"notes,omitempty"`
	LogisticsCompany *string              `json:"logistics_company,omitempty"`
	TrackingNumber   *string              `json:"tracking_number,omitempty"`
	ShippedAt        *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time           `json:"delivered_at,omitempty"`
	LogisticsNotes   *string              `json:"logistics_notes,omitempty"`
	DealCompany      string               `json:"deal_company,omitempty"`
	DealCommodity    string               `json:"deal_commodity,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// PurchaseResult reports the committed purchase plus whether it exhausted the
// deal's inventory.
type PurchaseResult struct {
	Purchase          PurchaseDTO     `json:"purchase"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	DealSoldOut       bool            `json:"deal_sold_out"`
	Message           string          `json:"message"`
}

func toDTO(purchase *models.Purchase) PurchaseDTO {
	dto := PurchaseDTO{
		ID:               purchase.ID,
		DealID:           purchase.DealID,
		BuyerID:          purchase.BuyerID,
		Quantity:         purchase.Quantity,
		PricePerKg:       purchase.PricePerKg,
		TotalPrice:       purchase.TotalPrice,
		DeliveryLocation: purchase.DeliveryLocation,
		Status:           purchase.Status,
		Notes:            purchase.Notes,
		LogisticsCompany: purchase.LogisticsCompany,
		TrackingNumber:   purchase.TrackingNumber,
		ShippedAt:        purchase.ShippedAt,
		DeliveredAt:      purchase.DeliveredAt,
		LogisticsNotes:   purchase.LogisticsNotes,
		CreatedAt:        purchase.CreatedAt,
		UpdatedAt:        purchase.UpdatedAt,
	}
	if purchase.Deal != nil {
		dto.DealCompany = purchase.Deal.Company
		dto.DealCommodity = purchase.Deal.Commodity
	}
	return dto
}
