package agreements

import (
	"time"

	"github.com/google/uuid"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// AgreementDTO is the transport shape for a sale-purchase agreement.
type AgreementDTO struct {
	ID            uuid.UUID             `json:"id"`
	PurchaseID    uuid.UUID             `json:"purchase_id"`
	BuyerName     string                `json:"buyer_name"`
	SellerName    string                `json:"seller_name"`
	AgreementDate time.Time             `json:"agreement_date"`
	Terms         string                `json:"terms"`
	Status        enums.AgreementStatus `json:"status"`
	PDFURL        *string               `json:"pdf_url,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func FromModel(agreement *models.Agreement) *AgreementDTO {
	if agreement == nil {
		return nil
	}
	return &AgreementDTO{
		ID:            agreement.ID,
		PurchaseID:    agreement.PurchaseID,
		BuyerName:     agreement.BuyerName,
		SellerName:    agreement.SellerName,
		AgreementDate: agreement.AgreementDate,
		Terms:         agreement.Terms,
		Status:        agreement.Status,
		PDFURL:        agreement.PDFURL,
		CreatedAt:     agreement.CreatedAt,
		UpdatedAt:     agreement.UpdatedAt,
	}
}
