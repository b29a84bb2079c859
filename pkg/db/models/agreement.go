package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// Agreement is the sale-purchase agreement document for a single purchase.
type Agreement struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID    uuid.UUID             `gorm:"column:purchase_id;type:uuid;not null;uniqueIndex"`
	BuyerName     string                `gorm:"column:buyer_name;not null"`
	SellerName    string                `gorm:"column:seller_name;not null"`
	AgreementDate time.Time             `gorm:"column:agreement_date;not null"`
	Terms         string                `gorm:"column:terms;not null"`
	Status        enums.AgreementStatus `gorm:"column:status;type:text;not null;default:'DRAFT'"`
	PDFURL        *string               `gorm:"column:pdf_url"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
