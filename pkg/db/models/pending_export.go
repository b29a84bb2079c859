package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// PendingExport stages a purchase for publication on the external
// crowdfunding platform, holding the fully mapped campaign fields so the
// admin reviews exactly what will be sent.
type PendingExport struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID uuid.UUID `gorm:"column:purchase_id;type:uuid;not null;index"`
	DealID     uuid.UUID `gorm:"column:deal_id;type:uuid;not null;index"`

	CFType            string          `gorm:"column:cf_type;not null"`
	CFName            string          `gorm:"column:cf_name;not null"`
	CFIcon            string          `gorm:"column:cf_icon;not null"`
	CFRisk            string          `gorm:"column:cf_risk;not null"`
	CFTargetAPY       float64         `gorm:"column:cf_target_apy;not null"`
	CFDuration        int             `gorm:"column:cf_duration;not null"`
	CFMinInvestment   decimal.Decimal `gorm:"column:cf_min_investment;type:numeric(18,2);not null"`
	CFAmountRequired  decimal.Decimal `gorm:"column:cf_amount_required;type:numeric(18,2);not null"`
	CFDescription     string          `gorm:"column:cf_description;not null"`
	CFOrigin          string          `gorm:"column:cf_origin;not null"`
	CFDestination     string          `gorm:"column:cf_destination;not null"`
	CFTransportMethod string          `gorm:"column:cf_transport_method;not null"`
	CFMetalForm       string          `gorm:"column:cf_metal_form;not null"`
	CFPurityPercent   float64         `gorm:"column:cf_purity_percent;not null"`

	Status          enums.ExportStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	CrowdfundingID  *string            `gorm:"column:crowdfunding_id"`
	ReviewedBy      *string            `gorm:"column:reviewed_by"`
	ReviewedAt      *time.Time         `gorm:"column:reviewed_at"`
	RejectionReason *string            `gorm:"column:rejection_reason"`
	ExportedAt      *time.Time         `gorm:"column:exported_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
