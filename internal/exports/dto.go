package exports

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/crowdfunding"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// ExportDTO is the transport shape admins review before a campaign goes out.
type ExportDTO struct {
	ID         uuid.UUID `json:"id"`
	PurchaseID uuid.UUID `json:"purchase_id"`
	DealID     uuid.UUID `json:"deal_id"`

	CFType            string          `json:"cf_type"`
	CFName            string          `json:"cf_name"`
	CFIcon            string          `json:"cf_icon"`
	CFRisk            string          `json:"cf_risk"`
	CFTargetAPY       float64         `json:"cf_target_apy"`
	CFDuration        int             `json:"cf_duration"`
	CFMinInvestment   decimal.Decimal `json:"cf_min_investment"`
	CFAmountRequired  decimal.Decimal `json:"cf_amount_required"`
	CFDescription     string          `json:"cf_description"`
	CFOrigin          string          `json:"cf_origin"`
	CFDestination     string          `json:"cf_destination"`
	CFTransportMethod string          `json:"cf_transport_method"`
	CFMetalForm       string          `json:"cf_metal_form"`
	CFPurityPercent   float64         `json:"cf_purity_percent"`

	Status          enums.ExportStatus `json:"status"`
	CrowdfundingID  *string            `json:"crowdfunding_id,omitempty"`
	ReviewedBy      *string            `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time         `json:"reviewed_at,omitempty"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	ExportedAt      *time.Time         `json:"exported_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ExportListDTO wraps the filtered rows plus per-status totals for the
// admin review screen.
type ExportListDTO struct {
	Exports []ExportDTO                  `json:"exports"`
	Counts  map[enums.ExportStatus]int64 `json:"counts"`
}

func toDTO(export *models.PendingExport) ExportDTO {
	return ExportDTO{
		ID:                export.ID,
		PurchaseID:        export.PurchaseID,
		DealID:            export.DealID,
		CFType:            export.CFType,
		CFName:            export.CFName,
		CFIcon:            export.CFIcon,
		CFRisk:            export.CFRisk,
		CFTargetAPY:       export.CFTargetAPY,
		CFDuration:        export.CFDuration,
		CFMinInvestment:   export.CFMinInvestment,
		CFAmountRequired:  export.CFAmountRequired,
		CFDescription:     export.CFDescription,
		CFOrigin:          export.CFOrigin,
		CFDestination:     export.CFDestination,
		CFTransportMethod: export.CFTransportMethod,
		CFMetalForm:       export.CFMetalForm,
		CFPurityPercent:   export.CFPurityPercent,
		Status:            export.Status,
		CrowdfundingID:    export.CrowdfundingID,
		ReviewedBy:        export.ReviewedBy,
		ReviewedAt:        export.ReviewedAt,
		RejectionReason:   export.RejectionReason,
		ExportedAt:        export.ExportedAt,
		CreatedAt:         export.CreatedAt,
	}
}

// CampaignPayload maps the staged export row onto the wire shape the
// crowdfunding platform expects, keyed back to the purchase as shipmentId.
func CampaignPayload(export *models.PendingExport) (json.RawMessage, error) {
	minInvestment, _ := export.CFMinInvestment.Float64()
	amountRequired, _ := export.CFAmountRequired.Float64()

	return json.Marshal(crowdfunding.CampaignPayload{
		Type:            export.CFType,
		Name:            export.CFName,
		Icon:            export.CFIcon,
		Risk:            export.CFRisk,
		TargetAPY:       export.CFTargetAPY,
		Duration:        export.CFDuration,
		MinInvestment:   minInvestment,
		AmountRequired:  amountRequired,
		Description:     export.CFDescription,
		Origin:          export.CFOrigin,
		Destination:     export.CFDestination,
		TransportMethod: export.CFTransportMethod,
		MetalForm:       export.CFMetalForm,
		PurityPercent:   export.CFPurityPercent,
		ShipmentID:      export.PurchaseID.String(),
	})
}
