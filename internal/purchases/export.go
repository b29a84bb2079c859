package purchases

import (
	"fmt"
	"strings"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// MetalForm names the physical form the campaign advertises.
func MetalForm(gradeType string) string {
	if strings.EqualFold(strings.TrimSpace(gradeType), "BULLION") {
		return "Bullion"
	}
	return "Dore"
}

// BuildPendingExport maps a deal and one of its purchases onto the staged
// campaign row an admin reviews before export.
func BuildPendingExport(deal *models.Deal, purchase *models.Purchase) *models.PendingExport {
	form := MetalForm(deal.Type)
	purityPercent := deal.Purity * 100
	quantity := purchase.Quantity.String()

	name := fmt.Sprintf("%s - %s %s (%skg)", deal.Company, deal.Commodity, form, quantity)
	description := fmt.Sprintf(
		"Secured %s %s from %s. Purity: %.2f%%. Quantity: %skg. Delivery: %s.",
		deal.Commodity, form, deal.Company, purityPercent, quantity, purchase.DeliveryLocation,
	)

	return &models.PendingExport{
		PurchaseID:        purchase.ID,
		DealID:            deal.ID,
		CFType:            strings.ToLower(deal.Commodity),
		CFName:            name,
		CFIcon:            deal.CFIcon,
		CFRisk:            deal.CFRisk,
		CFTargetAPY:       deal.CFTargetAPY,
		CFDuration:        deal.CFDuration,
		CFMinInvestment:   deal.CFMinInvestment,
		CFAmountRequired:  purchase.TotalPrice,
		CFDescription:     description,
		CFOrigin:          deal.CFOrigin,
		CFDestination:     purchase.DeliveryLocation,
		CFTransportMethod: deal.CFTransportMethod,
		CFMetalForm:       form,
		CFPurityPercent:   purityPercent,
		Status:            enums.ExportStatusPending,
	}
}
