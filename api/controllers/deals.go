package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/api/responses"
	"github.com/goldbridge/marketplace-backend/api/validators"
	"github.com/goldbridge/marketplace-backend/internal/deals"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// DealsList returns open or filtered deals with effective pricing.
func DealsList(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		var filters deals.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.DealStatus(strings.ToUpper(raw))
			if !status.IsValid() {
				err := pkgerrors.New(pkgerrors.CodeValidation, "unknown deal status").WithDetails(map[string]any{"field": "status"})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.Status = &status
		}

		result, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func DealGet(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type createDealRequest struct {
	Company           string           `json:"company" validate:"required,min=2"`
	Commodity         string           `json:"commodity" validate:"required,min=2"`
	Type              string           `json:"type"`
	PricePerKg        decimal.Decimal  `json:"price_per_kg"`
	Discount          float64          `json:"discount" validate:"min=0,max=100"`
	AvailableQuantity decimal.Decimal  `json:"available_quantity"`
	DeliveryLocation  string           `json:"delivery_location"`
	PricingModel      string           `json:"pricing_model" validate:"required,oneof=FIXED DYNAMIC"`
	Frequency         string           `json:"frequency" validate:"required"`
	TotalQuantity     *decimal.Decimal `json:"total_quantity"`
	ContractDuration  *int             `json:"contract_duration"`
	AutoSync          bool             `json:"auto_sync"`
	CFRisk            string           `json:"cf_risk"`
	CFTargetAPY       float64          `json:"cf_target_apy"`
	CFMinInvestment   decimal.Decimal  `json:"cf_min_investment"`
	CFOrigin          string           `json:"cf_origin"`
	CFTransportMethod string           `json:"cf_transport_method"`
}

// AdminDealCreate registers a new deal; admin-only.
func AdminDealCreate(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deals service unavailable"))
			return
		}

		var body createDealRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		frequency, err := enums.ParseDealFrequency(strings.ToUpper(body.Frequency))
		if err != nil {
			wrapped := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown frequency").WithDetails(map[string]any{"field": "frequency"})
			responses.WriteError(r.Context(), logg, w, wrapped)
			return
		}

		input := deals.CreateDealInput{
			Company:           body.Company,
			Commodity:         body.Commodity,
			Type:              body.Type,
			PricePerKg:        body.PricePerKg,
			Discount:          body.Discount,
			AvailableQuantity: body.AvailableQuantity,
			DeliveryLocation:  body.DeliveryLocation,
			PricingModel:      enums.PricingModel(strings.ToUpper(body.PricingModel)),
			Frequency:         frequency,
			TotalQuantity:     body.TotalQuantity,
			ContractDuration:  body.ContractDuration,
			AutoSync:          body.AutoSync,
			CFRisk:            body.CFRisk,
			CFTargetAPY:       body.CFTargetAPY,
			CFMinInvestment:   body.CFMinInvestment,
			CFOrigin:          body.CFOrigin,
			CFTransportMethod: body.CFTransportMethod,
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
