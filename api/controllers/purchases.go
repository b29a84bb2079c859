package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/api/middleware"
	"github.com/goldbridge/marketplace-backend/api/responses"
	"github.com/goldbridge/marketplace-backend/api/validators"
	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	return id, nil
}

type purchaseRequest struct {
	Quantity         decimal.Decimal `json:"quantity"`
	DeliveryLocation string          `json:"delivery_location"`
	AgreementTerms   string          `json:"agreement_terms"`
}

// PurchaseDeal executes the buy flow for a deal.
func PurchaseDeal(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		dealID, err := validators.ParseUUIDParam(r, "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Purchase(r.Context(), dealID, buyerID, purchases.PurchaseInput{
			Quantity:         body.Quantity,
			DeliveryLocation: body.DeliveryLocation,
			AgreementTerms:   body.AgreementTerms,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PurchasesList returns the caller's purchases.
func PurchasesList(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// PurchaseGet returns one purchase; buyers only see their own.
func PurchaseGet(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if middleware.RoleFromContext(r.Context()) != enums.UserRoleAdmin.String() {
			callerID, err := callerID(r)
			if err != nil || result.BuyerID != callerID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found"))
				return
			}
		}

		responses.WriteSuccess(w, result)
	}
}

type logisticsRequest struct {
	Status           string  `json:"status" validate:"required"`
	LogisticsCompany *string `json:"logistics_company"`
	TrackingNumber   *string `json:"tracking_number"`
	LogisticsNotes   *string `json:"logistics_notes"`
}

// AdminUpdateLogistics moves a purchase along the fulfillment pipeline.
func AdminUpdateLogistics(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body logisticsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePurchaseStatus(strings.ToUpper(body.Status))
		if err != nil {
			wrapped := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown purchase status").WithDetails(map[string]any{"field": "status"})
			responses.WriteError(r.Context(), logg, w, wrapped)
			return
		}

		result, err := svc.UpdateLogistics(r.Context(), id, purchases.LogisticsInput{
			Status:           status,
			LogisticsCompany: body.LogisticsCompany,
			TrackingNumber:   body.TrackingNumber,
			Notes:            body.LogisticsNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
