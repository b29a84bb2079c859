package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/goldbridge/marketplace-backend/api/middleware"
	"github.com/goldbridge/marketplace-backend/api/responses"
	"github.com/goldbridge/marketplace-backend/api/validators"
	"github.com/goldbridge/marketplace-backend/internal/agreements"
	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// ownedPurchaseID resolves the {purchaseId} parameter and enforces that the
// caller owns the purchase unless they are an admin.
func ownedPurchaseID(r *http.Request, purchasesSvc purchases.Service) (uuid.UUID, error) {
	id, err := validators.ParseUUIDParam(r, "purchaseId")
	if err != nil {
		return uuid.Nil, err
	}

	purchase, err := purchasesSvc.Get(r.Context(), id)
	if err != nil {
		return uuid.Nil, err
	}

	if middleware.RoleFromContext(r.Context()) != enums.UserRoleAdmin.String() {
		caller, err := callerID(r)
		if err != nil || purchase.BuyerID != caller {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
	}
	return id, nil
}

// AgreementGet returns the agreement attached to a purchase.
func AgreementGet(svc agreements.Service, purchasesSvc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || purchasesSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agreements service unavailable"))
			return
		}

		purchaseID, err := ownedPurchaseID(r, purchasesSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agreement, err := svc.GetByPurchase(r.Context(), purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, agreements.FromModel(agreement))
	}
}

// AgreementSign flips a draft agreement to SIGNED.
func AgreementSign(svc agreements.Service, purchasesSvc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || purchasesSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agreements service unavailable"))
			return
		}

		purchaseID, err := ownedPurchaseID(r, purchasesSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agreement, err := svc.Sign(r.Context(), purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, agreements.FromModel(agreement))
	}
}
