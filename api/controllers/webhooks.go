package controllers

import (
	"net/http"

	"github.com/goldbridge/marketplace-backend/api/responses"
	"github.com/goldbridge/marketplace-backend/api/validators"
	"github.com/goldbridge/marketplace-backend/internal/webhooks"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// CrowdfundingWebhook ingests funding notifications from the crowdfunding
// platform. Replayed events succeed without re-applying side effects.
func CrowdfundingWebhook(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		var event webhooks.FundedEvent
		if err := validators.DecodeJSONBody(r, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.HandleFunded(r.Context(), event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
