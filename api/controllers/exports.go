package controllers

import (
	"net/http"
	"strings"

	"github.com/goldbridge/marketplace-backend/api/middleware"
	"github.com/goldbridge/marketplace-backend/api/responses"
	"github.com/goldbridge/marketplace-backend/api/validators"
	"github.com/goldbridge/marketplace-backend/internal/exports"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// AdminExportsList returns the export-review queue with status counts.
func AdminExportsList(svc exports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exports service unavailable"))
			return
		}

		var filters exports.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseExportStatus(strings.ToUpper(raw))
			if err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown export status").WithDetails(map[string]any{"field": "status"})
				responses.WriteError(r.Context(), logg, w, wrapped)
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

// AdminExportApprove pushes a pending export to the crowdfunding platform.
func AdminExportApprove(svc exports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exports service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "exportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Approve(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type rejectExportRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// AdminExportReject declines a pending export with a mandatory reason.
func AdminExportReject(svc exports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exports service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "exportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rejectExportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reject(r.Context(), id, middleware.UserIDFromContext(r.Context()), body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
