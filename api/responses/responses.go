package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
	"github.com/goldbridge/marketplace-backend/pkg/types"
)

// WriteSuccess wraps data in the standard envelope with a 200 status.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

// WriteSuccessStatus wraps data in the standard envelope with an explicit status.
func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps a coded error onto the wire format. Uncoded errors surface
// as INTERNAL_ERROR; details only leak when the code's metadata allows it.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	code := pkgerrors.CodeInternal
	var details any
	message := ""

	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
		message = typed.Message()
		details = typed.Details()
	}

	meta := pkgerrors.MetadataFor(code)
	if message == "" {
		message = meta.PublicMessage
	}
	if !meta.DetailsAllowed {
		details = nil
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)
		fields := map[string]any{
			"error":       dump.TopMessage,
			"error_code":  string(code),
			"error_chain": dump.Chain,
			"http_status": meta.HTTPStatus,
		}
		if dump.PGCode != "" {
			fields["pg_code"] = dump.PGCode
			fields["pg_constraint"] = dump.PGConstraint
			fields["pg_table"] = dump.PGTable
			fields["pg_detail"] = dump.PGDetail
		}
		logg.Error(logg.WithFields(ctx, fields), "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(code),
			Message: message,
			Details: details,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
