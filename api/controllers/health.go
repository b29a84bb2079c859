package controllers

import (
	"net/http"

	"github.com/goldbridge/marketplace-backend/api/responses"
	"github.com/goldbridge/marketplace-backend/pkg/config"
	"github.com/goldbridge/marketplace-backend/pkg/db"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GoldBridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when the backing stores answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GoldBridge-Env", cfg.App.Env)

		checks := map[string]db.Pinger{
			"database": dbP,
			"redis":    redisP,
		}
		for name, p := range checks {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
