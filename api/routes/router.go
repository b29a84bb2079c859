package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldbridge/marketplace-backend/api/controllers"
	"github.com/goldbridge/marketplace-backend/api/middleware"
	"github.com/goldbridge/marketplace-backend/internal/agreements"
	authsvc "github.com/goldbridge/marketplace-backend/internal/auth"
	"github.com/goldbridge/marketplace-backend/internal/deals"
	"github.com/goldbridge/marketplace-backend/internal/exports"
	"github.com/goldbridge/marketplace-backend/internal/kyc"
	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/internal/wallet"
	"github.com/goldbridge/marketplace-backend/internal/webhooks"
	"github.com/goldbridge/marketplace-backend/pkg/auth/session"
	"github.com/goldbridge/marketplace-backend/pkg/config"
	"github.com/goldbridge/marketplace-backend/pkg/db"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// Services bundles everything the HTTP surface needs.
type Services struct {
	Auth       authsvc.Service
	Deals      deals.Service
	Purchases  purchases.Service
	Agreements agreements.Service
	Wallet     wallet.Service
	KYC        kyc.Service
	Exports    exports.Service
	Webhooks   webhooks.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/crowdfunding", controllers.CrowdfundingWebhook(svcs.Webhooks, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", controllers.DealsList(svcs.Deals, logg))
			r.Get("/{dealId}", controllers.DealGet(svcs.Deals, logg))
			r.Post("/{dealId}/purchase", controllers.PurchaseDeal(svcs.Purchases, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", controllers.PurchasesList(svcs.Purchases, logg))
			r.Get("/{purchaseId}", controllers.PurchaseGet(svcs.Purchases, logg))
			r.Get("/{purchaseId}/agreement", controllers.AgreementGet(svcs.Agreements, svcs.Purchases, logg))
			r.Post("/{purchaseId}/agreement/sign", controllers.AgreementSign(svcs.Agreements, svcs.Purchases, logg))
		})

		r.Get("/wallet", controllers.WalletSummary(svcs.Wallet, logg))

		r.Route("/kyc", func(r chi.Router) {
			r.Get("/", controllers.KYCStatus(svcs.KYC, logg))
			r.Post("/submit", controllers.KYCSubmit(svcs.KYC, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin.String(), logg))

			r.Post("/deals", controllers.AdminDealCreate(svcs.Deals, logg))

			r.Route("/exports", func(r chi.Router) {
				r.Get("/", controllers.AdminExportsList(svcs.Exports, logg))
				r.Post("/{exportId}/approve", controllers.AdminExportApprove(svcs.Exports, logg))
				r.Post("/{exportId}/reject", controllers.AdminExportReject(svcs.Exports, logg))
			})

			r.Post("/purchases/{purchaseId}/logistics", controllers.AdminUpdateLogistics(svcs.Purchases, logg))
			r.Post("/kyc/{userId}/decision", controllers.AdminKYCDecide(svcs.KYC, logg))
		})
	})

	return r
}
