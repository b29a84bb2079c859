package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/goldbridge/marketplace-backend/api/routes"
	"github.com/goldbridge/marketplace-backend/internal/agreements"
	"github.com/goldbridge/marketplace-backend/internal/auth"
	"github.com/goldbridge/marketplace-backend/internal/deals"
	"github.com/goldbridge/marketplace-backend/internal/exports"
	"github.com/goldbridge/marketplace-backend/internal/kyc"
	"github.com/goldbridge/marketplace-backend/internal/pricing"
	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/internal/repush"
	"github.com/goldbridge/marketplace-backend/internal/syncjobs"
	"github.com/goldbridge/marketplace-backend/internal/users"
	"github.com/goldbridge/marketplace-backend/internal/wallet"
	"github.com/goldbridge/marketplace-backend/internal/webhooks"
	"github.com/goldbridge/marketplace-backend/pkg/auth/session"
	"github.com/goldbridge/marketplace-backend/pkg/config"
	"github.com/goldbridge/marketplace-backend/pkg/crowdfunding"
	"github.com/goldbridge/marketplace-backend/pkg/db"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
	"github.com/goldbridge/marketplace-backend/pkg/migrate"
	"github.com/goldbridge/marketplace-backend/pkg/quotes"
	"github.com/goldbridge/marketplace-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if cfg.FeatureFlags.AutoMigrate {
		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			logg.Error(context.Background(), "failed to unwrap sql db for migrations", err)
			os.Exit(1)
		}
		if err := migrate.Run(context.Background(), sqlDB, migrate.DefaultDir, "up"); err != nil {
			logg.Error(context.Background(), "failed to run migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	dealsRepo := deals.NewRepository(dbClient.DB())
	purchasesRepo := purchases.NewRepository(dbClient.DB())
	agreementsRepo := agreements.NewRepository(dbClient.DB())
	exportsRepo := exports.NewRepository(dbClient.DB())
	syncJobsRepo := syncjobs.NewRepository(dbClient.DB())

	quoteClient, err := quotes.NewClient(cfg.Quotes.APIURL,
		quotes.WithAPIKey(cfg.Quotes.APIKey),
		quotes.WithTimeout(cfg.Quotes.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote client", err)
		os.Exit(1)
	}
	quoteCache := quotes.NewCache(quoteClient, cfg.Quotes.CacheTTL, nil)
	calculator := pricing.NewCalculator(quoteCache)

	crowdfundingClient, err := crowdfunding.NewClient(cfg.Crowdfunding.APIURL,
		crowdfunding.WithTimeout(cfg.Crowdfunding.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create crowdfunding client", err)
		os.Exit(1)
	}

	syncService, err := syncjobs.NewService(syncJobsRepo, crowdfundingClient, nil, logg, syncjobs.Config{
		MaxAttempts: cfg.SyncQueue.MaxAttempts,
		BatchSize:   cfg.SyncQueue.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	exportsService, err := exports.NewService(exportsRepo, syncService, dealsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create exports service", err)
		os.Exit(1)
	}
	syncService.SetPostResultHandler(exportsService)

	agreementsService, err := agreements.NewService(agreementsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create agreements service", err)
		os.Exit(1)
	}

	purchasesService, err := purchases.NewService(
		dbClient,
		purchasesRepo,
		dealsRepo,
		usersRepo,
		exportsRepo,
		agreementsService,
		calculator,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchases service", err)
		os.Exit(1)
	}

	scheduler, err := repush.NewScheduler(purchasesRepo, exportsRepo, syncService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create repush scheduler", err)
		os.Exit(1)
	}
	purchasesService.SetDeliveryHook(scheduler)

	dealsService, err := deals.NewService(dealsRepo, calculator, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deals service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(usersRepo, purchasesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	kycService, err := kyc.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create kyc service", err)
		os.Exit(1)
	}

	webhookService, err := webhooks.NewService(purchasesRepo, exportsRepo, redisClient, cfg.Webhooks.IdempotencyTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:       authService,
			Deals:      dealsService,
			Purchases:  purchasesService,
			Agreements: agreementsService,
			Wallet:     walletService,
			KYC:        kycService,
			Exports:    exportsService,
			Webhooks:   webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
