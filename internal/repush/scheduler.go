package repush

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goldbridge/marketplace-backend/internal/exports"
	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/pkg/crowdfunding"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// systemReviewer marks auto-synced export rows in the history trail.
const systemReviewer = "SYSTEM-AUTO"

// defaultContractYears applies when a periodic deal has no explicit duration.
const defaultContractYears = 1

// jobDispatcher enqueues a durable sync job and kicks off a first attempt.
type jobDispatcher interface {
	Dispatch(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (uuid.UUID, error)
}

// exportStager writes staged export rows.
type exportStager interface {
	Create(ctx context.Context, export *models.PendingExport) (*models.PendingExport, error)
}

// Scheduler re-tranches periodic deals when a shipment arrives. Every error
// is logged and swallowed: the logistics update that triggered the run has
// already committed.
type Scheduler struct {
	purchasesRepo purchases.Repository
	exportsRepo   exportStager
	dispatcher    jobDispatcher
	logger        *logger.Logger
	now           func() time.Time
}

// NewScheduler builds the repush scheduler.
func NewScheduler(purchasesRepo purchases.Repository, exportsRepo exportStager, dispatcher jobDispatcher, log *logger.Logger) (*Scheduler, error) {
	if purchasesRepo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if exportsRepo == nil {
		return nil, fmt.Errorf("exports repository required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("job dispatcher required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Scheduler{
		purchasesRepo: purchasesRepo,
		exportsRepo:   exportsRepo,
		dispatcher:    dispatcher,
		logger:        log,
		now:           time.Now,
	}, nil
}

// PurchaseDelivered runs the repush procedure for a purchase that just
// transitioned into DELIVERED.
func (s *Scheduler) PurchaseDelivered(ctx context.Context, purchase *models.Purchase, deal *models.Deal) {
	ctx = s.logger.WithPurchaseID(s.logger.WithDealID(ctx, deal.ID.String()), purchase.ID.String())

	// The delivery event syncs regardless of what the contract decides below.
	s.syncDelivery(ctx, purchase.ID)

	if deal.Frequency == enums.DealFrequencySpot {
		return
	}

	delivered, err := s.purchasesRepo.SumDeliveredQuantity(ctx, deal.ID)
	if err != nil {
		s.logger.Error(ctx, "sum delivered quantity", err)
		return
	}
	if deal.TotalQuantity != nil && delivered.GreaterThanOrEqual(*deal.TotalQuantity) {
		s.logger.Info(ctx, "contract quantity fulfilled, no further tranches")
		return
	}

	years := defaultContractYears
	if deal.ContractDuration != nil {
		years = *deal.ContractDuration
	}
	expiry := deal.CreatedAt.AddDate(years, 0, 0)
	if s.now().After(expiry) {
		s.logger.Info(ctx, "contract expired, no further tranches")
		return
	}

	tranche := &models.Purchase{
		DealID:           deal.ID,
		BuyerID:          purchase.BuyerID,
		Quantity:         purchase.Quantity,
		PricePerKg:       purchase.PricePerKg,
		TotalPrice:       purchase.TotalPrice,
		DeliveryLocation: purchase.DeliveryLocation,
		Status:           enums.PurchaseStatusConfirmed,
	}
	if _, err := s.purchasesRepo.Create(ctx, tranche); err != nil {
		s.logger.Error(ctx, "create repush tranche", err)
		return
	}

	export := purchases.BuildPendingExport(deal, tranche)

	if !deal.AutoSync {
		if _, err := s.exportsRepo.Create(ctx, export); err != nil {
			s.logger.Error(ctx, "stage repush export", err)
		}
		return
	}

	payload, err := exports.CampaignPayload(export)
	if err != nil {
		s.logger.Error(ctx, "build repush campaign payload", err)
		return
	}

	// The history row must exist before the POST job runs: the worker stamps
	// the crowdfunding campaign id onto this record when the platform answers.
	reviewer := systemReviewer
	reviewedAt := s.now().UTC()
	export.Status = enums.ExportStatusExported
	export.ReviewedBy = &reviewer
	export.ReviewedAt = &reviewedAt
	export.ExportedAt = &reviewedAt
	if _, err := s.exportsRepo.Create(ctx, export); err != nil {
		s.logger.Error(ctx, "record auto-synced export", err)
		return
	}

	if _, err := s.dispatcher.Dispatch(ctx, enums.SyncJobTypeCrowdfundingPost, payload); err != nil {
		s.logger.Error(ctx, "dispatch repush campaign job", err)
	}
}

func (s *Scheduler) syncDelivery(ctx context.Context, purchaseID uuid.UUID) {
	payload, err := json.Marshal(crowdfunding.DeliveryPayload{
		ShipmentID: purchaseID.String(),
		Status:     "ARRIVED",
	})
	if err != nil {
		s.logger.Error(ctx, "build delivery payload", err)
		return
	}
	if _, err := s.dispatcher.Dispatch(ctx, enums.SyncJobTypeCrowdfundingPatch, payload); err != nil {
		s.logger.Error(ctx, "dispatch delivery sync job", err)
	}
}
