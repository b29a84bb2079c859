package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/exports"
	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// EventCommodityFunded is the only crowdfunding event this consumer handles.
const EventCommodityFunded = "COMMODITY_FUNDED"

const fundedNote = "[System] Automatically confirmed after crowdfunding campaign was fully funded."

// FundedEvent is the notification body sent by the crowdfunding platform.
type FundedEvent struct {
	Event       string  `json:"event"`
	ShipmentID  string  `json:"shipmentId"`
	CommodityID string  `json:"commodityId"`
	Amount      float64 `json:"amount"`
}

// dedupeGuard is the replay guard backed by redis SetNX.
type dedupeGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Service consumes crowdfunding webhook notifications.
type Service interface {
	HandleFunded(ctx context.Context, event FundedEvent) error
}

type service struct {
	purchasesRepo purchases.Repository
	exportsRepo   exports.Repository
	guard         dedupeGuard
	guardTTL      time.Duration
	logger        *logger.Logger
}

// NewService builds the webhook consumer.
func NewService(purchasesRepo purchases.Repository, exportsRepo exports.Repository, guard dedupeGuard, guardTTL time.Duration, log *logger.Logger) (Service, error) {
	if purchasesRepo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if exportsRepo == nil {
		return nil, fmt.Errorf("exports repository required")
	}
	if guard == nil {
		return nil, fmt.Errorf("dedupe guard required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if guardTTL <= 0 {
		guardTTL = 30 * 24 * time.Hour
	}
	return &service{
		purchasesRepo: purchasesRepo,
		exportsRepo:   exportsRepo,
		guard:         guard,
		guardTTL:      guardTTL,
		logger:        log,
	}, nil
}

// HandleFunded advances the funded purchase to CONFIRMED and force-sets its
// export rows to EXPORTED. Replays of the same (event, shipmentId) pair are
// acknowledged without re-applying side effects.
func (s *service) HandleFunded(ctx context.Context, event FundedEvent) error {
	if event.Event != EventCommodityFunded {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported event %q", event.Event))
	}

	purchaseID, err := uuid.Parse(event.ShipmentID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipmentId must be a purchase id")
	}

	ctx = s.logger.WithPurchaseID(ctx, purchaseID.String())

	key := s.guard.IdempotencyKey("webhook:"+event.Event, event.ShipmentID)
	fresh, err := s.guard.SetNX(ctx, key, "1", s.guardTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedupe guard")
	}
	if !fresh {
		s.logger.Info(ctx, "duplicate webhook delivery ignored")
		return nil
	}

	if err := s.applyFunding(ctx, purchaseID, event.CommodityID); err != nil {
		// Release the guard so the platform's retry is not swallowed as a
		// duplicate while the funding was never applied.
		_ = s.guard.Del(ctx, key)
		return err
	}

	s.logger.Info(ctx, "crowdfunding funding applied")
	return nil
}

func (s *service) applyFunding(ctx context.Context, purchaseID uuid.UUID, commodityID string) error {
	purchase, err := s.purchasesRepo.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find purchase")
	}

	if purchase.Status == enums.PurchaseStatusPending {
		purchase.Status = enums.PurchaseStatusConfirmed
		if purchase.Notes == "" {
			purchase.Notes = fundedNote
		} else {
			purchase.Notes = purchase.Notes + "\n" + fundedNote
		}
		if err := s.purchasesRepo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm funded purchase")
		}
	}

	updates := map[string]any{
		"status":      enums.ExportStatusExported,
		"exported_at": time.Now().UTC(),
	}
	if commodityID != "" {
		updates["crowdfunding_id"] = commodityID
	}
	if _, err := s.exportsRepo.UpdateByPurchaseID(ctx, purchaseID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark exports exported")
	}
	return nil
}
