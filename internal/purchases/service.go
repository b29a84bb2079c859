package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/agreements"
	"github.com/goldbridge/marketplace-backend/internal/deals"
	"github.com/goldbridge/marketplace-backend/internal/users"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type priceResolver interface {
	EffectiveUnitPrice(ctx context.Context, deal *models.Deal) (decimal.Decimal, error)
}

type exportStager interface {
	Create(ctx context.Context, export *models.PendingExport) (*models.PendingExport, error)
}

type agreementCreator interface {
	CreateDraft(ctx context.Context, input agreements.DraftInput) (*models.Agreement, error)
}

// DeliveryHook is notified after a purchase transitions into DELIVERED. It is
// best-effort: implementations log their own failures.
type DeliveryHook interface {
	PurchaseDelivered(ctx context.Context, purchase *models.Purchase, deal *models.Deal)
}

// Service executes the purchase engine and logistics updates.
type Service interface {
	Purchase(ctx context.Context, dealID, buyerID uuid.UUID, input PurchaseInput) (*PurchaseResult, error)
	Get(ctx context.Context, id uuid.UUID) (*PurchaseDTO, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]PurchaseDTO, error)
	UpdateLogistics(ctx context.Context, id uuid.UUID, input LogisticsInput) (*PurchaseDTO, error)
	SetDeliveryHook(hook DeliveryHook)
}

type service struct {
	tx            txRunner
	repo          Repository
	dealsRepo     deals.Repository
	usersRepo     *users.Repository
	exportsRepo   exportStager
	agreementsSvc agreementCreator
	prices        priceResolver
	logger        *logger.Logger
	deliveryHook  DeliveryHook
}

// NewService builds the purchase engine.
func NewService(
	tx txRunner,
	repo Repository,
	dealsRepo deals.Repository,
	usersRepo *users.Repository,
	exportsRepo exportStager,
	agreementsSvc agreementCreator,
	prices priceResolver,
	log *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if dealsRepo == nil {
		return nil, fmt.Errorf("deals repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if exportsRepo == nil {
		return nil, fmt.Errorf("exports repository required")
	}
	if agreementsSvc == nil {
		return nil, fmt.Errorf("agreements service required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:            tx,
		repo:          repo,
		dealsRepo:     dealsRepo,
		usersRepo:     usersRepo,
		exportsRepo:   exportsRepo,
		agreementsSvc: agreementsSvc,
		prices:        prices,
		logger:        log,
	}, nil
}

// SetDeliveryHook attaches the scheduler notified on delivered purchases.
func (s *service) SetDeliveryHook(hook DeliveryHook) {
	s.deliveryHook = hook
}

// Purchase runs the buy flow: validate, lock prices, then commit the balance
// debit, purchase insert, inventory decrement and close-on-exhaustion in one
// transaction. Export staging and agreement drafting follow the commit and
// never fail the purchase.
func (s *service) Purchase(ctx context.Context, dealID, buyerID uuid.UUID, input PurchaseInput) (*PurchaseResult, error) {
	if dealID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal id required")
	}
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	deal, err := s.dealsRepo.FindByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find deal")
	}
	if deal.Status != enums.DealStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "deal is not open for purchase").
			WithDetails(map[string]any{"status": deal.Status})
	}
	if input.Quantity.GreaterThan(deal.AvailableQuantity) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds available inventory").
			WithDetails(map[string]any{"available": deal.AvailableQuantity})
	}

	unitPrice, err := s.prices.EffectiveUnitPrice(ctx, deal)
	if err != nil {
		return nil, err
	}
	totalPrice := unitPrice.Mul(input.Quantity).Round(2)

	buyer, err := s.usersRepo.FindByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find buyer")
	}
	if buyer.Balance.LessThan(totalPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").
			WithDetails(map[string]any{"balance": buyer.Balance, "required": totalPrice})
	}

	purchase := &models.Purchase{
		DealID:           dealID,
		BuyerID:          buyerID,
		Quantity:         input.Quantity,
		PricePerKg:       unitPrice,
		TotalPrice:       totalPrice,
		DeliveryLocation: strings.TrimSpace(input.DeliveryLocation),
		Status:           enums.PurchaseStatusConfirmed,
	}

	soldOut := false
	remaining := decimal.Zero
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		usersRepo := s.usersRepo.WithTx(tx)
		dealsRepo := s.dealsRepo.WithTx(tx)
		purchasesRepo := s.repo.WithTx(tx)

		debited, err := usersRepo.DebitBalance(ctx, buyerID, totalPrice)
		if err != nil {
			return err
		}
		if debited == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").
				WithDetails(map[string]any{"required": totalPrice})
		}

		if _, err := purchasesRepo.Create(ctx, purchase); err != nil {
			return err
		}

		decremented, err := dealsRepo.DecrementAvailableQuantity(ctx, dealID, input.Quantity)
		if err != nil {
			return err
		}
		if decremented == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "deal inventory changed, please retry")
		}

		updated, err := dealsRepo.FindByID(ctx, dealID)
		if err != nil {
			return err
		}
		remaining = updated.AvailableQuantity
		if updated.AvailableQuantity.LessThanOrEqual(decimal.Zero) {
			if err := dealsRepo.Close(ctx, dealID, buyerID); err != nil {
				return err
			}
			soldOut = true
		}
		return nil
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			return nil, coded
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "execute purchase transaction")
	}

	exportStaged := s.stageSideEffects(ctx, deal, purchase, buyer.Name, input.AgreementTerms)

	message := "Purchase confirmed."
	if soldOut {
		message += " This deal is now fully subscribed and closed."
	}
	if exportStaged {
		message += " Crowdfunding export staged for admin review."
	} else {
		message += " Crowdfunding export staging failed and needs manual review."
	}

	return &PurchaseResult{
		Purchase:          toDTO(purchase),
		AvailableQuantity: remaining,
		DealSoldOut:       soldOut,
		Message:           message,
	}, nil
}

// stageSideEffects writes the PendingExport row and, when terms were supplied,
// the draft agreement after the purchase committed. Failures are logged and
// swallowed: the money moved, so downstream staging must not unwind it.
// Reports whether the export row was staged.
func (s *service) stageSideEffects(ctx context.Context, deal *models.Deal, purchase *models.Purchase, buyerName, terms string) bool {
	ctx = s.logger.WithPurchaseID(ctx, purchase.ID.String())

	exportStaged := true
	if _, err := s.exportsRepo.Create(ctx, BuildPendingExport(deal, purchase)); err != nil {
		s.logger.Error(ctx, "stage pending export", err)
		exportStaged = false
	}

	if strings.TrimSpace(terms) != "" {
		if _, err := s.agreementsSvc.CreateDraft(ctx, agreements.DraftInput{
			PurchaseID:  purchase.ID,
			BuyerName:   buyerName,
			DealCompany: deal.Company,
			Terms:       terms,
		}); err != nil {
			s.logger.Error(ctx, "draft agreement", err)
		}
	}

	return exportStaged
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PurchaseDTO, error) {
	purchase, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(purchase)
	return &dto, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]PurchaseDTO, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	records, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}
	dtos := make([]PurchaseDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, toDTO(&records[i]))
	}
	return dtos, nil
}

// timeNow is swapped in tests.
var timeNow = time.Now

var statusRank = map[enums.PurchaseStatus]int{
	enums.PurchaseStatusPending:   0,
	enums.PurchaseStatusConfirmed: 1,
	enums.PurchaseStatusShipped:   2,
	enums.PurchaseStatusDelivered: 3,
}

// UpdateLogistics advances a purchase through the logistics states. The
// delivery hook fires exactly on the transition into DELIVERED.
func (s *service) UpdateLogistics(ctx context.Context, id uuid.UUID, input LogisticsInput) (*PurchaseDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid logistics status")
	}

	purchase, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if statusRank[input.Status] < statusRank[purchase.Status] {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "purchase status cannot move backward").
			WithDetails(map[string]any{"current": purchase.Status, "requested": input.Status})
	}

	enteredDelivered := input.Status == enums.PurchaseStatusDelivered && purchase.Status != enums.PurchaseStatusDelivered

	purchase.Status = input.Status
	if input.LogisticsCompany != nil {
		purchase.LogisticsCompany = input.LogisticsCompany
	}
	if input.TrackingNumber != nil {
		purchase.TrackingNumber = input.TrackingNumber
	}
	if input.Notes != nil {
		purchase.LogisticsNotes = input.Notes
	}
	now := timeNow().UTC()
	if input.Status == enums.PurchaseStatusShipped && purchase.ShippedAt == nil {
		purchase.ShippedAt = &now
	}
	if input.Status == enums.PurchaseStatusDelivered && purchase.DeliveredAt == nil {
		purchase.DeliveredAt = &now
	}

	if err := s.repo.Update(ctx, purchase); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update purchase logistics")
	}

	if enteredDelivered && s.deliveryHook != nil {
		deal := purchase.Deal
		if deal == nil {
			deal, err = s.dealsRepo.FindByID(ctx, purchase.DealID)
			if err != nil {
				s.logger.Error(ctx, "load deal for delivery hook", err)
			}
		}
		if deal != nil {
			s.deliveryHook.PurchaseDelivered(ctx, purchase, deal)
		}
	}

	dto := toDTO(purchase)
	return &dto, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	purchase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find purchase")
	}
	return purchase, nil
}
