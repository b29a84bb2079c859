package agreements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
)

// Service manages the draft agreement attached to each purchase.
type Service interface {
	CreateDraft(ctx context.Context, input DraftInput) (*models.Agreement, error)
	GetByPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Agreement, error)
	Sign(ctx context.Context, purchaseID uuid.UUID) (*models.Agreement, error)
}

// DraftInput carries everything needed to stage an agreement for a purchase.
type DraftInput struct {
	PurchaseID  uuid.UUID
	BuyerName   string
	DealCompany string
	Terms       string
	Date        time.Time
}

type service struct {
	repo Repository
}

// NewService builds the agreements service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("agreements repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateDraft(ctx context.Context, input DraftInput) (*models.Agreement, error) {
	if input.PurchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	buyerName, sellerName := ParseParties(input.Terms, input.BuyerName, input.DealCompany)

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	agreement := &models.Agreement{
		PurchaseID:    input.PurchaseID,
		BuyerName:     buyerName,
		SellerName:    sellerName,
		AgreementDate: date,
		Terms:         strings.TrimSpace(input.Terms),
		Status:        enums.AgreementStatusDraft,
	}

	created, err := s.repo.Create(ctx, agreement)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create agreement")
	}
	return created, nil
}

func (s *service) GetByPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Agreement, error) {
	if purchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	agreement, err := s.repo.FindByPurchaseID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agreement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find agreement")
	}
	return agreement, nil
}

func (s *service) Sign(ctx context.Context, purchaseID uuid.UUID) (*models.Agreement, error) {
	agreement, err := s.GetByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if agreement.Status == enums.AgreementStatusSigned {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "agreement already signed")
	}

	if err := s.repo.UpdateStatus(ctx, agreement.ID, enums.AgreementStatusSigned); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign agreement")
	}

	agreement.Status = enums.AgreementStatusSigned
	return agreement, nil
}

// ParseParties extracts buyer and seller names from free-text terms using
// "BUYER:" / "SELLER:" line markers, falling back to the purchase's buyer
// name and the deal's company when a marker is absent.
func ParseParties(terms, fallbackBuyer, fallbackSeller string) (string, string) {
	buyer := strings.TrimSpace(fallbackBuyer)
	seller := strings.TrimSpace(fallbackSeller)

	for _, line := range strings.Split(terms, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "BUYER:"):
			if v := strings.TrimSpace(trimmed[len("BUYER:"):]); v != "" {
				buyer = v
			}
		case strings.HasPrefix(upper, "SELLER:"):
			if v := strings.TrimSpace(trimmed[len("SELLER:"):]); v != "" {
				seller = v
			}
		}
	}

	return buyer, seller
}
