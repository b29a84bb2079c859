package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/internal/users"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
)

// SummaryDTO is the wallet view returned to a buyer.
type SummaryDTO struct {
	Balance        decimal.Decimal `json:"balance"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	PurchaseCount  int64           `json:"purchase_count"`
	TotalQuantity  decimal.Decimal `json:"total_quantity_kg"`
}

// Service exposes the wallet summary read.
type Service interface {
	Summary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error)
}

type service struct {
	usersRepo     *users.Repository
	purchasesRepo purchases.Repository
}

// NewService builds the wallet service.
func NewService(usersRepo *users.Repository, purchasesRepo purchases.Repository) (Service, error) {
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if purchasesRepo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	return &service{usersRepo: usersRepo, purchasesRepo: purchasesRepo}, nil
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}

	user, err := s.usersRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	portfolio, err := s.purchasesRepo.PortfolioSummary(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize portfolio")
	}

	return &SummaryDTO{
		Balance:        user.Balance,
		PortfolioValue: portfolio.TotalValue,
		PurchaseCount:  portfolio.PurchaseCount,
		TotalQuantity:  portfolio.TotalQuantity,
	}, nil
}
