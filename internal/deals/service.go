package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/pricing"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// Service exposes deal reads and admin deal creation.
type Service interface {
	List(ctx context.Context, filters ListFilters) ([]DealDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*DealDTO, error)
	Create(ctx context.Context, input CreateDealInput) (*DealDTO, error)
}

// CreateDealInput captures the fields an admin supplies for a new deal.
type CreateDealInput struct {
	Company           string
	Commodity         string
	Type              string
	PricePerKg        decimal.Decimal
	Discount          float64
	AvailableQuantity decimal.Decimal
	DeliveryLocation  string
	PricingModel      enums.PricingModel
	Frequency         enums.DealFrequency
	TotalQuantity     *decimal.Decimal
	ContractDuration  *int
	AutoSync          bool
	CFRisk            string
	CFTargetAPY       float64
	CFMinInvestment   decimal.Decimal
	CFOrigin          string
	CFTransportMethod string
}

type service struct {
	repo   Repository
	calc   *pricing.Calculator
	logger *logger.Logger
}

// NewService builds the deals service.
func NewService(repo Repository, calc *pricing.Calculator, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deals repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("price calculator required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, calc: calc, logger: log}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]DealDTO, error) {
	records, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list deals")
	}

	dtos := make([]DealDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, toDTO(&records[i], s.displayPrice(ctx, &records[i])))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*DealDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deal id required")
	}

	deal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find deal")
	}

	dto := toDTO(deal, s.displayPrice(ctx, deal))
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateDealInput) (*DealDTO, error) {
	deal, err := buildDeal(input)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, deal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create deal")
	}

	dto := toDTO(created, s.displayPrice(ctx, created))
	return &dto, nil
}

// displayPrice resolves the effective unit price for read paths. Unlike the
// purchase path, a missing quote falls back to the stored price so listings
// stay available when the quote source is down.
func (s *service) displayPrice(ctx context.Context, deal *models.Deal) decimal.Decimal {
	price, err := s.calc.EffectiveUnitPrice(ctx, deal)
	if err != nil {
		s.logger.Warn(s.logger.WithDealID(ctx, deal.ID.String()), "quote unavailable, serving stored price")
		return deal.PricePerKg
	}
	return price
}

func buildDeal(input CreateDealInput) (*models.Deal, error) {
	if strings.TrimSpace(input.Company) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company is required")
	}
	if strings.TrimSpace(input.Commodity) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commodity is required")
	}
	if input.PricePerKg.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per kg must be positive")
	}
	if input.AvailableQuantity.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity must be positive")
	}
	if input.Discount < 0 || input.Discount > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
	}

	pricingModel := input.PricingModel
	if pricingModel == "" {
		pricingModel = enums.PricingModelFixed
	}
	if !pricingModel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing model")
	}

	frequency := input.Frequency
	if frequency == "" {
		frequency = enums.DealFrequencySpot
	}
	if !frequency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid frequency")
	}
	if frequency.IsPeriodic() && input.TotalQuantity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "periodic deals require a total quantity cap")
	}

	grade := strings.TrimSpace(input.Type)
	if grade == "" {
		grade = "BULLION"
	}

	risk := strings.TrimSpace(input.CFRisk)
	if risk == "" {
		risk = "Low"
	}

	return &models.Deal{
		Company:           strings.TrimSpace(input.Company),
		Commodity:         strings.TrimSpace(input.Commodity),
		Type:              grade,
		Purity:            pricing.PurityForGrade(grade),
		PricePerKg:        input.PricePerKg,
		Discount:          input.Discount,
		AvailableQuantity: input.AvailableQuantity,
		DeliveryLocation:  strings.TrimSpace(input.DeliveryLocation),
		Status:            enums.DealStatusOpen,
		PricingModel:      pricingModel,
		Frequency:         frequency,
		TotalQuantity:     input.TotalQuantity,
		ContractDuration:  input.ContractDuration,
		AutoSync:          input.AutoSync,
		CFIcon:            "gold-bar",
		CFRisk:            risk,
		CFTargetAPY:       input.CFTargetAPY,
		CFDuration:        12,
		CFMinInvestment:   input.CFMinInvestment,
		CFOrigin:          strings.TrimSpace(input.CFOrigin),
		CFTransportMethod: strings.TrimSpace(input.CFTransportMethod),
	}, nil
}
