package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
)

// hundred is the percent divisor shared by the discount math.
var hundred = decimal.NewFromInt(100)

// PurityForGrade maps a purity grade token to its gold fraction. Unknown
// grades fall back to investment-grade bullion.
func PurityForGrade(grade string) float64 {
	switch strings.ToUpper(strings.TrimSpace(grade)) {
	case "BULLION", "9999":
		return 0.9999
	case "24K":
		return 0.999
	case "23K":
		return 0.958
	case "22K":
		return 0.916
	case "21K":
		return 0.875
	case "18K":
		return 0.750
	default:
		return 0.9999
	}
}

// CalculateDealPrice derives the discounted per-kg price from a market quote:
// marketPrice * purity * (1 - discount/100), rounded to cents.
func CalculateDealPrice(marketPrice decimal.Decimal, purity float64, discount float64) decimal.Decimal {
	discounted := hundred.Sub(decimal.NewFromFloat(discount)).Div(hundred)
	return marketPrice.
		Mul(decimal.NewFromFloat(purity)).
		Mul(discounted).
		Round(2)
}

// QuoteProvider supplies the current per-kg market price for a commodity.
type QuoteProvider interface {
	PricePerKg(ctx context.Context, commodity string) (decimal.Decimal, error)
}

// Calculator resolves the effective unit price for a deal.
type Calculator struct {
	quotes QuoteProvider
}

// NewCalculator builds a price calculator. The quote provider is required for
// DYNAMIC deals only; passing nil restricts the calculator to FIXED pricing.
func NewCalculator(quotes QuoteProvider) *Calculator {
	return &Calculator{quotes: quotes}
}

// EffectiveUnitPrice computes the per-kg price a buyer pays right now.
//
// FIXED deals discount the stored price. DYNAMIC deals require a live (or
// cached) quote; when none is available the purchase is rejected rather than
// served a simulated price.
func (c *Calculator) EffectiveUnitPrice(ctx context.Context, deal *models.Deal) (decimal.Decimal, error) {
	if deal == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "deal is required")
	}

	if deal.PricingModel != enums.PricingModelDynamic {
		discounted := hundred.Sub(decimal.NewFromFloat(deal.Discount)).Div(hundred)
		return deal.PricePerKg.Mul(discounted).Round(2), nil
	}

	if c == nil || c.quotes == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "market pricing unavailable")
	}

	quote, err := c.quotes.PricePerKg(ctx, deal.Commodity)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("fetch %s quote", deal.Commodity))
	}

	return CalculateDealPrice(quote, deal.Purity, deal.Discount), nil
}
