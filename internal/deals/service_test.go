package deals

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/pricing"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:deals_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Deal{}))
	return db
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubQuotes struct {
	price decimal.Decimal
	err   error
}

func (q *stubQuotes) PricePerKg(ctx context.Context, commodity string) (decimal.Decimal, error) {
	if q.err != nil {
		return decimal.Zero, q.err
	}
	return q.price, nil
}

func newTestService(t *testing.T, db *gorm.DB, quotes pricing.QuoteProvider) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), pricing.NewCalculator(quotes), testLogger())
	require.NoError(t, err)
	return svc
}

func validInput() CreateDealInput {
	return CreateDealInput{
		Company:           "Aurelia Mining Co",
		Commodity:         "Gold",
		Type:              "22K",
		PricePerKg:        decimal.RequireFromString("500.00"),
		Discount:          10,
		AvailableQuantity: decimal.RequireFromString("100"),
		DeliveryLocation:  "Zurich",
		CFTargetAPY:       8.5,
		CFMinInvestment:   decimal.RequireFromString("100.00"),
		CFOrigin:          "Ghana",
		CFTransportMethod: "Air freight",
	}
}

func TestCreateDealDefaults(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{})

	input := validInput()
	input.Type = ""
	input.CFRisk = ""

	dto, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.DealStatusOpen, dto.Status)
	assert.Equal(t, enums.PricingModelFixed, dto.PricingModel)
	assert.Equal(t, enums.DealFrequencySpot, dto.Frequency)
	assert.Equal(t, "BULLION", dto.Type)
	assert.InDelta(t, 0.9999, dto.Purity, 0.00001)

	var stored models.Deal
	require.NoError(t, db.First(&stored, "id = ?", dto.ID).Error)
	assert.Equal(t, "Low", stored.CFRisk)
	assert.Equal(t, "gold-bar", stored.CFIcon)
}

func TestCreateDealDiscountedDisplayPrice(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{})

	dto, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	// 500 * (1 - 10/100)
	assert.Equal(t, "450", dto.EffectivePrice.String())
	assert.InDelta(t, 0.916, dto.Purity, 0.0001)
}

func TestCreateDealValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{})

	cases := []struct {
		name   string
		mutate func(*CreateDealInput)
	}{
		{"missing company", func(in *CreateDealInput) { in.Company = "  " }},
		{"missing commodity", func(in *CreateDealInput) { in.Commodity = "" }},
		{"zero price", func(in *CreateDealInput) { in.PricePerKg = decimal.Zero }},
		{"zero quantity", func(in *CreateDealInput) { in.AvailableQuantity = decimal.Zero }},
		{"discount above range", func(in *CreateDealInput) { in.Discount = 101 }},
		{"negative discount", func(in *CreateDealInput) { in.Discount = -1 }},
		{"bad pricing model", func(in *CreateDealInput) { in.PricingModel = "HYBRID" }},
		{"bad frequency", func(in *CreateDealInput) { in.Frequency = "HOURLY" }},
		{"periodic without cap", func(in *CreateDealInput) { in.Frequency = enums.DealFrequencyMonthly }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			_, err := svc.Create(context.Background(), input)
			require.Error(t, err)
			coded := pkgerrors.As(err)
			require.NotNil(t, coded)
			assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
		})
	}
}

func TestCreatePeriodicDealWithCap(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{})

	input := validInput()
	input.Frequency = enums.DealFrequencyMonthly
	cap := decimal.RequireFromString("1200")
	input.TotalQuantity = &cap
	duration := 2
	input.ContractDuration = &duration
	input.AutoSync = true

	dto, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.DealFrequencyMonthly, dto.Frequency)
	require.NotNil(t, dto.TotalQuantity)
	assert.True(t, dto.TotalQuantity.Equal(cap))
	assert.True(t, dto.AutoSync)
}

func TestGetDynamicDealUsesLiveQuote(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{price: decimal.RequireFromString("1000.00")})

	input := validInput()
	input.PricingModel = enums.PricingModelDynamic
	created, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	dto, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	// 1000 * 0.916 * (1 - 10/100)
	assert.Equal(t, "824.4", dto.EffectivePrice.String())
}

func TestGetDynamicDealFallsBackToStoredPrice(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{err: fmt.Errorf("quote feed timeout")})

	input := validInput()
	input.PricingModel = enums.PricingModelDynamic
	created, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	dto, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", dto.EffectivePrice.String())
}

func TestGetUnknownDeal(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{})

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestListFiltersByStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubQuotes{})

	open, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	closed, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Deal{}).
		Where("id = ?", closed.ID).
		Update("status", enums.DealStatusClosed).Error)

	status := enums.DealStatusOpen
	dtos, err := svc.List(context.Background(), ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, open.ID, dtos[0].ID)

	all, err := svc.List(context.Background(), ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
