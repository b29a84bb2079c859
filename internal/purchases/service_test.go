package purchases

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/agreements"
	"github.com/goldbridge/marketplace-backend/internal/deals"
	"github.com/goldbridge/marketplace-backend/internal/exports"
	"github.com/goldbridge/marketplace-backend/internal/users"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:purchases_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Deal{},
		&models.Purchase{},
		&models.Agreement{},
		&models.PendingExport{},
	))
	return db
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixedResolver struct {
	price decimal.Decimal
	err   error
}

func (f fixedResolver) EffectiveUnitPrice(ctx context.Context, deal *models.Deal) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

type recordingHook struct {
	deliveries int
	lastDealID uuid.UUID
}

func (h *recordingHook) PurchaseDelivered(ctx context.Context, purchase *models.Purchase, deal *models.Deal) {
	h.deliveries++
	h.lastDealID = deal.ID
}

func newEngine(t *testing.T, db *gorm.DB, resolver priceResolver) Service {
	t.Helper()

	agreementsSvc, err := agreements.NewService(agreements.NewRepository(db))
	require.NoError(t, err)

	svc, err := NewService(
		gormTxRunner{db: db},
		NewRepository(db),
		deals.NewRepository(db),
		users.NewRepository(db),
		exports.NewRepository(db),
		agreementsSvc,
		resolver,
		testLogger(),
	)
	require.NoError(t, err)
	return svc
}

func seedBuyer(t *testing.T, db *gorm.DB, balance string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Name:         "Ayesha Buyer",
		Role:         enums.UserRoleBuyer,
		Balance:      decimal.RequireFromString(balance),
		KYCStatus:    enums.KYCStatusVerified,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedDeal(t *testing.T, db *gorm.DB, quantity, price string) *models.Deal {
	t.Helper()
	deal := &models.Deal{
		ID:                uuid.New(),
		Company:           "Aurelia Mining Co",
		Commodity:         "Gold",
		Type:              "BULLION",
		Purity:            0.9999,
		PricePerKg:        decimal.RequireFromString(price),
		AvailableQuantity: decimal.RequireFromString(quantity),
		DeliveryLocation:  "Dubai",
		Status:            enums.DealStatusOpen,
		PricingModel:      enums.PricingModelFixed,
		Frequency:         enums.DealFrequencySpot,
	}
	require.NoError(t, db.Create(deal).Error)
	return deal
}

func TestPurchaseHappyPath(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "100000")
	deal := seedDeal(t, db, "100", "500.00")

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})

	result, err := svc.Purchase(context.Background(), deal.ID, buyer.ID, PurchaseInput{
		Quantity:         decimal.RequireFromString("10"),
		DeliveryLocation: "Zurich",
		AgreementTerms:   "Delivery within 30 days of full funding.",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PurchaseStatusConfirmed, result.Purchase.Status)
	assert.True(t, result.Purchase.PricePerKg.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, result.Purchase.TotalPrice.Equal(decimal.RequireFromString("5000.00")))
	assert.True(t, result.AvailableQuantity.Equal(decimal.RequireFromString("90")))
	assert.False(t, result.DealSoldOut)

	var updatedBuyer models.User
	require.NoError(t, db.First(&updatedBuyer, "id = ?", buyer.ID).Error)
	assert.True(t, updatedBuyer.Balance.Equal(decimal.RequireFromString("95000")))

	var updatedDeal models.Deal
	require.NoError(t, db.First(&updatedDeal, "id = ?", deal.ID).Error)
	assert.True(t, updatedDeal.AvailableQuantity.Equal(decimal.RequireFromString("90")))
	assert.Equal(t, enums.DealStatusOpen, updatedDeal.Status)

	var export models.PendingExport
	require.NoError(t, db.First(&export, "purchase_id = ?", result.Purchase.ID).Error)
	assert.Equal(t, enums.ExportStatusPending, export.Status)
	assert.True(t, export.CFAmountRequired.Equal(decimal.RequireFromString("5000.00")))
	assert.Equal(t, "Zurich", export.CFDestination)

	var agreement models.Agreement
	require.NoError(t, db.First(&agreement, "purchase_id = ?", result.Purchase.ID).Error)
	assert.Equal(t, enums.AgreementStatusDraft, agreement.Status)
	assert.Equal(t, "Ayesha Buyer", agreement.BuyerName)
	assert.Equal(t, "Aurelia Mining Co", agreement.SellerName)

	assert.Contains(t, result.Message, "staged for admin review")
}

func TestPurchaseWithoutTermsSkipsAgreement(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "100000")
	deal := seedDeal(t, db, "100", "500.00")

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})

	result, err := svc.Purchase(context.Background(), deal.ID, buyer.ID, PurchaseInput{
		Quantity:         decimal.RequireFromString("10"),
		DeliveryLocation: "Zurich",
	})
	require.NoError(t, err)

	var agreements int64
	require.NoError(t, db.Model(&models.Agreement{}).
		Where("purchase_id = ?", result.Purchase.ID).
		Count(&agreements).Error)
	assert.Zero(t, agreements)

	// the export still stages regardless of terms
	var export models.PendingExport
	require.NoError(t, db.First(&export, "purchase_id = ?", result.Purchase.ID).Error)
	assert.Equal(t, enums.ExportStatusPending, export.Status)
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "100")
	deal := seedDeal(t, db, "100", "500.00")

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})

	_, err := svc.Purchase(context.Background(), deal.ID, buyer.ID, PurchaseInput{
		Quantity: decimal.RequireFromString("10"),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())

	var count int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Zero(t, count)

	var updatedBuyer models.User
	require.NoError(t, db.First(&updatedBuyer, "id = ?", buyer.ID).Error)
	assert.True(t, updatedBuyer.Balance.Equal(decimal.RequireFromString("100")))

	var updatedDeal models.Deal
	require.NoError(t, db.First(&updatedDeal, "id = ?", deal.ID).Error)
	assert.True(t, updatedDeal.AvailableQuantity.Equal(decimal.RequireFromString("100")))
}

func TestPurchaseExceedingInventoryRejected(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "1000000")
	deal := seedDeal(t, db, "5", "500.00")

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})

	_, err := svc.Purchase(context.Background(), deal.ID, buyer.ID, PurchaseInput{
		Quantity: decimal.RequireFromString("6"),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
}

func TestPurchaseClosesDealWhenSoldOut(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "100000")
	deal := seedDeal(t, db, "10", "500.00")

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})

	result, err := svc.Purchase(context.Background(), deal.ID, buyer.ID, PurchaseInput{
		Quantity: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.True(t, result.DealSoldOut)
	assert.True(t, result.AvailableQuantity.IsZero())
	assert.Contains(t, result.Message, "fully subscribed")

	var updatedDeal models.Deal
	require.NoError(t, db.First(&updatedDeal, "id = ?", deal.ID).Error)
	assert.Equal(t, enums.DealStatusClosed, updatedDeal.Status)
	require.NotNil(t, updatedDeal.BuyerID)
	assert.Equal(t, buyer.ID, *updatedDeal.BuyerID)

	// a second buy against the closed deal is rejected
	_, err = svc.Purchase(context.Background(), deal.ID, buyer.ID, PurchaseInput{
		Quantity: decimal.RequireFromString("1"),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
}

func TestPurchasePropagatesQuoteFailure(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "100000")
	deal := seedDeal(t, db, "100", "500.00")

	quoteErr := pkgerrors.New(pkgerrors.CodeDependency, "quote source unavailable")
	svc := newEngine(t, db, fixedResolver{err: quoteErr})

	_, err := svc.Purchase(context.Background(), deal.ID, buyer.ID, PurchaseInput{
		Quantity: decimal.RequireFromString("10"),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeDependency, coded.Code())

	var count int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPurchaseUnknownDeal(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "100000")

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})

	_, err := svc.Purchase(context.Background(), uuid.New(), buyer.ID, PurchaseInput{
		Quantity: decimal.RequireFromString("1"),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func seedPurchase(t *testing.T, db *gorm.DB, deal *models.Deal, buyerID uuid.UUID, status enums.PurchaseStatus) *models.Purchase {
	t.Helper()
	purchase := &models.Purchase{
		ID:         uuid.New(),
		DealID:     deal.ID,
		BuyerID:    buyerID,
		Quantity:   decimal.RequireFromString("5"),
		PricePerKg: decimal.RequireFromString("500.00"),
		TotalPrice: decimal.RequireFromString("2500.00"),
		Status:     status,
	}
	require.NoError(t, db.Create(purchase).Error)
	return purchase
}

func TestUpdateLogisticsRejectsBackwardTransition(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "0")
	deal := seedDeal(t, db, "100", "500.00")
	purchase := seedPurchase(t, db, deal, buyer.ID, enums.PurchaseStatusShipped)

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})

	_, err := svc.UpdateLogistics(context.Background(), purchase.ID, LogisticsInput{
		Status: enums.PurchaseStatusConfirmed,
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
}

func TestUpdateLogisticsDeliveredFiresHookOnce(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "0")
	deal := seedDeal(t, db, "100", "500.00")
	purchase := seedPurchase(t, db, deal, buyer.ID, enums.PurchaseStatusShipped)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	svc := newEngine(t, db, fixedResolver{price: decimal.RequireFromString("500.00")})
	hook := &recordingHook{}
	svc.SetDeliveryHook(hook)

	company := "GoldFreight"
	result, err := svc.UpdateLogistics(context.Background(), purchase.ID, LogisticsInput{
		Status:           enums.PurchaseStatusDelivered,
		LogisticsCompany: &company,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusDelivered, result.Status)
	require.NotNil(t, result.DeliveredAt)
	assert.Equal(t, fixed, result.DeliveredAt.UTC())
	assert.Equal(t, 1, hook.deliveries)
	assert.Equal(t, deal.ID, hook.lastDealID)

	// re-delivering is idempotent for the hook
	_, err = svc.UpdateLogistics(context.Background(), purchase.ID, LogisticsInput{
		Status: enums.PurchaseStatusDelivered,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, hook.deliveries)
}

func TestPortfolioSummaryCountsConfirmedOnward(t *testing.T) {
	db := setupTestDB(t)
	buyer := seedBuyer(t, db, "0")
	deal := seedDeal(t, db, "100", "500.00")

	seedPurchase(t, db, deal, buyer.ID, enums.PurchaseStatusConfirmed)
	seedPurchase(t, db, deal, buyer.ID, enums.PurchaseStatusDelivered)
	seedPurchase(t, db, deal, buyer.ID, enums.PurchaseStatusPending)

	repo := NewRepository(db)
	summary, err := repo.PortfolioSummary(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.PurchaseCount)
	assert.True(t, summary.TotalValue.Equal(decimal.RequireFromString("5000")))
	assert.True(t, summary.TotalQuantity.Equal(decimal.RequireFromString("10")))

	delivered, err := repo.SumDeliveredQuantity(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.True(t, delivered.Equal(decimal.RequireFromString("5")))
}
