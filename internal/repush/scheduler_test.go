package repush

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/purchases"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubPurchasesRepo struct {
	delivered decimal.Decimal
	tranches  []*models.Purchase
}

func (r *stubPurchasesRepo) WithTx(tx *gorm.DB) purchases.Repository { return r }

func (r *stubPurchasesRepo) Create(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	r.tranches = append(r.tranches, purchase)
	return purchase, nil
}

func (r *stubPurchasesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPurchasesRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Purchase, error) {
	return nil, nil
}

func (r *stubPurchasesRepo) Update(ctx context.Context, purchase *models.Purchase) error {
	return nil
}

func (r *stubPurchasesRepo) PortfolioSummary(ctx context.Context, buyerID uuid.UUID) (*purchases.PortfolioSummary, error) {
	return &purchases.PortfolioSummary{}, nil
}

func (r *stubPurchasesRepo) SumDeliveredQuantity(ctx context.Context, dealID uuid.UUID) (decimal.Decimal, error) {
	return r.delivered, nil
}

type stubStager struct {
	exports []*models.PendingExport
}

func (s *stubStager) Create(ctx context.Context, export *models.PendingExport) (*models.PendingExport, error) {
	s.exports = append(s.exports, export)
	return export, nil
}

type stubDispatcher struct {
	jobs     []enums.SyncJobType
	payloads []json.RawMessage
}

func (d *stubDispatcher) Dispatch(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (uuid.UUID, error) {
	d.jobs = append(d.jobs, jobType)
	d.payloads = append(d.payloads, payload)
	return uuid.New(), nil
}

func newScheduler(t *testing.T, repo *stubPurchasesRepo, stager *stubStager, dispatcher jobDispatcher) *Scheduler {
	t.Helper()
	s, err := NewScheduler(repo, stager, dispatcher, testLogger())
	require.NoError(t, err)
	return s
}

func monthlyDeal() *models.Deal {
	total := decimal.RequireFromString("100")
	duration := 2
	return &models.Deal{
		ID:                uuid.New(),
		Company:           "Aurelia Mining Co",
		Commodity:         "Gold",
		Type:              "BULLION",
		Purity:            0.9999,
		PricePerKg:        decimal.RequireFromString("500.00"),
		AvailableQuantity: decimal.RequireFromString("50"),
		Status:            enums.DealStatusOpen,
		PricingModel:      enums.PricingModelFixed,
		Frequency:         enums.DealFrequencyMonthly,
		TotalQuantity:     &total,
		ContractDuration:  &duration,
		CreatedAt:         time.Now().AddDate(0, -6, 0),
	}
}

func deliveredPurchase(dealID uuid.UUID) *models.Purchase {
	return &models.Purchase{
		ID:               uuid.New(),
		DealID:           dealID,
		BuyerID:          uuid.New(),
		Quantity:         decimal.RequireFromString("10"),
		PricePerKg:       decimal.RequireFromString("500.00"),
		TotalPrice:       decimal.RequireFromString("5000.00"),
		DeliveryLocation: "Zurich",
		Status:           enums.PurchaseStatusDelivered,
	}
}

func TestDeliveryAlwaysSyncsArrival(t *testing.T) {
	deal := monthlyDeal()
	deal.Frequency = enums.DealFrequencySpot
	purchase := deliveredPurchase(deal.ID)

	dispatcher := &stubDispatcher{}
	repo := &stubPurchasesRepo{}
	stager := &stubStager{}
	s := newScheduler(t, repo, stager, dispatcher)

	s.PurchaseDelivered(context.Background(), purchase, deal)

	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, enums.SyncJobTypeCrowdfundingPatch, dispatcher.jobs[0])

	var payload map[string]string
	require.NoError(t, json.Unmarshal(dispatcher.payloads[0], &payload))
	assert.Equal(t, purchase.ID.String(), payload["shipmentId"])
	assert.Equal(t, "ARRIVED", payload["status"])

	// SPOT deals never re-tranche
	assert.Empty(t, repo.tranches)
	assert.Empty(t, stager.exports)
}

func TestPeriodicDealClonesTranche(t *testing.T) {
	deal := monthlyDeal()
	purchase := deliveredPurchase(deal.ID)

	dispatcher := &stubDispatcher{}
	repo := &stubPurchasesRepo{delivered: decimal.RequireFromString("30")}
	stager := &stubStager{}
	s := newScheduler(t, repo, stager, dispatcher)

	s.PurchaseDelivered(context.Background(), purchase, deal)

	require.Len(t, repo.tranches, 1)
	tranche := repo.tranches[0]
	assert.Equal(t, enums.PurchaseStatusConfirmed, tranche.Status)
	assert.True(t, tranche.Quantity.Equal(purchase.Quantity))
	assert.True(t, tranche.PricePerKg.Equal(purchase.PricePerKg))
	assert.Equal(t, purchase.BuyerID, tranche.BuyerID)
	assert.NotEqual(t, purchase.ID, tranche.ID)

	// manual review deal: staged export stays PENDING
	require.Len(t, stager.exports, 1)
	assert.Equal(t, enums.ExportStatusPending, stager.exports[0].Status)
	assert.Equal(t, tranche.ID, stager.exports[0].PurchaseID)

	// only the arrival PATCH was dispatched
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, enums.SyncJobTypeCrowdfundingPatch, dispatcher.jobs[0])
}

func TestContractQuantityCapStopsTranches(t *testing.T) {
	deal := monthlyDeal()
	purchase := deliveredPurchase(deal.ID)

	dispatcher := &stubDispatcher{}
	repo := &stubPurchasesRepo{delivered: decimal.RequireFromString("100")}
	stager := &stubStager{}
	s := newScheduler(t, repo, stager, dispatcher)

	s.PurchaseDelivered(context.Background(), purchase, deal)

	assert.Empty(t, repo.tranches)
	assert.Empty(t, stager.exports)
	require.Len(t, dispatcher.jobs, 1) // arrival sync only
}

func TestExpiredContractStopsTranches(t *testing.T) {
	deal := monthlyDeal()
	deal.CreatedAt = time.Now().AddDate(-3, 0, 0)
	purchase := deliveredPurchase(deal.ID)

	dispatcher := &stubDispatcher{}
	repo := &stubPurchasesRepo{delivered: decimal.RequireFromString("30")}
	stager := &stubStager{}
	s := newScheduler(t, repo, stager, dispatcher)

	s.PurchaseDelivered(context.Background(), purchase, deal)

	assert.Empty(t, repo.tranches)
	assert.Empty(t, stager.exports)
}

func TestAutoSyncDealDispatchesAndRecordsHistory(t *testing.T) {
	deal := monthlyDeal()
	deal.AutoSync = true
	purchase := deliveredPurchase(deal.ID)

	dispatcher := &stubDispatcher{}
	repo := &stubPurchasesRepo{delivered: decimal.RequireFromString("30")}
	stager := &stubStager{}
	s := newScheduler(t, repo, stager, dispatcher)
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	deal.CreatedAt = fixed.AddDate(0, -6, 0)

	s.PurchaseDelivered(context.Background(), purchase, deal)

	require.Len(t, dispatcher.jobs, 2)
	assert.Equal(t, enums.SyncJobTypeCrowdfundingPatch, dispatcher.jobs[0])
	assert.Equal(t, enums.SyncJobTypeCrowdfundingPost, dispatcher.jobs[1])

	require.Len(t, stager.exports, 1)
	export := stager.exports[0]
	assert.Equal(t, enums.ExportStatusExported, export.Status)
	require.NotNil(t, export.ReviewedBy)
	assert.Equal(t, "SYSTEM-AUTO", *export.ReviewedBy)
	require.NotNil(t, export.ExportedAt)
	assert.Equal(t, fixed, export.ExportedAt.UTC())
}

// campaignOrderDispatcher snapshots the export history at the moment the
// campaign POST job is handed off.
type campaignOrderDispatcher struct {
	stubDispatcher
	stager        *stubStager
	exportsAtPost []*models.PendingExport
}

func (d *campaignOrderDispatcher) Dispatch(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (uuid.UUID, error) {
	if jobType == enums.SyncJobTypeCrowdfundingPost {
		d.exportsAtPost = append([]*models.PendingExport(nil), d.stager.exports...)
	}
	return d.stubDispatcher.Dispatch(ctx, jobType, payload)
}

func TestAutoSyncRecordsHistoryBeforeCampaignDispatch(t *testing.T) {
	deal := monthlyDeal()
	deal.AutoSync = true
	purchase := deliveredPurchase(deal.ID)

	repo := &stubPurchasesRepo{delivered: decimal.RequireFromString("30")}
	stager := &stubStager{}
	dispatcher := &campaignOrderDispatcher{stager: stager}
	s := newScheduler(t, repo, stager, dispatcher)

	s.PurchaseDelivered(context.Background(), purchase, deal)

	// The campaign POST runs asynchronously and stamps the crowdfunding id
	// onto this record, so the row has to be in place before dispatch.
	require.Len(t, dispatcher.exportsAtPost, 1)
	recorded := dispatcher.exportsAtPost[0]
	assert.Equal(t, enums.ExportStatusExported, recorded.Status)
	require.Len(t, repo.tranches, 1)
	assert.Equal(t, repo.tranches[0].ID, recorded.PurchaseID)
}
