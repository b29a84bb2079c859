package exports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:exports_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PendingExport{}, &models.Deal{}))
	return db
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubDispatcher struct {
	jobs     []enums.SyncJobType
	payloads []json.RawMessage
	err      error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (uuid.UUID, error) {
	if d.err != nil {
		return uuid.Nil, d.err
	}
	d.jobs = append(d.jobs, jobType)
	d.payloads = append(d.payloads, payload)
	return uuid.New(), nil
}

type stubFlagger struct {
	flagged map[uuid.UUID]enums.DealStatus
}

func (f *stubFlagger) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DealStatus) error {
	if f.flagged == nil {
		f.flagged = map[uuid.UUID]enums.DealStatus{}
	}
	f.flagged[id] = status
	return nil
}

func seedExport(t *testing.T, db *gorm.DB, status enums.ExportStatus) *models.PendingExport {
	t.Helper()
	export := &models.PendingExport{
		ID:                uuid.New(),
		PurchaseID:        uuid.New(),
		DealID:            uuid.New(),
		CFType:            "gold",
		CFName:            "Aurelia Mining Co - Gold Bullion (10kg)",
		CFIcon:            "gold-bar",
		CFRisk:            "Low",
		CFTargetAPY:       8.5,
		CFDuration:        12,
		CFMinInvestment:   decimal.RequireFromString("100"),
		CFAmountRequired:  decimal.RequireFromString("5000"),
		CFDescription:     "Secured gold bullion",
		CFOrigin:          "Ghana",
		CFDestination:     "Zurich",
		CFTransportMethod: "Air",
		CFMetalForm:       "Bullion",
		CFPurityPercent:   99.99,
		Status:            status,
	}
	require.NoError(t, db.Create(export).Error)
	return export
}

func newTestService(t *testing.T, db *gorm.DB, dispatcher *stubDispatcher, flagger *stubFlagger) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), dispatcher, flagger, testLogger())
	require.NoError(t, err)
	return svc
}

func TestApprovePendingExportDispatchesCampaign(t *testing.T) {
	db := setupTestDB(t)
	export := seedExport(t, db, enums.ExportStatusPending)

	dispatcher := &stubDispatcher{}
	svc := newTestService(t, db, dispatcher, &stubFlagger{})

	result, err := svc.Approve(context.Background(), export.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, enums.ExportStatusApproved, result.Status)
	require.NotNil(t, result.ReviewedBy)
	assert.Equal(t, "admin-1", *result.ReviewedBy)
	require.NotNil(t, result.ReviewedAt)

	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, enums.SyncJobTypeCrowdfundingPost, dispatcher.jobs[0])

	var payload map[string]any
	require.NoError(t, json.Unmarshal(dispatcher.payloads[0], &payload))
	assert.Equal(t, export.PurchaseID.String(), payload["shipmentId"])
	assert.Equal(t, "gold", payload["type"])
	assert.Equal(t, "Bullion", payload["metalForm"])

	var stored models.PendingExport
	require.NoError(t, db.First(&stored, "id = ?", export.ID).Error)
	assert.Equal(t, enums.ExportStatusApproved, stored.Status)
}

func TestApproveNonPendingExportConflicts(t *testing.T) {
	db := setupTestDB(t)
	export := seedExport(t, db, enums.ExportStatusExported)

	dispatcher := &stubDispatcher{}
	svc := newTestService(t, db, dispatcher, &stubFlagger{})

	_, err := svc.Approve(context.Background(), export.ID, "admin-1")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
	assert.Empty(t, dispatcher.jobs)
}

func TestRejectRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	export := seedExport(t, db, enums.ExportStatusPending)

	svc := newTestService(t, db, &stubDispatcher{}, &stubFlagger{})

	_, err := svc.Reject(context.Background(), export.ID, "admin-1", "   ")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestRejectPendingExport(t *testing.T) {
	db := setupTestDB(t)
	export := seedExport(t, db, enums.ExportStatusPending)

	svc := newTestService(t, db, &stubDispatcher{}, &stubFlagger{})

	result, err := svc.Reject(context.Background(), export.ID, "admin-1", "pricing looks stale")
	require.NoError(t, err)
	assert.Equal(t, enums.ExportStatusRejected, result.Status)
	require.NotNil(t, result.RejectionReason)
	assert.Equal(t, "pricing looks stale", *result.RejectionReason)

	var stored models.PendingExport
	require.NoError(t, db.First(&stored, "id = ?", export.ID).Error)
	assert.Equal(t, enums.ExportStatusRejected, stored.Status)
}

func TestCampaignCreatedMarksExported(t *testing.T) {
	db := setupTestDB(t)
	export := seedExport(t, db, enums.ExportStatusApproved)

	svc := newTestService(t, db, &stubDispatcher{}, &stubFlagger{})

	require.NoError(t, svc.CampaignCreated(context.Background(), export.PurchaseID, "cf-123"))

	var stored models.PendingExport
	require.NoError(t, db.First(&stored, "id = ?", export.ID).Error)
	assert.Equal(t, enums.ExportStatusExported, stored.Status)
	require.NotNil(t, stored.CrowdfundingID)
	assert.Equal(t, "cf-123", *stored.CrowdfundingID)
	require.NotNil(t, stored.ExportedAt)
}

func TestCampaignFailedFlagsDeal(t *testing.T) {
	db := setupTestDB(t)
	export := seedExport(t, db, enums.ExportStatusApproved)

	flagger := &stubFlagger{}
	svc := newTestService(t, db, &stubDispatcher{}, flagger)

	require.NoError(t, svc.CampaignFailed(context.Background(), export.PurchaseID))
	assert.Equal(t, enums.DealStatusExportFailed, flagger.flagged[export.DealID])
}

func TestListReportsStatusCounts(t *testing.T) {
	db := setupTestDB(t)
	seedExport(t, db, enums.ExportStatusPending)
	seedExport(t, db, enums.ExportStatusPending)
	seedExport(t, db, enums.ExportStatusRejected)

	svc := newTestService(t, db, &stubDispatcher{}, &stubFlagger{})

	pending := enums.ExportStatusPending
	result, err := svc.List(context.Background(), ListFilters{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, result.Exports, 2)
	assert.Equal(t, int64(2), result.Counts[enums.ExportStatusPending])
	assert.Equal(t, int64(1), result.Counts[enums.ExportStatusRejected])
}
