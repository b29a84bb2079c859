package syncjobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
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

	dsn := fmt.Sprintf("file:syncjobs_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SyncJob{}))
	return db
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubSender struct {
	postCalls  int
	patchCalls int
	remoteID   string
	err        error
}

func (s *stubSender) CreateCampaign(ctx context.Context, payload json.RawMessage) (string, error) {
	s.postCalls++
	return s.remoteID, s.err
}

func (s *stubSender) PatchCampaign(ctx context.Context, payload json.RawMessage) (string, error) {
	s.patchCalls++
	return s.remoteID, s.err
}

type stubHandler struct {
	created map[uuid.UUID]string
	failed  []uuid.UUID
}

func (h *stubHandler) CampaignCreated(ctx context.Context, purchaseID uuid.UUID, crowdfundingID string) error {
	if h.created == nil {
		h.created = map[uuid.UUID]string{}
	}
	h.created[purchaseID] = crowdfundingID
	return nil
}

func (h *stubHandler) CampaignFailed(ctx context.Context, purchaseID uuid.UUID) error {
	h.failed = append(h.failed, purchaseID)
	return nil
}

func newTestService(t *testing.T, db *gorm.DB, sender campaignSender, cfg Config) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), sender, nil, testLogger(), cfg)
	require.NoError(t, err)
	return svc
}

func shipmentPayload(purchaseID uuid.UUID) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"shipmentId":%q,"status":"ARRIVED"}`, purchaseID))
}

func TestProcessSuccessCompletesAndNotifies(t *testing.T) {
	db := setupTestDB(t)
	sender := &stubSender{remoteID: "cf-55"}
	svc := newTestService(t, db, sender, Config{MaxAttempts: 3})
	handler := &stubHandler{}
	svc.SetPostResultHandler(handler)

	purchaseID := uuid.New()
	job, err := svc.Enqueue(context.Background(), enums.SyncJobTypeCrowdfundingPost, shipmentPayload(purchaseID))
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), job.ID))

	var stored models.SyncJob
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, enums.SyncJobStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, 1, sender.postCalls)
	assert.Equal(t, "cf-55", handler.created[purchaseID])
}

func TestProcessFailureRequeuesUnderMaxAttempts(t *testing.T) {
	db := setupTestDB(t)
	sender := &stubSender{err: fmt.Errorf("upstream 502")}
	svc := newTestService(t, db, sender, Config{MaxAttempts: 3})

	job, err := svc.Enqueue(context.Background(), enums.SyncJobTypeCrowdfundingPatch, shipmentPayload(uuid.New()))
	require.NoError(t, err)

	err = svc.Process(context.Background(), job.ID)
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeDependency, coded.Code())

	var stored models.SyncJob
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, enums.SyncJobStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "upstream 502")
}

func TestProcessExhaustedAttemptsIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	sender := &stubSender{err: fmt.Errorf("upstream 502")}
	svc := newTestService(t, db, sender, Config{MaxAttempts: 2})
	handler := &stubHandler{}
	svc.SetPostResultHandler(handler)

	purchaseID := uuid.New()
	job, err := svc.Enqueue(context.Background(), enums.SyncJobTypeCrowdfundingPost, shipmentPayload(purchaseID))
	require.NoError(t, err)

	require.Error(t, svc.Process(context.Background(), job.ID))
	require.Error(t, svc.Process(context.Background(), job.ID))

	var stored models.SyncJob
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, enums.SyncJobStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	assert.Equal(t, []uuid.UUID{purchaseID}, handler.failed)

	// terminal jobs stay failed; further sweeps skip them
	jobs, err := NewRepository(db).FindOldestPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestProcessCompletedJobIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	sender := &stubSender{remoteID: "cf-1"}
	svc := newTestService(t, db, sender, Config{MaxAttempts: 3})

	job, err := svc.Enqueue(context.Background(), enums.SyncJobTypeCrowdfundingPost, shipmentPayload(uuid.New()))
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), job.ID))
	require.NoError(t, svc.Process(context.Background(), job.ID))

	var stored models.SyncJob
	require.NoError(t, db.First(&stored, "id = ?", job.ID).Error)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, 1, sender.postCalls)
}

func TestProcessMissingJobIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubSender{}, Config{MaxAttempts: 3})

	require.NoError(t, svc.Process(context.Background(), uuid.New()))
}

func TestRunWorkerDrainsOldestPendingBatch(t *testing.T) {
	db := setupTestDB(t)
	sender := &stubSender{remoteID: "cf-1"}
	svc := newTestService(t, db, sender, Config{MaxAttempts: 3, BatchSize: 2})

	for i := 0; i < 3; i++ {
		_, err := svc.Enqueue(context.Background(), enums.SyncJobTypeCrowdfundingPatch, shipmentPayload(uuid.New()))
		require.NoError(t, err)
	}

	processed, err := svc.RunWorker(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	var pending int64
	require.NoError(t, db.Model(&models.SyncJob{}).Where("status = ?", enums.SyncJobStatusPending).Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}

func TestRunWorkerAggregatesFailures(t *testing.T) {
	db := setupTestDB(t)
	sender := &stubSender{err: fmt.Errorf("upstream 502")}
	svc := newTestService(t, db, sender, Config{MaxAttempts: 3, BatchSize: 10})

	for i := 0; i < 2; i++ {
		_, err := svc.Enqueue(context.Background(), enums.SyncJobTypeCrowdfundingPatch, shipmentPayload(uuid.New()))
		require.NoError(t, err)
	}

	processed, err := svc.RunWorker(context.Background())
	assert.Equal(t, 2, processed)
	require.Error(t, err)
}

func TestEnqueueValidatesInput(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubSender{}, Config{MaxAttempts: 3})

	_, err := svc.Enqueue(context.Background(), enums.SyncJobType("BOGUS"), shipmentPayload(uuid.New()))
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())

	_, err = svc.Enqueue(context.Background(), enums.SyncJobTypeCrowdfundingPost, nil)
	require.Error(t, err)
}
