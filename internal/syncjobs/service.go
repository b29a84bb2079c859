package syncjobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
	"github.com/goldbridge/marketplace-backend/pkg/metrics"
)

// campaignSender performs the outbound crowdfunding calls.
type campaignSender interface {
	CreateCampaign(ctx context.Context, payload json.RawMessage) (string, error)
	PatchCampaign(ctx context.Context, payload json.RawMessage) (string, error)
}

// PostResultHandler is notified when a CROWDFUNDING_POST job settles, either
// with the remote campaign id or terminally without one.
type PostResultHandler interface {
	CampaignCreated(ctx context.Context, purchaseID uuid.UUID, crowdfundingID string) error
	CampaignFailed(ctx context.Context, purchaseID uuid.UUID) error
}

// Service owns the durable outbound job queue.
type Service interface {
	Enqueue(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (*models.SyncJob, error)
	Dispatch(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (uuid.UUID, error)
	Process(ctx context.Context, jobID uuid.UUID) error
	RunWorker(ctx context.Context) (int, error)
	SetPostResultHandler(handler PostResultHandler)
}

// Config bounds the queue's retry and batch behavior.
type Config struct {
	MaxAttempts int
	BatchSize   int
}

type service struct {
	repo        Repository
	sender      campaignSender
	metrics     *metrics.SyncWorkerMetrics
	logger      *logger.Logger
	maxAttempts int
	batchSize   int
	handler     PostResultHandler
}

// NewService builds the sync job queue service. Metrics may be nil.
func NewService(repo Repository, sender campaignSender, m *metrics.SyncWorkerMetrics, log *logger.Logger, cfg Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sync jobs repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("campaign sender required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &service{
		repo:        repo,
		sender:      sender,
		metrics:     m,
		logger:      log,
		maxAttempts: cfg.MaxAttempts,
		batchSize:   cfg.BatchSize,
	}, nil
}

// SetPostResultHandler attaches the export workflow callback. Wired after
// construction because the export service also dispatches jobs through here.
func (s *service) SetPostResultHandler(handler PostResultHandler) {
	s.handler = handler
}

func (s *service) Enqueue(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (*models.SyncJob, error) {
	if !jobType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sync job type")
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job payload required")
	}

	job := &models.SyncJob{
		Type:        jobType,
		Payload:     payload,
		Status:      enums.SyncJobStatusPending,
		MaxAttempts: s.maxAttempts,
	}
	created, err := s.repo.Create(ctx, job)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enqueue sync job")
	}
	return created, nil
}

// Dispatch enqueues the job and fires an immediate processing attempt in the
// background. A failed first attempt is left to the worker's retry sweep.
func (s *service) Dispatch(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (uuid.UUID, error) {
	job, err := s.Enqueue(ctx, jobType, payload)
	if err != nil {
		return uuid.Nil, err
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.Process(bg, job.ID); err != nil {
			s.logger.Warn(s.logger.WithField(bg, "job_id", job.ID.String()), "immediate sync attempt failed, queued for retry")
		}
	}()

	return job.ID, nil
}

type jobPayload struct {
	ShipmentID string `json:"shipmentId"`
}

// Process performs one attempt of the job's outbound call. Missing or already
// completed jobs are a no-op. Attempts increments on every invocation, so
// MaxAttempts bounds total tries including the first.
func (s *service) Process(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find sync job")
	}
	if job.Status == enums.SyncJobStatusCompleted {
		return nil
	}

	attempts := job.Attempts + 1
	if err := s.repo.Update(ctx, job.ID, map[string]any{
		"status":   enums.SyncJobStatusProcessing,
		"attempts": attempts,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark sync job processing")
	}

	remoteID, callErr := s.execute(ctx, job)
	if callErr == nil {
		if err := s.repo.Update(ctx, job.ID, map[string]any{
			"status": enums.SyncJobStatusCompleted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark sync job completed")
		}
		s.metrics.IncSuccess(job.Type.String())
		s.notifySuccess(ctx, job, remoteID)
		return nil
	}

	lastError := callErr.Error()
	if attempts >= job.MaxAttempts {
		if err := s.repo.Update(ctx, job.ID, map[string]any{
			"status":     enums.SyncJobStatusFailed,
			"last_error": lastError,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark sync job failed")
		}
		s.metrics.IncFailure(job.Type.String())
		s.notifyFailure(ctx, job)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, callErr, "sync job exhausted attempts")
	}

	if err := s.repo.Update(ctx, job.ID, map[string]any{
		"status":     enums.SyncJobStatusPending,
		"last_error": lastError,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "requeue sync job")
	}
	s.metrics.IncRetry(job.Type.String())
	return pkgerrors.Wrap(pkgerrors.CodeDependency, callErr, "sync job attempt failed")
}

func (s *service) execute(ctx context.Context, job *models.SyncJob) (string, error) {
	switch job.Type {
	case enums.SyncJobTypeCrowdfundingPost:
		return s.sender.CreateCampaign(ctx, job.Payload)
	case enums.SyncJobTypeCrowdfundingPatch:
		return s.sender.PatchCampaign(ctx, job.Payload)
	default:
		return "", pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown sync job type %q", job.Type))
	}
}

func (s *service) notifySuccess(ctx context.Context, job *models.SyncJob, remoteID string) {
	if s.handler == nil || job.Type != enums.SyncJobTypeCrowdfundingPost || remoteID == "" {
		return
	}
	purchaseID, ok := s.shipmentID(ctx, job)
	if !ok {
		return
	}
	if err := s.handler.CampaignCreated(ctx, purchaseID, remoteID); err != nil {
		s.logger.Error(ctx, "record exported campaign", err)
	}
}

func (s *service) notifyFailure(ctx context.Context, job *models.SyncJob) {
	if s.handler == nil || job.Type != enums.SyncJobTypeCrowdfundingPost {
		return
	}
	purchaseID, ok := s.shipmentID(ctx, job)
	if !ok {
		return
	}
	if err := s.handler.CampaignFailed(ctx, purchaseID); err != nil {
		s.logger.Error(ctx, "flag failed campaign", err)
	}
}

func (s *service) shipmentID(ctx context.Context, job *models.SyncJob) (uuid.UUID, bool) {
	var payload jobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.logger.Error(ctx, "decode sync job payload", err)
		return uuid.Nil, false
	}
	purchaseID, err := uuid.Parse(payload.ShipmentID)
	if err != nil {
		return uuid.Nil, false
	}
	return purchaseID, true
}

// RunWorker drains one batch of the oldest pending jobs, aggregating per-job
// errors so a poison job cannot stall the sweep. Returns how many jobs were
// attempted.
func (s *service) RunWorker(ctx context.Context) (int, error) {
	jobs, err := s.repo.FindOldestPending(ctx, s.batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch pending sync jobs")
	}

	var errs error
	for i := range jobs {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if err := s.Process(ctx, jobs[i].ID); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return len(jobs), errs
}
