package exports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
)

// jobDispatcher enqueues a durable sync job and kicks off a first attempt.
type jobDispatcher interface {
	Dispatch(ctx context.Context, jobType enums.SyncJobType, payload json.RawMessage) (uuid.UUID, error)
}

// dealFlagger marks a deal for admin attention.
type dealFlagger interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DealStatus) error
}

// Service drives the admin export review workflow.
type Service interface {
	List(ctx context.Context, filters ListFilters) (*ExportListDTO, error)
	Approve(ctx context.Context, id uuid.UUID, reviewedBy string) (*ExportDTO, error)
	Reject(ctx context.Context, id uuid.UUID, reviewedBy, reason string) (*ExportDTO, error)

	// CampaignCreated and CampaignFailed are invoked by the sync worker when a
	// CROWDFUNDING_POST job settles.
	CampaignCreated(ctx context.Context, purchaseID uuid.UUID, crowdfundingID string) error
	CampaignFailed(ctx context.Context, purchaseID uuid.UUID) error
}

type service struct {
	repo       Repository
	dispatcher jobDispatcher
	deals      dealFlagger
	logger     *logger.Logger
	now        func() time.Time
}

// NewService builds the export review service.
func NewService(repo Repository, dispatcher jobDispatcher, deals dealFlagger, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("exports repository required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("job dispatcher required")
	}
	if deals == nil {
		return nil, fmt.Errorf("deal flagger required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		dispatcher: dispatcher,
		deals:      deals,
		logger:     log,
		now:        time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) (*ExportListDTO, error) {
	records, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list exports")
	}

	counts, err := s.repo.CountsByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count exports")
	}

	dtos := make([]ExportDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, toDTO(&records[i]))
	}
	return &ExportListDTO{Exports: dtos, Counts: counts}, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, reviewedBy string) (*ExportDTO, error) {
	export, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if export.Status != enums.ExportStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "export is not pending review").
			WithDetails(map[string]any{"status": export.Status})
	}

	reviewedAt := s.now().UTC()
	if err := s.repo.Update(ctx, export.ID, map[string]any{
		"status":      enums.ExportStatusApproved,
		"reviewed_by": reviewedBy,
		"reviewed_at": reviewedAt,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve export")
	}

	payload, err := CampaignPayload(export)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build campaign payload")
	}
	if _, err := s.dispatcher.Dispatch(ctx, enums.SyncJobTypeCrowdfundingPost, payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dispatch campaign job")
	}

	export.Status = enums.ExportStatusApproved
	export.ReviewedBy = &reviewedBy
	export.ReviewedAt = &reviewedAt
	dto := toDTO(export)
	return &dto, nil
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, reviewedBy, reason string) (*ExportDTO, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	export, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if export.Status != enums.ExportStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "export is not pending review").
			WithDetails(map[string]any{"status": export.Status})
	}

	reviewedAt := s.now().UTC()
	if err := s.repo.Update(ctx, export.ID, map[string]any{
		"status":           enums.ExportStatusRejected,
		"reviewed_by":      reviewedBy,
		"reviewed_at":      reviewedAt,
		"rejection_reason": reason,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject export")
	}

	export.Status = enums.ExportStatusRejected
	export.ReviewedBy = &reviewedBy
	export.ReviewedAt = &reviewedAt
	export.RejectionReason = &reason
	dto := toDTO(export)
	return &dto, nil
}

// CampaignCreated force-sets every export row for the purchase to EXPORTED,
// stamping the remote campaign id.
func (s *service) CampaignCreated(ctx context.Context, purchaseID uuid.UUID, crowdfundingID string) error {
	_, err := s.repo.UpdateByPurchaseID(ctx, purchaseID, map[string]any{
		"status":          enums.ExportStatusExported,
		"crowdfunding_id": crowdfundingID,
		"exported_at":     s.now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark exports exported")
	}
	return nil
}

// CampaignFailed flags the deals behind the purchase's export rows so a
// terminally failed push surfaces to admins.
func (s *service) CampaignFailed(ctx context.Context, purchaseID uuid.UUID) error {
	records, err := s.repo.ListByPurchaseID(ctx, purchaseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list exports for purchase")
	}

	for i := range records {
		if err := s.deals.UpdateStatus(ctx, records[i].DealID, enums.DealStatusExportFailed); err != nil {
			s.logger.Error(ctx, "flag deal export failure", err)
		}
	}
	return nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.PendingExport, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "export id required")
	}
	export, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "export not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find export")
	}
	return export, nil
}
