package kyc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/users"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
)

// StatusDTO reports a user's verification state.
type StatusDTO struct {
	UserID uuid.UUID       `json:"user_id"`
	Status enums.KYCStatus `json:"status"`
}

// Service drives the KYC status flow: a buyer submits for review, an admin
// decides. Document handling itself lives outside this service.
type Service interface {
	Status(ctx context.Context, userID uuid.UUID) (*StatusDTO, error)
	Submit(ctx context.Context, userID uuid.UUID) (*StatusDTO, error)
	Decide(ctx context.Context, userID uuid.UUID, approved bool) (*StatusDTO, error)
}

type service struct {
	usersRepo *users.Repository
}

// NewService builds the KYC service.
func NewService(usersRepo *users.Repository) (Service, error) {
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{usersRepo: usersRepo}, nil
}

func (s *service) Status(ctx context.Context, userID uuid.UUID) (*StatusDTO, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatusDTO{UserID: user.ID, Status: user.KYCStatus}, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID) (*StatusDTO, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.KYCStatus == enums.KYCStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already verified")
	}
	if user.KYCStatus == enums.KYCStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "verification is already pending")
	}

	if err := s.usersRepo.UpdateKYCStatus(ctx, userID, enums.KYCStatusPending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit kyc")
	}
	return &StatusDTO{UserID: userID, Status: enums.KYCStatusPending}, nil
}

func (s *service) Decide(ctx context.Context, userID uuid.UUID, approved bool) (*StatusDTO, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.KYCStatus != enums.KYCStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "no pending verification to decide").
			WithDetails(map[string]any{"status": user.KYCStatus})
	}

	status := enums.KYCStatusRejected
	if approved {
		status = enums.KYCStatusVerified
	}
	if err := s.usersRepo.UpdateKYCStatus(ctx, userID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decide kyc")
	}
	return &StatusDTO{UserID: userID, Status: status}, nil
}

func (s *service) find(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.usersRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}
	return user, nil
}
