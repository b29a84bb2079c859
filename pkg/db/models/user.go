package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldbridge/marketplace-backend/pkg/enums"
)

// User represents the canonical identity entity holding the wallet balance.
type User struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email        string          `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Name         string          `gorm:"column:name;not null"`
	Role         enums.UserRole  `gorm:"column:role;type:text;not null;default:'BUYER'"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(18,2);not null;default:0"`
	KYCStatus    enums.KYCStatus `gorm:"column:kyc_status;type:text;not null;default:'UNVERIFIED'"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
