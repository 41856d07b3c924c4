package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"github.com/shopspring/decimal"
)

// ExecutiveShareholder is one of the seven fixed compensation seats. A seat
// with no assigned user accumulates nothing personally; the pool total still
// waits for it as PENDING allocations.
//
// Invariant (checked by workflow.VerifyInvariants, not at write time): active
// seat percentages sum to 100.
type ExecutiveShareholder struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	Role               ExecutiveRole   `gorm:"size:40;not null;uniqueIndex" json:"role"`
	Percentage         decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"percentage"`
	UserId             *string         `gorm:"size:64;index" json:"user_id"`
	UserName           string          `gorm:"size:100" json:"user_name"`
	TotalEarned        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_earned"`
	CurrentBalance     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	LastDistributionAt *time.Time      `json:"last_distribution_at"`
	IsActive           *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetPayableShareholders returns active seats with an assigned payee.
// Balance reads always come from the store; no cross-call caching.
func GetPayableShareholders(ctx context.Context) ([]*ExecutiveShareholder, error) {
	db := config.GetDB()
	var shareholders []*ExecutiveShareholder
	err := db.WithContext(ctx).
		Where("is_active = ? AND user_id IS NOT NULL", true).
		Order("id ASC").
		Find(&shareholders).Error
	if err != nil {
		return nil, err
	}
	return shareholders, nil
}

func GetShareholderById(ctx context.Context, id int) (*ExecutiveShareholder, error) {
	db := config.GetDB()
	var shareholder ExecutiveShareholder
	if err := db.WithContext(ctx).First(&shareholder, id).Error; err != nil {
		return nil, err
	}
	return &shareholder, nil
}
