package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"github.com/shopspring/decimal"
)

// RevenueTransaction is one inbound monetary event. Rows are immutable; the
// derived split lives in revenue_allocations.
type RevenueTransaction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Source      RevenueSource   `gorm:"size:40;not null;index" json:"source"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	SourceId    *string         `gorm:"size:255;uniqueIndex:uniq_revenue_source_id" json:"source_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`

	Allocations []*RevenueAllocation `gorm:"foreignKey:RevenueTransactionId" json:"allocations,omitempty"`
}

// NewRevenueTransaction is the recorder input. SourceId is the external
// idempotency key; uniqueness is enforced by the DB constraint, not a
// read-then-write.
type NewRevenueTransaction struct {
	Source      RevenueSource   `json:"source" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	SourceId    *string         `json:"source_id"`
	Description string          `json:"description" validate:"required"`
}

func GetRevenueTransactionById(ctx context.Context, id int) (*RevenueTransaction, error) {
	db := config.GetDB()
	var txn RevenueTransaction
	if err := db.WithContext(ctx).Preload("Allocations").First(&txn, id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}
