package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutiveDistribution links one shareholder payout to the allocation it was
// paid from. Percentage is a snapshot of the rate used at payout time. Rows
// are created once and never mutated.
type ExecutiveDistribution struct {
	ID            int                `gorm:"primary_key" json:"id"`
	AllocationId  int                `gorm:"index;not null" json:"allocation_id"`
	ShareholderId int                `gorm:"index;not null" json:"shareholder_id"`
	Amount        decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"amount"`
	Percentage    decimal.Decimal    `gorm:"type:decimal(7,4);not null" json:"percentage"`
	Status        DistributionStatus `gorm:"size:15;not null" json:"status"`
	DistributedAt time.Time          `gorm:"not null" json:"distributed_at"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}
