package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReserveTransactionType string

const (
	ReserveTransactionTypeSpend ReserveTransactionType = "SPEND"
)

// ReserveTransaction journals explicit debits against the company reserve.
// Credits are not journaled here; they are the COMPANY_RESERVE allocation rows
// themselves, so the reserve balance is always derivable from the ledger.
type ReserveTransaction struct {
	ID          int                    `gorm:"primary_key" json:"id"`
	Type        ReserveTransactionType `gorm:"size:15;not null" json:"type"`
	Amount      decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"amount"`
	Reason      string                 `gorm:"type:text;not null" json:"reason"`
	CreatedAt   time.Time              `gorm:"autoCreateTime;index" json:"created_at"`
}

// GetReserveBalance computes the spendable reserve: all-time reserve
// allocations minus all-time journaled spends. It reads through the given
// handle so locked workflows can compute it inside their own transaction.
func GetReserveBalance(db *gorm.DB) (decimal.Decimal, error) {
	var credited decimal.NullDecimal
	err := db.Model(&RevenueAllocation{}).
		Where("destination_type = ?", AllocationDestinationCompanyReserve).
		Select("SUM(amount)").
		Scan(&credited).Error
	if err != nil {
		return decimal.Zero, err
	}

	var spent decimal.NullDecimal
	err = db.Model(&ReserveTransaction{}).
		Where("type = ?", ReserveTransactionTypeSpend).
		Select("SUM(amount)").
		Scan(&spent).Error
	if err != nil {
		return decimal.Zero, err
	}

	return credited.Decimal.Sub(spent.Decimal), nil
}
