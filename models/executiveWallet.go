package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutiveWalletTransaction is the append-only ledger behind a shareholder's
// internal balance. DISTRIBUTION entries reference the distribution row that
// produced them; WITHDRAWAL entries are admin-journaled debits.
type ExecutiveWalletTransaction struct {
	ID             int                   `gorm:"primary_key" json:"id"`
	ShareholderId  int                   `gorm:"index;not null" json:"shareholder_id"`
	Type           WalletTransactionType `gorm:"size:20;not null;index" json:"type"`
	Amount         decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"amount"`
	DistributionId *int                  `gorm:"index" json:"distribution_id"`
	Description    string                `gorm:"type:text" json:"description"`
	CreatedAt      time.Time             `gorm:"autoCreateTime;index" json:"created_at"`
}
