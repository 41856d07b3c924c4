package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const reserveSpendLock = "reserve_spend"

// SpendFromReserve journals an admin-authorized debit against the company
// reserve. The advisory lock lives on a pinned connection and is released
// only after the spend commits, so a racing spend always recomputes the
// balance with this spend's journal row visible.
func SpendFromReserve(ctx context.Context, amount decimal.Decimal, reason string) (*models.ReserveTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, utils.ErrInvalidAmount
	}
	if reason == "" {
		return nil, utils.ErrReasonRequired
	}
	amount = amount.Round(2)

	spend := models.ReserveTransaction{
		Type:   models.ReserveTransactionTypeSpend,
		Amount: amount,
		Reason: reason,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := AcquirePostingLock(conn, reserveSpendLock); err != nil {
			return err
		}
		defer ReleasePostingLock(conn, reserveSpendLock)

		return conn.Transaction(func(tx *gorm.DB) error {
			balance, err := models.GetReserveBalance(tx)
			if err != nil {
				return err
			}
			if balance.LessThan(amount) {
				return utils.ErrInsufficientBalance
			}

			if err := tx.Create(&spend).Error; err != nil {
				return err
			}

			description := fmt.Sprintf("Spent %s from the company reserve: %s", amount, reason)
			return models.RecordAdminAction(tx, models.AdminActionSpendFromReserve, description, map[string]interface{}{
				"reserve_transaction_id": spend.ID,
				"amount":                 amount,
				"reason":                 reason,
			})
		})
	})
	if err != nil {
		if err != utils.ErrInsufficientBalance {
			config.LogError(config.GetLogger(), "reserveWorkflow.go", "SpendFromReserve", "Transaction", amount, err)
		}
		return nil, err
	}
	return &spend, nil
}
