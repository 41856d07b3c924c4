package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignExecutiveInput struct {
	Role     models.ExecutiveRole `json:"role" validate:"required"`
	UserId   string               `json:"user_id" validate:"required"`
	UserName string               `json:"user_name" validate:"required"`
}

// AssignExecutive attaches a payee to a vacant seat. Seats are fixed; only
// the occupant changes. The pool total accumulated while the seat was vacant
// stays PENDING and pays out on the next run.
func AssignExecutive(ctx context.Context, input AssignExecutiveInput) (*models.ExecutiveShareholder, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("invalid executive role %q", input.Role)
	}

	db := config.GetDB()
	var seat models.ExecutiveShareholder
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("role = ?", input.Role).
			First(&seat).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrShareholderNotFound
			}
			return err
		}
		if seat.UserId != nil {
			return utils.ErrSeatAlreadyAssigned
		}

		err := tx.Model(&models.ExecutiveShareholder{}).
			Where("id = ?", seat.ID).
			Updates(map[string]interface{}{
				"user_id":   input.UserId,
				"user_name": input.UserName,
				"is_active": true,
			}).Error
		if err != nil {
			return err
		}

		description := fmt.Sprintf("Assigned %s to the %s seat.", input.UserName, input.Role)
		return models.RecordAdminAction(tx, models.AdminActionAssignExecutive, description, map[string]interface{}{
			"shareholder_id": seat.ID,
			"role":           input.Role,
			"user_id":        input.UserId,
		})
	})
	if err != nil {
		return nil, err
	}

	return models.GetShareholderById(ctx, seat.ID)
}

// RemoveExecutive vacates a seat. Earned totals and the wallet ledger remain;
// only the occupancy changes.
func RemoveExecutive(ctx context.Context, shareholderId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seat models.ExecutiveShareholder
		if err := tx.First(&seat, shareholderId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrShareholderNotFound
			}
			return err
		}
		if seat.UserId == nil {
			return utils.ErrShareholderNotFound
		}

		err := tx.Model(&models.ExecutiveShareholder{}).
			Where("id = ?", seat.ID).
			Updates(map[string]interface{}{
				"user_id":   nil,
				"user_name": "",
			}).Error
		if err != nil {
			return err
		}

		description := fmt.Sprintf("Removed %s from the %s seat.", seat.UserName, seat.Role)
		return models.RecordAdminAction(tx, models.AdminActionRemoveExecutive, description, map[string]interface{}{
			"shareholder_id": seat.ID,
			"role":           seat.Role,
			"user_id":        utils.DereferencePtr(seat.UserId),
		})
	})
}

// WithdrawFromWallet debits a shareholder's internal balance and appends the
// journal entry. The balance is read and checked inside the same row-locked
// transaction, so a concurrent distribution run can never be interleaved into
// a stale-balance overdraft.
func WithdrawFromWallet(ctx context.Context, shareholderId int, amount decimal.Decimal, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return utils.ErrInvalidAmount
	}
	amount = amount.Round(2)

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seat models.ExecutiveShareholder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&seat, shareholderId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrShareholderNotFound
			}
			return err
		}
		if seat.CurrentBalance.LessThan(amount) {
			return utils.ErrInsufficientBalance
		}

		err := tx.Model(&models.ExecutiveShareholder{}).
			Where("id = ?", seat.ID).
			Update("current_balance", gorm.Expr("current_balance - ?", amount)).Error
		if err != nil {
			return err
		}

		walletTxn := models.ExecutiveWalletTransaction{
			ShareholderId: seat.ID,
			Type:          models.WalletTransactionTypeWithdrawal,
			Amount:        amount,
			Description:   description,
		}
		return tx.Create(&walletTxn).Error
	})
}
