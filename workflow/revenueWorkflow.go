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

// prepareRevenueTransaction validates the input and shapes the transaction
// row. No writes happen here; both recorder entry points share it.
func prepareRevenueTransaction(ctx context.Context, input models.NewRevenueTransaction) (*models.RevenueTransaction, []*models.StrategyPool, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	if !input.Source.IsValid() {
		return nil, nil, fmt.Errorf("%w: %q", utils.ErrInvalidRevenueSource, input.Source)
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, utils.ErrInvalidAmount
	}
	if input.SourceId != nil && *input.SourceId == "" {
		input.SourceId = nil
	}

	pools, err := models.GetAllStrategyPools(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "revenueWorkflow.go", "prepareRevenueTransaction", "GetAllStrategyPools", nil, err)
		return nil, nil, err
	}

	txn := models.RevenueTransaction{
		Source:      input.Source,
		Amount:      input.Amount.Round(2),
		SourceId:    input.SourceId,
		Description: input.Description,
	}
	return &txn, pools, nil
}

// recordRevenueTx inserts the transaction row and its allocation split inside
// the caller's transaction.
//
// Duplicate suppression rides on the unique index over source_id: a racing
// second insert surfaces as mysql 1062 and maps to ErrDuplicateRevenueSource.
// A read-then-write check would leave a race window; the constraint closes it.
func recordRevenueTx(tx *gorm.DB, txn *models.RevenueTransaction, pools []*models.StrategyPool) error {
	if err := tx.Create(txn).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return utils.ErrDuplicateRevenueSource
		}
		return err
	}

	allocations := models.BuildAllocations(txn.ID, txn.Amount, pools)
	if err := tx.Create(&allocations).Error; err != nil {
		return err
	}
	txn.Allocations = allocations
	return nil
}

// RecordRevenue validates and persists one revenue event together with its
// allocation split, all inside one transaction. No side effects beyond the
// ledger writes, so a failed call is always safe to retry from the caller.
func RecordRevenue(ctx context.Context, input models.NewRevenueTransaction) (*models.RevenueTransaction, error) {
	txn, pools, err := prepareRevenueTransaction(ctx, input)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return recordRevenueTx(tx, txn, pools)
	})
	if err != nil {
		if err != utils.ErrDuplicateRevenueSource {
			config.LogError(config.GetLogger(), "revenueWorkflow.go", "RecordRevenue", "Transaction", input, err)
		}
		return nil, err
	}

	return txn, nil
}

// ManualAllocation records revenue on behalf of an admin. The ledger writes
// and the MANUAL_ALLOCATION audit row share one transaction, so the money and
// its audit trail land together or not at all.
func ManualAllocation(ctx context.Context, input models.NewRevenueTransaction) (*models.RevenueTransaction, error) {
	txn, pools, err := prepareRevenueTransaction(ctx, input)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := recordRevenueTx(tx, txn, pools); err != nil {
			return err
		}
		description := fmt.Sprintf("Manual allocation of %s from %s.", txn.Amount, txn.Source)
		return models.RecordAdminAction(tx, models.AdminActionManualAllocation, description, map[string]interface{}{
			"revenue_transaction_id": txn.ID,
			"source":                 txn.Source,
			"amount":                 txn.Amount,
		})
	})
	if err != nil {
		if err != utils.ErrDuplicateRevenueSource {
			config.LogError(config.GetLogger(), "revenueWorkflow.go", "ManualAllocation", "Transaction", input, err)
		}
		return nil, err
	}
	return txn, nil
}
