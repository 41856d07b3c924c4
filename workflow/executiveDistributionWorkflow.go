package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const executiveDistributionLock = "executive_distribution"

// DistributionSummary reports one distribution run. AllocationsProcessed is 0
// both when nothing was pending and when no payee was assigned; Message tells
// the two apart.
type DistributionSummary struct {
	TotalAmount          decimal.Decimal `json:"total_amount"`
	RecipientCount       int             `json:"recipient_count"`
	AllocationsProcessed int             `json:"allocations_processed"`
	Message              string          `json:"message,omitempty"`
}

// DistributeExecutivePool pays out every PENDING executive-pool allocation to
// the active, assigned shareholders, proportional to each seat's percentage.
// It pays only when the assigned seats' percentages cover the full pool;
// with any seat vacant the allocations stay PENDING, so a vacant seat's share
// is never credited to nobody.
//
// The whole run is one transaction: a mid-run failure rolls back every write
// and leaves the allocations PENDING, so re-running after a failure can never
// double-pay. Allocations are selected oldest-first and regardless of age, so
// a missed scheduled run is caught up by the next successful one.
func DistributeExecutivePool(ctx context.Context) (*DistributionSummary, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	summary := &DistributionSummary{TotalAmount: decimal.Zero}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquirePostingLock(tx, executiveDistributionLock); err != nil {
			return err
		}
		defer ReleasePostingLock(tx, executiveDistributionLock)

		var allocations []*models.RevenueAllocation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("destination_type = ? AND status = ?",
				models.AllocationDestinationExecutivePool, models.AllocationStatusPending).
			Order("created_at ASC, id ASC").
			Find(&allocations).Error
		if err != nil {
			return err
		}
		if len(allocations) == 0 {
			summary.Message = "no pending executive allocations"
			return nil
		}

		var shareholders []*models.ExecutiveShareholder
		err = tx.Where("is_active = ? AND user_id IS NOT NULL", true).
			Order("id ASC").
			Find(&shareholders).Error
		if err != nil {
			return err
		}
		if len(shareholders) == 0 {
			// Valid state, not an error: allocations stay PENDING for a
			// future run once seats are assigned.
			summary.Message = "no shareholders assigned"
			return nil
		}

		hundred := decimal.NewFromInt(100)

		// A partially staffed board must not consume allocations: paying
		// only the assigned seats and flipping the rows DISTRIBUTED would
		// burn the vacant seats' share. Hold everything until coverage is
		// complete.
		assignedPct := decimal.Zero
		for _, shareholder := range shareholders {
			assignedPct = assignedPct.Add(shareholder.Percentage)
		}
		if !assignedPct.Equal(hundred) {
			summary.Message = fmt.Sprintf(
				"assigned seats cover %s%% of the pool; allocations stay pending until every seat is assigned", assignedPct)
			return nil
		}

		now := time.Now().UTC()

		distributions := make([]*models.ExecutiveDistribution, 0, len(allocations)*len(shareholders))
		earnedByShareholder := make(map[int]decimal.Decimal, len(shareholders))
		allocationIds := make([]int, 0, len(allocations))

		for _, allocation := range allocations {
			allocationIds = append(allocationIds, allocation.ID)
			summary.TotalAmount = summary.TotalAmount.Add(allocation.Amount)

			for _, shareholder := range shareholders {
				share := allocation.Amount.Mul(shareholder.Percentage).Div(hundred).Round(2)
				distributions = append(distributions, &models.ExecutiveDistribution{
					AllocationId:  allocation.ID,
					ShareholderId: shareholder.ID,
					Amount:        share,
					Percentage:    shareholder.Percentage,
					Status:        models.DistributionStatusCompleted,
					DistributedAt: now,
				})
				earnedByShareholder[shareholder.ID] = earnedByShareholder[shareholder.ID].Add(share)
			}
		}

		if err := tx.Create(&distributions).Error; err != nil {
			return err
		}

		walletTxns := make([]*models.ExecutiveWalletTransaction, 0, len(distributions))
		for _, d := range distributions {
			distributionId := d.ID
			walletTxns = append(walletTxns, &models.ExecutiveWalletTransaction{
				ShareholderId:  d.ShareholderId,
				Type:           models.WalletTransactionTypeDistribution,
				Amount:         d.Amount,
				DistributionId: &distributionId,
				Description:    fmt.Sprintf("Executive pool distribution for allocation #%d", d.AllocationId),
			})
		}
		if err := tx.Create(&walletTxns).Error; err != nil {
			return err
		}

		for _, shareholder := range shareholders {
			earned := earnedByShareholder[shareholder.ID]
			err := tx.Model(&models.ExecutiveShareholder{}).
				Where("id = ?", shareholder.ID).
				Updates(map[string]interface{}{
					"total_earned":         gorm.Expr("total_earned + ?", earned),
					"current_balance":      gorm.Expr("current_balance + ?", earned),
					"last_distribution_at": now,
				}).Error
			if err != nil {
				return err
			}
		}

		// Flipped only after every payout write succeeded: the status
		// transition is what makes repeated runs idempotent.
		err = tx.Model(&models.RevenueAllocation{}).
			Where("id IN ?", allocationIds).
			Updates(map[string]interface{}{
				"status":         models.AllocationStatusDistributed,
				"distributed_at": now,
			}).Error
		if err != nil {
			return err
		}

		summary.RecipientCount = len(shareholders)
		summary.AllocationsProcessed = len(allocations)
		return nil
	})
	if err != nil {
		config.LogError(logger, "executiveDistributionWorkflow.go", "DistributeExecutivePool", "Transaction", nil, err)
		return nil, err
	}

	return summary, nil
}
