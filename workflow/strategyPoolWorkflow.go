package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NewPoolMember struct {
	UserId string `json:"user_id" validate:"required"`
	Name   string `json:"name" validate:"required"`
}

// AddPoolMember appends a member to a pool's roster and journals the action.
// Joining has no retroactive effect on already-DISTRIBUTED allocations.
func AddPoolMember(ctx context.Context, poolId int, input NewPoolMember) (*models.PoolMember, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	pool, err := models.GetStrategyPoolById(ctx, poolId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPoolNotFound
		}
		return nil, err
	}

	member := models.PoolMember{
		PoolId: pool.ID,
		UserId: input.UserId,
		Name:   input.Name,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			if !isDuplicateKeyErr(err) {
				return err
			}
			// Previously removed member rejoining: reactivate the existing
			// row so earned totals stay attached to one identity.
			if err := tx.Where("pool_id = ? AND user_id = ?", pool.ID, input.UserId).
				First(&member).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.PoolMember{}).
				Where("id = ?", member.ID).
				Updates(map[string]interface{}{"is_active": true, "name": input.Name}).Error; err != nil {
				return err
			}
		}
		description := fmt.Sprintf("Added %s to %s.", input.Name, pool.Name)
		return models.RecordAdminAction(tx, models.AdminActionAddPoolMember, description, map[string]interface{}{
			"pool_id":   pool.ID,
			"pool_code": pool.Code,
			"member_id": member.ID,
			"user_id":   input.UserId,
		})
	})
	if err != nil {
		config.LogError(config.GetLogger(), "strategyPoolWorkflow.go", "AddPoolMember", "Transaction", input, err)
		return nil, err
	}
	return &member, nil
}

// RemovePoolMember deactivates a roster entry. The row (and its earned
// totals) stays for the audit trail.
func RemovePoolMember(ctx context.Context, poolId, memberId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.PoolMember
		if err := tx.Where("pool_id = ?", poolId).First(&member, memberId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}

		err := tx.Model(&models.PoolMember{}).
			Where("id = ?", member.ID).
			Update("is_active", false).Error
		if err != nil {
			return err
		}

		description := fmt.Sprintf("Removed %s from pool #%d.", member.Name, poolId)
		return models.RecordAdminAction(tx, models.AdminActionRemovePoolMember, description, map[string]interface{}{
			"pool_id":   poolId,
			"member_id": member.ID,
			"user_id":   member.UserId,
		})
	})
}

// DistributePool pays out one pool's PENDING allocations to its active
// members in equal shares, following the same atomic oldest-first pattern as
// the executive run. Triggered by an explicit admin action; every trigger is
// journaled, including no-op ones.
func DistributePool(ctx context.Context, poolId int) (*DistributionSummary, error) {
	logger := config.GetLogger()

	pool, err := models.GetStrategyPoolById(ctx, poolId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPoolNotFound
		}
		return nil, err
	}

	summary := &DistributionSummary{TotalAmount: decimal.Zero}
	lockName := fmt.Sprintf("pool_distribution:%d", pool.ID)

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquirePostingLock(tx, lockName); err != nil {
			return err
		}
		defer ReleasePostingLock(tx, lockName)

		var allocations []*models.RevenueAllocation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("destination_type = ? AND destination_id = ? AND status = ?",
				models.AllocationDestinationStrategyPool, pool.ID, models.AllocationStatusPending).
			Order("created_at ASC, id ASC").
			Find(&allocations).Error
		if err != nil {
			return err
		}

		var members []*models.PoolMember
		err = tx.Where("pool_id = ? AND is_active = ?", pool.ID, true).
			Order("id ASC").
			Find(&members).Error
		if err != nil {
			return err
		}

		if len(allocations) == 0 {
			summary.Message = "no pending pool allocations"
		} else if len(members) == 0 {
			summary.Message = "no pool members assigned"
		} else {
			now := time.Now().UTC()
			memberCount := decimal.NewFromInt(int64(len(members)))

			distributions := make([]*models.PoolDistribution, 0, len(allocations)*len(members))
			earnedByMember := make(map[int]decimal.Decimal, len(members))
			allocationIds := make([]int, 0, len(allocations))

			for _, allocation := range allocations {
				allocationIds = append(allocationIds, allocation.ID)
				summary.TotalAmount = summary.TotalAmount.Add(allocation.Amount)

				share := allocation.Amount.Div(memberCount).RoundDown(2)
				remainder := allocation.Amount.Sub(share.Mul(memberCount))

				for i, member := range members {
					memberShare := share
					if i == 0 {
						// Oldest member absorbs the rounding remainder so the
						// allocation pays out exactly.
						memberShare = memberShare.Add(remainder)
					}
					distributions = append(distributions, &models.PoolDistribution{
						AllocationId:  allocation.ID,
						MemberId:      member.ID,
						Amount:        memberShare,
						Status:        models.DistributionStatusCompleted,
						DistributedAt: now,
					})
					earnedByMember[member.ID] = earnedByMember[member.ID].Add(memberShare)
				}
			}

			if err := tx.Create(&distributions).Error; err != nil {
				return err
			}

			for _, member := range members {
				earned := earnedByMember[member.ID]
				err := tx.Model(&models.PoolMember{}).
					Where("id = ?", member.ID).
					Updates(map[string]interface{}{
						"total_earned":    gorm.Expr("total_earned + ?", earned),
						"current_balance": gorm.Expr("current_balance + ?", earned),
					}).Error
				if err != nil {
					return err
				}
			}

			err = tx.Model(&models.RevenueAllocation{}).
				Where("id IN ?", allocationIds).
				Updates(map[string]interface{}{
					"status":         models.AllocationStatusDistributed,
					"distributed_at": now,
				}).Error
			if err != nil {
				return err
			}

			summary.RecipientCount = len(members)
			summary.AllocationsProcessed = len(allocations)
		}

		description := fmt.Sprintf("Distributed %s pool: %s across %d allocations to %d members.",
			pool.Name, summary.TotalAmount, summary.AllocationsProcessed, summary.RecipientCount)
		return models.RecordAdminAction(tx, models.AdminActionDistributePool, description, map[string]interface{}{
			"pool_id":               pool.ID,
			"pool_code":             pool.Code,
			"total_amount":          summary.TotalAmount,
			"recipient_count":       summary.RecipientCount,
			"allocations_processed": summary.AllocationsProcessed,
			"message":               summary.Message,
		})
	})
	if err != nil {
		config.LogError(logger, "strategyPoolWorkflow.go", "DistributePool", "Transaction", poolId, err)
		return nil, err
	}

	return summary, nil
}
