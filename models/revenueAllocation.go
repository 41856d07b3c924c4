package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"github.com/shopspring/decimal"
)

// RevenueAllocation is one derived split line of a revenue transaction.
// Only status/distributed_at ever change, PENDING -> DISTRIBUTED.
type RevenueAllocation struct {
	ID                   int                       `gorm:"primary_key" json:"id"`
	RevenueTransactionId int                       `gorm:"index;not null" json:"revenue_transaction_id"`
	DestinationType      AllocationDestinationType `gorm:"size:20;not null;index:idx_alloc_dest_status,priority:1" json:"destination_type"`
	DestinationId        *int                      `gorm:"index" json:"destination_id"`
	Amount               decimal.Decimal           `gorm:"type:decimal(20,4);not null" json:"amount"`
	Status               AllocationStatus          `gorm:"size:15;not null;index:idx_alloc_dest_status,priority:2" json:"status"`
	CreatedAt            time.Time                 `gorm:"autoCreateTime;index" json:"created_at"`
	DistributedAt        *time.Time                `json:"distributed_at"`
}

// RevenueSplit is the deterministic 50/30/20 decomposition of one amount.
// CompanyReserve absorbs any rounding residue so the parts always sum back to
// the original amount exactly.
type RevenueSplit struct {
	CompanyReserve decimal.Decimal
	ExecutivePool  decimal.Decimal
	StrategyShare  decimal.Decimal // per pool, five pools total
}

func SplitRevenueAmount(amount decimal.Decimal) RevenueSplit {
	executive := amount.Mul(ExecutivePoolRate).Round(2)
	strategyShare := amount.Mul(StrategyPoolRate).Round(2)
	reserve := amount.Sub(executive).Sub(strategyShare.Mul(decimal.NewFromInt(int64(len(AllStrategyPoolCodes)))))
	return RevenueSplit{
		CompanyReserve: reserve,
		ExecutivePool:  executive,
		StrategyShare:  strategyShare,
	}
}

// BuildAllocations expands a split into the PENDING allocation rows of a
// transaction: one reserve, one executive pool, one per strategy pool.
func BuildAllocations(transactionId int, amount decimal.Decimal, pools []*StrategyPool) []*RevenueAllocation {
	split := SplitRevenueAmount(amount)

	allocations := []*RevenueAllocation{
		{
			RevenueTransactionId: transactionId,
			DestinationType:      AllocationDestinationCompanyReserve,
			Amount:               split.CompanyReserve,
			Status:               AllocationStatusPending,
		},
		{
			RevenueTransactionId: transactionId,
			DestinationType:      AllocationDestinationExecutivePool,
			Amount:               split.ExecutivePool,
			Status:               AllocationStatusPending,
		},
	}
	for _, pool := range pools {
		poolId := pool.ID
		allocations = append(allocations, &RevenueAllocation{
			RevenueTransactionId: transactionId,
			DestinationType:      AllocationDestinationStrategyPool,
			DestinationId:        &poolId,
			Amount:               split.StrategyShare,
			Status:               AllocationStatusPending,
		})
	}
	return allocations
}

// AllocationFilter narrows the read surface consumed by dashboards.
type AllocationFilter struct {
	DestinationType *AllocationDestinationType
	Status          *AllocationStatus
	PoolId          *int
	Limit           int
}

func GetAllocations(ctx context.Context, filter AllocationFilter) ([]*RevenueAllocation, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&RevenueAllocation{}).Order("created_at ASC, id ASC")
	if filter.DestinationType != nil {
		q = q.Where("destination_type = ?", *filter.DestinationType)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.PoolId != nil {
		q = q.Where("destination_id = ?", *filter.PoolId)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var allocations []*RevenueAllocation
	if err := q.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}
