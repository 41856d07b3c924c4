package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"github.com/shopspring/decimal"
)

// InvariantReport lists every standing-invariant violation found in the
// ledger. These invariants are deliberately NOT enforced on the write path
// (that would lock the whole roster on every unrelated write); this routine
// is the contract checker the admin tooling runs instead, on a schedule or
// before a deploy.
type InvariantReport struct {
	Violations []string `json:"violations"`
	CheckedAt  string   `json:"checked_at"`
}

func (r *InvariantReport) addf(format string, args ...interface{}) {
	r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
}

// allocation sums may differ from the transaction amount by at most one
// currency minor unit.
var allocationTolerance = decimal.NewFromFloat(0.01)

type allocationSumRow struct {
	RevenueTransactionId int
	Amount               decimal.Decimal
	AllocatedTotal       decimal.Decimal
	AllocationCount      int
}

type distributionSumRow struct {
	AllocationId     int
	Amount           decimal.Decimal
	DistributedTotal decimal.Decimal
}

func VerifyInvariants(ctx context.Context) (*InvariantReport, error) {
	db := config.GetDB()
	report := &InvariantReport{
		Violations: []string{},
		CheckedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	// Active seat percentages must sum to 100.
	var pctTotal decimal.NullDecimal
	err := db.WithContext(ctx).Model(&models.ExecutiveShareholder{}).
		Where("is_active = ?", true).
		Select("SUM(percentage)").
		Scan(&pctTotal).Error
	if err != nil {
		return nil, err
	}
	if !pctTotal.Decimal.Equal(decimal.NewFromInt(100)) {
		report.addf("active shareholder percentages sum to %s, want 100", pctTotal.Decimal)
	}

	// Each pool carries the fixed 4% rate.
	var pools []*models.StrategyPool
	if err := db.WithContext(ctx).Find(&pools).Error; err != nil {
		return nil, err
	}
	wantRate := models.StrategyPoolRate.Mul(decimal.NewFromInt(100))
	for _, pool := range pools {
		if !pool.Rate.Equal(wantRate) {
			report.addf("pool %s has rate %s, want %s", pool.Code, pool.Rate, wantRate)
		}
	}

	// Each transaction splits into one reserve row, one executive row and one
	// row per pool, summing back to its amount.
	var rows []allocationSumRow
	err = db.WithContext(ctx).Model(&models.RevenueTransaction{}).
		Joins("JOIN revenue_allocations ON revenue_allocations.revenue_transaction_id = revenue_transactions.id").
		Select("revenue_transactions.id AS revenue_transaction_id, revenue_transactions.amount, " +
			"SUM(revenue_allocations.amount) AS allocated_total, COUNT(revenue_allocations.id) AS allocation_count").
		Group("revenue_transactions.id, revenue_transactions.amount").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	wantCount := 2 + len(models.AllStrategyPoolCodes)
	for _, row := range rows {
		if row.AllocationCount != wantCount {
			report.addf("transaction #%d has %d allocations, want %d", row.RevenueTransactionId, row.AllocationCount, wantCount)
		}
		if row.Amount.Sub(row.AllocatedTotal).Abs().GreaterThan(allocationTolerance) {
			report.addf("transaction #%d allocations sum to %s, transaction amount is %s", row.RevenueTransactionId, row.AllocatedTotal, row.Amount)
		}
	}

	// Every DISTRIBUTED executive allocation must have been paid out in full:
	// the seat distributions recorded against it must sum back to its amount.
	var paidRows []distributionSumRow
	err = db.WithContext(ctx).Model(&models.RevenueAllocation{}).
		Joins("LEFT JOIN executive_distributions ON executive_distributions.allocation_id = revenue_allocations.id").
		Where("revenue_allocations.destination_type = ? AND revenue_allocations.status = ?",
			models.AllocationDestinationExecutivePool, models.AllocationStatusDistributed).
		Select("revenue_allocations.id AS allocation_id, revenue_allocations.amount, " +
			"COALESCE(SUM(executive_distributions.amount), 0) AS distributed_total").
		Group("revenue_allocations.id, revenue_allocations.amount").
		Scan(&paidRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range paidRows {
		if row.Amount.Sub(row.DistributedTotal).Abs().GreaterThan(allocationTolerance) {
			report.addf("executive allocation #%d is DISTRIBUTED but only %s of %s was paid out", row.AllocationId, row.DistributedTotal, row.Amount)
		}
	}

	return report, nil
}
