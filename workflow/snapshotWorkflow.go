package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type sourceTotalRow struct {
	Source models.RevenueSource
	Total  decimal.Decimal
}

type destinationTotalRow struct {
	DestinationType models.AllocationDestinationType
	Total           decimal.Decimal
}

// CreateSnapshot materializes the monthly rollup for (month, year). The
// figures are computed over the transactions whose created_at falls inside
// the month; distributed_total reflects the allocation statuses as of
// snapshot time. Creation is idempotent-by-key: a second call for the same
// period fails with ErrSnapshotAlreadyExists and never alters the first.
func CreateSnapshot(ctx context.Context, month, year int) (*models.RevenueSnapshot, error) {
	logger := config.GetLogger()

	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12, got %d", utils.ErrInvalidSnapshotPeriod, month)
	}
	if year < 2000 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d", utils.ErrInvalidSnapshotPeriod, year)
	}

	start, end := utils.GetMonthRange(time.Month(month), year)

	snapshot := models.RevenueSnapshot{Month: month, Year: year}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var totalRevenue decimal.NullDecimal
		var transactionCount int64
		err := tx.Model(&models.RevenueTransaction{}).
			Where("created_at >= ? AND created_at < ?", start, end).
			Count(&transactionCount).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.RevenueTransaction{}).
			Where("created_at >= ? AND created_at < ?", start, end).
			Select("SUM(amount)").
			Scan(&totalRevenue).Error
		if err != nil {
			return err
		}
		snapshot.TotalRevenue = totalRevenue.Decimal
		snapshot.TransactionCount = int(transactionCount)

		var sourceTotals []sourceTotalRow
		err = tx.Model(&models.RevenueTransaction{}).
			Where("created_at >= ? AND created_at < ?", start, end).
			Select("source, SUM(amount) AS total").
			Group("source").
			Scan(&sourceTotals).Error
		if err != nil {
			return err
		}
		for _, row := range sourceTotals {
			snapshot.SetSourceTotal(row.Source, row.Total)
		}

		var destinationTotals []destinationTotalRow
		err = tx.Model(&models.RevenueAllocation{}).
			Joins("JOIN revenue_transactions ON revenue_transactions.id = revenue_allocations.revenue_transaction_id").
			Where("revenue_transactions.created_at >= ? AND revenue_transactions.created_at < ?", start, end).
			Select("revenue_allocations.destination_type, SUM(revenue_allocations.amount) AS total").
			Group("revenue_allocations.destination_type").
			Scan(&destinationTotals).Error
		if err != nil {
			return err
		}
		for _, row := range destinationTotals {
			switch row.DestinationType {
			case models.AllocationDestinationCompanyReserve:
				snapshot.CompanyReserveTotal = row.Total
			case models.AllocationDestinationExecutivePool:
				snapshot.ExecutivePoolTotal = row.Total
			case models.AllocationDestinationStrategyPool:
				snapshot.StrategyPoolTotal = row.Total
			}
		}

		var distributed decimal.NullDecimal
		err = tx.Model(&models.RevenueAllocation{}).
			Joins("JOIN revenue_transactions ON revenue_transactions.id = revenue_allocations.revenue_transaction_id").
			Where("revenue_transactions.created_at >= ? AND revenue_transactions.created_at < ?", start, end).
			Where("revenue_allocations.status = ?", models.AllocationStatusDistributed).
			Select("SUM(revenue_allocations.amount)").
			Scan(&distributed).Error
		if err != nil {
			return err
		}
		snapshot.DistributedTotal = distributed.Decimal

		if err := tx.Create(&snapshot).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return utils.ErrSnapshotAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		if err != utils.ErrSnapshotAlreadyExists {
			config.LogError(logger, "snapshotWorkflow.go", "CreateSnapshot", "Transaction", fmt.Sprintf("%d-%d", year, month), err)
		}
		return nil, err
	}

	return &snapshot, nil
}
