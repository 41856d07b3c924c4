package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
)

const reportCacheTTL = 5 * time.Minute

type RevenueBySourceRow struct {
	Source           models.RevenueSource `json:"source"`
	TotalAmount      decimal.Decimal      `json:"total_amount"`
	TransactionCount int                  `json:"transaction_count"`
}

// GetRevenueBySource aggregates recorded revenue per source over the trailing
// window. Results are cached briefly in redis; the cache is purely a
// dashboard convenience and is never consulted by the write path.
func GetRevenueBySource(ctx context.Context, days int) ([]*RevenueBySourceRow, error) {
	if days <= 0 {
		days = 30
	}

	cacheKey := fmt.Sprintf("report:revenueBySource:%d", days)
	var cached []*RevenueBySourceRow
	hit, err := config.GetRedisObject(cacheKey, &cached)
	if err == nil && hit {
		return cached, nil
	}
	if err != nil {
		// Undecodable entry, likely a stale shape from an older build.
		_ = config.RemoveRedisKey(cacheKey)
	}

	start, _ := utils.GetLastDaysRange(days)

	sql := `
SELECT
    source,
    SUM(amount) AS total_amount,
    COUNT(id) AS transaction_count
FROM
    revenue_transactions
WHERE
    created_at >= ?
GROUP BY
    source
ORDER BY
    total_amount DESC;
`

	var rows []*RevenueBySourceRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, start).Scan(&rows).Error; err != nil {
		return nil, err
	}

	if err := config.SetRedisObject(cacheKey, rows, reportCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "revenueReports.go", "GetRevenueBySource", "SetRedisObject", cacheKey, err)
	}
	return rows, nil
}

type RevenueSourceDetails struct {
	Source           models.RevenueSource         `json:"source"`
	TotalAmount      decimal.Decimal              `json:"total_amount"`
	TransactionCount int                          `json:"transaction_count"`
	Transactions     []*models.RevenueTransaction `json:"transactions"`
}

// GetRevenueSourceDetails returns the windowed totals for one source plus its
// most recent transactions.
func GetRevenueSourceDetails(ctx context.Context, source models.RevenueSource, days int) (*RevenueSourceDetails, error) {
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid revenue source %q", source)
	}
	if days <= 0 {
		days = 30
	}
	start, _ := utils.GetLastDaysRange(days)

	db := config.GetDB()

	details := &RevenueSourceDetails{Source: source}

	var total decimal.NullDecimal
	var count int64
	err := db.WithContext(ctx).Model(&models.RevenueTransaction{}).
		Where("source = ? AND created_at >= ?", source, start).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).Model(&models.RevenueTransaction{}).
		Where("source = ? AND created_at >= ?", source, start).
		Select("SUM(amount)").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	details.TotalAmount = total.Decimal
	details.TransactionCount = int(count)

	err = db.WithContext(ctx).
		Where("source = ? AND created_at >= ?", source, start).
		Order("created_at DESC, id DESC").
		Limit(50).
		Find(&details.Transactions).Error
	if err != nil {
		return nil, err
	}

	return details, nil
}
