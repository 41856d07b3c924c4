package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"github.com/shopspring/decimal"
)

// StrategyPool is one of the five fixed 4%-rate sub-pools. Rate is stored for
// reporting; the split itself reads models.StrategyPoolRate.
type StrategyPool struct {
	ID        int              `gorm:"primary_key" json:"id"`
	Code      StrategyPoolCode `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name      string           `gorm:"size:100;not null" json:"name"`
	Rate      decimal.Decimal  `gorm:"type:decimal(7,4);not null" json:"rate"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`

	Members []*PoolMember `gorm:"foreignKey:PoolId" json:"members,omitempty"`
}

// PoolMember is one roster entry of a strategy pool. Balances move only
// through admin-triggered distribution and journaled debits.
type PoolMember struct {
	ID             int             `gorm:"primary_key" json:"id"`
	PoolId         int             `gorm:"index:idx_pool_member,unique;not null" json:"pool_id"`
	UserId         string          `gorm:"size:64;index:idx_pool_member,unique;not null" json:"user_id"`
	Name           string          `gorm:"size:100" json:"name"`
	TotalEarned    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_earned"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PoolDistribution records one member payout from one pool allocation,
// mirroring ExecutiveDistribution for the strategic pools.
type PoolDistribution struct {
	ID            int                `gorm:"primary_key" json:"id"`
	AllocationId  int                `gorm:"index;not null" json:"allocation_id"`
	MemberId      int                `gorm:"index;not null" json:"member_id"`
	Amount        decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"amount"`
	Status        DistributionStatus `gorm:"size:15;not null" json:"status"`
	DistributedAt time.Time          `gorm:"not null" json:"distributed_at"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func GetAllStrategyPools(ctx context.Context) ([]*StrategyPool, error) {
	db := config.GetDB()
	var pools []*StrategyPool
	if err := db.WithContext(ctx).Order("id ASC").Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

func GetStrategyPoolById(ctx context.Context, id int) (*StrategyPool, error) {
	db := config.GetDB()
	var pool StrategyPool
	if err := db.WithContext(ctx).First(&pool, id).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

func GetActivePoolMembers(ctx context.Context, poolId int) ([]*PoolMember, error) {
	db := config.GetDB()
	var members []*PoolMember
	err := db.WithContext(ctx).
		Where("pool_id = ? AND is_active = ?", poolId, true).
		Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
