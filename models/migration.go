package models

import (
	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&RevenueTransaction{}, &RevenueAllocation{},
		&ExecutiveShareholder{}, &ExecutiveDistribution{}, &ExecutiveWalletTransaction{},
		&StrategyPool{}, &PoolMember{}, &PoolDistribution{},
		&RevenueSnapshot{},
		&RevenueAdminAction{},
		&ReserveTransaction{},
	)
	// Schema migration failure is unrecoverable; crash the boot.
	utils.ErrorPanic(err)
}

var defaultSeatPercentages = map[ExecutiveRole]decimal.Decimal{
	ExecutiveRolePresident:          decimal.NewFromInt(25),
	ExecutiveRoleVicePresident:      decimal.NewFromInt(15),
	ExecutiveRoleSecretaryGeneral:   decimal.NewFromInt(15),
	ExecutiveRoleTreasurer:          decimal.NewFromInt(15),
	ExecutiveRoleOperationsDirector: decimal.NewFromInt(10),
	ExecutiveRoleTechnologyDirector: decimal.NewFromInt(10),
	ExecutiveRoleLegalAdviser:       decimal.NewFromInt(10),
}

var defaultPoolNames = map[StrategyPoolCode]string{
	StrategyPoolLeadership: "Leadership Pool",
	StrategyPoolState:      "State Pool",
	StrategyPoolDirectors:  "Directors Pool",
	StrategyPoolTechnology: "Technology Pool",
	StrategyPoolInvestors:  "Investors Pool",
}

// SeedDefaults creates the five strategy pools and the seven executive seats
// when missing. Safe to run on every boot; existing rows are left untouched.
func SeedDefaults() {
	db := config.GetDB()

	for _, code := range AllStrategyPoolCodes {
		var count int64
		if err := db.Model(&StrategyPool{}).Where("code = ?", code).Count(&count).Error; err != nil {
			utils.ErrorPanic(err)
		}
		if count > 0 {
			continue
		}
		pool := StrategyPool{
			Code: code,
			Name: defaultPoolNames[code],
			Rate: StrategyPoolRate.Mul(decimal.NewFromInt(100)),
		}
		if err := db.Create(&pool).Error; err != nil {
			utils.ErrorPanic(err)
		}
	}

	for _, role := range AllExecutiveRoles {
		var count int64
		if err := db.Model(&ExecutiveShareholder{}).Where("role = ?", role).Count(&count).Error; err != nil {
			utils.ErrorPanic(err)
		}
		if count > 0 {
			continue
		}
		seat := ExecutiveShareholder{
			Role:       role,
			Percentage: defaultSeatPercentages[role],
		}
		if err := db.Create(&seat).Error; err != nil {
			utils.ErrorPanic(err)
		}
	}
}
