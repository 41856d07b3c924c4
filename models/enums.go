package models

import (
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
)

type RevenueSource string

const (
	RevenueSourceCommunitySupport       RevenueSource = "COMMUNITY_SUPPORT"
	RevenueSourceMembershipRegistration RevenueSource = "MEMBERSHIP_REGISTRATION"
	RevenueSourceMembershipRenewal      RevenueSource = "MEMBERSHIP_RENEWAL"
	RevenueSourceStorePurchase          RevenueSource = "STORE_PURCHASE"
	RevenueSourceWithdrawalFee          RevenueSource = "WITHDRAWAL_FEE"
	RevenueSourceYoutubeSubscription    RevenueSource = "YOUTUBE_SUBSCRIPTION"
	RevenueSourceThirdPartyServices     RevenueSource = "THIRD_PARTY_SERVICES"
	RevenueSourcePalliativeProgram      RevenueSource = "PALLIATIVE_PROGRAM"
	RevenueSourceLeadershipPoolFee      RevenueSource = "LEADERSHIP_POOL_FEE"
	RevenueSourceTrainingCenter         RevenueSource = "TRAINING_CENTER"
	RevenueSourceOther                  RevenueSource = "OTHER"
)

// AllRevenueSources is the canonical order used by snapshots and reports.
var AllRevenueSources = []RevenueSource{
	RevenueSourceCommunitySupport,
	RevenueSourceMembershipRegistration,
	RevenueSourceMembershipRenewal,
	RevenueSourceStorePurchase,
	RevenueSourceWithdrawalFee,
	RevenueSourceYoutubeSubscription,
	RevenueSourceThirdPartyServices,
	RevenueSourcePalliativeProgram,
	RevenueSourceLeadershipPoolFee,
	RevenueSourceTrainingCenter,
	RevenueSourceOther,
}

func (s RevenueSource) IsValid() bool {
	for _, v := range AllRevenueSources {
		if s == v {
			return true
		}
	}
	return false
}

func ParseRevenueSource(str string) (RevenueSource, error) {
	s := RevenueSource(str)
	if !s.IsValid() {
		return "", utils.ErrInvalidRevenueSource
	}
	return s, nil
}

type AllocationDestinationType string

const (
	AllocationDestinationCompanyReserve AllocationDestinationType = "COMPANY_RESERVE"
	AllocationDestinationExecutivePool  AllocationDestinationType = "EXECUTIVE_POOL"
	AllocationDestinationStrategyPool   AllocationDestinationType = "STRATEGY_POOL"
)

func (t AllocationDestinationType) IsValid() bool {
	switch t {
	case AllocationDestinationCompanyReserve, AllocationDestinationExecutivePool, AllocationDestinationStrategyPool:
		return true
	}
	return false
}

type AllocationStatus string

const (
	AllocationStatusPending     AllocationStatus = "PENDING"
	AllocationStatusDistributed AllocationStatus = "DISTRIBUTED"
)

func (s AllocationStatus) IsValid() bool {
	return s == AllocationStatusPending || s == AllocationStatusDistributed
}

type DistributionStatus string

const (
	DistributionStatusCompleted DistributionStatus = "COMPLETED"
)

type WalletTransactionType string

const (
	WalletTransactionTypeDistribution WalletTransactionType = "DISTRIBUTION"
	WalletTransactionTypeWithdrawal   WalletTransactionType = "WITHDRAWAL"
)

type ExecutiveRole string

const (
	ExecutiveRolePresident           ExecutiveRole = "PRESIDENT"
	ExecutiveRoleVicePresident       ExecutiveRole = "VICE_PRESIDENT"
	ExecutiveRoleSecretaryGeneral    ExecutiveRole = "SECRETARY_GENERAL"
	ExecutiveRoleTreasurer           ExecutiveRole = "TREASURER"
	ExecutiveRoleOperationsDirector  ExecutiveRole = "OPERATIONS_DIRECTOR"
	ExecutiveRoleTechnologyDirector  ExecutiveRole = "TECHNOLOGY_DIRECTOR"
	ExecutiveRoleLegalAdviser        ExecutiveRole = "LEGAL_ADVISER"
)

var AllExecutiveRoles = []ExecutiveRole{
	ExecutiveRolePresident,
	ExecutiveRoleVicePresident,
	ExecutiveRoleSecretaryGeneral,
	ExecutiveRoleTreasurer,
	ExecutiveRoleOperationsDirector,
	ExecutiveRoleTechnologyDirector,
	ExecutiveRoleLegalAdviser,
}

func (r ExecutiveRole) IsValid() bool {
	for _, v := range AllExecutiveRoles {
		if r == v {
			return true
		}
	}
	return false
}

type StrategyPoolCode string

const (
	StrategyPoolLeadership StrategyPoolCode = "LEADERSHIP"
	StrategyPoolState      StrategyPoolCode = "STATE"
	StrategyPoolDirectors  StrategyPoolCode = "DIRECTORS"
	StrategyPoolTechnology StrategyPoolCode = "TECHNOLOGY"
	StrategyPoolInvestors  StrategyPoolCode = "INVESTORS"
)

var AllStrategyPoolCodes = []StrategyPoolCode{
	StrategyPoolLeadership,
	StrategyPoolState,
	StrategyPoolDirectors,
	StrategyPoolTechnology,
	StrategyPoolInvestors,
}

type AdminActionType string

const (
	AdminActionAssignExecutive   AdminActionType = "ASSIGN_EXECUTIVE"
	AdminActionRemoveExecutive   AdminActionType = "REMOVE_EXECUTIVE"
	AdminActionAddPoolMember     AdminActionType = "ADD_POOL_MEMBER"
	AdminActionRemovePoolMember  AdminActionType = "REMOVE_POOL_MEMBER"
	AdminActionDistributePool    AdminActionType = "DISTRIBUTE_POOL"
	AdminActionSpendFromReserve  AdminActionType = "SPEND_FROM_RESERVE"
	AdminActionManualAllocation  AdminActionType = "MANUAL_ALLOCATION"
	AdminActionDistributionError AdminActionType = "DISTRIBUTION_ERROR"
)

// Split rates. The sum of all seven shares is exactly 100% of the recorded
// amount; rounding residue folds into the company reserve row.
var (
	CompanyReserveRate = decimal.NewFromFloat(0.50)
	ExecutivePoolRate  = decimal.NewFromFloat(0.30)
	StrategyPoolRate   = decimal.NewFromFloat(0.04)
)
