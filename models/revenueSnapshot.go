package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"github.com/shopspring/decimal"
)

// RevenueSnapshot is an immutable monthly rollup keyed by (month, year). One
// decimal bucket per revenue source, plus per-destination totals and the
// amount already distributed as of snapshot time. Never mutated after insert;
// re-creation of a period is rejected, not upserted.
type RevenueSnapshot struct {
	ID    int `gorm:"primary_key" json:"id"`
	Month int `gorm:"not null;index:uniq_snapshot_period,unique,priority:1" json:"month"`
	Year  int `gorm:"not null;index:uniq_snapshot_period,unique,priority:2" json:"year"`

	TotalRevenue     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_revenue"`
	TransactionCount int             `gorm:"not null;default:0" json:"transaction_count"`

	CommunitySupportTotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"community_support_total"`
	MembershipRegistrationTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"membership_registration_total"`
	MembershipRenewalTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"membership_renewal_total"`
	StorePurchaseTotal          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"store_purchase_total"`
	WithdrawalFeeTotal          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"withdrawal_fee_total"`
	YoutubeSubscriptionTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"youtube_subscription_total"`
	ThirdPartyServicesTotal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"third_party_services_total"`
	PalliativeProgramTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"palliative_program_total"`
	LeadershipPoolFeeTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"leadership_pool_fee_total"`
	TrainingCenterTotal         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"training_center_total"`
	OtherTotal                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"other_total"`

	CompanyReserveTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"company_reserve_total"`
	ExecutivePoolTotal  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"executive_pool_total"`
	StrategyPoolTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"strategy_pool_total"`
	DistributedTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"distributed_total"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SetSourceTotal routes a per-source aggregate into its bucket column.
func (s *RevenueSnapshot) SetSourceTotal(source RevenueSource, total decimal.Decimal) {
	switch source {
	case RevenueSourceCommunitySupport:
		s.CommunitySupportTotal = total
	case RevenueSourceMembershipRegistration:
		s.MembershipRegistrationTotal = total
	case RevenueSourceMembershipRenewal:
		s.MembershipRenewalTotal = total
	case RevenueSourceStorePurchase:
		s.StorePurchaseTotal = total
	case RevenueSourceWithdrawalFee:
		s.WithdrawalFeeTotal = total
	case RevenueSourceYoutubeSubscription:
		s.YoutubeSubscriptionTotal = total
	case RevenueSourceThirdPartyServices:
		s.ThirdPartyServicesTotal = total
	case RevenueSourcePalliativeProgram:
		s.PalliativeProgramTotal = total
	case RevenueSourceLeadershipPoolFee:
		s.LeadershipPoolFeeTotal = total
	case RevenueSourceTrainingCenter:
		s.TrainingCenterTotal = total
	case RevenueSourceOther:
		s.OtherTotal = total
	}
}

func GetSnapshots(ctx context.Context, limit int) ([]*RevenueSnapshot, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&RevenueSnapshot{}).
		Order("year DESC, month DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var snapshots []*RevenueSnapshot
	if err := q.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func GetSnapshotById(ctx context.Context, id int) (*RevenueSnapshot, error) {
	db := config.GetDB()
	var snapshot RevenueSnapshot
	if err := db.WithContext(ctx).First(&snapshot, id).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}
