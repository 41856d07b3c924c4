package reports

import (
	"fmt"

	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"github.com/xuri/excelize/v2"
)

// ExportSnapshotExcel renders one monthly snapshot as an xlsx workbook:
// a header, the per-source buckets, and the per-destination totals.
func ExportSnapshotExcel(snapshot *models.RevenueSnapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Snapshot"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	f.SetCellValue(sheet, "A1", "Period")
	f.SetCellValue(sheet, "B1", fmt.Sprintf("%04d-%02d", snapshot.Year, snapshot.Month))
	f.SetCellValue(sheet, "A2", "Total Revenue")
	f.SetCellValue(sheet, "B2", snapshot.TotalRevenue.String())
	f.SetCellValue(sheet, "A3", "Transactions")
	f.SetCellValue(sheet, "B3", snapshot.TransactionCount)
	f.SetCellValue(sheet, "A4", "Distributed")
	f.SetCellValue(sheet, "B4", snapshot.DistributedTotal.String())

	f.SetCellValue(sheet, "A6", "Revenue Source")
	f.SetCellValue(sheet, "B6", "Total")
	sourceTotals := [][2]string{
		{string(models.RevenueSourceCommunitySupport), snapshot.CommunitySupportTotal.String()},
		{string(models.RevenueSourceMembershipRegistration), snapshot.MembershipRegistrationTotal.String()},
		{string(models.RevenueSourceMembershipRenewal), snapshot.MembershipRenewalTotal.String()},
		{string(models.RevenueSourceStorePurchase), snapshot.StorePurchaseTotal.String()},
		{string(models.RevenueSourceWithdrawalFee), snapshot.WithdrawalFeeTotal.String()},
		{string(models.RevenueSourceYoutubeSubscription), snapshot.YoutubeSubscriptionTotal.String()},
		{string(models.RevenueSourceThirdPartyServices), snapshot.ThirdPartyServicesTotal.String()},
		{string(models.RevenueSourcePalliativeProgram), snapshot.PalliativeProgramTotal.String()},
		{string(models.RevenueSourceLeadershipPoolFee), snapshot.LeadershipPoolFeeTotal.String()},
		{string(models.RevenueSourceTrainingCenter), snapshot.TrainingCenterTotal.String()},
		{string(models.RevenueSourceOther), snapshot.OtherTotal.String()},
	}
	row := 7
	for _, entry := range sourceTotals {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry[1])
		row++
	}

	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Destination")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "Total")
	row++
	destinationTotals := [][2]string{
		{string(models.AllocationDestinationCompanyReserve), snapshot.CompanyReserveTotal.String()},
		{string(models.AllocationDestinationExecutivePool), snapshot.ExecutivePoolTotal.String()},
		{string(models.AllocationDestinationStrategyPool), snapshot.StrategyPoolTotal.String()},
	}
	for _, entry := range destinationTotals {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry[1])
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SnapshotObjectName is the archive key used when a rendered snapshot is
// uploaded to the report bucket.
func SnapshotObjectName(snapshot *models.RevenueSnapshot) string {
	return fmt.Sprintf("snapshots/%04d-%02d.xlsx", snapshot.Year, snapshot.Month)
}
