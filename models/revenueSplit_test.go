package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitRevenueAmount_StandardAmounts(t *testing.T) {
	cases := []struct {
		in            string
		reserve       string
		executive     string
		strategyShare string
	}{
		{"10000", "5000", "3000", "400"},
		{"100", "50", "30", "4"},
		{"1", "0.5", "0.3", "0.04"},
		{"2500.50", "1250.25", "750.15", "100.02"},
		{"999999.99", "499999.99", "300000", "40000"},
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.in)
		split := SplitRevenueAmount(amount)
		if split.CompanyReserve.String() != tc.reserve {
			t.Fatalf("SplitRevenueAmount(%s) reserve expected %s, got %s", tc.in, tc.reserve, split.CompanyReserve)
		}
		if split.ExecutivePool.String() != tc.executive {
			t.Fatalf("SplitRevenueAmount(%s) executive expected %s, got %s", tc.in, tc.executive, split.ExecutivePool)
		}
		if split.StrategyShare.String() != tc.strategyShare {
			t.Fatalf("SplitRevenueAmount(%s) strategy share expected %s, got %s", tc.in, tc.strategyShare, split.StrategyShare)
		}
	}
}

// The reserve row absorbs rounding residue, so the parts must always sum back
// to the original amount exactly regardless of how awkward the input is.
func TestSplitRevenueAmount_PartsSumExactly(t *testing.T) {
	cases := []string{
		"0.01", "0.03", "0.07", "0.99",
		"1.11", "33.33", "100.01", "12345.67",
		"0.10", "7777.77", "1000000.13",
	}
	poolCount := decimal.NewFromInt(int64(len(AllStrategyPoolCodes)))
	for _, in := range cases {
		amount := decimal.RequireFromString(in)
		split := SplitRevenueAmount(amount)
		sum := split.CompanyReserve.
			Add(split.ExecutivePool).
			Add(split.StrategyShare.Mul(poolCount))
		if !sum.Equal(amount) {
			t.Fatalf("split of %s sums to %s (reserve=%s executive=%s share=%s)",
				in, sum, split.CompanyReserve, split.ExecutivePool, split.StrategyShare)
		}
	}
}

func TestBuildAllocations_RowShape(t *testing.T) {
	pools := make([]*StrategyPool, 0, len(AllStrategyPoolCodes))
	for i, code := range AllStrategyPoolCodes {
		pools = append(pools, &StrategyPool{ID: i + 1, Code: code, Rate: StrategyPoolRate.Mul(decimal.NewFromInt(100))})
	}

	amount := decimal.RequireFromString("10000")
	allocations := BuildAllocations(42, amount, pools)

	wantRows := 2 + len(pools)
	if len(allocations) != wantRows {
		t.Fatalf("expected %d allocation rows, got %d", wantRows, len(allocations))
	}

	byDest := map[AllocationDestinationType]int{}
	sum := decimal.Zero
	for _, a := range allocations {
		if a.RevenueTransactionId != 42 {
			t.Fatalf("allocation carries transaction id %d, expected 42", a.RevenueTransactionId)
		}
		if a.Status != AllocationStatusPending {
			t.Fatalf("new allocation has status %s, expected %s", a.Status, AllocationStatusPending)
		}
		if a.DistributedAt != nil {
			t.Fatalf("new allocation already has distributed_at set")
		}
		byDest[a.DestinationType]++
		sum = sum.Add(a.Amount)

		if a.DestinationType == AllocationDestinationStrategyPool && a.DestinationId == nil {
			t.Fatalf("strategy pool allocation missing destination id")
		}
		if a.DestinationType != AllocationDestinationStrategyPool && a.DestinationId != nil {
			t.Fatalf("%s allocation unexpectedly carries destination id %d", a.DestinationType, *a.DestinationId)
		}
	}

	if byDest[AllocationDestinationCompanyReserve] != 1 {
		t.Fatalf("expected exactly one company reserve row, got %d", byDest[AllocationDestinationCompanyReserve])
	}
	if byDest[AllocationDestinationExecutivePool] != 1 {
		t.Fatalf("expected exactly one executive pool row, got %d", byDest[AllocationDestinationExecutivePool])
	}
	if byDest[AllocationDestinationStrategyPool] != len(pools) {
		t.Fatalf("expected %d strategy pool rows, got %d", len(pools), byDest[AllocationDestinationStrategyPool])
	}
	if !sum.Equal(amount) {
		t.Fatalf("allocation rows sum to %s, expected %s", sum, amount)
	}

	// Pool rows keep the caller's ordering, one per pool.
	seenPools := map[int]bool{}
	for _, a := range allocations {
		if a.DestinationType != AllocationDestinationStrategyPool {
			continue
		}
		if seenPools[*a.DestinationId] {
			t.Fatalf("pool %d received two allocation rows", *a.DestinationId)
		}
		seenPools[*a.DestinationId] = true
	}
}

func TestSplitRates_CoverWholeAmount(t *testing.T) {
	total := CompanyReserveRate.
		Add(ExecutivePoolRate).
		Add(StrategyPoolRate.Mul(decimal.NewFromInt(int64(len(AllStrategyPoolCodes)))))
	if !total.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("split rates sum to %s, expected 1", total)
	}
}
