package workflow

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/shopspring/decimal"
)

// Period validation runs before any database access.
func TestCreateSnapshot_RejectsOutOfRangePeriods(t *testing.T) {
	cases := []struct {
		name  string
		month int
		year  int
	}{
		{"month zero", 0, 2026},
		{"month thirteen", 13, 2026},
		{"year too small", 6, 1999},
		{"year too large", 6, 10000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateSnapshot(context.Background(), tc.month, tc.year)
			if !errors.Is(err, utils.ErrInvalidSnapshotPeriod) {
				t.Fatalf("CreateSnapshot(%d, %d) returned %v, expected ErrInvalidSnapshotPeriod", tc.month, tc.year, err)
			}
		})
	}
}

// SpendFromReserve shares the same pre-database rejection discipline.
func TestSpendFromReserve_RejectsInvalidInput(t *testing.T) {
	if _, err := SpendFromReserve(context.Background(), decimal.NewFromInt(0), "anything"); !errors.Is(err, utils.ErrInvalidAmount) {
		t.Fatalf("zero spend returned %v, expected ErrInvalidAmount", err)
	}
	if _, err := SpendFromReserve(context.Background(), decimal.NewFromInt(100), ""); !errors.Is(err, utils.ErrReasonRequired) {
		t.Fatalf("reasonless spend returned %v, expected ErrReasonRequired", err)
	}
}
