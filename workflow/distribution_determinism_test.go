package workflow

import (
	"errors"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// distribution semantics:
// - a run pays each pending allocation exactly once (status flip gates replay)
// - a failed run leaves everything pending, so a retry resumes cleanly
// - per-seat shares follow the seat percentage and sum back to the pool amount
// - a board with vacant seats pays nothing; allocations wait for full coverage
//
// Full DB integration tests should be added in an environment that can run
// MySQL (see INTEGRATION_TESTS gating in the models package tests).

type fakeSeat struct {
	id         int
	percentage decimal.Decimal
	balance    decimal.Decimal
	assigned   bool
}

type fakeLedger struct {
	mu          sync.Mutex
	pending     []decimal.Decimal
	distributed []decimal.Decimal
	seats       []*fakeSeat
	payouts     int
}

func newFakeLedger(percentages []string) *fakeLedger {
	l := &fakeLedger{}
	for i, p := range percentages {
		l.seats = append(l.seats, &fakeSeat{id: i + 1, percentage: decimal.RequireFromString(p), assigned: true})
	}
	return l
}

func (l *fakeLedger) record(amount string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	split := models.SplitRevenueAmount(decimal.RequireFromString(amount))
	l.pending = append(l.pending, split.ExecutivePool)
}

// distribute mirrors DistributeExecutivePool: all-or-nothing, the pending set
// clears only when every payout succeeded, and a board whose assigned seats
// do not cover 100% of the pool pays nothing.
func (l *fakeLedger) distribute(failMidRun bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return 0, nil
	}

	hundred := decimal.NewFromInt(100)

	var payable []*fakeSeat
	assignedPct := decimal.Zero
	for _, seat := range l.seats {
		if seat.assigned {
			payable = append(payable, seat)
			assignedPct = assignedPct.Add(seat.percentage)
		}
	}
	if !assignedPct.Equal(hundred) {
		return 0, nil
	}
	type payout struct {
		seat  *fakeSeat
		share decimal.Decimal
	}
	var payouts []payout
	for i, amount := range l.pending {
		if failMidRun && i == len(l.pending)/2 {
			// Roll back: no seat balance was touched yet.
			return 0, errors.New("simulated write failure")
		}
		for _, seat := range payable {
			payouts = append(payouts, payout{seat: seat, share: amount.Mul(seat.percentage).Div(hundred).Round(2)})
		}
	}

	for _, p := range payouts {
		p.seat.balance = p.seat.balance.Add(p.share)
		l.payouts++
	}
	processed := len(l.pending)
	l.distributed = append(l.distributed, l.pending...)
	l.pending = nil
	return processed, nil
}

func (l *fakeLedger) totalBalance() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range l.seats {
		sum = sum.Add(s.balance)
	}
	return sum
}

var seatPercentages = []string{"25", "15", "15", "15", "10", "10", "10"}

func TestDistribution_SecondRunIsNoOp(t *testing.T) {
	l := newFakeLedger(seatPercentages)
	l.record("10000")
	l.record("5000")

	processed, err := l.distribute(false)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if processed != 2 {
		t.Fatalf("first run processed %d allocations, expected 2", processed)
	}

	processed, err = l.distribute(false)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if processed != 0 {
		t.Fatalf("second run processed %d allocations, expected 0", processed)
	}

	// 30% of 15000.
	want := decimal.RequireFromString("4500")
	if !l.totalBalance().Equal(want) {
		t.Fatalf("total credited %s, expected %s", l.totalBalance(), want)
	}
}

func TestDistribution_FailedRunLeavesPendingThenResumes(t *testing.T) {
	l := newFakeLedger(seatPercentages)
	l.record("10000")
	l.record("10000")
	l.record("10000")

	if _, err := l.distribute(true); err == nil {
		t.Fatalf("expected simulated failure")
	}
	if got := l.totalBalance(); !got.IsZero() {
		t.Fatalf("failed run credited %s, expected nothing", got)
	}
	if len(l.pending) != 3 {
		t.Fatalf("failed run consumed allocations: %d pending, expected 3", len(l.pending))
	}

	processed, err := l.distribute(false)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if processed != 3 {
		t.Fatalf("retry processed %d allocations, expected 3", processed)
	}
	want := decimal.RequireFromString("9000")
	if !l.totalBalance().Equal(want) {
		t.Fatalf("total credited %s after retry, expected %s", l.totalBalance(), want)
	}
}

func TestDistribution_ConcurrentTriggersPayOnce(t *testing.T) {
	l := newFakeLedger(seatPercentages)
	for i := 0; i < 10; i++ {
		l.record("1000")
	}

	var wg sync.WaitGroup
	totals := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			processed, _ := l.distribute(false)
			totals[i] = processed
		}(i)
	}
	wg.Wait()

	sum := 0
	for _, n := range totals {
		sum += n
	}
	if sum != 10 {
		t.Fatalf("concurrent runs processed %d allocations total, expected 10", sum)
	}
	// 30% of 10000.
	want := decimal.RequireFromString("3000")
	if !l.totalBalance().Equal(want) {
		t.Fatalf("total credited %s, expected %s", l.totalBalance(), want)
	}
}

func TestDistribution_VacantSeatsHoldTheWholePool(t *testing.T) {
	l := newFakeLedger(seatPercentages)
	for _, seat := range l.seats {
		seat.assigned = false
	}
	l.seats[0].assigned = true // 25% seat only

	l.record("10000") // executive pool share: 3000

	processed, err := l.distribute(false)
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if processed != 0 {
		t.Fatalf("partially assigned board consumed %d allocations, expected 0", processed)
	}
	if len(l.pending) != 1 {
		t.Fatalf("%d allocations pending, expected 1", len(l.pending))
	}
	if got := l.totalBalance(); !got.IsZero() {
		t.Fatalf("partially assigned board credited %s, expected nothing", got)
	}

	// Once every seat is staffed the held allocation pays out in full.
	for _, seat := range l.seats {
		seat.assigned = true
	}
	processed, err = l.distribute(false)
	if err != nil {
		t.Fatalf("distribute after full assignment failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("full board processed %d allocations, expected 1", processed)
	}
	want := decimal.RequireFromString("3000")
	if !l.totalBalance().Equal(want) {
		t.Fatalf("total credited %s, expected %s", l.totalBalance(), want)
	}
	if got := l.seats[0].balance; !got.Equal(decimal.RequireFromString("750")) {
		t.Fatalf("25%% seat credited %s, expected 750", got)
	}
}

func TestDistribution_SeatSharesMatchPercentages(t *testing.T) {
	l := newFakeLedger(seatPercentages)
	l.record("10000") // executive pool share: 3000

	if _, err := l.distribute(false); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}

	expected := []string{"750", "450", "450", "450", "300", "300", "300"}
	for i, seat := range l.seats {
		want := decimal.RequireFromString(expected[i])
		if !seat.balance.Equal(want) {
			t.Fatalf("seat %d (%s%%) credited %s, expected %s", seat.id, seat.percentage, seat.balance, want)
		}
	}
}
