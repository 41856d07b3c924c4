package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"bitbucket.org/mmdatafocus/revenue_backend/workflow"
	"github.com/shopspring/decimal"
)

// End-to-end ledger flow against a real MySQL.
//
// Usage (requires Docker): INTEGRATION_TESTS=1 go test ./workflow -run RevenueLedger -v

func TestRevenueLedgerEndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "revenue_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
	models.SeedDefaults()

	ctx = utils.SetAdminIdInContext(ctx, "admin-1")
	ctx = utils.SetAdminNameInContext(ctx, "Test Admin")

	logger := config.GetLogger()

	// Only the president seat staffed for now; the executive pool must hold
	// until the whole board is assigned.
	_, err := workflow.AssignExecutive(ctx, workflow.AssignExecutiveInput{
		Role:     models.AllExecutiveRoles[0],
		UserId:   "user-1",
		UserName: "Member 1",
	})
	if err != nil {
		t.Fatalf("AssignExecutive(%s): %v", models.AllExecutiveRoles[0], err)
	}

	sourceId := "evt-10001"
	txn, err := workflow.RecordRevenue(ctx, models.NewRevenueTransaction{
		Source:      models.RevenueSourceCommunitySupport,
		Amount:      decimal.RequireFromString("10000"),
		SourceId:    &sourceId,
		Description: "integration test event",
	})
	if err != nil {
		t.Fatalf("RecordRevenue: %v", err)
	}
	if len(txn.Allocations) != 2+len(models.AllStrategyPoolCodes) {
		t.Fatalf("RecordRevenue created %d allocations, expected %d", len(txn.Allocations), 2+len(models.AllStrategyPoolCodes))
	}

	// Replay of the same external event must fail and write nothing.
	_, err = workflow.RecordRevenue(ctx, models.NewRevenueTransaction{
		Source:      models.RevenueSourceCommunitySupport,
		Amount:      decimal.RequireFromString("10000"),
		SourceId:    &sourceId,
		Description: "duplicate replay",
	})
	if err != utils.ErrDuplicateRevenueSource {
		t.Fatalf("duplicate RecordRevenue returned %v, expected ErrDuplicateRevenueSource", err)
	}

	// With six seats vacant a run must pay nothing and keep the allocation
	// pending; the vacant seats' share is money, not forfeit.
	summary, err := workflow.RunExecutiveDistribution(ctx, logger)
	if err != nil {
		t.Fatalf("RunExecutiveDistribution with vacant seats: %v", err)
	}
	if summary.AllocationsProcessed != 0 {
		t.Fatalf("vacant-seat run processed %d allocations, expected 0", summary.AllocationsProcessed)
	}
	partial, err := models.GetPayableShareholders(ctx)
	if err != nil {
		t.Fatalf("GetPayableShareholders: %v", err)
	}
	for _, s := range partial {
		if !s.CurrentBalance.IsZero() {
			t.Fatalf("vacant-seat run credited %s to %s", s.CurrentBalance, s.Role)
		}
	}

	// Staff the rest of the board.
	for i, role := range models.AllExecutiveRoles[1:] {
		_, err := workflow.AssignExecutive(ctx, workflow.AssignExecutiveInput{
			Role:     role,
			UserId:   fmt.Sprintf("user-%d", i+2),
			UserName: fmt.Sprintf("Member %d", i+2),
		})
		if err != nil {
			t.Fatalf("AssignExecutive(%s): %v", role, err)
		}
	}

	summary, err = workflow.RunExecutiveDistribution(ctx, logger)
	if err != nil {
		t.Fatalf("RunExecutiveDistribution: %v", err)
	}
	if summary.AllocationsProcessed != 1 {
		t.Fatalf("first run processed %d allocations, expected 1", summary.AllocationsProcessed)
	}
	if !summary.TotalAmount.Equal(decimal.RequireFromString("3000")) {
		t.Fatalf("first run distributed %s, expected 3000", summary.TotalAmount)
	}
	if summary.RecipientCount != len(models.AllExecutiveRoles) {
		t.Fatalf("first run paid %d recipients, expected %d", summary.RecipientCount, len(models.AllExecutiveRoles))
	}

	// Idempotence: nothing new pending, second run pays nothing.
	summary, err = workflow.RunExecutiveDistribution(ctx, logger)
	if err != nil {
		t.Fatalf("second RunExecutiveDistribution: %v", err)
	}
	if summary.AllocationsProcessed != 0 {
		t.Fatalf("second run processed %d allocations, expected 0", summary.AllocationsProcessed)
	}

	shareholders, err := models.GetPayableShareholders(ctx)
	if err != nil {
		t.Fatalf("GetPayableShareholders: %v", err)
	}
	credited := decimal.Zero
	for _, s := range shareholders {
		credited = credited.Add(s.CurrentBalance)
	}
	if !credited.Equal(decimal.RequireFromString("3000")) {
		t.Fatalf("total credited %s, expected 3000", credited)
	}

	// Reserve balance: the 50% cut minus nothing spent yet.
	balance, err := models.GetReserveBalance(config.GetDB().WithContext(ctx))
	if err != nil {
		t.Fatalf("GetReserveBalance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("reserve balance %s, expected 5000", balance)
	}

	if _, err := workflow.SpendFromReserve(ctx, decimal.RequireFromString("1200"), "office rent"); err != nil {
		t.Fatalf("SpendFromReserve: %v", err)
	}
	if _, err := workflow.SpendFromReserve(ctx, decimal.RequireFromString("4000"), "over budget"); err != utils.ErrInsufficientBalance {
		t.Fatalf("overdraw returned %v, expected ErrInsufficientBalance", err)
	}

	// Racing spends must serialize on the balance check: of four concurrent
	// 1500 spends against the remaining 3800, exactly two can clear.
	var wg sync.WaitGroup
	raceErrs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, raceErrs[i] = workflow.SpendFromReserve(ctx, decimal.RequireFromString("1500"), fmt.Sprintf("racing spend %d", i))
		}(i)
	}
	wg.Wait()
	succeeded := 0
	for _, raceErr := range raceErrs {
		switch raceErr {
		case nil:
			succeeded++
		case utils.ErrInsufficientBalance:
		default:
			t.Fatalf("racing spend: %v", raceErr)
		}
	}
	if succeeded != 2 {
		t.Fatalf("%d racing spends cleared, expected 2", succeeded)
	}
	balance, err = models.GetReserveBalance(config.GetDB().WithContext(ctx))
	if err != nil {
		t.Fatalf("GetReserveBalance after racing spends: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("800")) {
		t.Fatalf("reserve balance %s after racing spends, expected 800", balance)
	}

	report, err := workflow.VerifyInvariants(ctx)
	if err != nil {
		t.Fatalf("VerifyInvariants: %v", err)
	}
	if len(report.Violations) != 0 {
		t.Fatalf("invariant violations: %v", report.Violations)
	}

	now := time.Now().UTC()
	snapshot, err := workflow.CreateSnapshot(ctx, int(now.Month()), now.Year())
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if !snapshot.TotalRevenue.Equal(decimal.RequireFromString("10000")) {
		t.Fatalf("snapshot total %s, expected 10000", snapshot.TotalRevenue)
	}
	if _, err := workflow.CreateSnapshot(ctx, int(now.Month()), now.Year()); err != utils.ErrSnapshotAlreadyExists {
		t.Fatalf("repeat CreateSnapshot returned %v, expected ErrSnapshotAlreadyExists", err)
	}

	// Manual entry posts the ledger writes and the audit row in one
	// transaction; a duplicate replay leaves no stray audit row behind.
	manualSource := "manual-20001"
	manualTxn, err := workflow.ManualAllocation(ctx, models.NewRevenueTransaction{
		Source:      models.RevenueSourceOther,
		Amount:      decimal.RequireFromString("2500"),
		SourceId:    &manualSource,
		Description: "manual correction entry",
	})
	if err != nil {
		t.Fatalf("ManualAllocation: %v", err)
	}
	if len(manualTxn.Allocations) != 2+len(models.AllStrategyPoolCodes) {
		t.Fatalf("ManualAllocation created %d allocations, expected %d", len(manualTxn.Allocations), 2+len(models.AllStrategyPoolCodes))
	}
	if _, err := workflow.ManualAllocation(ctx, models.NewRevenueTransaction{
		Source:      models.RevenueSourceOther,
		Amount:      decimal.RequireFromString("2500"),
		SourceId:    &manualSource,
		Description: "manual correction replay",
	}); err != utils.ErrDuplicateRevenueSource {
		t.Fatalf("duplicate ManualAllocation returned %v, expected ErrDuplicateRevenueSource", err)
	}

	actions, err := models.GetAdminActions(ctx, 500)
	if err != nil {
		t.Fatalf("GetAdminActions: %v", err)
	}
	manualAudits := 0
	for _, a := range actions {
		if a.ActionType == models.AdminActionManualAllocation {
			manualAudits++
		}
	}
	if manualAudits != 1 {
		t.Fatalf("%d MANUAL_ALLOCATION audit rows, expected exactly 1", manualAudits)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("revenue-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("revenue-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=revenue_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
