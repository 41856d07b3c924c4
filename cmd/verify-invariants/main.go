package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/workflow"
)

// Checks the standing ledger invariants and exits non-zero on any violation.
// Intended for cron or a pre-deploy gate.
func main() {
	config.ConnectDatabaseWithRetry()

	report, err := workflow.VerifyInvariants(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invariant check failed to run: %v\n", err)
		os.Exit(2)
	}

	if len(report.Violations) == 0 {
		fmt.Printf("ok: no violations (checked at %s)\n", report.CheckedAt)
		return
	}

	fmt.Fprintf(os.Stderr, "%d violation(s) found at %s:\n", len(report.Violations), report.CheckedAt)
	for _, v := range report.Violations {
		fmt.Fprintf(os.Stderr, "  - %s\n", v)
	}
	os.Exit(1)
}
