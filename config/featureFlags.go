package config

import (
	"os"
	"strconv"
	"strings"
)

// DistributionSchedulerEnabled turns on the in-process daily trigger for the
// executive pool distribution. Deployments driven by an external scheduler
// (Cloud Scheduler hitting POST /jobs/distribute-executive) leave this off.
//
// Set via env:
// - ENABLE_DISTRIBUTION_SCHEDULER=true
func DistributionSchedulerEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ENABLE_DISTRIBUTION_SCHEDULER")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DistributeAtHour is the local wall-clock hour (0-23) the in-process
// scheduler fires at. Defaults to 01:00.
func DistributeAtHour() int {
	v := strings.TrimSpace(os.Getenv("DISTRIBUTE_AT_HOUR"))
	if v == "" {
		return 1
	}
	h, err := strconv.Atoi(v)
	if err != nil || h < 0 || h > 23 {
		return 1
	}
	return h
}
