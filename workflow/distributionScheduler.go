package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/sirupsen/logrus"
)

// DistributionScheduler fires the executive distribution run once daily at a
// fixed local hour. Deployments that prefer an external scheduler hit the
// HTTP trigger instead; both paths converge on RunExecutiveDistribution.
type DistributionScheduler struct {
	Logger *logrus.Logger
	AtHour int
}

func NewDistributionScheduler(logger *logrus.Logger, atHour int) *DistributionScheduler {
	return &DistributionScheduler{
		Logger: logger,
		AtHour: atHour,
	}
}

func (s *DistributionScheduler) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		wait := time.Until(s.nextRun(time.Now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if _, err := RunExecutiveDistribution(ctx, s.Logger); err != nil {
			if err == utils.ErrDistributionInProgress {
				s.Logger.WithField("module", "distributionScheduler.go").
					Info("skipping scheduled run; another instance holds the lock")
				continue
			}
			// Already escalated by the runner; nothing more to do here.
			config.LogError(s.Logger, "distributionScheduler.go", "Run", "RunExecutiveDistribution", nil, err)
		}
	}
}

func (s *DistributionScheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.AtHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
