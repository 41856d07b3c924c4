package workflow

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("revenue-engine")

type distributionRetryConfig struct {
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func getDistributionRetryConfig() distributionRetryConfig {
	cfg := distributionRetryConfig{
		maxAttempts: 3,
		baseBackoff: 10 * time.Second,
		maxBackoff:  5 * time.Minute,
	}

	if v := os.Getenv("DISTRIBUTION_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.maxAttempts = n
		}
	}
	if v := os.Getenv("DISTRIBUTION_BASE_BACKOFF_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.baseBackoff = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("DISTRIBUTION_MAX_BACKOFF_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.maxBackoff = time.Duration(n) * time.Second
		}
	}

	return cfg
}

func distributionBackoff(attempt int, cfg distributionRetryConfig) time.Duration {
	if attempt <= 0 {
		return cfg.baseBackoff
	}
	// base * 2^(attempt-1), capped.
	exp := float64(attempt - 1)
	delay := time.Duration(float64(cfg.baseBackoff) * math.Pow(2, exp))
	if delay > cfg.maxBackoff {
		return cfg.maxBackoff
	}
	return delay
}

// RunExecutiveDistribution is the single entry point behind both the
// scheduled daily trigger and the manual admin trigger; both get identical
// locking, retry and alerting behavior.
//
// A redis lock keeps concurrent triggers across instances from piling up on
// the DB lock; transient failures retry with doubling backoff; exhaustion is
// journaled as DISTRIBUTION_ERROR under the system actor and escalated to the
// admin alert channels. Allocations stay PENDING across failed runs, so a
// later invocation simply resumes.
func RunExecutiveDistribution(ctx context.Context, logger *logrus.Logger) (*DistributionSummary, error) {
	cfg := getDistributionRetryConfig()

	ctx, span := tracer.Start(ctx, "RunExecutiveDistribution",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("distribution.max_attempts", cfg.maxAttempts)))
	defer span.End()

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "revenue:executive_distribution:run", 10*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			return nil, utils.ErrDistributionInProgress
		}
		if err != nil {
			config.LogError(logger, "distributionRunner.go", "RunExecutiveDistribution", "ObtainLock", nil, err)
			return nil, err
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		summary, err := DistributeExecutivePool(ctx)
		if err == nil {
			logger.WithFields(logrus.Fields{
				"module":                "distributionRunner.go",
				"attempt":               attempt,
				"total_amount":          summary.TotalAmount,
				"recipient_count":       summary.RecipientCount,
				"allocations_processed": summary.AllocationsProcessed,
			}).Info("executive distribution run completed")
			return summary, nil
		}

		lastErr = err
		config.LogError(logger, "distributionRunner.go", "RunExecutiveDistribution",
			fmt.Sprintf("attempt %d/%d", attempt, cfg.maxAttempts), nil, err)

		if attempt < cfg.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(distributionBackoff(attempt, cfg)):
			}
		}
	}

	span.RecordError(lastErr)
	escalateDistributionFailure(ctx, logger, lastErr, cfg.maxAttempts)
	return nil, lastErr
}

// escalateDistributionFailure leaves the durable trace of an exhausted run:
// an audit row first, then the best-effort alert channels.
func escalateDistributionFailure(ctx context.Context, logger *logrus.Logger, runErr error, attempts int) {
	db := config.GetDB()

	description := fmt.Sprintf("Executive pool distribution failed after %d attempts.", attempts)
	auditErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return models.RecordAdminAction(tx, models.AdminActionDistributionError, description, map[string]interface{}{
			"error":    runErr.Error(),
			"attempts": attempts,
		})
	})
	if auditErr != nil {
		config.LogError(logger, "distributionRunner.go", "escalateDistributionFailure", "RecordAdminAction", nil, auditErr)
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	alert := config.AdminAlert{
		ActionType:    string(models.AdminActionDistributionError),
		Description:   description,
		Error:         runErr.Error(),
		Attempts:      attempts,
		CorrelationId: correlationId,
		OccurredAt:    time.Now().UTC(),
	}
	if err := config.PublishAdminAlert(ctx, alert); err != nil {
		config.LogError(logger, "distributionRunner.go", "escalateDistributionFailure", "PublishAdminAlert", alert, err)
	}

	body := fmt.Sprintf("%s\n\nError: %v\n\nPending executive allocations remain queued; re-run the job once the cause is resolved.", description, runErr)
	if err := utils.SendAdminAlertMail("Executive distribution failed", body); err != nil {
		config.LogError(logger, "distributionRunner.go", "escalateDistributionFailure", "SendAdminAlertMail", nil, err)
	}
}
