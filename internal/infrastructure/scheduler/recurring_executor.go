package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fiscal/internal/application/accounting"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecurringRunner is the part of the recurring entry service the scheduler drives
type RecurringRunner interface {
	ExecuteAllPending(ctx context.Context, tenantID uuid.UUID, executionDate time.Time, onlyID *uuid.UUID) (*accounting.ExecutionResult, error)
	ExecuteDueForAllTenants(ctx context.Context, executionDate time.Time) (map[uuid.UUID]*accounting.ExecutionResult, error)
}

// RecurringJobExecutor posts due recurring entries for a job's scope
type RecurringJobExecutor struct {
	runner RecurringRunner
	logger *zap.Logger
}

// NewRecurringJobExecutor creates the executor
func NewRecurringJobExecutor(runner RecurringRunner, logger *zap.Logger) *RecurringJobExecutor {
	return &RecurringJobExecutor{runner: runner, logger: logger}
}

// Execute runs the generator. Individual template failures are reported in
// the result and logged; only a failure of the whole run is returned.
func (e *RecurringJobExecutor) Execute(ctx context.Context, job *Job) error {
	if job.TenantID != nil {
		result, err := e.runner.ExecuteAllPending(ctx, *job.TenantID, job.ExecutionDate, nil)
		if err != nil {
			return fmt.Errorf("recurring run for tenant %s: %w", job.TenantID, err)
		}
		e.logResult(*job.TenantID, result)
		return nil
	}

	results, err := e.runner.ExecuteDueForAllTenants(ctx, job.ExecutionDate)
	if err != nil {
		return fmt.Errorf("recurring run: %w", err)
	}
	for tenantID, result := range results {
		e.logResult(tenantID, result)
	}
	return nil
}

func (e *RecurringJobExecutor) logResult(tenantID uuid.UUID, result *accounting.ExecutionResult) {
	e.logger.Info("Recurring entries executed",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("executed", result.ExecutedCount),
		zap.Int("skipped", result.Skipped),
		zap.Int("deactivated", result.Deactivated),
		zap.Int("failed", len(result.Failures)),
	)
	for _, f := range result.Failures {
		e.logger.Warn("Recurring entry not executed",
			zap.String("tenant_id", tenantID.String()),
			zap.Any("failure", f),
		)
	}
}
