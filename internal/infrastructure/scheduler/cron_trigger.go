package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	RunHour   int
	RunMinute int
	Location  *time.Location

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// CronTriggerConfigFrom builds the trigger configuration; the location was
// validated when the configuration was loaded.
func CronTriggerConfigFrom(cfg config.SchedulerConfig) (CronTriggerConfig, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return CronTriggerConfig{}, fmt.Errorf("%w: location %q", ErrInvalidConfig, cfg.Location)
	}
	return CronTriggerConfig{
		RunHour:       cfg.RunHour,
		RunMinute:     cfg.RunMinute,
		Location:      loc,
		CheckInterval: time.Minute,
	}, nil
}

// CronTrigger submits the daily recurring entry run. When several ledger
// instances share a lock store only the first to claim a date runs it.
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	locks     shared.IdempotencyStore
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger. locks may be nil.
func NewCronTrigger(cfg CronTriggerConfig, scheduler *Scheduler, locks shared.IdempotencyStore, logger *zap.Logger) *CronTrigger {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	return &CronTrigger{
		config:    cfg,
		scheduler: scheduler,
		locks:     locks,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("run_hour", c.config.RunHour),
		zap.Int("run_minute", c.config.RunMinute),
		zap.String("location", c.config.Location.String()),
	)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger submits today's run once the configured time has passed.
// Catching up after the minute mark covers restarts during the run window.
func (c *CronTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.now().In(c.config.Location)
	today := now.Format(time.DateOnly)

	c.mu.Lock()
	if c.lastRunDate == today {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	runAt := time.Date(now.Year(), now.Month(), now.Day(), c.config.RunHour, c.config.RunMinute, 0, 0, c.config.Location)
	if now.Before(runAt) {
		return false
	}

	if c.locks != nil {
		claimed, err := c.locks.MarkProcessed(ctx, "recurring-run:"+today, 26*time.Hour)
		if err != nil {
			c.logger.Warn("Failed to claim daily run, running anyway", zap.Error(err))
		} else if !claimed {
			c.markRan(today)
			c.logger.Debug("Daily run already claimed by another instance", zap.String("date", today))
			return false
		}
	}

	executionDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if _, err := c.scheduler.ScheduleRecurringRun(nil, executionDate); err != nil {
		c.logger.Error("Failed to schedule daily recurring run", zap.Error(err))
		if c.locks != nil {
			_ = c.locks.Unmark(ctx, "recurring-run:"+today)
		}
		return false
	}
	c.markRan(today)
	c.logger.Info("Daily recurring run scheduled", zap.String("date", today))
	return true
}

func (c *CronTrigger) markRan(date string) {
	c.mu.Lock()
	c.lastRunDate = date
	c.mu.Unlock()
}

// TriggerNow queues a run outside the daily schedule. A nil tenant runs every
// tenant with due templates.
func (c *CronTrigger) TriggerNow(tenantID *uuid.UUID, executionDate time.Time) (*Job, error) {
	return c.scheduler.ScheduleRecurringRun(tenantID, executionDate)
}
