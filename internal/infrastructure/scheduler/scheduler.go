package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one run of the recurring entry generator for an execution date
type Job struct {
	ID            uuid.UUID
	TenantID      *uuid.UUID // nil means every tenant with due templates
	ExecutionDate time.Time
	Status        JobStatus
	Error         string
	StartedAt     *time.Time
	CompletedAt   *time.Time
	RetryCount    int
	MaxRetries    int
}

// NewJob creates a pending job
func NewJob(tenantID *uuid.UUID, executionDate time.Time, maxRetries int) *Job {
	return &Job{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ExecutionDate: executionDate,
		Status:        JobStatusPending,
		MaxRetries:    maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

func (j *Job) fields() []zap.Field {
	scope := "all"
	if j.TenantID != nil {
		scope = j.TenantID.String()
	}
	return []zap.Field{
		zap.String("job_id", j.ID.String()),
		zap.String("tenant_scope", scope),
		zap.String("execution_date", j.ExecutionDate.Format(time.DateOnly)),
	}
}

// JobExecutor runs a job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// JobObserver is notified when a job reaches a final state
type JobObserver func(job *Job)

// Options holds scheduler tuning derived from configuration
type Options struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OptionsFromConfig maps the scheduler section of the configuration
func OptionsFromConfig(cfg config.SchedulerConfig) Options {
	return Options{
		Workers:       1,
		QueueSize:     16,
		JobTimeout:    cfg.JobTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	}
}

func (o Options) validate() error {
	if o.Workers <= 0 || o.QueueSize <= 0 || o.JobTimeout <= 0 || o.RetryAttempts < 0 || o.RetryDelay < 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidConfig, o)
	}
	return nil
}

// Scheduler runs submitted jobs on a worker pool and retries failures after
// a delay.
type Scheduler struct {
	opts     Options
	executor JobExecutor
	logger   *zap.Logger
	observer JobObserver

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	retries   map[uuid.UUID]*time.Timer
}

// NewScheduler creates a new scheduler instance
func NewScheduler(opts Options, executor JobExecutor, logger *zap.Logger) (*Scheduler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		opts:     opts,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, opts.QueueSize),
		retries:  make(map[uuid.UUID]*time.Timer),
	}, nil
}

// OnFinished registers an observer for final job states
func (s *Scheduler) OnFinished(observer JobObserver) {
	s.observer = observer
}

// Start launches the workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.isRunning = true

	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.opts.Workers),
		zap.Duration("job_timeout", s.opts.JobTimeout),
		zap.Int("retry_attempts", s.opts.RetryAttempts),
	)
	return nil
}

// Stop cancels pending retries and waits for running jobs
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	for id, timer := range s.retries {
		timer.Stop()
		delete(s.retries, id)
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(job)
}

func (s *Scheduler) enqueueLocked(job *Job) error {
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted", job.fields()...)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleRecurringRun queues a run of the recurring generator
func (s *Scheduler) ScheduleRecurringRun(tenantID *uuid.UUID, executionDate time.Time) (*Job, error) {
	job := NewJob(tenantID, executionDate, s.opts.RetryAttempts)
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start()
	fields := append(job.fields(), zap.Int("worker_id", workerID), zap.Int("attempt", job.RetryCount+1))
	s.logger.Info("Processing job", fields...)

	jobCtx, cancel := context.WithTimeout(ctx, s.opts.JobTimeout)
	err := s.executor.Execute(jobCtx, job)
	cancel()

	if err == nil {
		job.Complete()
		s.logger.Info("Job completed", fields...)
		s.finished(job)
		return
	}

	job.Fail(err.Error())
	s.logger.Error("Job failed", append(fields, zap.Error(err))...)

	if !job.ShouldRetry() || ctx.Err() != nil {
		s.finished(job)
		return
	}
	s.scheduleRetry(job)
}

func (s *Scheduler) scheduleRetry(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}

	job.RetryCount++
	s.retries[job.ID] = time.AfterFunc(s.opts.RetryDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.retries, job.ID)
		job.Status = JobStatusPending
		if err := s.enqueueLocked(job); err != nil {
			s.logger.Warn("Failed to re-queue job for retry", append(job.fields(), zap.Error(err))...)
		}
	})
	s.logger.Info("Job scheduled for retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Duration("delay", s.opts.RetryDelay),
	)
}

func (s *Scheduler) finished(job *Job) {
	if s.observer != nil {
		s.observer(job)
	}
}
