package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/infrastructure/cache"
	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func caracas(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Caracas")
	require.NoError(t, err)
	return loc
}

func TestCronTriggerConfigFrom(t *testing.T) {
	cfg, err := CronTriggerConfigFrom(config.SchedulerConfig{RunHour: 1, RunMinute: 30, Location: "America/Caracas"})
	require.NoError(t, err)
	assert.Equal(t, "America/Caracas", cfg.Location.String())
	assert.Equal(t, time.Minute, cfg.CheckInterval)

	_, err = CronTriggerConfigFrom(config.SchedulerConfig{Location: "Nowhere/City"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCronTrigger_CheckAndTrigger(t *testing.T) {
	loc := caracas(t)
	executor := &scriptedExecutor{}
	s, finished := startScheduler(t, testOptions(), executor)
	trigger := NewCronTrigger(CronTriggerConfig{RunHour: 1, RunMinute: 0, Location: loc}, s, nil, zap.NewNop())
	ctx := context.Background()

	trigger.now = func() time.Time { return time.Date(2026, time.March, 15, 0, 59, 0, 0, loc) }
	assert.False(t, trigger.checkAndTrigger(ctx), "too early")

	trigger.now = func() time.Time { return time.Date(2026, time.March, 15, 1, 0, 0, 0, loc) }
	assert.True(t, trigger.checkAndTrigger(ctx))
	assert.False(t, trigger.checkAndTrigger(ctx), "once per day")

	job := waitFinished(t, finished)
	assert.Nil(t, job.TenantID)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), job.ExecutionDate)

	trigger.now = func() time.Time { return time.Date(2026, time.March, 16, 9, 0, 0, 0, loc) }
	assert.True(t, trigger.checkAndTrigger(ctx), "catches up later the next day")
}

func TestCronTrigger_UsesLocalDate(t *testing.T) {
	loc := caracas(t)
	s, finished := startScheduler(t, testOptions(), &scriptedExecutor{})
	trigger := NewCronTrigger(CronTriggerConfig{RunHour: 22, Location: loc}, s, nil, zap.NewNop())
	// 02:30 UTC on the 1st is 22:30 on the 31st in Caracas
	trigger.now = func() time.Time { return time.Date(2026, time.April, 1, 2, 30, 0, 0, time.UTC) }

	require.True(t, trigger.checkAndTrigger(context.Background()))
	job := waitFinished(t, finished)
	assert.Equal(t, 31, job.ExecutionDate.Day())
	assert.Equal(t, time.March, job.ExecutionDate.Month())
}

func TestCronTrigger_SharedLockRunsOnce(t *testing.T) {
	loc := caracas(t)
	locks := cache.NewInMemoryIdempotencyStore()
	defer locks.Close()

	executor := &scriptedExecutor{}
	s, finished := startScheduler(t, testOptions(), executor)
	now := func() time.Time { return time.Date(2026, time.March, 15, 2, 0, 0, 0, loc) }

	first := NewCronTrigger(CronTriggerConfig{RunHour: 1, Location: loc}, s, locks, zap.NewNop())
	second := NewCronTrigger(CronTriggerConfig{RunHour: 1, Location: loc}, s, locks, zap.NewNop())
	first.now, second.now = now, now

	assert.True(t, first.checkAndTrigger(context.Background()))
	assert.False(t, second.checkAndTrigger(context.Background()))
	waitFinished(t, finished)
	assert.Equal(t, 1, executor.callCount())
}

func TestCronTrigger_StartStop(t *testing.T) {
	s, _ := startScheduler(t, testOptions(), &scriptedExecutor{})
	trigger := NewCronTrigger(CronTriggerConfig{}, s, nil, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) ExecuteAllPending(ctx context.Context, tenantID uuid.UUID, executionDate time.Time, onlyID *uuid.UUID) (*accounting.ExecutionResult, error) {
	args := m.Called(ctx, tenantID, executionDate, onlyID)
	res, _ := args.Get(0).(*accounting.ExecutionResult)
	return res, args.Error(1)
}

func (m *mockRunner) ExecuteDueForAllTenants(ctx context.Context, executionDate time.Time) (map[uuid.UUID]*accounting.ExecutionResult, error) {
	args := m.Called(ctx, executionDate)
	res, _ := args.Get(0).(map[uuid.UUID]*accounting.ExecutionResult)
	return res, args.Error(1)
}

func TestRecurringJobExecutor(t *testing.T) {
	date := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	tenantID := uuid.New()

	t.Run("single tenant", func(t *testing.T) {
		runner := new(mockRunner)
		runner.On("ExecuteAllPending", mock.Anything, tenantID, date, (*uuid.UUID)(nil)).
			Return(&accounting.ExecutionResult{ExecutedCount: 2}, nil)

		err := NewRecurringJobExecutor(runner, zap.NewNop()).Execute(context.Background(), NewJob(&tenantID, date, 0))
		require.NoError(t, err)
		runner.AssertExpectations(t)
	})

	t.Run("every tenant", func(t *testing.T) {
		runner := new(mockRunner)
		runner.On("ExecuteDueForAllTenants", mock.Anything, date).
			Return(map[uuid.UUID]*accounting.ExecutionResult{tenantID: {ExecutedCount: 1}}, nil)

		err := NewRecurringJobExecutor(runner, zap.NewNop()).Execute(context.Background(), NewJob(nil, date, 0))
		require.NoError(t, err)
		runner.AssertNotCalled(t, "ExecuteAllPending", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("run failure is returned", func(t *testing.T) {
		runner := new(mockRunner)
		runner.On("ExecuteDueForAllTenants", mock.Anything, date).Return(nil, context.DeadlineExceeded)

		err := NewRecurringJobExecutor(runner, zap.NewNop()).Execute(context.Background(), NewJob(nil, date, 0))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
