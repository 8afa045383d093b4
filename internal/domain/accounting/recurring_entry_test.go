package accounting

import (
	"testing"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func weekdayPtr(d time.Weekday) *time.Weekday { return &d }

func TestNextExecutionDate(t *testing.T) {
	tests := []struct {
		name       string
		base       time.Time
		freq       Frequency
		dayOfMonth *int
		dayOfWeek  *time.Weekday
		expected   time.Time
	}{
		{"monthly keeps day", day(2026, 1, 15), FrequencyMonthly, nil, nil, day(2026, 2, 15)},
		{"monthly clamps to month end", day(2026, 1, 31), FrequencyMonthly, nil, nil, day(2026, 2, 28)},
		{"monthly lands on day of month", day(2026, 1, 3), FrequencyMonthly, intPtr(10), nil, day(2026, 2, 10)},
		{"monthly caps day at 28", day(2026, 1, 3), FrequencyMonthly, intPtr(31), nil, day(2026, 2, 28)},
		{"quarterly", day(2026, 1, 15), FrequencyQuarterly, nil, nil, day(2026, 4, 15)},
		{"quarterly with day", day(2026, 1, 15), FrequencyQuarterly, intPtr(30), nil, day(2026, 4, 28)},
		{"yearly", day(2026, 3, 1), FrequencyYearly, nil, nil, day(2027, 3, 1)},
		{"yearly from leap day", day(2028, 2, 29), FrequencyYearly, nil, nil, day(2029, 2, 28)},
		{"weekly", day(2026, 3, 4), FrequencyWeekly, nil, nil, day(2026, 3, 11)},
		// 2026-03-04 is a Wednesday; +7 is Wednesday 11th, Monday of that Sunday-based week is the 9th
		{"weekly on monday", day(2026, 3, 4), FrequencyWeekly, nil, weekdayPtr(time.Monday), day(2026, 3, 9)},
		{"weekly on saturday", day(2026, 3, 4), FrequencyWeekly, nil, weekdayPtr(time.Saturday), day(2026, 3, 14)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NextExecutionDate(tc.base, tc.freq, tc.dayOfMonth, tc.dayOfWeek)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func rentLines() []RecurringLine {
	expense, cash := uuid.New(), uuid.New()
	return []RecurringLine{
		{AccountID: expense, Debit: dec("1500")},
		{AccountID: cash, Credit: dec("1500")},
	}
}

func TestNewRecurringEntry(t *testing.T) {
	tenantID := uuid.New()
	actor := testActor(tenantID)
	schedule := Schedule{Frequency: FrequencyMonthly, StartDate: day(2026, 1, 1), DayOfMonth: intPtr(5)}

	t.Run("computes first execution from start date", func(t *testing.T) {
		r, err := NewRecurringEntry(tenantID, actor, "Alquiler", "Pago de alquiler", rentLines(), schedule)
		require.NoError(t, err)
		assert.Equal(t, day(2026, 2, 5), r.NextExecutionDate)
		assert.True(t, r.IsActive)
		assert.Equal(t, 0, r.ExecutionCount)
	})

	t.Run("rejects unbalanced template", func(t *testing.T) {
		lines := rentLines()
		lines[1].Credit = dec("1499.98")
		_, err := NewRecurringEntry(tenantID, actor, "Alquiler", "Pago", lines, schedule)
		assert.Equal(t, "UNBALANCED_ENTRY", shared.CodeOf(err))
	})

	t.Run("tolerates one cent drift", func(t *testing.T) {
		lines := rentLines()
		lines[1].Credit = dec("1499.99")
		_, err := NewRecurringEntry(tenantID, actor, "Alquiler", "Pago", lines, schedule)
		assert.NoError(t, err)
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		_, err := NewRecurringEntry(tenantID, actor, "Alquiler", "Pago", rentLines(), Schedule{Frequency: "daily", StartDate: day(2026, 1, 1)})
		assert.Equal(t, "INVALID_FREQUENCY", shared.CodeOf(err))
	})

	t.Run("rejects end before start", func(t *testing.T) {
		end := day(2025, 1, 1)
		_, err := NewRecurringEntry(tenantID, actor, "Alquiler", "Pago", rentLines(), Schedule{Frequency: FrequencyMonthly, StartDate: day(2026, 1, 1), EndDate: &end})
		assert.Equal(t, "INVALID_DATE_RANGE", shared.CodeOf(err))
	})
}

func TestRecurringEntry_Execution(t *testing.T) {
	tenantID := uuid.New()
	end := day(2026, 6, 30)
	r, err := NewRecurringEntry(tenantID, testActor(tenantID), "Alquiler", "Pago de alquiler", rentLines(),
		Schedule{Frequency: FrequencyMonthly, StartDate: day(2026, 1, 1), EndDate: &end})
	require.NoError(t, err)

	assert.Equal(t, "OUT_OF_RANGE", shared.CodeOf(r.CheckExecutable(day(2025, 12, 31))))
	assert.Equal(t, "OUT_OF_RANGE", shared.CodeOf(r.CheckExecutable(day(2026, 7, 1))))
	assert.NoError(t, r.CheckExecutable(day(2026, 6, 30)))
	assert.True(t, r.IsPastEnd(day(2026, 7, 1)))

	meta := r.ExecutionMetadata()
	assert.Equal(t, r.ID.String(), meta[MetaRecurringEntryID])
	assert.Equal(t, 1, meta[MetaExecutionCount])
	assert.Equal(t, "monthly", meta[MetaFrequency])
	assert.Equal(t, "Pago de alquiler (Asiento Recurrente)", r.EntryDescription())

	entryID := uuid.New()
	executed := day(2026, 2, 20)
	r.RecordExecution(executed, entryID)
	assert.Equal(t, 1, r.ExecutionCount)
	assert.Equal(t, executed, *r.LastExecutionDate)
	assert.Equal(t, day(2026, 3, 20), r.NextExecutionDate, "next date advances from the executed date")
	assert.Equal(t, []uuid.UUID{entryID}, r.GeneratedEntries)

	assert.False(t, r.IsDue(day(2026, 3, 19)))
	assert.True(t, r.IsDue(day(2026, 3, 20)))

	r.ToggleActive()
	assert.Equal(t, "RECURRING_INACTIVE", shared.CodeOf(r.CheckExecutable(day(2026, 3, 20))))
	assert.False(t, r.IsDue(day(2026, 3, 20)))
}

func TestRecurringEntry_Apply(t *testing.T) {
	tenantID := uuid.New()
	actor := testActor(tenantID)
	r, err := NewRecurringEntry(tenantID, actor, "Alquiler", "Pago", rentLines(),
		Schedule{Frequency: FrequencyMonthly, StartDate: day(2026, 1, 10)})
	require.NoError(t, err)

	name := "Alquiler oficina"
	require.NoError(t, r.Apply(actor, RecurringUpdate{Name: &name}))
	assert.Equal(t, "Alquiler oficina", r.Name)
	assert.Equal(t, day(2026, 2, 10), r.NextExecutionDate, "name change keeps the schedule")

	freq := FrequencyQuarterly
	require.NoError(t, r.Apply(actor, RecurringUpdate{Frequency: &freq}))
	assert.Equal(t, day(2026, 4, 10), r.NextExecutionDate)

	r.RecordExecution(day(2026, 4, 12), uuid.New())
	dom := 1
	require.NoError(t, r.Apply(actor, RecurringUpdate{DayOfMonth: &dom}))
	assert.Equal(t, day(2026, 7, 1), r.NextExecutionDate, "recomputed from last execution")

	bad := rentLines()
	bad[0].Debit = dec("1")
	assert.Error(t, r.Apply(actor, RecurringUpdate{Lines: bad}))
}
