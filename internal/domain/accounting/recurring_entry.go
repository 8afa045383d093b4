package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is the cadence of a recurring entry
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// IsValid checks if the frequency is known
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

func (f Frequency) String() string { return string(f) }

// maxScheduledDay caps dayOfMonth so every month has the target day
const maxScheduledDay = 28

// RecurringLine is a template line; the date is bound at execution time
type RecurringLine struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Schedule is the cadence part of a recurring entry
type Schedule struct {
	Frequency  Frequency
	StartDate  time.Time
	EndDate    *time.Time
	DayOfMonth *int
	DayOfWeek  *time.Weekday
}

// Validate checks the schedule fields
func (s Schedule) Validate() error {
	if !s.Frequency.IsValid() {
		return shared.NewDomainError("INVALID_FREQUENCY", fmt.Sprintf("Unknown frequency %q", s.Frequency))
	}
	if s.StartDate.IsZero() {
		return shared.NewDomainError("REQUIRED_FIELD", "Start date is required")
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return shared.NewDomainError("INVALID_DATE_RANGE", "End date must not be before start date")
	}
	if s.DayOfMonth != nil && (*s.DayOfMonth < 1 || *s.DayOfMonth > 31) {
		return shared.NewDomainError("INVALID_INPUT", "Day of month must be between 1 and 31")
	}
	if s.DayOfWeek != nil && (*s.DayOfWeek < time.Sunday || *s.DayOfWeek > time.Saturday) {
		return shared.NewDomainError("INVALID_INPUT", "Day of week must be between 0 (Sunday) and 6 (Saturday)")
	}
	return nil
}

// Next computes the execution date following base
func (s Schedule) Next(base time.Time) time.Time {
	return NextExecutionDate(base, s.Frequency, s.DayOfMonth, s.DayOfWeek)
}

// NextExecutionDate advances base by one cadence step. Month-based cadences
// land on dayOfMonth capped at 28; weekly lands on dayOfWeek inside the
// Sunday-based week reached by adding seven days.
func NextExecutionDate(base time.Time, frequency Frequency, dayOfMonth *int, dayOfWeek *time.Weekday) time.Time {
	switch frequency {
	case FrequencyWeekly:
		next := base.AddDate(0, 0, 7)
		if dayOfWeek != nil {
			next = next.AddDate(0, 0, int(*dayOfWeek)-int(next.Weekday()))
		}
		return next
	case FrequencyMonthly:
		next := addMonths(base, 1)
		if dayOfMonth != nil {
			return withDay(next, min(*dayOfMonth, maxScheduledDay))
		}
		return next
	case FrequencyQuarterly:
		next := addMonths(base, 3)
		if dayOfMonth != nil {
			return withDay(next, min(*dayOfMonth, maxScheduledDay))
		}
		return next
	case FrequencyYearly:
		next := addMonths(base, 12)
		if dayOfMonth != nil {
			return withDay(next, min(*dayOfMonth, maxScheduledDay))
		}
		return next
	}
	return base
}

// addMonths adds n months, clamping to the last day of the target month
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return withDay(first, min(d, last))
}

func withDay(t time.Time, day int) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// RecurringEntry is a template that spawns journal entries on a cadence
type RecurringEntry struct {
	shared.TenantAggregateRoot
	Name              string
	Description       string
	Lines             []RecurringLine
	Schedule          Schedule
	LastExecutionDate *time.Time
	NextExecutionDate time.Time
	ExecutionCount    int
	IsActive          bool
	GeneratedEntries  []uuid.UUID
	UpdatedBy         *uuid.UUID
}

// NewRecurringEntry validates the template and computes the first due date
func NewRecurringEntry(tenantID uuid.UUID, actor shared.Actor, name, description string, lines []RecurringLine, schedule Schedule) (*RecurringEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("REQUIRED_FIELD", "Recurring entry name is required")
	}
	if strings.TrimSpace(description) == "" {
		return nil, shared.NewDomainError("REQUIRED_FIELD", "Recurring entry description is required")
	}
	if err := ValidateTemplateLines(lines); err != nil {
		return nil, err
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	r := &RecurringEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRootForActor(tenantID, actor),
		Name:                name,
		Description:         strings.TrimSpace(description),
		Lines:               lines,
		Schedule:            schedule,
		NextExecutionDate:   schedule.Next(schedule.StartDate),
		IsActive:            true,
	}
	return r, nil
}

// ValidateTemplateLines checks that template lines exist and balance within 0.01
func ValidateTemplateLines(lines []RecurringLine) error {
	if len(lines) < 2 {
		return shared.NewDomainError("INVALID_INPUT", "Recurring entry needs at least two lines")
	}
	var debits, credits decimal.Decimal
	for i, l := range lines {
		if l.AccountID == uuid.Nil {
			return shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d has no account", i+1))
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Line %d has a negative amount", i+1))
		}
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	if !valueobject.WithinTolerance(debits, credits, valueobject.ManualTolerance) {
		return NewUnbalancedEntryError(debits, credits)
	}
	if debits.IsZero() {
		return ErrEmptyEntry
	}
	return nil
}

// RecurringUpdate holds optional changes to a template
type RecurringUpdate struct {
	Name        *string
	Description *string
	Lines       []RecurringLine
	Frequency   *Frequency
	StartDate   *time.Time
	EndDate     *time.Time
	DayOfMonth  *int
	DayOfWeek   *time.Weekday
}

func (u RecurringUpdate) touchesSchedule() bool {
	return u.Frequency != nil || u.StartDate != nil || u.DayOfMonth != nil || u.DayOfWeek != nil
}

// Apply updates the template; the next date is recomputed from the last
// execution (or the start date) when cadence fields change
func (r *RecurringEntry) Apply(actor shared.Actor, u RecurringUpdate) error {
	if u.Lines != nil {
		if err := ValidateTemplateLines(u.Lines); err != nil {
			return err
		}
		r.Lines = u.Lines
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		r.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil && strings.TrimSpace(*u.Description) != "" {
		r.Description = strings.TrimSpace(*u.Description)
	}
	sched := r.Schedule
	if u.Frequency != nil {
		sched.Frequency = *u.Frequency
	}
	if u.StartDate != nil {
		sched.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		end := *u.EndDate
		sched.EndDate = &end
	}
	if u.DayOfMonth != nil {
		sched.DayOfMonth = u.DayOfMonth
	}
	if u.DayOfWeek != nil {
		sched.DayOfWeek = u.DayOfWeek
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	r.Schedule = sched
	if u.touchesSchedule() {
		base := sched.StartDate
		if r.LastExecutionDate != nil {
			base = *r.LastExecutionDate
		}
		r.NextExecutionDate = sched.Next(base)
	}
	r.UpdatedBy = actor.UserIDPtr()
	r.Touch()
	return nil
}

// ToggleActive flips the active flag
func (r *RecurringEntry) ToggleActive() {
	r.IsActive = !r.IsActive
	r.Touch()
}

// Deactivate marks the template inactive
func (r *RecurringEntry) Deactivate() {
	r.IsActive = false
	r.Touch()
}

// CheckExecutable validates that the template may run on executionDate
func (r *RecurringEntry) CheckExecutable(executionDate time.Time) error {
	if !r.IsActive {
		return shared.NewDomainError("RECURRING_INACTIVE", fmt.Sprintf("Recurring entry %q is inactive", r.Name))
	}
	if executionDate.Before(DayStart(r.Schedule.StartDate)) {
		return shared.NewDomainError("OUT_OF_RANGE", "Execution date is before the start date")
	}
	if r.IsPastEnd(executionDate) {
		return shared.NewDomainError("OUT_OF_RANGE", "Execution date is after the end date")
	}
	return nil
}

// IsPastEnd reports whether executionDate falls after the end date
func (r *RecurringEntry) IsPastEnd(executionDate time.Time) bool {
	return r.Schedule.EndDate != nil && executionDate.After(DayEnd(*r.Schedule.EndDate))
}

// IsDue reports whether the template should run on executionDate
func (r *RecurringEntry) IsDue(executionDate time.Time) bool {
	return r.IsActive && !r.NextExecutionDate.After(executionDate)
}

// EntryDescription is the description of generated journal entries
func (r *RecurringEntry) EntryDescription() string {
	return r.Description + " (Asiento Recurrente)"
}

// ExecutionMetadata tags a generated entry with the template that produced it.
// executionCount is the count after this execution.
func (r *RecurringEntry) ExecutionMetadata() map[string]any {
	return map[string]any{
		MetaRecurringEntryID:   r.ID.String(),
		MetaRecurringEntryName: r.Name,
		MetaExecutionCount:     r.ExecutionCount + 1,
		MetaFrequency:          string(r.Schedule.Frequency),
	}
}

// RecordExecution advances the schedule from the executed date
func (r *RecurringEntry) RecordExecution(executionDate time.Time, entryID uuid.UUID) {
	d := executionDate
	r.LastExecutionDate = &d
	r.ExecutionCount++
	r.NextExecutionDate = r.Schedule.Next(executionDate)
	r.GeneratedEntries = append(r.GeneratedEntries, entryID)
	r.Touch()
	r.AddDomainEvent(NewRecurringEntryExecutedEvent(r, entryID, executionDate))
}
