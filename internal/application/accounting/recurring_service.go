package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SchedulerSource names the system actor of automated recurring runs
const SchedulerSource = "recurring-scheduler"

// RecurringService manages recurring templates and executes the due ones
type RecurringService struct {
	recurringRepo  accounting.RecurringEntryRepository
	accountRepo    accounting.AccountRepository
	txScope        TransactionScope
	poster         *JournalPoster
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewRecurringService creates a new RecurringService
func NewRecurringService(
	recurringRepo accounting.RecurringEntryRepository,
	accountRepo accounting.AccountRepository,
	txScope TransactionScope,
	poster *JournalPoster,
	logger *zap.Logger,
) *RecurringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecurringService{
		recurringRepo: recurringRepo,
		accountRepo:   accountRepo,
		txScope:       txScope,
		poster:        poster,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *RecurringService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create validates and stores a template; the first due date follows the start date
func (s *RecurringService) Create(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, req CreateRecurringEntryRequest) (*RecurringEntryResponse, error) {
	lines := toRecurringLines(req.Lines)
	schedule := accounting.Schedule{
		Frequency:  accounting.Frequency(req.Frequency),
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		DayOfMonth: req.DayOfMonth,
		DayOfWeek:  toWeekday(req.DayOfWeek),
	}
	entry, err := accounting.NewRecurringEntry(tenantID, actor, req.Name, req.Description, lines, schedule)
	if err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, tenantID, entry.Name, nil); err != nil {
		return nil, err
	}
	if err := s.checkAccounts(ctx, tenantID, lines); err != nil {
		return nil, err
	}
	if err := s.recurringRepo.Save(ctx, entry); err != nil {
		return nil, err
	}
	response := ToRecurringEntryResponse(entry)
	return &response, nil
}

// Update changes a template; the next date is recomputed when cadence fields change
func (s *RecurringService) Update(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, id uuid.UUID, req UpdateRecurringEntryRequest) (*RecurringEntryResponse, error) {
	entry, err := s.recurringRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	update := accounting.RecurringUpdate{
		Name:        req.Name,
		Description: req.Description,
		Lines:       toRecurringLines(req.Lines),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   toWeekday(req.DayOfWeek),
	}
	if req.Frequency != nil {
		f := accounting.Frequency(*req.Frequency)
		update.Frequency = &f
	}
	oldName := entry.Name
	if err := entry.Apply(actor, update); err != nil {
		return nil, err
	}
	if entry.Name != oldName {
		if err := s.checkName(ctx, tenantID, entry.Name, &entry.ID); err != nil {
			return nil, err
		}
	}
	if update.Lines != nil {
		if err := s.checkAccounts(ctx, tenantID, update.Lines); err != nil {
			return nil, err
		}
	}
	if err := s.recurringRepo.Save(ctx, entry); err != nil {
		return nil, err
	}
	response := ToRecurringEntryResponse(entry)
	return &response, nil
}

func (s *RecurringService) checkName(ctx context.Context, tenantID uuid.UUID, name string, excludeID *uuid.UUID) error {
	existing, err := s.recurringRepo.FindByName(ctx, tenantID, name)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if excludeID != nil && existing.ID == *excludeID {
		return nil
	}
	return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("A recurring entry named %q already exists", name))
}

func (s *RecurringService) checkAccounts(ctx context.Context, tenantID uuid.UUID, lines []accounting.RecurringLine) error {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.AccountID
	}
	found, err := s.accountRepo.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Account %s not found", id))
		}
	}
	return nil
}

// ToggleActive flips the active flag of a template
func (s *RecurringService) ToggleActive(ctx context.Context, tenantID, id uuid.UUID) (*RecurringEntryResponse, error) {
	entry, err := s.recurringRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	entry.ToggleActive()
	if err := s.recurringRepo.Save(ctx, entry); err != nil {
		return nil, err
	}
	response := ToRecurringEntryResponse(entry)
	return &response, nil
}

// Delete removes a template. Entries it generated stay in the journal.
func (s *RecurringService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.recurringRepo.Delete(ctx, tenantID, id)
}

// GetByID returns a template
func (s *RecurringService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*RecurringEntryResponse, error) {
	entry, err := s.recurringRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToRecurringEntryResponse(entry)
	return &response, nil
}

// List returns templates ordered by name
func (s *RecurringService) List(ctx context.Context, tenantID uuid.UUID, filter RecurringListFilter) ([]RecurringEntryResponse, error) {
	domainFilter := accounting.RecurringEntryFilter{
		Filter:   shared.Filter{Page: filter.Page, PageSize: filter.PageSize, Search: filter.Search},
		IsActive: filter.IsActive,
	}
	if filter.Frequency != "" {
		f := accounting.Frequency(filter.Frequency)
		domainFilter.Frequency = &f
	}
	if domainFilter.PageSize > 0 {
		domainFilter.Filter = domainFilter.Normalize()
	}
	entries, err := s.recurringRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	out := make([]RecurringEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToRecurringEntryResponse(&entries[i])
	}
	return out, nil
}

// Upcoming returns active templates due within the next days
func (s *RecurringService) Upcoming(ctx context.Context, tenantID uuid.UUID, days int) ([]RecurringEntryResponse, error) {
	if days <= 0 {
		days = 30
	}
	until := accounting.DayEnd(time.Now().AddDate(0, 0, days))
	entries, err := s.recurringRepo.FindUpcoming(ctx, tenantID, until)
	if err != nil {
		return nil, err
	}
	out := make([]RecurringEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToRecurringEntryResponse(&entries[i])
	}
	return out, nil
}

// ExecuteOne posts the entry of one template dated executionDate and advances its schedule
func (s *RecurringService) ExecuteOne(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, id uuid.UUID, executionDate time.Time) (*JournalEntryResponse, error) {
	var template *accounting.RecurringEntry
	var result PostingResult
	err := s.txScope.Execute(ctx, func(repos LedgerRepositories) error {
		var err error
		template, err = repos.RecurringEntries().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := template.CheckExecutable(executionDate); err != nil {
			return err
		}
		result, err = s.execute(ctx, repos, template, actor, executionDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	PublishEvents(ctx, s.eventPublisher, s.logger, result.Entry, template)
	response := ToJournalEntryResponse(result.Entry)
	return &response, nil
}

// execute posts the template's entry and records the execution. A template
// that already produced an entry for executionDate is left untouched.
func (s *RecurringService) execute(ctx context.Context, repos LedgerRepositories, template *accounting.RecurringEntry, actor shared.Actor, executionDate time.Time) (PostingResult, error) {
	ids := make([]uuid.UUID, len(template.Lines))
	for i, l := range template.Lines {
		ids[i] = l.AccountID
	}
	accounts, err := repos.Accounts().FindByIDs(ctx, template.TenantID, ids)
	if err != nil {
		return PostingResult{}, fmt.Errorf("failed to load accounts: %w", err)
	}
	lines := make([]accounting.LineInput, len(template.Lines))
	for i, l := range template.Lines {
		account, ok := accounts[l.AccountID]
		if !ok {
			return PostingResult{}, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Account %s not found", l.AccountID))
		}
		lines[i] = accounting.LineInput{Account: account, Debit: l.Debit, Credit: l.Credit, Description: l.Description}
	}

	result, err := s.poster.Post(ctx, repos, template.TenantID, actor, PostingRequest{
		Date:        executionDate,
		Description: template.EntryDescription(),
		Lines:       lines,
		IsAutomatic: true,
		Metadata:    template.ExecutionMetadata(),
		SourceKind:  accounting.SourceRecurring,
		SourceID:    template.ID,
	})
	if err != nil || result.Duplicate {
		return result, err
	}
	template.RecordExecution(executionDate, result.Entry.ID)
	if err := repos.RecurringEntries().Save(ctx, template); err != nil {
		return PostingResult{}, err
	}
	return result, nil
}

// ExecuteAllPending runs every active template of the tenant due on or before
// executionDate. Templates past their end date are deactivated; a failing
// template is logged and the run continues. Running twice for the same date
// posts nothing new.
func (s *RecurringService) ExecuteAllPending(ctx context.Context, tenantID uuid.UUID, executionDate time.Time, onlyID *uuid.UUID) (*ExecutionResult, error) {
	due, err := s.recurringRepo.FindDue(ctx, tenantID, accounting.DayEnd(executionDate), onlyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find due recurring entries: %w", err)
	}

	actor := shared.SystemActor(tenantID, SchedulerSource)
	result := &ExecutionResult{
		ExecutionDate: executionDate,
		Entries:       []JournalEntryResponse{},
		Failures:      []ExecutionFailure{},
	}
	for i := range due {
		template := &due[i]
		if template.IsPastEnd(executionDate) {
			template.Deactivate()
			if err := s.recurringRepo.Save(ctx, template); err != nil {
				s.recordFailure(result, template, err)
				continue
			}
			result.Deactivated++
			continue
		}

		var posted PostingResult
		err := s.txScope.Execute(ctx, func(repos LedgerRepositories) error {
			var err error
			posted, err = s.execute(ctx, repos, template, actor, executionDate)
			return err
		})
		if err != nil {
			s.recordFailure(result, template, err)
			continue
		}
		if posted.Duplicate {
			result.Skipped++
			continue
		}
		result.ExecutedCount++
		result.Entries = append(result.Entries, ToJournalEntryResponse(posted.Entry))
		PublishEvents(ctx, s.eventPublisher, s.logger, posted.Entry, template)
	}

	s.logger.Info("recurring entries executed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("execution_date", executionDate.Format("2006-01-02")),
		zap.Int("executed", result.ExecutedCount),
		zap.Int("skipped", result.Skipped),
		zap.Int("deactivated", result.Deactivated),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func (s *RecurringService) recordFailure(result *ExecutionResult, template *accounting.RecurringEntry, err error) {
	s.logger.Error("recurring entry execution failed",
		zap.String("tenant_id", template.TenantID.String()),
		zap.String("recurring_entry_id", template.ID.String()),
		zap.String("name", template.Name),
		zap.Error(err),
	)
	result.Failures = append(result.Failures, ExecutionFailure{
		RecurringEntryID: template.ID,
		Name:             template.Name,
		Error:            err.Error(),
	})
}

// ExecuteDueForAllTenants runs ExecuteAllPending for every tenant with a due
// template. It is the job body of the daily trigger.
func (s *RecurringService) ExecuteDueForAllTenants(ctx context.Context, executionDate time.Time) (map[uuid.UUID]*ExecutionResult, error) {
	tenants, err := s.recurringRepo.TenantsWithDue(ctx, accounting.DayEnd(executionDate))
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants with due entries: %w", err)
	}
	results := make(map[uuid.UUID]*ExecutionResult, len(tenants))
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.ExecuteAllPending(ctx, tenantID, executionDate, nil)
		if err != nil {
			s.logger.Error("recurring run failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		results[tenantID] = res
	}
	return results, nil
}
