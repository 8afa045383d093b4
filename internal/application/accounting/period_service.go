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

// PeriodService manages accounting periods and their closing
type PeriodService struct {
	periodRepo     accounting.AccountingPeriodRepository
	journalRepo    accounting.JournalEntryRepository
	txScope        TransactionScope
	poster         *JournalPoster
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(
	periodRepo accounting.AccountingPeriodRepository,
	journalRepo accounting.JournalEntryRepository,
	txScope TransactionScope,
	poster *JournalPoster,
	logger *zap.Logger,
) *PeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{
		periodRepo:  periodRepo,
		journalRepo: journalRepo,
		txScope:     txScope,
		poster:      poster,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *PeriodService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create opens a new period. Names are unique and ranges may not overlap.
func (s *PeriodService) Create(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, req CreatePeriodRequest) (*PeriodResponse, error) {
	period, err := accounting.NewAccountingPeriod(tenantID, actor, req.Name, req.StartDate, req.EndDate, req.FiscalYear)
	if err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, tenantID, period.Name, nil); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, tenantID, period.StartDate, period.EndDate, nil); err != nil {
		return nil, err
	}
	if err := s.periodRepo.Save(ctx, period); err != nil {
		return nil, err
	}
	PublishEvents(ctx, s.eventPublisher, s.logger, period)

	response := ToPeriodResponse(period)
	return &response, nil
}

// Update changes name, dates or fiscal year of an open period
func (s *PeriodService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdatePeriodRequest) (*PeriodResponse, error) {
	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	oldName := period.Name
	if err := period.Reschedule(req.Name, req.StartDate, req.EndDate, req.FiscalYear); err != nil {
		return nil, err
	}
	if period.Name != oldName {
		if err := s.checkName(ctx, tenantID, period.Name, &period.ID); err != nil {
			return nil, err
		}
	}
	if err := s.checkOverlap(ctx, tenantID, period.StartDate, period.EndDate, &period.ID); err != nil {
		return nil, err
	}
	if err := s.periodRepo.Save(ctx, period); err != nil {
		return nil, err
	}
	response := ToPeriodResponse(period)
	return &response, nil
}

func (s *PeriodService) checkName(ctx context.Context, tenantID uuid.UUID, name string, excludeID *uuid.UUID) error {
	existing, err := s.periodRepo.FindByName(ctx, tenantID, name)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if excludeID != nil && existing.ID == *excludeID {
		return nil
	}
	return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("A period named %q already exists", name))
}

func (s *PeriodService) checkOverlap(ctx context.Context, tenantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) error {
	overlapping, err := s.periodRepo.FindOverlapping(ctx, tenantID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check period overlap: %w", err)
	}
	if len(overlapping) > 0 {
		return shared.NewDomainError("PERIOD_OVERLAP",
			fmt.Sprintf("Period overlaps with %s (%s - %s)", overlapping[0].Name,
				overlapping[0].StartDate.Format("2006-01-02"), overlapping[0].EndDate.Format("2006-01-02")))
	}
	return nil
}

// Close computes revenue and expenses of the period, posts the closing entry
// into retained earnings and freezes the period, all in one transaction
func (s *PeriodService) Close(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, id uuid.UUID, notes string) (*PeriodResponse, error) {
	var period *accounting.AccountingPeriod
	var closing *accounting.JournalEntry
	err := s.txScope.Execute(ctx, func(repos LedgerRepositories) error {
		var err error
		period, err = repos.Periods().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !period.Status.CanClose() {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close period in %s status", period.Status))
		}

		entries, err := repos.JournalEntries().FindInRange(ctx, tenantID, &period.StartDate, &period.EndDate)
		if err != nil {
			return fmt.Errorf("failed to load period entries: %w", err)
		}
		types, err := accountTypesOf(ctx, repos.Accounts(), tenantID, entries)
		if err != nil {
			return err
		}
		totals := accounting.ComputeClosingTotals(entries, types)

		resolved, err := ResolveSystemAccounts(ctx, repos.Accounts(), tenantID, accounting.IncomeSummary, accounting.RetainedEarnings)
		if err != nil {
			return err
		}
		result, err := s.poster.Post(ctx, repos, tenantID, actor, PostingRequest{
			Date:              period.EndDate,
			Description:       period.ClosingDescription(),
			Lines:             accounting.ClosingLines(totals.NetIncome, resolved[0], resolved[1]),
			IsAutomatic:       true,
			Metadata:          map[string]any{accounting.MetaPeriodID: period.ID.String()},
			SourceKind:        accounting.SourceClosing,
			SourceID:          period.ID,
			AllowClosedPeriod: true,
		})
		if err != nil {
			return err
		}
		closing = result.Entry

		if err := period.Close(actor, totals, closing.ID, notes); err != nil {
			return err
		}
		return repos.Periods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("accounting period closed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("period", period.Name),
		zap.String("net_income", period.NetIncome.StringFixed(2)),
		zap.String("closing_entry_id", closing.ID.String()),
	)
	PublishEvents(ctx, s.eventPublisher, s.logger, closing, period)

	response := ToPeriodResponse(period)
	return &response, nil
}

func accountTypesOf(ctx context.Context, accounts accounting.AccountRepository, tenantID uuid.UUID, entries []accounting.JournalEntry) (map[uuid.UUID]accounting.AccountType, error) {
	seen := map[uuid.UUID]struct{}{}
	ids := []uuid.UUID{}
	for _, e := range entries {
		for _, l := range e.Lines {
			if _, ok := seen[l.AccountID]; !ok {
				seen[l.AccountID] = struct{}{}
				ids = append(ids, l.AccountID)
			}
		}
	}
	found, err := accounts.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	types := make(map[uuid.UUID]accounting.AccountType, len(found))
	for id, a := range found {
		types[id] = a.Type
	}
	return types, nil
}

// Lock makes a closed period reject every posting until unlocked
func (s *PeriodService) Lock(ctx context.Context, tenantID, id uuid.UUID) (*PeriodResponse, error) {
	return s.transition(ctx, tenantID, id, (*accounting.AccountingPeriod).Lock)
}

// Unlock returns a locked period to closed
func (s *PeriodService) Unlock(ctx context.Context, tenantID, id uuid.UUID) (*PeriodResponse, error) {
	return s.transition(ctx, tenantID, id, (*accounting.AccountingPeriod).Unlock)
}

func (s *PeriodService) transition(ctx context.Context, tenantID, id uuid.UUID, apply func(*accounting.AccountingPeriod) error) (*PeriodResponse, error) {
	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(period); err != nil {
		return nil, err
	}
	if err := s.periodRepo.Save(ctx, period); err != nil {
		return nil, err
	}
	PublishEvents(ctx, s.eventPublisher, s.logger, period)
	response := ToPeriodResponse(period)
	return &response, nil
}

// Reopen deletes the closing entry of a closed period and clears its totals
func (s *PeriodService) Reopen(ctx context.Context, tenantID, id uuid.UUID) (*PeriodResponse, error) {
	var period *accounting.AccountingPeriod
	err := s.txScope.Execute(ctx, func(repos LedgerRepositories) error {
		var err error
		period, err = repos.Periods().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		closingID, err := period.Reopen()
		if err != nil {
			return err
		}
		if closingID != nil {
			if err := repos.JournalEntries().Delete(ctx, tenantID, *closingID); err != nil && !errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("failed to delete closing entry: %w", err)
			}
		}
		return repos.Periods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("accounting period reopened",
		zap.String("tenant_id", tenantID.String()),
		zap.String("period", period.Name),
	)
	PublishEvents(ctx, s.eventPublisher, s.logger, period)
	response := ToPeriodResponse(period)
	return &response, nil
}

// Delete removes an open period without journal entries in its range
func (s *PeriodService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	count, err := s.journalRepo.CountInRange(ctx, tenantID, period.StartDate, period.EndDate)
	if err != nil {
		return fmt.Errorf("failed to count period entries: %w", err)
	}
	if err := period.CanDelete(count); err != nil {
		return err
	}
	return s.periodRepo.Delete(ctx, tenantID, id)
}

// GetByID returns a period
func (s *PeriodService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*PeriodResponse, error) {
	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToPeriodResponse(period)
	return &response, nil
}

// List returns a page of periods, most recent first
func (s *PeriodService) List(ctx context.Context, tenantID uuid.UUID, filter PeriodListFilter) (*shared.Paginated[PeriodResponse], error) {
	domainFilter := accounting.PeriodFilter{
		Filter:     shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize(),
		FiscalYear: filter.FiscalYear,
	}
	if filter.Status != "" {
		status := accounting.PeriodStatus(filter.Status)
		domainFilter.Status = &status
	}
	periods, err := s.periodRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.periodRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	items := make([]PeriodResponse, len(periods))
	for i := range periods {
		items[i] = ToPeriodResponse(&periods[i])
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// GetPeriodForDate returns the period containing date
func (s *PeriodService) GetPeriodForDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*PeriodResponse, error) {
	period, err := s.periodRepo.FindForDate(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	response := ToPeriodResponse(period)
	return &response, nil
}

// GetCurrentPeriod returns the period containing today
func (s *PeriodService) GetCurrentPeriod(ctx context.Context, tenantID uuid.UUID) (*PeriodResponse, error) {
	return s.GetPeriodForDate(ctx, tenantID, time.Now())
}

// GetFiscalYears returns the distinct fiscal years, newest first
func (s *PeriodService) GetFiscalYears(ctx context.Context, tenantID uuid.UUID) ([]int, error) {
	years, err := s.periodRepo.FiscalYears(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if years == nil {
		years = []int{}
	}
	return years, nil
}
