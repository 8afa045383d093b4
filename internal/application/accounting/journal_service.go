package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JournalService posts journal entries and builds the financial statements
type JournalService struct {
	accountRepo    accounting.AccountRepository
	journalRepo    accounting.JournalEntryRepository
	txScope        TransactionScope
	poster         *JournalPoster
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewJournalService creates a new JournalService
func NewJournalService(
	accountRepo accounting.AccountRepository,
	journalRepo accounting.JournalEntryRepository,
	txScope TransactionScope,
	poster *JournalPoster,
	logger *zap.Logger,
) *JournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalService{
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		txScope:     txScope,
		poster:      poster,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *JournalService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateJournalEntry validates and posts a journal entry with its lines atomically
func (s *JournalService) CreateJournalEntry(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, req CreateJournalEntryRequest) (*JournalEntryResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var entry *accounting.JournalEntry
	err := s.txScope.Execute(ctx, func(repos LedgerRepositories) error {
		lines, err := resolveLines(ctx, repos.Accounts(), tenantID, req.Lines)
		if err != nil {
			return err
		}
		result, err := s.poster.Post(ctx, repos, tenantID, actor, PostingRequest{
			Date:        req.Date,
			Description: req.Description,
			Lines:       lines,
			IsAutomatic: req.IsAutomatic,
			Metadata:    req.Metadata,
		})
		if err != nil {
			return err
		}
		entry = result.Entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("journal entry created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.String("total", entry.TotalDebit().StringFixed(2)),
		zap.Int("lines", len(entry.Lines)),
	)
	PublishEvents(ctx, s.eventPublisher, s.logger, entry)

	response := ToJournalEntryResponse(entry)
	return &response, nil
}

// resolveLines loads the accounts referenced by lines. Unknown ids are NOT_FOUND.
func resolveLines(ctx context.Context, accounts accounting.AccountRepository, tenantID uuid.UUID, in []JournalLineRequest) ([]accounting.LineInput, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.AccountID)
	}
	found, err := accounts.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	lines := make([]accounting.LineInput, len(in))
	for i, l := range in {
		account, ok := found[l.AccountID]
		if !ok {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Account %s not found", l.AccountID))
		}
		lines[i] = accounting.LineInput{Account: account, Debit: l.Debit, Credit: l.Credit, Description: l.Description}
	}
	return lines, nil
}

// GetJournalEntry returns an entry with its lines
func (s *JournalService) GetJournalEntry(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntryResponse, error) {
	entry, err := s.journalRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToJournalEntryResponse(entry)
	return &response, nil
}

// ListJournalEntries returns a page of the journal, newest first
func (s *JournalService) ListJournalEntries(ctx context.Context, tenantID uuid.UUID, filter JournalEntryListFilter) (*shared.Paginated[JournalEntryResponse], error) {
	domainFilter := accounting.JournalEntryFilter{
		Filter:      shared.Filter{Page: filter.Page, PageSize: filter.PageSize, Search: filter.Search}.Normalize(),
		From:        filter.From,
		IsAutomatic: filter.IsAutomatic,
	}
	if filter.To != nil {
		domainFilter.To = ptr(accounting.DayEnd(*filter.To))
	}
	if filter.AccountID != "" {
		id, err := uuid.Parse(filter.AccountID)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_INPUT", "account_id must be a UUID")
		}
		domainFilter.AccountID = &id
	}

	entries, err := s.journalRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.journalRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	items := make([]JournalEntryResponse, len(entries))
	for i := range entries {
		items[i] = ToJournalEntryResponse(&entries[i])
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// GetAccountBalance folds every entry dated on or before asOf into the
// natural balance of the account
func (s *JournalService) GetAccountBalance(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (*AccountBalanceResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	to := accounting.DayEnd(asOf)
	entries, err := s.journalRepo.FindInRange(ctx, tenantID, nil, &to)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	return &AccountBalanceResponse{
		AccountID:   account.ID,
		AccountCode: account.Code,
		AccountName: account.Name,
		AsOf:        asOf,
		Balance:     accounting.AccountBalance(account, entries),
	}, nil
}

// GetProfitAndLoss builds the income statement of [from, to]
func (s *JournalService) GetProfitAndLoss(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*accounting.ProfitAndLoss, error) {
	if to.Before(from) {
		return nil, shared.NewDomainError("INVALID_DATE_RANGE", "End date must not be before start date")
	}
	accounts, entries, err := s.load(ctx, tenantID, ptr(accounting.DayStart(from)), ptr(accounting.DayEnd(to)))
	if err != nil {
		return nil, err
	}
	pl := accounting.BuildProfitAndLoss(from, to, accounts, entries)
	return &pl, nil
}

// GetBalanceSheet builds the balance sheet at asOf. The verification block
// reports any difference between assets and liabilities plus equity.
func (s *JournalService) GetBalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*accounting.BalanceSheet, error) {
	accounts, entries, err := s.load(ctx, tenantID, nil, ptr(accounting.DayEnd(asOf)))
	if err != nil {
		return nil, err
	}
	bs := accounting.BuildBalanceSheet(asOf, accounts, entries)
	if !bs.Verification.IsBalanced {
		s.logger.Warn("balance sheet does not balance",
			zap.String("tenant_id", tenantID.String()),
			zap.String("difference", bs.Verification.Difference.StringFixed(2)),
		)
	}
	return &bs, nil
}

// GetTrialBalance lists debit and credit totals per account
func (s *JournalService) GetTrialBalance(ctx context.Context, tenantID uuid.UUID, q TrialBalanceQuery) (*accounting.TrialBalance, error) {
	var from, to *time.Time
	if q.From != nil {
		from = ptr(accounting.DayStart(*q.From))
	}
	if q.To != nil {
		to = ptr(accounting.DayEnd(*q.To))
	}
	accounts, entries, err := s.load(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	if q.AccountType != "" {
		filtered := accounts[:0]
		for _, a := range accounts {
			if string(a.Type) == q.AccountType {
				filtered = append(filtered, a)
			}
		}
		accounts = filtered
	}
	tb := accounting.BuildTrialBalance(accounts, entries, q.IncludeZero)
	return &tb, nil
}

// GetGeneralLedger returns the movements of one account with opening,
// running and closing balances
func (s *JournalService) GetGeneralLedger(ctx context.Context, tenantID uuid.UUID, q GeneralLedgerQuery) (*accounting.GeneralLedger, error) {
	account, err := s.accountRepo.FindByCode(ctx, tenantID, q.AccountCode)
	if err != nil {
		return nil, err
	}

	var opening []accounting.JournalEntry
	var from, to *time.Time
	if q.From != nil {
		from = ptr(accounting.DayStart(*q.From))
		before := from.Add(-time.Nanosecond)
		if opening, err = s.journalRepo.FindInRange(ctx, tenantID, nil, &before); err != nil {
			return nil, fmt.Errorf("failed to load opening entries: %w", err)
		}
	}
	if q.To != nil {
		to = ptr(accounting.DayEnd(*q.To))
	}
	inRange, err := s.journalRepo.FindInRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}

	page, limit := q.Page, q.Limit
	if limit == 0 {
		limit = 100
	}
	gl := accounting.BuildGeneralLedger(account, opening, inRange).Page(page, limit)
	return &gl, nil
}

func (s *JournalService) load(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]accounting.Account, []accounting.JournalEntry, error) {
	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, accounting.AccountFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	entries, err := s.journalRepo.FindInRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	return accounts, entries, nil
}

func ptr[T any](v T) *T { return &v }
