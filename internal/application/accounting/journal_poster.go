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

// PostingRequest describes an entry to write into the journal
type PostingRequest struct {
	Date        time.Time
	Description string
	Lines       []accounting.LineInput
	IsAutomatic bool
	Metadata    map[string]any

	// SourceKind and SourceID tag automatic entries. A second posting with
	// the same source on the same day returns the first entry.
	SourceKind string
	SourceID   uuid.UUID

	// AllowClosedPeriod lets the closing entry land inside the period being closed
	AllowClosedPeriod bool
}

// PostingResult is the outcome of JournalPoster.Post
type PostingResult struct {
	Entry *accounting.JournalEntry
	// Duplicate is true when the source had already produced an entry
	Duplicate bool
}

// JournalPoster writes balanced entries into the journal on behalf of the
// ledger services and other contexts (withholdings, billing). It always runs
// inside the caller's transaction.
type JournalPoster struct {
	logger *zap.Logger
}

// NewJournalPoster creates a new JournalPoster
func NewJournalPoster(logger *zap.Logger) *JournalPoster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalPoster{logger: logger}
}

// Post validates the period of the entry date, builds the entry and persists it
func (p *JournalPoster) Post(ctx context.Context, repos LedgerRepositories, tenantID uuid.UUID, actor shared.Actor, req PostingRequest) (PostingResult, error) {
	if !req.AllowClosedPeriod {
		if err := p.checkPeriod(ctx, repos.Periods(), tenantID, req.Date); err != nil {
			return PostingResult{}, err
		}
	}

	if req.SourceKind != "" {
		ref := accounting.SourceRef(req.SourceKind, req.SourceID)
		existing, err := repos.JournalEntries().FindBySourceRef(ctx, tenantID, ref, &req.Date)
		if err == nil {
			p.logger.Info("journal entry already posted for source, skipping",
				zap.String("tenant_id", tenantID.String()),
				zap.String("source_ref", ref),
				zap.String("entry_id", existing.ID.String()),
			)
			return PostingResult{Entry: existing, Duplicate: true}, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return PostingResult{}, fmt.Errorf("failed to look up entry by source: %w", err)
		}
	}

	entry, err := accounting.NewJournalEntry(tenantID, actor, req.Date, req.Description, req.Lines, req.IsAutomatic, req.Metadata)
	if err != nil {
		return PostingResult{}, err
	}
	if req.SourceKind != "" {
		entry.WithSource(req.SourceKind, req.SourceID)
	}
	if err := repos.JournalEntries().Create(ctx, entry); err != nil {
		return PostingResult{}, err
	}

	p.logger.Debug("journal entry posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.String("actor", actor.String()),
		zap.Bool("is_automatic", entry.IsAutomatic),
	)
	return PostingResult{Entry: entry}, nil
}

func (p *JournalPoster) checkPeriod(ctx context.Context, periods accounting.AccountingPeriodRepository, tenantID uuid.UUID, date time.Time) error {
	period, err := periods.FindForDate(ctx, tenantID, date)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find period for date: %w", err)
	}
	return period.CheckPosting()
}

// ResolveSystemAccount returns the tenant's account for def, creating it on first use
func ResolveSystemAccount(ctx context.Context, accounts accounting.AccountRepository, tenantID uuid.UUID, def accounting.SystemAccountDef) (*accounting.Account, error) {
	account, err := accounts.FindByCode(ctx, tenantID, def.Code)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to find system account %s: %w", def.Code, err)
	}
	account, err = accounting.NewSystemAccount(tenantID, def)
	if err != nil {
		return nil, err
	}
	if err := accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create system account %s: %w", def.Code, err)
	}
	return account, nil
}

// ResolveSystemAccounts resolves several system accounts in order
func ResolveSystemAccounts(ctx context.Context, accounts accounting.AccountRepository, tenantID uuid.UUID, defs ...accounting.SystemAccountDef) ([]*accounting.Account, error) {
	out := make([]*accounting.Account, len(defs))
	for i, def := range defs {
		account, err := ResolveSystemAccount(ctx, accounts, tenantID, def)
		if err != nil {
			return nil, err
		}
		out[i] = account
	}
	return out, nil
}
