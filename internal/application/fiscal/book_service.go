package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookService keeps the IVA sales and purchase books and reconciles the
// sales book with issued billing documents
type BookService struct {
	salesRepo      fiscal.SalesBookRepository
	purchaseRepo   fiscal.BookEntryRepository
	syncOptions    fiscal.SyncOptions
	archiver       ExportArchiver
	resolver       fiscal.BillingDocumentResolver
	recorder       Recorder
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewBookService creates a new BookService
func NewBookService(
	salesRepo fiscal.SalesBookRepository,
	purchaseRepo fiscal.BookEntryRepository,
	syncOptions fiscal.SyncOptions,
	logger *zap.Logger,
) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{
		salesRepo:    salesRepo,
		purchaseRepo: purchaseRepo,
		syncOptions:  syncOptions,
		recorder:     nopRecorder{},
		logger:       logger,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *BookService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetArchiver enables archival of generated TXT files
func (s *BookService) SetArchiver(archiver ExportArchiver) {
	s.archiver = archiver
}

// SetDocumentResolver enables re-syncing a billing document by id alone
func (s *BookService) SetDocumentResolver(resolver fiscal.BillingDocumentResolver) {
	s.resolver = resolver
}

// SetRecorder sets the metrics recorder
func (s *BookService) SetRecorder(recorder Recorder) {
	if recorder != nil {
		s.recorder = recorder
	}
}

func (s *BookService) repo(book fiscal.Book) (fiscal.BookEntryRepository, error) {
	switch book {
	case fiscal.SalesBook:
		return s.salesRepo, nil
	case fiscal.PurchaseBook:
		return s.purchaseRepo, nil
	}
	return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown book %q", book))
}

// SyncFromBillingDocument derives the sales book row of an issued billing
// document and writes it. An existing row of the tenant with the same invoice
// number or document id is updated in place unless it was exported or
// annulled; otherwise a row holding the invoice number under any tenant is
// reclaimed under the same rule, or a new row is inserted. Corrections applied to inconsistent
// data are returned as diagnostics.
func (s *BookService) SyncFromBillingDocument(ctx context.Context, tenantID, documentID uuid.UUID, doc *fiscal.BillingDocument, actor shared.Actor) (*SyncResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if doc == nil {
		if s.resolver == nil {
			return nil, shared.NewDomainError("INVALID_INPUT", "Billing document payload is required")
		}
		resolved, err := s.resolver.Resolve(ctx, tenantID, documentID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve billing document %s: %w", documentID, err)
		}
		doc = resolved
	}
	entry, diags, err := fiscal.BuildSalesEntryFromBilling(tenantID, actor, documentID, doc, s.syncOptions)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	outcome := SyncOutcomeUpdated
	target := &entry.BookEntry
	existing, err := s.salesRepo.FindForSync(ctx, tenantID, entry.InvoiceNumber, documentID)
	switch {
	case err == nil:
		if !existing.CanResync() {
			diags = append(diags, fiscal.Diagnostic{
				Code:    fiscal.DiagEntryLocked,
				Message: fmt.Sprintf("Invoice %s is %s and was not updated", existing.InvoiceNumber, existing.Status),
			})
			outcome = SyncOutcomeLocked
			result.Entry = ToBookEntryResponse(existing)
			break
		}
		existing.OverwriteFrom(&entry.BookEntry)
		target = existing
		if err := s.salesRepo.Save(ctx, existing); err != nil {
			s.recorder.SyncCompleted(SyncOutcomeFailed)
			return nil, fmt.Errorf("failed to update sales book entry %s: %w", existing.InvoiceNumber, err)
		}
		result.Entry = ToBookEntryResponse(existing)
	case errors.Is(err, shared.ErrNotFound):
		reclaimed, err := s.claimOrCreate(ctx, &entry.BookEntry)
		if err != nil {
			s.recorder.SyncCompleted(SyncOutcomeFailed)
			return nil, err
		}
		result.Created = !reclaimed
		result.Reclaimed = reclaimed
		outcome = SyncOutcomeCreated
		if reclaimed {
			outcome = SyncOutcomeReclaimed
		}
		result.Entry = ToBookEntryResponse(&entry.BookEntry)
	default:
		s.recorder.SyncCompleted(SyncOutcomeFailed)
		return nil, fmt.Errorf("failed to look up sales book entry: %w", err)
	}

	if diags == nil {
		diags = []fiscal.Diagnostic{}
	}
	result.Diagnostics = diags
	for _, d := range diags {
		s.recorder.DiagnosticRaised(d.Code)
		s.logger.Warn("billing document reconciled with corrections",
			zap.String("tenant_id", tenantID.String()),
			zap.String("document_id", documentID.String()),
			zap.String("invoice_number", entry.InvoiceNumber),
			zap.String("code", d.Code),
			zap.String("field", d.Field),
			zap.String("message", d.Message),
		)
	}
	s.recorder.SyncCompleted(outcome)
	s.logger.Info("sales book synced from billing document",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_number", entry.InvoiceNumber),
		zap.String("outcome", outcome),
		zap.Int("diagnostics", len(diags)),
	)

	if outcome != SyncOutcomeLocked {
		target.AddDomainEvent(fiscal.NewSalesBookSyncedEvent(target, documentID, result.Created, result.Reclaimed, diags))
		appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, target)
	}
	return result, nil
}

// claimOrCreate retries once when a concurrent insert took the invoice number
func (s *BookService) claimOrCreate(ctx context.Context, entry *fiscal.BookEntry) (bool, error) {
	reclaimed, err := s.salesRepo.ClaimOrCreate(ctx, entry)
	if errors.Is(err, shared.ErrConflict) {
		s.logger.Warn("sales book insert raced, retrying claim",
			zap.String("tenant_id", entry.TenantID.String()),
			zap.String("invoice_number", entry.InvoiceNumber),
		)
		reclaimed, err = s.salesRepo.ClaimOrCreate(ctx, entry)
	}
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return false, err
		}
		return false, fmt.Errorf("failed to write sales book entry %s: %w", entry.InvoiceNumber, err)
	}
	return reclaimed, nil
}

// CreateEntry adds a manual row. A row with the same invoice number in the book is rejected.
func (s *BookService) CreateEntry(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, book fiscal.Book, req BookEntryRequest) (*BookEntryResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	repo, err := s.repo(book)
	if err != nil {
		return nil, err
	}

	var entry *fiscal.BookEntry
	if book == fiscal.SalesBook {
		e, err := fiscal.NewSalesBookEntry(tenantID, actor, req.input())
		if err != nil {
			return nil, err
		}
		entry = &e.BookEntry
	} else {
		e, err := fiscal.NewPurchaseBookEntry(tenantID, actor, req.input())
		if err != nil {
			return nil, err
		}
		entry = &e.BookEntry
	}

	if _, err := repo.FindByInvoiceNumber(ctx, tenantID, entry.InvoiceNumber); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Invoice %s is already registered in the %s book", entry.InvoiceNumber, book))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("book entry created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("book", string(book)),
		zap.String("invoice_number", entry.InvoiceNumber),
	)
	response := ToBookEntryResponse(entry)
	return &response, nil
}

// UpdateEntry replaces the values of a row that was neither annulled nor exported
func (s *BookService) UpdateEntry(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, book fiscal.Book, id uuid.UUID, req BookEntryRequest) (*BookEntryResponse, error) {
	repo, entry, err := s.load(ctx, tenantID, book, id)
	if err != nil {
		return nil, err
	}
	in := req.input()
	if in.InvoiceNumber != entry.InvoiceNumber {
		if _, err := repo.FindByInvoiceNumber(ctx, tenantID, in.InvoiceNumber); err == nil {
			return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Invoice %s is already registered in the %s book", in.InvoiceNumber, book))
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	if err := entry.Update(actor, in); err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, entry); err != nil {
		return nil, err
	}
	response := ToBookEntryResponse(entry)
	return &response, nil
}

// ConfirmEntry moves a draft row into the book
func (s *BookService) ConfirmEntry(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, id uuid.UUID) (*BookEntryResponse, error) {
	repo, entry, err := s.load(ctx, tenantID, book, id)
	if err != nil {
		return nil, err
	}
	if err := entry.Confirm(); err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, entry); err != nil {
		return nil, err
	}
	response := ToBookEntryResponse(entry)
	return &response, nil
}

// AnnulEntry takes a row out of the book and keeps it for audit
func (s *BookService) AnnulEntry(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, book fiscal.Book, id uuid.UUID, reason string) (*BookEntryResponse, error) {
	repo, entry, err := s.load(ctx, tenantID, book, id)
	if err != nil {
		return nil, err
	}
	if err := entry.Annul(actor, reason); err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("book entry annulled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("book", string(book)),
		zap.String("invoice_number", entry.InvoiceNumber),
	)
	appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, entry)
	response := ToBookEntryResponse(entry)
	return &response, nil
}

// DeleteEntry removes a row that was neither exported nor annulled
func (s *BookService) DeleteEntry(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, id uuid.UUID) error {
	repo, entry, err := s.load(ctx, tenantID, book, id)
	if err != nil {
		return err
	}
	if err := entry.CheckDeletable(); err != nil {
		return err
	}
	return repo.Delete(ctx, tenantID, id)
}

// GetEntry returns a row
func (s *BookService) GetEntry(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, id uuid.UUID) (*BookEntryResponse, error) {
	_, entry, err := s.load(ctx, tenantID, book, id)
	if err != nil {
		return nil, err
	}
	response := ToBookEntryResponse(entry)
	return &response, nil
}

func (s *BookService) load(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, id uuid.UUID) (fiscal.BookEntryRepository, *fiscal.BookEntry, error) {
	repo, err := s.repo(book)
	if err != nil {
		return nil, nil, err
	}
	entry, err := repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	return repo, entry, nil
}

// ListEntries returns a page of rows of a book
func (s *BookService) ListEntries(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, filter BookListFilter) (*shared.Paginated[BookEntryResponse], error) {
	repo, err := s.repo(book)
	if err != nil {
		return nil, err
	}
	domainFilter := fiscal.BookEntryFilter{
		Filter:          shared.Filter{Page: filter.Page, PageSize: filter.PageSize, Search: filter.Search}.Normalize(),
		Month:           filter.Month,
		Year:            filter.Year,
		CounterpartyRIF: filter.CounterpartyRIF,
		InvoiceNumber:   filter.InvoiceNumber,
	}
	if filter.Status != "" {
		status := fiscal.BookEntryStatus(filter.Status)
		domainFilter.Status = &status
	}

	entries, err := repo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	items := make([]BookEntryResponse, len(entries))
	for i := range entries {
		items[i] = ToBookEntryResponse(&entries[i])
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

func (s *BookService) monthEntries(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, month, year int) (fiscal.BookEntryRepository, []*fiscal.BookEntry, error) {
	if err := fiscal.ValidateMonth(month, year); err != nil {
		return nil, nil, err
	}
	repo, err := s.repo(book)
	if err != nil {
		return nil, nil, err
	}
	rows, err := repo.FindBook(ctx, tenantID, month, year)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s book: %w", book, err)
	}
	entries := make([]*fiscal.BookEntry, len(rows))
	for i := range rows {
		entries[i] = &rows[i]
	}
	return repo, entries, nil
}

// GetBook returns the confirmed and exported rows of a month with their totals
func (s *BookService) GetBook(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, month, year int) (*BookResponse, error) {
	_, entries, err := s.monthEntries(ctx, tenantID, book, month, year)
	if err != nil {
		return nil, err
	}
	items := make([]BookEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = ToBookEntryResponse(e)
	}
	return &BookResponse{
		Month:   month,
		Year:    year,
		Entries: items,
		Summary: fiscal.SummarizeBook(month, year, entries),
	}, nil
}

// Summary aggregates the monthly book by counterparty and IVA rate
func (s *BookService) Summary(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, month, year int) (*fiscal.BookSummary, error) {
	_, entries, err := s.monthEntries(ctx, tenantID, book, month, year)
	if err != nil {
		return nil, err
	}
	summary := fiscal.SummarizeBook(month, year, entries)
	return &summary, nil
}

// ValidateBook checks the integrity of every row of the monthly book
func (s *BookService) ValidateBook(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, month, year int) (*fiscal.ValidationResult, error) {
	_, entries, err := s.monthEntries(ctx, tenantID, book, month, year)
	if err != nil {
		return nil, err
	}
	result := fiscal.ValidateBook(entries)
	return &result, nil
}

// ValidateEntry checks that one row can be declared to SENIAT
func (s *BookService) ValidateEntry(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, id uuid.UUID) (*fiscal.ValidationResult, error) {
	_, entry, err := s.load(ctx, tenantID, book, id)
	if err != nil {
		return nil, err
	}
	result := fiscal.ValidateForSENIAT(entry)
	return &result, nil
}

// ExportTXT renders the SENIAT TXT of the monthly book and marks its rows exported
func (s *BookService) ExportTXT(ctx context.Context, tenantID uuid.UUID, book fiscal.Book, month, year int) (*ExportResult, error) {
	repo, entries, err := s.monthEntries(ctx, tenantID, book, month, year)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, shared.NewDomainError("NO_RECORDS", fmt.Sprintf("No %s book entries for %02d/%d", book, month, year))
	}

	now := s.now()
	content := fiscal.RenderBookTXT(book, entries)
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := repo.MarkExported(ctx, tenantID, ids, now); err != nil {
		return nil, fmt.Errorf("failed to mark %s book exported: %w", book, err)
	}

	result := &ExportResult{
		FileName: fmt.Sprintf("LIBRO_%s_%02d%d.txt", bookFilePrefix(book), month, year),
		Content:  content,
		Records:  len(entries),
	}
	result.StorageKey = archive(ctx, s.archiver, s.logger, tenantID, "books/"+string(book), year, month, now, result.FileName, content)
	s.recorder.ExportGenerated("book_"+string(book), len(entries))
	s.logger.Info("book TXT generated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("book", string(book)),
		zap.Int("records", len(entries)),
	)
	return result, nil
}

func bookFilePrefix(book fiscal.Book) string {
	if book == fiscal.SalesBook {
		return "VENTAS"
	}
	return "COMPRAS"
}
