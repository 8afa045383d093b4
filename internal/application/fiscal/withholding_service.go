package fiscal

import (
	"context"
	"fmt"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithholdingService manages IVA and ISLR withholding certificates, their
// journal postings and the monthly ARC files
type WithholdingService struct {
	ivaRepo        fiscal.IVAWithholdingRepository
	islrRepo       fiscal.ISLRWithholdingRepository
	txScope        TransactionScope
	poster         *appaccounting.JournalPoster
	archiver       ExportArchiver
	recorder       Recorder
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewWithholdingService creates a new WithholdingService
func NewWithholdingService(
	ivaRepo fiscal.IVAWithholdingRepository,
	islrRepo fiscal.ISLRWithholdingRepository,
	txScope TransactionScope,
	poster *appaccounting.JournalPoster,
	logger *zap.Logger,
) *WithholdingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithholdingService{
		ivaRepo:  ivaRepo,
		islrRepo: islrRepo,
		txScope:  txScope,
		poster:   poster,
		recorder: nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *WithholdingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetArchiver enables archival of generated ARC files
func (s *WithholdingService) SetArchiver(archiver ExportArchiver) {
	s.archiver = archiver
}

// SetRecorder sets the metrics recorder
func (s *WithholdingService) SetRecorder(recorder Recorder) {
	if recorder != nil {
		s.recorder = recorder
	}
}

func (s *WithholdingService) nextCertificate(ctx context.Context, repos Repositories, tenantID uuid.UUID, tax fiscal.TaxKind, retentionDate time.Time) (string, error) {
	if retentionDate.IsZero() {
		retentionDate = s.now()
	}
	year := retentionDate.Year()
	seq, err := repos.Sequences().Next(ctx, tenantID, fiscal.CertificateSequenceKey(tax, year))
	if err != nil {
		return "", fmt.Errorf("failed to allocate certificate number: %w", err)
	}
	return fiscal.FormatCertificateNumber(tax, year, seq), nil
}

// CreateIVA creates a draft IVA certificate with the next certificate number of the year
func (s *WithholdingService) CreateIVA(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, req IVAWithholdingRequest) (*WithholdingResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	in := req.input()

	var w *fiscal.IVAWithholding
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		number, err := s.nextCertificate(ctx, repos, tenantID, fiscal.TaxIVA, in.RetentionDate)
		if err != nil {
			return err
		}
		if w, err = fiscal.NewIVAWithholding(tenantID, actor, number, in); err != nil {
			return err
		}
		return repos.IVAWithholdings().Create(ctx, w)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("IVA withholding created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("certificate_number", w.CertificateNumber),
		zap.String("amount", w.WithholdingAmount.StringFixed(2)),
	)
	appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, &w.Withholding)
	response := ToIVAWithholdingResponse(w)
	return &response, nil
}

// CreateISLR creates a draft ISLR certificate with the next certificate number of the year
func (s *WithholdingService) CreateISLR(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, req ISLRWithholdingRequest) (*WithholdingResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	in := req.input()

	var w *fiscal.ISLRWithholding
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		number, err := s.nextCertificate(ctx, repos, tenantID, fiscal.TaxISLR, in.RetentionDate)
		if err != nil {
			return err
		}
		if w, err = fiscal.NewISLRWithholding(tenantID, actor, number, in); err != nil {
			return err
		}
		return repos.ISLRWithholdings().Create(ctx, w)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ISLR withholding created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("certificate_number", w.CertificateNumber),
		zap.String("amount", w.WithholdingAmount.StringFixed(2)),
	)
	appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, &w.Withholding)
	response := ToISLRWithholdingResponse(w)
	return &response, nil
}

// UpdateIVA changes a draft IVA certificate and recomputes its amount
func (s *WithholdingService) UpdateIVA(ctx context.Context, tenantID, id uuid.UUID, req UpdateIVAWithholdingRequest) (*WithholdingResponse, error) {
	w, err := s.ivaRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := w.Update(req.merge(w)); err != nil {
		return nil, err
	}
	if err := s.ivaRepo.Save(ctx, w); err != nil {
		return nil, err
	}
	response := ToIVAWithholdingResponse(w)
	return &response, nil
}

// UpdateISLR changes a draft ISLR certificate and recomputes its amount
func (s *WithholdingService) UpdateISLR(ctx context.Context, tenantID, id uuid.UUID, req UpdateISLRWithholdingRequest) (*WithholdingResponse, error) {
	w, err := s.islrRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := w.Update(req.merge(w)); err != nil {
		return nil, err
	}
	if err := s.islrRepo.Save(ctx, w); err != nil {
		return nil, err
	}
	response := ToISLRWithholdingResponse(w)
	return &response, nil
}

// certificate is a loaded withholding of either tax
type certificate struct {
	core         *fiscal.Withholding
	descriptions func() (string, string)
	save         func(ctx context.Context) error
	response     func() WithholdingResponse
}

func loadCertificate(ctx context.Context, ivaRepo fiscal.IVAWithholdingRepository, islrRepo fiscal.ISLRWithholdingRepository, tenantID uuid.UUID, tax fiscal.TaxKind, id uuid.UUID) (*certificate, error) {
	switch tax {
	case fiscal.TaxIVA:
		w, err := ivaRepo.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		return &certificate{
			core:         &w.Withholding,
			descriptions: w.PostingLineDescriptions,
			save:         func(ctx context.Context) error { return ivaRepo.Save(ctx, w) },
			response:     func() WithholdingResponse { return ToIVAWithholdingResponse(w) },
		}, nil
	case fiscal.TaxISLR:
		w, err := islrRepo.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		return &certificate{
			core:         &w.Withholding,
			descriptions: w.PostingLineDescriptions,
			save:         func(ctx context.Context) error { return islrRepo.Save(ctx, w) },
			response:     func() WithholdingResponse { return ToISLRWithholdingResponse(w) },
		}, nil
	}
	return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown tax %q", tax))
}

// Get returns a certificate
func (s *WithholdingService) Get(ctx context.Context, tenantID uuid.UUID, tax fiscal.TaxKind, id uuid.UUID) (*WithholdingResponse, error) {
	c, err := loadCertificate(ctx, s.ivaRepo, s.islrRepo, tenantID, tax, id)
	if err != nil {
		return nil, err
	}
	response := c.response()
	return &response, nil
}

// DeleteDraft removes a certificate that was never posted
func (s *WithholdingService) DeleteDraft(ctx context.Context, tenantID uuid.UUID, tax fiscal.TaxKind, id uuid.UUID) error {
	c, err := loadCertificate(ctx, s.ivaRepo, s.islrRepo, tenantID, tax, id)
	if err != nil {
		return err
	}
	if err := c.core.CheckDeletable(); err != nil {
		return err
	}
	if tax == fiscal.TaxIVA {
		return s.ivaRepo.Delete(ctx, tenantID, id)
	}
	return s.islrRepo.Delete(ctx, tenantID, id)
}

// Post writes the two-line withholding entry and freezes the certificate.
// IVA debits accounts payable and credits IVA withheld payable; ISLR debits
// ISLR withheld and credits accounts payable.
func (s *WithholdingService) Post(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, tax fiscal.TaxKind, id uuid.UUID) (*WithholdingResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var c *certificate
	var entry *accounting.JournalEntry
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		var err error
		if c, err = loadCertificate(ctx, repos.IVAWithholdings(), repos.ISLRWithholdings(), tenantID, tax, id); err != nil {
			return err
		}
		w := c.core
		if !w.Status.CanPost() {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post %s withholding in %s status", w.Tax, w.Status))
		}

		debitDef, creditDef := w.Tax.PostingAccounts()
		resolved, err := appaccounting.ResolveSystemAccounts(ctx, repos.Accounts(), tenantID, debitDef, creditDef)
		if err != nil {
			return err
		}
		debitDesc, creditDesc := c.descriptions()
		result, err := s.poster.Post(ctx, repos, tenantID, actor, appaccounting.PostingRequest{
			Date:        w.RetentionDate,
			Description: w.EntryDescription(),
			Lines:       w.PostingLines(resolved[0], resolved[1], debitDesc, creditDesc),
			IsAutomatic: true,
			Metadata: map[string]any{
				accounting.MetaWithholdingID:     w.ID.String(),
				accounting.MetaCertificateNumber: w.CertificateNumber,
			},
			SourceKind: accounting.SourceWithholding,
			SourceID:   w.ID,
		})
		if err != nil {
			return err
		}
		entry = result.Entry
		if err := w.MarkPosted(entry.ID); err != nil {
			return err
		}
		return c.save(ctx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withholding posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("tax", tax.String()),
		zap.String("certificate_number", c.core.CertificateNumber),
		zap.String("entry_id", entry.ID.String()),
	)
	s.recorder.WithholdingPosted(tax.String())
	appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, entry, c.core)
	response := c.response()
	return &response, nil
}

// Annul terminates a certificate. A posted certificate is first reversed
// with the mirror entry dated today; a draft is annulled without postings.
func (s *WithholdingService) Annul(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, tax fiscal.TaxKind, id uuid.UUID, reason string) (*WithholdingResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var c *certificate
	var reversal *accounting.JournalEntry
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		var err error
		if c, err = loadCertificate(ctx, repos.IVAWithholdings(), repos.ISLRWithholdings(), tenantID, tax, id); err != nil {
			return err
		}
		w := c.core
		if !w.Status.CanAnnul() {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("%s withholding %s is already annulled", w.Tax, w.CertificateNumber))
		}

		var reversalID *uuid.UUID
		if w.NeedsReversal() {
			debitDef, creditDef := w.Tax.PostingAccounts()
			resolved, err := appaccounting.ResolveSystemAccounts(ctx, repos.Accounts(), tenantID, debitDef, creditDef)
			if err != nil {
				return err
			}
			result, err := s.poster.Post(ctx, repos, tenantID, actor, appaccounting.PostingRequest{
				Date:        s.now(),
				Description: w.ReversalDescription(reason),
				Lines:       w.ReversalLines(resolved[0], resolved[1]),
				IsAutomatic: true,
				Metadata: map[string]any{
					accounting.MetaWithholdingID:     w.ID.String(),
					accounting.MetaCertificateNumber: w.CertificateNumber,
				},
				SourceKind: accounting.SourceReversal,
				SourceID:   w.ID,
			})
			if err != nil {
				return err
			}
			reversal = result.Entry
			reversalID = &reversal.ID
		}
		if err := w.Annul(reason, reversalID); err != nil {
			return err
		}
		return c.save(ctx)
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("tenant_id", tenantID.String()),
		zap.String("tax", tax.String()),
		zap.String("certificate_number", c.core.CertificateNumber),
	}
	if reversal != nil {
		fields = append(fields, zap.String("reversal_entry_id", reversal.ID.String()))
		appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, reversal)
	}
	s.logger.Info("withholding annulled", fields...)
	appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, c.core)
	response := c.response()
	return &response, nil
}

// List returns a page of certificates of one tax
func (s *WithholdingService) List(ctx context.Context, tenantID uuid.UUID, tax fiscal.TaxKind, filter WithholdingListFilter) (*shared.Paginated[WithholdingResponse], error) {
	domainFilter := fiscal.WithholdingFilter{
		Filter:          shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize(),
		From:            filter.From,
		BeneficiaryRIF:  filter.BeneficiaryRIF,
		InvoiceNumber:   filter.InvoiceNumber,
		OnlyNotExported: filter.OnlyNotExported,
	}
	if filter.To != nil {
		domainFilter.To = ptr(accounting.DayEnd(*filter.To))
	}
	if filter.Status != "" {
		status := fiscal.WithholdingStatus(filter.Status)
		domainFilter.Status = &status
	}

	var items []WithholdingResponse
	var total int64
	switch tax {
	case fiscal.TaxIVA:
		records, err := s.ivaRepo.FindAllForTenant(ctx, tenantID, domainFilter)
		if err != nil {
			return nil, err
		}
		if total, err = s.ivaRepo.CountForTenant(ctx, tenantID, domainFilter); err != nil {
			return nil, err
		}
		items = make([]WithholdingResponse, len(records))
		for i := range records {
			items[i] = ToIVAWithholdingResponse(&records[i])
		}
	case fiscal.TaxISLR:
		records, err := s.islrRepo.FindAllForTenant(ctx, tenantID, domainFilter)
		if err != nil {
			return nil, err
		}
		if total, err = s.islrRepo.CountForTenant(ctx, tenantID, domainFilter); err != nil {
			return nil, err
		}
		items = make([]WithholdingResponse, len(records))
		for i := range records {
			items[i] = ToISLRWithholdingResponse(&records[i])
		}
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown tax %q", tax))
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// postedInMonth returns the posted certificates of month/year, oldest first
func postedInMonth(month, year int, onlyNotExported bool) fiscal.WithholdingFilter {
	from, to := fiscal.MonthRange(month, year)
	status := fiscal.WithholdingStatusPosted
	return fiscal.WithholdingFilter{
		Filter:          shared.Filter{OrderBy: "retention_date", OrderDir: "asc"},
		Status:          &status,
		From:            &from,
		To:              &to,
		OnlyNotExported: onlyNotExported,
	}
}

func (s *WithholdingService) loadIVAMonth(ctx context.Context, repo fiscal.IVAWithholdingRepository, tenantID uuid.UUID, month, year int, onlyNotExported bool) ([]*fiscal.IVAWithholding, error) {
	records, err := repo.FindAllForTenant(ctx, tenantID, postedInMonth(month, year, onlyNotExported))
	if err != nil {
		return nil, fmt.Errorf("failed to load IVA withholdings: %w", err)
	}
	out := make([]*fiscal.IVAWithholding, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}

func (s *WithholdingService) loadISLRMonth(ctx context.Context, repo fiscal.ISLRWithholdingRepository, tenantID uuid.UUID, month, year int, onlyNotExported bool) ([]*fiscal.ISLRWithholding, error) {
	records, err := repo.FindAllForTenant(ctx, tenantID, postedInMonth(month, year, onlyNotExported))
	if err != nil {
		return nil, fmt.Errorf("failed to load ISLR withholdings: %w", err)
	}
	out := make([]*fiscal.ISLRWithholding, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}

// Summary aggregates the posted certificates of a month by beneficiary and operation type
func (s *WithholdingService) Summary(ctx context.Context, tenantID uuid.UUID, tax fiscal.TaxKind, month, year int) (*fiscal.WithholdingSummary, error) {
	if err := fiscal.ValidateMonth(month, year); err != nil {
		return nil, err
	}
	var items []fiscal.SummaryItem
	switch tax {
	case fiscal.TaxIVA:
		records, err := s.loadIVAMonth(ctx, s.ivaRepo, tenantID, month, year, false)
		if err != nil {
			return nil, err
		}
		items = fiscal.IVASummaryItems(records)
	case fiscal.TaxISLR:
		records, err := s.loadISLRMonth(ctx, s.islrRepo, tenantID, month, year, false)
		if err != nil {
			return nil, err
		}
		items = fiscal.ISLRSummaryItems(records)
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown tax %q", tax))
	}
	summary := fiscal.SummarizeWithholdings(tax, month, year, items)
	return &summary, nil
}

// ExportARC renders the ARC file of the posted certificates of a month and
// marks them exported. NO_RECORDS is returned when nothing matches.
func (s *WithholdingService) ExportARC(ctx context.Context, tenantID uuid.UUID, tax fiscal.TaxKind, req ExportARCRequest) (*ExportResult, error) {
	if err := fiscal.ValidateMonth(req.Month, req.Year); err != nil {
		return nil, err
	}
	if !tax.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown tax %q", tax))
	}

	now := s.now()
	var content string
	var count int
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		switch tax {
		case fiscal.TaxIVA:
			records, err := s.loadIVAMonth(ctx, repos.IVAWithholdings(), tenantID, req.Month, req.Year, req.OnlyNotExported)
			if err != nil {
				return err
			}
			if count = len(records); count == 0 {
				return noRecords(tax, req.Month, req.Year)
			}
			content = fiscal.RenderIVAARC(records, req.Month, req.Year, now)
			for _, w := range records {
				w.MarkExported(now)
				if err := repos.IVAWithholdings().Save(ctx, w); err != nil {
					return err
				}
			}
		case fiscal.TaxISLR:
			records, err := s.loadISLRMonth(ctx, repos.ISLRWithholdings(), tenantID, req.Month, req.Year, req.OnlyNotExported)
			if err != nil {
				return err
			}
			if count = len(records); count == 0 {
				return noRecords(tax, req.Month, req.Year)
			}
			content = fiscal.RenderISLRARC(records, req.Month, req.Year, now)
			for _, w := range records {
				w.MarkExported(now)
				if err := repos.ISLRWithholdings().Save(ctx, w); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		FileName: fmt.Sprintf("ARC_%s_%02d%d.txt", tax, req.Month, req.Year),
		Content:  content,
		Records:  count,
	}
	result.StorageKey = archive(ctx, s.archiver, s.logger, tenantID, "arc/"+string(tax), req.Year, req.Month, now, result.FileName, content)
	s.recorder.ExportGenerated("arc_"+string(tax), count)
	s.logger.Info("ARC file generated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("tax", tax.String()),
		zap.Int("records", count),
		zap.String("file", result.FileName),
	)
	return result, nil
}

func noRecords(tax fiscal.TaxKind, month, year int) error {
	return shared.NewDomainError("NO_RECORDS", fmt.Sprintf("No posted %s withholdings for %02d/%d", tax, month, year))
}

// archive uploads an export when an archiver is configured and returns its
// storage key. Failures are logged and leave the key empty.
func archive(ctx context.Context, archiver ExportArchiver, logger *zap.Logger, tenantID uuid.UUID, prefix string, year, month int, at time.Time, fileName, content string) string {
	if archiver == nil {
		return ""
	}
	key := fmt.Sprintf("%s/%s/%d/%02d/%s-%s", prefix, tenantID, year, month, at.UTC().Format("20060102T150405"), fileName)
	if err := archiver.Upload(ctx, key, []byte(content), "text/plain; charset=utf-8"); err != nil {
		logger.Warn("failed to archive export",
			zap.String("tenant_id", tenantID.String()),
			zap.String("storage_key", key),
			zap.Error(err),
		)
		return ""
	}
	return key
}

func ptr[T any](v T) *T { return &v }
