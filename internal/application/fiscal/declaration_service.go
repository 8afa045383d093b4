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

// DeclarationService computes, files and settles monthly IVA declarations
type DeclarationService struct {
	declarationRepo fiscal.IVADeclarationRepository
	txScope         TransactionScope
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewDeclarationService creates a new DeclarationService
func NewDeclarationService(declarationRepo fiscal.IVADeclarationRepository, txScope TransactionScope, logger *zap.Logger) *DeclarationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeclarationService{declarationRepo: declarationRepo, txScope: txScope, logger: logger}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *DeclarationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Calculate computes the declaration of a month from both books. A draft or
// calculated declaration of the month is recalculated in place; a filed or
// paid one is rejected.
func (s *DeclarationService) Calculate(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, req CalculateDeclarationRequest) (*DeclarationResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := fiscal.ValidateMonth(req.Month, req.Year); err != nil {
		return nil, err
	}

	var d *fiscal.IVADeclaration
	err := s.txScope.Execute(ctx, func(repos Repositories) error {
		var err error
		d, err = repos.Declarations().FindByPeriod(ctx, tenantID, req.Month, req.Year)
		if errors.Is(err, shared.ErrNotFound) {
			seq, err := repos.Sequences().Next(ctx, tenantID, fiscal.DeclarationNumberKey(req.Month, req.Year))
			if err != nil {
				return fmt.Errorf("failed to allocate declaration number: %w", err)
			}
			d, err = fiscal.NewIVADeclaration(tenantID, actor, req.Month, req.Year, fiscal.FormatDeclarationNumber(req.Month, req.Year, seq))
			if err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		sales, err := bookRows(ctx, repos.SalesBook(), tenantID, req.Month, req.Year)
		if err != nil {
			return err
		}
		purchases, err := bookRows(ctx, repos.PurchaseBook(), tenantID, req.Month, req.Year)
		if err != nil {
			return err
		}
		if err := d.Calculate(fiscal.DeclarationInputs{
			Sales:                 fiscal.SummarizeBook(req.Month, req.Year, sales),
			Purchases:             fiscal.SummarizeBook(req.Month, req.Year, purchases),
			SalesValidation:       fiscal.ValidateBook(sales),
			PurchasesValidation:   fiscal.ValidateBook(purchases),
			PreviousCreditBalance: req.PreviousCreditBalance,
		}); err != nil {
			return err
		}
		return repos.Declarations().Save(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("IVA declaration calculated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("declaration_number", d.DeclarationNumber),
		zap.String("iva_to_pay", d.IVAToPay.StringFixed(2)),
		zap.String("credit_balance", d.CreditBalance.StringFixed(2)),
		zap.Bool("validated", d.Validated),
	)
	response := ToDeclarationResponse(d)
	return &response, nil
}

func bookRows(ctx context.Context, repo fiscal.BookEntryRepository, tenantID uuid.UUID, month, year int) ([]*fiscal.BookEntry, error) {
	rows, err := repo.FindBook(ctx, tenantID, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load book entries: %w", err)
	}
	out := make([]*fiscal.BookEntry, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// File submits a calculated declaration and renders its XML
func (s *DeclarationService) File(ctx context.Context, tenantID uuid.UUID, actor shared.Actor, id uuid.UUID, req FileDeclarationRequest) (*DeclarationResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	d, err := s.declarationRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	var filingDate time.Time
	if req.FilingDate != nil {
		filingDate = *req.FilingDate
	}
	if err := d.File(actor, filingDate, req.Force); err != nil {
		return nil, err
	}
	if err := s.declarationRepo.Save(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("IVA declaration filed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("declaration_number", d.DeclarationNumber),
		zap.Bool("forced", req.Force && !d.Validated),
	)
	appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, d)
	response := ToDeclarationResponse(d)
	return &response, nil
}

// RecordPayment settles a filed declaration
func (s *DeclarationService) RecordPayment(ctx context.Context, tenantID, id uuid.UUID, req RecordPaymentRequest) (*DeclarationResponse, error) {
	d, err := s.declarationRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}
	if err := d.RecordPayment(req.Amount, date, req.Reference, req.Notes); err != nil {
		return nil, err
	}
	if err := s.declarationRepo.Save(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("IVA declaration paid",
		zap.String("tenant_id", tenantID.String()),
		zap.String("declaration_number", d.DeclarationNumber),
		zap.String("amount", d.AmountPaid.StringFixed(2)),
	)
	appaccounting.PublishEvents(ctx, s.eventPublisher, s.logger, d)
	response := ToDeclarationResponse(d)
	return &response, nil
}

// Delete removes a declaration that was not filed
func (s *DeclarationService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	d, err := s.declarationRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := d.CheckDeletable(); err != nil {
		return err
	}
	return s.declarationRepo.Delete(ctx, tenantID, id)
}

// Get returns a declaration
func (s *DeclarationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*DeclarationResponse, error) {
	d, err := s.declarationRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToDeclarationResponse(d)
	return &response, nil
}

// List returns a page of declarations, most recent period first
func (s *DeclarationService) List(ctx context.Context, tenantID uuid.UUID, filter DeclarationListFilter) (*shared.Paginated[DeclarationResponse], error) {
	domainFilter := fiscal.DeclarationFilter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize(),
		Year:   filter.Year,
	}
	if filter.Status != "" {
		status := fiscal.DeclarationStatus(filter.Status)
		domainFilter.Status = &status
	}
	declarations, err := s.declarationRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.declarationRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	items := make([]DeclarationResponse, len(declarations))
	for i := range declarations {
		items[i] = ToDeclarationResponse(&declarations[i])
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}
