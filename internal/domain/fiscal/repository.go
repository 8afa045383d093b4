package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
)

// SequenceRepository hands out gap-tolerant per-tenant counters
type SequenceRepository interface {
	// Next atomically increments the counter named key and returns the new value
	Next(ctx context.Context, tenantID uuid.UUID, key string) (int64, error)
}

// CertificateSequenceKey is the counter key of a tax and year, e.g. RET-IVA-2024
func CertificateSequenceKey(tax TaxKind, year int) string {
	return fmt.Sprintf("RET-%s-%d", tax, year)
}

// WithholdingFilter defines filtering options for withholding queries
type WithholdingFilter struct {
	shared.Filter
	Status          *WithholdingStatus
	From            *time.Time
	To              *time.Time
	BeneficiaryRIF  string
	InvoiceNumber   string
	OnlyNotExported bool
}

// IVAWithholdingRepository defines persistence for IVA certificates
type IVAWithholdingRepository interface {
	// FindByIDForTenant finds a certificate by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*IVAWithholding, error)

	// FindAllForTenant lists certificates, newest retention date first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter WithholdingFilter) ([]IVAWithholding, error)

	// CountForTenant counts certificates matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter WithholdingFilter) (int64, error)

	// Create inserts a certificate. A duplicate certificate number returns shared.ErrConflict.
	Create(ctx context.Context, w *IVAWithholding) error

	// Save updates a certificate
	Save(ctx context.Context, w *IVAWithholding) error

	// Delete removes a draft certificate
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ISLRWithholdingRepository defines persistence for ISLR certificates
type ISLRWithholdingRepository interface {
	// FindByIDForTenant finds a certificate by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ISLRWithholding, error)

	// FindAllForTenant lists certificates, newest retention date first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter WithholdingFilter) ([]ISLRWithholding, error)

	// CountForTenant counts certificates matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter WithholdingFilter) (int64, error)

	// Create inserts a certificate. A duplicate certificate number returns shared.ErrConflict.
	Create(ctx context.Context, w *ISLRWithholding) error

	// Save updates a certificate
	Save(ctx context.Context, w *ISLRWithholding) error

	// Delete removes a draft certificate
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// BookEntryFilter defines filtering options for book queries
type BookEntryFilter struct {
	shared.Filter
	Month           *int
	Year            *int
	Status          *BookEntryStatus
	CounterpartyRIF string
	InvoiceNumber   string
}

// BookEntryRepository defines persistence shared by the sales and purchase books
type BookEntryRepository interface {
	// FindByIDForTenant finds a row by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BookEntry, error)

	// FindByInvoiceNumber finds a row by invoice number for a tenant
	FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*BookEntry, error)

	// FindAllForTenant lists rows, newest operation date first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BookEntryFilter) ([]BookEntry, error)

	// CountForTenant counts rows matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter BookEntryFilter) (int64, error)

	// FindBook returns confirmed and exported rows of month/year ordered by
	// operation date then invoice number
	FindBook(ctx context.Context, tenantID uuid.UUID, month, year int) ([]BookEntry, error)

	// Create inserts a row. A duplicate invoice number returns shared.ErrConflict.
	Create(ctx context.Context, e *BookEntry) error

	// Save updates a row
	Save(ctx context.Context, e *BookEntry) error

	// MarkExported flags the given rows as exported
	MarkExported(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, at time.Time) error

	// Delete removes a row
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// SalesBookRepository adds the reconciliation primitives of the sales book
type SalesBookRepository interface {
	BookEntryRepository

	// FindForSync finds the tenant's row matching the invoice number or the billing document id
	FindForSync(ctx context.Context, tenantID uuid.UUID, invoiceNumber string, documentID uuid.UUID) (*BookEntry, error)

	// ClaimOrCreate runs in one transaction: a row with the same invoice number
	// under any tenant is reassigned to entry's tenant and overwritten
	// (reclaimed=true); otherwise entry is inserted. A duplicate key on insert
	// returns shared.ErrConflict; an existing row that cannot be resynced
	// returns shared.ErrInvalidState and is left untouched.
	ClaimOrCreate(ctx context.Context, entry *BookEntry) (reclaimed bool, err error)
}

// DeclarationFilter defines filtering options for declaration queries
type DeclarationFilter struct {
	shared.Filter
	Year   *int
	Status *DeclarationStatus
}

// IVADeclarationRepository defines persistence for IVA declarations
type IVADeclarationRepository interface {
	// FindByIDForTenant finds a declaration by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*IVADeclaration, error)

	// FindByPeriod finds the declaration of month/year
	FindByPeriod(ctx context.Context, tenantID uuid.UUID, month, year int) (*IVADeclaration, error)

	// FindAllForTenant lists declarations, most recent period first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter DeclarationFilter) ([]IVADeclaration, error)

	// CountForTenant counts declarations matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter DeclarationFilter) (int64, error)

	// Save creates or updates a declaration
	Save(ctx context.Context, d *IVADeclaration) error

	// Delete removes a declaration
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
