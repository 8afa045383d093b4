package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookEntrySortFields contains allowed sort fields for book rows
var BookEntrySortFields = map[string]bool{
	"operation_date":    true,
	"invoice_number":    true,
	"counterparty_name": true,
	"total_amount":      true,
	"created_at":        true,
}

// GormBookEntryRepository implements BookEntryRepository over one book table
type GormBookEntryRepository struct {
	db    *gorm.DB
	book  fiscal.Book
	table string
}

// NewGormPurchaseBookRepository creates the repository of the purchase book
func NewGormPurchaseBookRepository(db *gorm.DB) *GormBookEntryRepository {
	return newGormBookEntryRepository(db, fiscal.PurchaseBook)
}

func newGormBookEntryRepository(db *gorm.DB, book fiscal.Book) *GormBookEntryRepository {
	return &GormBookEntryRepository{db: db, book: book, table: models.BookTable(book)}
}

func (r *GormBookEntryRepository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// FindByIDForTenant finds a row by ID within a tenant
func (r *GormBookEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.BookEntry, error) {
	var model models.BookEntryModel
	if err := r.scoped(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(r.book), nil
}

// FindByInvoiceNumber finds a row by invoice number within a tenant
func (r *GormBookEntryRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*fiscal.BookEntry, error) {
	var model models.BookEntryModel
	if err := r.scoped(ctx).
		Where("tenant_id = ? AND invoice_number = ?", tenantID, invoiceNumber).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(r.book), nil
}

// FindAllForTenant lists rows matching the filter, newest operation date first by default
func (r *GormBookEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.BookEntryFilter) ([]fiscal.BookEntry, error) {
	var rows []models.BookEntryModel
	query := r.applyFilter(r.scoped(ctx).Where("tenant_id = ?", tenantID), filter)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, BookEntrySortFields, "operation_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	if err := query.Order(orderBy + " " + orderDir).Order("invoice_number " + orderDir).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomain(rows), nil
}

// CountForTenant counts rows matching the filter
func (r *GormBookEntryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.BookEntryFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.scoped(ctx).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindBook returns the confirmed and exported rows of month/year in book order
func (r *GormBookEntryRepository) FindBook(ctx context.Context, tenantID uuid.UUID, month, year int) ([]fiscal.BookEntry, error) {
	var rows []models.BookEntryModel
	if err := r.scoped(ctx).
		Where("tenant_id = ? AND month = ? AND year = ? AND status IN ?", tenantID, month, year,
			[]fiscal.BookEntryStatus{fiscal.BookEntryConfirmed, fiscal.BookEntryExported}).
		Order("operation_date ASC, invoice_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomain(rows), nil
}

// Create inserts a row. A duplicate invoice number returns shared.ErrConflict.
func (r *GormBookEntryRepository) Create(ctx context.Context, e *fiscal.BookEntry) error {
	model := models.BookEntryModelFromDomain(e)
	return translateWriteError(r.scoped(ctx).Create(model).Error)
}

// Save updates a row
func (r *GormBookEntryRepository) Save(ctx context.Context, e *fiscal.BookEntry) error {
	model := models.BookEntryModelFromDomain(e)
	result := r.scoped(ctx).Where("id = ?", e.ID).Select("*").Omit("id", "created_at").Updates(model)
	if result.Error != nil {
		return translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkExported flags rows as exported in one statement
func (r *GormBookEntryRepository) MarkExported(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.scoped(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Updates(map[string]any{
			"status":             fiscal.BookEntryExported,
			"exported_to_seniat": true,
			"export_date":        at,
			"updated_at":         time.Now(),
		}).Error
}

// Delete removes a row
func (r *GormBookEntryRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.scoped(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.BookEntryModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormBookEntryRepository) applyFilter(query *gorm.DB, filter fiscal.BookEntryFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(counterparty_name) LIKE ? OR LOWER(invoice_number) LIKE ?", pattern, pattern)
	}
	if filter.Month != nil {
		query = query.Where("month = ?", *filter.Month)
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CounterpartyRIF != "" {
		query = query.Where("counterparty_rif = ?", filter.CounterpartyRIF)
	}
	if filter.InvoiceNumber != "" {
		query = query.Where("invoice_number = ?", filter.InvoiceNumber)
	}
	return query
}

func (r *GormBookEntryRepository) toDomain(rows []models.BookEntryModel) []fiscal.BookEntry {
	entries := make([]fiscal.BookEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain(r.book)
	}
	return entries
}

// GormSalesBookRepository adds the reconciliation primitives of the sales book
type GormSalesBookRepository struct {
	*GormBookEntryRepository
}

// NewGormSalesBookRepository creates the repository of the sales book
func NewGormSalesBookRepository(db *gorm.DB) *GormSalesBookRepository {
	return &GormSalesBookRepository{GormBookEntryRepository: newGormBookEntryRepository(db, fiscal.SalesBook)}
}

// FindForSync finds the tenant's row for a billing document by invoice number or document id
func (r *GormSalesBookRepository) FindForSync(ctx context.Context, tenantID uuid.UUID, invoiceNumber string, documentID uuid.UUID) (*fiscal.BookEntry, error) {
	var model models.BookEntryModel
	if err := r.scoped(ctx).
		Where("tenant_id = ?", tenantID).
		Where("invoice_number = ? OR billing_document_id = ?", invoiceNumber, documentID).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(r.book), nil
}

// ClaimOrCreate reassigns a row holding the same invoice number under any
// tenant to entry's tenant, or inserts entry. On reclaim, entry takes the
// identity of the existing row. Exported or annulled rows are never reclaimed.
func (r *GormSalesBookRepository) ClaimOrCreate(ctx context.Context, entry *fiscal.BookEntry) (bool, error) {
	reclaimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Table(r.table).Where("invoice_number = ?", entry.InvoiceNumber)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var model models.BookEntryModel
		err := query.First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return translateWriteError(tx.Table(r.table).Create(models.BookEntryModelFromDomain(entry)).Error)
		}
		if err != nil {
			return err
		}

		existing := model.ToDomain(r.book)
		if !existing.CanResync() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Sales book entry %s is exported or annulled and cannot be reclaimed", existing.InvoiceNumber))
		}
		existing.OverwriteFrom(entry)
		existing.IncrementVersion()
		updated := models.BookEntryModelFromDomain(existing)
		if err := tx.Table(r.table).Where("id = ?", existing.ID).
			Select("*").Omit("id", "created_at").Updates(updated).Error; err != nil {
			return translateWriteError(err)
		}
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		entry.UpdatedAt = existing.UpdatedAt
		entry.Version = existing.Version
		entry.CreatedBy = existing.CreatedBy
		reclaimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reclaimed, nil
}

var (
	_ fiscal.BookEntryRepository = (*GormBookEntryRepository)(nil)
	_ fiscal.SalesBookRepository = (*GormSalesBookRepository)(nil)
)
