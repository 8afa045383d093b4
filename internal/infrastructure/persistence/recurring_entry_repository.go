package persistence

import (
	"context"
	"time"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecurringEntryRepository implements RecurringEntryRepository using GORM
type GormRecurringEntryRepository struct {
	db *gorm.DB
}

// NewGormRecurringEntryRepository creates a new GormRecurringEntryRepository
func NewGormRecurringEntryRepository(db *gorm.DB) *GormRecurringEntryRepository {
	return &GormRecurringEntryRepository{db: db}
}

// FindByIDForTenant finds a template by ID within a tenant
func (r *GormRecurringEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*accounting.RecurringEntry, error) {
	var model models.RecurringEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindByName finds a template by name within a tenant
func (r *GormRecurringEntryRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*accounting.RecurringEntry, error) {
	var model models.RecurringEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists templates ordered by name
func (r *GormRecurringEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter accounting.RecurringEntryFilter) ([]accounting.RecurringEntry, error) {
	var rows []models.RecurringEntryModel
	query := r.db.WithContext(ctx).Model(&models.RecurringEntryModel{}).Where("tenant_id = ?", tenantID)
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(filter.Search))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Frequency != nil {
		query = query.Where("frequency = ?", *filter.Frequency)
	}
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return recurringToDomain(rows), nil
}

// FindDue returns active templates due on or before date. onlyID narrows to one template.
func (r *GormRecurringEntryRepository) FindDue(ctx context.Context, tenantID uuid.UUID, date time.Time, onlyID *uuid.UUID) ([]accounting.RecurringEntry, error) {
	var rows []models.RecurringEntryModel
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND next_execution_date <= ?", tenantID, true, date)
	if onlyID != nil {
		query = query.Where("id = ?", *onlyID)
	}
	if err := query.Order("next_execution_date ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return recurringToDomain(rows), nil
}

// FindUpcoming returns active templates due on or before until, soonest first
func (r *GormRecurringEntryRepository) FindUpcoming(ctx context.Context, tenantID uuid.UUID, until time.Time) ([]accounting.RecurringEntry, error) {
	var rows []models.RecurringEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND next_execution_date <= ?", tenantID, true, until).
		Order("next_execution_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return recurringToDomain(rows), nil
}

// TenantsWithDue returns every tenant owning at least one due template
func (r *GormRecurringEntryRepository) TenantsWithDue(ctx context.Context, date time.Time) ([]uuid.UUID, error) {
	var tenants []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.RecurringEntryModel{}).
		Where("is_active = ? AND next_execution_date <= ?", true, date).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Save creates or updates a template. A duplicate name returns shared.ErrConflict.
func (r *GormRecurringEntryRepository) Save(ctx context.Context, entry *accounting.RecurringEntry) error {
	model := models.RecurringEntryModelFromDomain(entry)
	return translateWriteError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a template
func (r *GormRecurringEntryRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.RecurringEntryModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func recurringToDomain(rows []models.RecurringEntryModel) []accounting.RecurringEntry {
	entries := make([]accounting.RecurringEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries
}

// Ensure GormRecurringEntryRepository implements RecurringEntryRepository
var _ accounting.RecurringEntryRepository = (*GormRecurringEntryRepository)(nil)
