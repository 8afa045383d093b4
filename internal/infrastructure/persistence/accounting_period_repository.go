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

// GormAccountingPeriodRepository implements AccountingPeriodRepository using GORM
type GormAccountingPeriodRepository struct {
	db *gorm.DB
}

// NewGormAccountingPeriodRepository creates a new GormAccountingPeriodRepository
func NewGormAccountingPeriodRepository(db *gorm.DB) *GormAccountingPeriodRepository {
	return &GormAccountingPeriodRepository{db: db}
}

// FindByIDForTenant finds a period by ID within a tenant
func (r *GormAccountingPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*accounting.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindByName finds a period by name within a tenant
func (r *GormAccountingPeriodRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*accounting.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindOverlapping returns periods of the tenant intersecting [start, end]
func (r *GormAccountingPeriodRepository) FindOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]accounting.AccountingPeriod, error) {
	var rows []models.AccountingPeriodModel
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, end, start)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Order("start_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return periodsToDomain(rows), nil
}

// FindForDate returns the period containing date
func (r *GormAccountingPeriodRepository) FindForDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*accounting.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, date, date).
		Order("start_date DESC").
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists periods most recent first
func (r *GormAccountingPeriodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter accounting.PeriodFilter) ([]accounting.AccountingPeriod, error) {
	var rows []models.AccountingPeriodModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AccountingPeriodModel{}).Where("tenant_id = ?", tenantID), filter)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Order("start_date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return periodsToDomain(rows), nil
}

// CountForTenant counts periods matching the filter
func (r *GormAccountingPeriodRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter accounting.PeriodFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AccountingPeriodModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FiscalYears returns the tenant's distinct fiscal years, newest first
func (r *GormAccountingPeriodRepository) FiscalYears(ctx context.Context, tenantID uuid.UUID) ([]int, error) {
	var years []int
	if err := r.db.WithContext(ctx).Model(&models.AccountingPeriodModel{}).
		Where("tenant_id = ?", tenantID).
		Distinct("fiscal_year").
		Order("fiscal_year DESC").
		Pluck("fiscal_year", &years).Error; err != nil {
		return nil, err
	}
	return years, nil
}

// Save creates or updates a period. A duplicate name returns shared.ErrConflict.
func (r *GormAccountingPeriodRepository) Save(ctx context.Context, period *accounting.AccountingPeriod) error {
	model := models.AccountingPeriodModelFromDomain(period)
	return translateWriteError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a period
func (r *GormAccountingPeriodRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.AccountingPeriodModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormAccountingPeriodRepository) applyFilter(query *gorm.DB, filter accounting.PeriodFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(filter.Search))
	}
	if filter.FiscalYear != nil {
		query = query.Where("fiscal_year = ?", *filter.FiscalYear)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

func periodsToDomain(rows []models.AccountingPeriodModel) []accounting.AccountingPeriod {
	periods := make([]accounting.AccountingPeriod, len(rows))
	for i := range rows {
		periods[i] = *rows[i].ToDomain()
	}
	return periods
}

// Ensure GormAccountingPeriodRepository implements AccountingPeriodRepository
var _ accounting.AccountingPeriodRepository = (*GormAccountingPeriodRepository)(nil)
