package persistence

import (
	"context"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormIVADeclarationRepository implements IVADeclarationRepository using GORM
type GormIVADeclarationRepository struct {
	db *gorm.DB
}

// NewGormIVADeclarationRepository creates a new GormIVADeclarationRepository
func NewGormIVADeclarationRepository(db *gorm.DB) *GormIVADeclarationRepository {
	return &GormIVADeclarationRepository{db: db}
}

// FindByIDForTenant finds a declaration by ID within a tenant
func (r *GormIVADeclarationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.IVADeclaration, error) {
	var model models.IVADeclarationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindByPeriod finds the declaration of month/year
func (r *GormIVADeclarationRepository) FindByPeriod(ctx context.Context, tenantID uuid.UUID, month, year int) (*fiscal.IVADeclaration, error) {
	var model models.IVADeclarationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND month = ? AND year = ?", tenantID, month, year).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists declarations, most recent period first
func (r *GormIVADeclarationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.DeclarationFilter) ([]fiscal.IVADeclaration, error) {
	var rows []models.IVADeclarationModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.IVADeclarationModel{}).Where("tenant_id = ?", tenantID), filter)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Order("year DESC, month DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]fiscal.IVADeclaration, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

// CountForTenant counts declarations matching the filter
func (r *GormIVADeclarationRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.DeclarationFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.IVADeclarationModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a declaration. A second declaration for the same month returns shared.ErrConflict.
func (r *GormIVADeclarationRepository) Save(ctx context.Context, d *fiscal.IVADeclaration) error {
	model := models.IVADeclarationModelFromDomain(d)
	return translateWriteError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a declaration
func (r *GormIVADeclarationRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.IVADeclarationModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormIVADeclarationRepository) applyFilter(query *gorm.DB, filter fiscal.DeclarationFilter) *gorm.DB {
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// Ensure GormIVADeclarationRepository implements IVADeclarationRepository
var _ fiscal.IVADeclarationRepository = (*GormIVADeclarationRepository)(nil)
