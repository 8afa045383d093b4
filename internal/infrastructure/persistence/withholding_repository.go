package persistence

import (
	"context"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WithholdingSortFields contains allowed sort fields for withholding certificates
var WithholdingSortFields = map[string]bool{
	"retention_date":     true,
	"certificate_number": true,
	"beneficiary_name":   true,
	"withholding_amount": true,
	"created_at":         true,
}

// applyWithholdingFilter applies the filter columns shared by both withholding tables
func applyWithholdingFilter(query *gorm.DB, filter fiscal.WithholdingFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(beneficiary_name) LIKE ? OR LOWER(certificate_number) LIKE ? OR LOWER(invoice_number) LIKE ?",
			pattern, pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("retention_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("retention_date <= ?", *filter.To)
	}
	if filter.BeneficiaryRIF != "" {
		query = query.Where("beneficiary_rif = ?", filter.BeneficiaryRIF)
	}
	if filter.InvoiceNumber != "" {
		query = query.Where("invoice_number = ?", filter.InvoiceNumber)
	}
	if filter.OnlyNotExported {
		query = query.Where("exported_to_arc = ?", false)
	}
	return query
}

// pageWithholdings applies pagination and ordering, newest retention date first by default
func pageWithholdings(query *gorm.DB, filter fiscal.WithholdingFilter) *gorm.DB {
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, WithholdingSortFields, "retention_date")
	return query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).Order("certificate_number ASC")
}

func deleteDraftWithholding(ctx context.Context, db *gorm.DB, model any, tenantID, id uuid.UUID) error {
	result := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, fiscal.WithholdingStatusDraft).
		Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormIVAWithholdingRepository implements IVAWithholdingRepository using GORM
type GormIVAWithholdingRepository struct {
	db *gorm.DB
}

// NewGormIVAWithholdingRepository creates a new GormIVAWithholdingRepository
func NewGormIVAWithholdingRepository(db *gorm.DB) *GormIVAWithholdingRepository {
	return &GormIVAWithholdingRepository{db: db}
}

// FindByIDForTenant finds a certificate by ID within a tenant
func (r *GormIVAWithholdingRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.IVAWithholding, error) {
	var model models.IVAWithholdingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists certificates matching the filter
func (r *GormIVAWithholdingRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.WithholdingFilter) ([]fiscal.IVAWithholding, error) {
	var rows []models.IVAWithholdingModel
	query := applyWithholdingFilter(r.db.WithContext(ctx).Model(&models.IVAWithholdingModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := pageWithholdings(query, filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]fiscal.IVAWithholding, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

// CountForTenant counts certificates matching the filter
func (r *GormIVAWithholdingRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.WithholdingFilter) (int64, error) {
	var count int64
	query := applyWithholdingFilter(r.db.WithContext(ctx).Model(&models.IVAWithholdingModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a certificate. A duplicate certificate number returns shared.ErrConflict.
func (r *GormIVAWithholdingRepository) Create(ctx context.Context, w *fiscal.IVAWithholding) error {
	model := models.IVAWithholdingModelFromDomain(w)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error)
}

// Save updates a certificate
func (r *GormIVAWithholdingRepository) Save(ctx context.Context, w *fiscal.IVAWithholding) error {
	model := models.IVAWithholdingModelFromDomain(w)
	return translateWriteError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a draft certificate
func (r *GormIVAWithholdingRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteDraftWithholding(ctx, r.db, &models.IVAWithholdingModel{}, tenantID, id)
}

// GormISLRWithholdingRepository implements ISLRWithholdingRepository using GORM
type GormISLRWithholdingRepository struct {
	db *gorm.DB
}

// NewGormISLRWithholdingRepository creates a new GormISLRWithholdingRepository
func NewGormISLRWithholdingRepository(db *gorm.DB) *GormISLRWithholdingRepository {
	return &GormISLRWithholdingRepository{db: db}
}

// FindByIDForTenant finds a certificate by ID within a tenant
func (r *GormISLRWithholdingRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.ISLRWithholding, error) {
	var model models.ISLRWithholdingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists certificates matching the filter
func (r *GormISLRWithholdingRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.WithholdingFilter) ([]fiscal.ISLRWithholding, error) {
	var rows []models.ISLRWithholdingModel
	query := applyWithholdingFilter(r.db.WithContext(ctx).Model(&models.ISLRWithholdingModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := pageWithholdings(query, filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]fiscal.ISLRWithholding, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

// CountForTenant counts certificates matching the filter
func (r *GormISLRWithholdingRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter fiscal.WithholdingFilter) (int64, error) {
	var count int64
	query := applyWithholdingFilter(r.db.WithContext(ctx).Model(&models.ISLRWithholdingModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a certificate. A duplicate certificate number returns shared.ErrConflict.
func (r *GormISLRWithholdingRepository) Create(ctx context.Context, w *fiscal.ISLRWithholding) error {
	model := models.ISLRWithholdingModelFromDomain(w)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error)
}

// Save updates a certificate
func (r *GormISLRWithholdingRepository) Save(ctx context.Context, w *fiscal.ISLRWithholding) error {
	model := models.ISLRWithholdingModelFromDomain(w)
	return translateWriteError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a draft certificate
func (r *GormISLRWithholdingRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteDraftWithholding(ctx, r.db, &models.ISLRWithholdingModel{}, tenantID, id)
}

var (
	_ fiscal.IVAWithholdingRepository  = (*GormIVAWithholdingRepository)(nil)
	_ fiscal.ISLRWithholdingRepository = (*GormISLRWithholdingRepository)(nil)
)
