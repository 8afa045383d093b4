package persistence

import (
	"context"
	"errors"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountSortFields contains allowed sort fields for accounts
var AccountSortFields = map[string]bool{
	"code":       true,
	"name":       true,
	"type":       true,
	"created_at": true,
}

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByIDForTenant finds an account by ID within a tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*accounting.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds an account by its code within a tenant
func (r *GormAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*accounting.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the tenant's accounts among ids. Missing ids are simply absent from the map.
func (r *GormAccountRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*accounting.Account, error) {
	result := make(map[uuid.UUID]*accounting.Account, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].ToDomain()
	}
	return result, nil
}

// FindAllForTenant lists the chart of accounts of a tenant
func (r *GormAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter accounting.AccountFilter) ([]accounting.Account, error) {
	var rows []models.AccountModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("tenant_id = ?", tenantID), filter)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, AccountSortFields, "code")
	orderDir := "ASC"
	if filter.OrderBy != "" {
		orderDir = ValidateSortOrder(filter.OrderDir)
	}
	if err := query.Order(orderBy + " " + orderDir).Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]accounting.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// CountForTenant counts accounts matching the filter
func (r *GormAccountRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter accounting.AccountFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LastCodeWithPrefix returns the greatest code starting with prefix, or "" when there is none.
// Codes share the prefix and grow by length first, so ordering by length then value is numeric.
func (r *GormAccountRepository) LastCodeWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error) {
	var model models.AccountModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code LIKE ?", tenantID, prefix+"%").
		Order("LENGTH(code) DESC, code DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.Code, nil
}

// Save creates or updates an account. A duplicate code returns shared.ErrConflict.
func (r *GormAccountRepository) Save(ctx context.Context, account *accounting.Account) error {
	model := models.AccountModelFromDomain(account)
	return translateWriteError(r.db.WithContext(ctx).Save(model).Error)
}

func (r *GormAccountRepository) applyFilter(query *gorm.DB, filter accounting.AccountFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR code LIKE ?", pattern, pattern)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.IsSystem != nil {
		query = query.Where("is_system = ?", *filter.IsSystem)
	}
	return query
}

// Ensure GormAccountRepository implements AccountRepository
var _ accounting.AccountRepository = (*GormAccountRepository)(nil)
