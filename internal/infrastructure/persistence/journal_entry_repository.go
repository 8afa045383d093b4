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

// GormJournalEntryRepository implements JournalEntryRepository using GORM.
// Entries are written once with their lines and never updated.
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByIDForTenant finds an entry with its lines
func (r *GormJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*accounting.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists entries newest first
func (r *GormJournalEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter accounting.JournalEntryFilter) ([]accounting.JournalEntry, error) {
	var rows []models.JournalEntryModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).Where("tenant_id = ?", tenantID), filter)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.
		Preload("Lines", preloadLines).
		Order("date DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return entriesToDomain(rows), nil
}

// CountForTenant counts entries matching the filter
func (r *GormJournalEntryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter accounting.JournalEntryFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindInRange returns the tenant's entries dated inside [from, to], oldest first
func (r *GormJournalEntryRepository) FindInRange(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]accounting.JournalEntry, error) {
	var rows []models.JournalEntryModel
	query := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).Where("tenant_id = ?", tenantID)
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date <= ?", *to)
	}
	if err := query.
		Preload("Lines", preloadLines).
		Order("date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return entriesToDomain(rows), nil
}

// CountInRange counts entries dated inside [from, to]
func (r *GormJournalEntryRepository) CountInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND date >= ? AND date <= ?", tenantID, from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindBySourceRef finds the automatic entry produced by ref, optionally on the day of date
func (r *GormJournalEntryRepository) FindBySourceRef(ctx context.Context, tenantID uuid.UUID, ref string, date *time.Time) (*accounting.JournalEntry, error) {
	var model models.JournalEntryModel
	query := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("tenant_id = ? AND source_ref = ?", tenantID, ref)
	if date != nil {
		query = query.Where("date >= ? AND date <= ?", accounting.DayStart(*date), accounting.DayEnd(*date))
	}
	if err := query.First(&model).Error; err != nil {
		return nil, translateReadError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts the entry and its lines in one transaction
func (r *GormJournalEntryRepository) Create(ctx context.Context, entry *accounting.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return translateWriteError(err)
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return tx.Create(&model.Lines).Error
	})
}

// Delete removes an entry and its lines
func (r *GormJournalEntryRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND entry_id = ?", tenantID, id).
			Delete(&models.JournalLineModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.JournalEntryModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormJournalEntryRepository) applyFilter(query *gorm.DB, filter accounting.JournalEntryFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(description) LIKE ?", likePattern(filter.Search))
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}
	if filter.IsAutomatic != nil {
		query = query.Where("is_automatic = ?", *filter.IsAutomatic)
	}
	if filter.AccountID != nil {
		query = query.Where("id IN (?)",
			r.db.Model(&models.JournalLineModel{}).Select("entry_id").Where("account_id = ?", *filter.AccountID))
	}
	return query
}

func entriesToDomain(rows []models.JournalEntryModel) []accounting.JournalEntry {
	entries := make([]accounting.JournalEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries
}

// Ensure GormJournalEntryRepository implements JournalEntryRepository
var _ accounting.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
