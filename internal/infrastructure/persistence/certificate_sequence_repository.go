package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// nextSequenceSQL increments the counter row in a single statement. Both
// Postgres and SQLite (3.35+) accept the upsert with RETURNING.
const nextSequenceSQL = `INSERT INTO certificate_sequences (tenant_id, seq_key, value, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (tenant_id, seq_key) DO UPDATE
SET value = certificate_sequences.value + 1, updated_at = excluded.updated_at
RETURNING value`

// GormSequenceRepository implements fiscal.SequenceRepository with counter rows
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next atomically increments the counter named key for the tenant
func (r *GormSequenceRepository) Next(ctx context.Context, tenantID uuid.UUID, key string) (int64, error) {
	var value int64
	if err := r.db.WithContext(ctx).
		Raw(nextSequenceSQL, tenantID, key, time.Now()).
		Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", key, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("failed to advance sequence %s: no value returned", key)
	}
	return value, nil
}

// Ensure GormSequenceRepository implements SequenceRepository
var _ fiscal.SequenceRepository = (*GormSequenceRepository)(nil)
