package persistence

import (
	"errors"
	"strings"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// pqUniqueViolation is the Postgres SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err was raised by a unique index
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	msg := err.Error()
	// pgx reports the SQLSTATE inside the message; sqlite has no code at all
	return strings.Contains(msg, "SQLSTATE "+pqUniqueViolation) ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// translateWriteError maps a unique violation to the retryable conflict error
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return shared.ErrConflict
	}
	return err
}

// translateReadError maps a missing row to shared.ErrNotFound
func translateReadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// likePattern builds a case-insensitive contains pattern for LOWER(col) LIKE ?
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
