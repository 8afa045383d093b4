package testutil

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/fiscal/internal/infrastructure/persistence"
	"github.com/erp/fiscal/migrations"
)

// NewSQLiteDB opens a private in-memory SQLite database with the ledger schema.
// The pool is pinned to one connection because every new connection to
// ":memory:" opens a fresh, empty database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open SQLite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(db), "Failed to migrate schema")
	return db
}

// sqliteDialect rewrites the Postgres-only spellings of the embedded migrations
var sqliteDialect = strings.NewReplacer(
	"TIMESTAMPTZ", "TIMESTAMP",
	"NOW()", "CURRENT_TIMESTAMP",
)

// NewSQLiteSchemaDB opens an in-memory SQLite database built from the embedded
// SQL migrations instead of AutoMigrate, so the CHECK constraints of the
// production schema are enforced.
func NewSQLiteSchemaDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open SQLite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, name := range ups {
		raw, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		_, err = sqlDB.Exec(sqliteDialect.Replace(string(raw)))
		require.NoError(t, err, "Failed to apply %s", name)
	}
	return db
}
