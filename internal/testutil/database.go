// Package testutil sets up throwaway databases, seeds ledger fixtures and
// carries the assertions shared by service and store tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trustledger/internal/models"
)

// Tables in dependency order. AutoMigrate stands in for the SQL migrations,
// which are Postgres-only.
var allModels = []interface{}{
	&models.User{},
	&models.Budget{},
	&models.Department{},
	&models.Project{},
	&models.Vendor{},
	&models.Transaction{},
	&models.AuditRecord{},
	&models.SigningKey{},
}

var dbSeq atomic.Int64

// SetupTestDB opens a named in-memory SQLite database private to the
// calling test. Each call gets a fresh schema, so tests may run in parallel.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// TeardownTestDB closes the connection pool, which drops the database.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("teardown: %v", err)
	}
}
