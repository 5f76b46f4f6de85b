package results

import (
	"testing"

	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/testutil"
	"gorm.io/gorm"
)

// setupTestStore creates a test database and results store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Record{})

	log := logger.NewTestLogger()
	store := NewSQLStore(db, log)

	return db, store
}
