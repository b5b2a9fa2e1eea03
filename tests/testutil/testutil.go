// Package testutil holds the fixtures shared by the ledger tests: a migrated
// sqlite database, the wired billing services and HTTP envelope helpers.
package testutil

import (
	"testing"

	"github.com/buildingledger/backend/internal/infrastructure/config"
	"github.com/buildingledger/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDB opens a migrated in-memory sqlite database that is closed on cleanup.
// Every call gets its own database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err, "Failed to open sqlite database")
	require.NoError(t, db.Migrate(), "Failed to migrate sqlite database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db.DB
}
