// Package integration runs the ledger against real PostgreSQL and Redis
// containers started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/buildingledger/backend/internal/infrastructure/logger"
	"github.com/buildingledger/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// sharedDB is the package-wide database reused by tests that only add rows
var sharedDB struct {
	mu        sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a migrated PostgreSQL database
type TestDB struct {
	DB  *gorm.DB
	DSN string
	t   *testing.T
}

// NewTestDB starts a private container, migrates it and terminates it on cleanup.
// Use it for tests that change the schema.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	container, dsn := startPostgres(t, "ledger_test")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})
	migrateUp(t, dsn)
	return &TestDB{DB: openGorm(t, dsn), DSN: dsn, t: t}
}

// NewSharedTestDB connects to the package-wide database, starting it on first use.
// Tests must create their own buildings and never count rows globally.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	sharedDB.mu.Lock()
	if sharedDB.container == nil {
		sharedDB.container, sharedDB.dsn = startPostgres(t, "ledger_shared_test")
		migrateUp(t, sharedDB.dsn)
	}
	dsn := sharedDB.dsn
	sharedDB.mu.Unlock()

	return &TestDB{DB: openGorm(t, dsn), DSN: dsn, t: t}
}

// CleanupSharedContainer terminates the shared database. TestMain calls it.
func CleanupSharedContainer() {
	sharedDB.mu.Lock()
	defer sharedDB.mu.Unlock()
	if sharedDB.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedDB.container.Terminate(ctx)
	sharedDB.container, sharedDB.dsn = nil, ""
}

// NewMigrator opens a migrator on its own lib/pq connection
func (tdb *TestDB) NewMigrator() *migration.Migrator {
	tdb.t.Helper()
	m := newMigrator(tdb.t, tdb.DSN, zaptest.NewLogger(tdb.t))
	tdb.t.Cleanup(func() { _ = m.Close() })
	return m
}

func startPostgres(t *testing.T, dbName string) (*tcpostgres.PostgresContainer, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")
	return container, dsn
}

// openGorm connects the way the server does. TEST_DB_DEBUG=1 logs every statement.
func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.NewGormLogger(zaptest.NewLogger(t), level),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err, "open gorm")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// the concurrency tests must contend on the building lock, not the pool
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newMigrator(t *testing.T, dsn string, log *zap.Logger) *migration.Migrator {
	t.Helper()
	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err, "open migration connection")
	m, err := migration.New(sqlDB, nil, log)
	require.NoError(t, err, "create migrator")
	return m
}

func migrateUp(t *testing.T, dsn string) {
	t.Helper()
	m := newMigrator(t, dsn, zap.NewNop())
	defer func() { _ = m.Close() }()
	require.NoError(t, m.Up(), "apply migrations")
}
