package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/infrastructure/config"
	"github.com/buildingledger/backend/internal/infrastructure/lock"
	"github.com/buildingledger/backend/internal/infrastructure/logger"
	"github.com/buildingledger/backend/internal/infrastructure/migration"
	"github.com/buildingledger/backend/internal/infrastructure/persistence"
	"github.com/buildingledger/backend/internal/infrastructure/scheduler"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// defaultCreatePath is where `create` writes new files; they are embedded on the next build
const defaultCreatePath = "internal/infrastructure/migration/sql"

var errUsage = errors.New("usage")

// env is what a command runs with
type env struct {
	log    *zap.Logger
	args   []string
	source fs.FS
	dir    string
	cfg    *config.Config
	m      *migration.Migrator
}

// command describes one subcommand. minArgs counts arguments after the name.
// Commands with versioned set run against an open migrator.
type command struct {
	minArgs   int
	versioned bool
	run       func(ctx context.Context, e *env) error
}

var commands = map[string]command{
	"create": {minArgs: 1, run: func(_ context.Context, e *env) error {
		created, err := migration.CreateMigration(e.dir, e.args[0])
		if err != nil {
			return err
		}
		e.log.Info("Migration created",
			zap.Uint("version", created.Version),
			zap.String("up_file", created.UpPath),
			zap.String("down_file", created.DownPath),
		)
		return nil
	}},
	"list":      {run: listMigrations},
	"recompute": {minArgs: 1, run: recomputeCommand},
	"up":        {versioned: true, run: func(_ context.Context, e *env) error { return e.m.Up() }},
	"down":      {versioned: true, run: func(_ context.Context, e *env) error { return e.m.Down() }},
	"step": {minArgs: 1, versioned: true, run: func(_ context.Context, e *env) error {
		n, err := strconv.Atoi(e.args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", e.args[0])
		}
		return e.m.Steps(n)
	}},
	"goto": {minArgs: 1, versioned: true, run: func(_ context.Context, e *env) error {
		v, err := strconv.ParseUint(e.args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", e.args[0])
		}
		return e.m.GoTo(uint(v))
	}},
	"force": {minArgs: 1, versioned: true, run: func(_ context.Context, e *env) error {
		v, err := strconv.Atoi(e.args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", e.args[0])
		}
		return e.m.Force(v)
	}},
	"version": {versioned: true, run: func(_ context.Context, e *env) error {
		v, dirty, err := e.m.Version()
		if err != nil {
			return err
		}
		if v == 0 {
			e.log.Info("No migrations applied")
			return nil
		}
		e.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	}},
	"drop": {versioned: true, run: func(_ context.Context, e *env) error {
		if !slices.Contains(e.args, "-confirm") && !slices.Contains(e.args, "--confirm") {
			return errors.New("drop cancelled, pass -confirm to remove every ledger table")
		}
		return e.m.Drop()
	}},
}

func main() {
	migrationsPath := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	timeout := flag.Duration("timeout", 10*time.Minute, "Deadline for the command")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = run(ctx, log, *migrationsPath, flag.Args())
	cancel()
	_ = logger.Sync(log)

	switch {
	case errors.Is(err, errUsage):
		printUsage()
		os.Exit(2)
	case err != nil:
		log.Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, migrationsPath string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok || len(rest) < cmd.minArgs {
		log.Error("Unknown command or missing argument", zap.String("command", name))
		return errUsage
	}

	e := &env{log: log, args: rest, source: migration.EmbeddedSource(), dir: defaultCreatePath}
	if migrationsPath != "" {
		e.source = os.DirFS(migrationsPath)
		e.dir = migrationsPath
	}
	if name == "create" || name == "list" {
		return cmd.run(ctx, e)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	e.cfg = cfg
	if !cmd.versioned {
		return cmd.run(ctx, e)
	}

	if cfg.Database.Driver != "postgres" {
		if name != "up" {
			return fmt.Errorf("versioned migrations require postgres, driver is %s", cfg.Database.Driver)
		}
		return autoMigrate(cfg, log)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	e.m, err = migration.New(db, e.source, log)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer e.m.Close()
	return cmd.run(ctx, e)
}

func listMigrations(_ context.Context, e *env) error {
	entries, err := migration.ListMigrations(e.source)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		e.log.Info("No migrations found")
		return nil
	}
	e.log.Info("Available migrations", zap.Int("count", len(entries)))
	for _, m := range entries {
		suffix := ""
		if !m.HasDown {
			suffix = " (no down file)"
		}
		fmt.Printf("  - %s%s\n", m.Basename(), suffix)
	}
	return nil
}

// autoMigrate creates the sqlite schema from the gorm models
func autoMigrate(cfg *config.Config, log *zap.Logger) error {
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	log.Info("Schema created from models", zap.String("driver", cfg.Database.Driver))
	return nil
}

// recomputeCommand resets and reallocates every unit of one building, or of
// every building for "all". It takes the server's building lock, so it is
// safe against a live database.
func recomputeCommand(ctx context.Context, e *env) error {
	var buildingID uuid.UUID
	if e.args[0] != "all" {
		id, err := uuid.Parse(e.args[0])
		if err != nil {
			return fmt.Errorf("invalid building ID %q", e.args[0])
		}
		buildingID = id
	}

	cfg, log := e.cfg, e.log
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel("warn"))))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Lock.Provider == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	locker, err := lock.New(cfg.Lock, redisClient, log)
	if err != nil {
		return err
	}

	planner := billing.NewAllocationPlanner(billing.GroupBoundaryPolicy(cfg.Allocation.GroupBoundary))
	aggregator := appbilling.NewBalanceAggregator(appbilling.NewAllocationEngine(planner, log), log)
	scope := persistence.NewGormTransactionScope(db.DB)
	balances := appbilling.NewBalanceService(scope, locker, aggregator, log)

	if buildingID == uuid.Nil {
		properties := appbilling.NewPropertyService(scope, locker, aggregator, log)
		sweep, err := scheduler.NewCronTrigger(scheduler.DefaultCronTriggerConfig(), properties, balances, log)
		if err != nil {
			return err
		}
		result, err := sweep.RunSweep(ctx)
		if err != nil {
			return err
		}
		if missed := result.Failed + result.Skipped; missed > 0 {
			return fmt.Errorf("%d of %d buildings not recomputed", missed, result.Buildings)
		}
		return nil
	}

	start := time.Now()
	building, err := balances.RecomputeBuilding(ctx, buildingID)
	if err != nil {
		return err
	}
	log.Info("Building recomputed",
		zap.String("building_id", building.ID.String()),
		zap.Int64("paid_amount", building.PaidAmount),
		zap.Int64("total_debt", building.TotalDebt),
		zap.Int64("current_balance", building.CurrentBalance),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func printUsage() {
	fmt.Println(`Building Ledger Database Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                       Apply all pending migrations (sqlite: create tables from models)
  down                     Roll back all migrations
  step <n>                 Apply n migrations (positive=up, negative=down)
  goto <version>           Migrate to a specific version
  version                  Show current migration version
  force <version>          Force set migration version (use with caution)
  drop -confirm            Drop all ledger tables (DANGEROUS)
  create <name>            Create a new migration file pair
  list                     List available migrations
  recompute <building_id>  Reset and reallocate every unit of a building
  recompute all            Recompute every building

Flags:
  -path string             Migrations directory (default: embedded migrations)
  -log-level string        Log level: debug, info, warn, error (default: info)
  -timeout duration        Deadline for the command (default: 10m)

Environment Variables:
  BLD_DATABASE_HOST, BLD_DATABASE_PORT, BLD_DATABASE_USER, BLD_DATABASE_PASSWORD,
  BLD_DATABASE_DBNAME, BLD_DATABASE_SSLMODE, BLD_LOCK_PROVIDER, BLD_REDIS_HOST

Examples:
  migrate up
  migrate step -1
  migrate recompute 0191f5a0-7c1e-7d3a-9a52-2f1f8e6a4b10`)
}
