// Package scheduler runs the nightly reconcile sweep that recomputes every building's balances.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BuildingProvider lists the buildings a sweep visits
type BuildingProvider interface {
	ListBuildingIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BuildingRecomputer rebuilds one building from its distributions and transactions
type BuildingRecomputer interface {
	RecomputeBuilding(ctx context.Context, buildingID uuid.UUID) (*appbilling.BuildingResponse, error)
}

// SweepRecorder receives the outcome of every finished sweep
type SweepRecorder interface {
	RecordSweep(ctx context.Context, recomputed, skipped, failed int, elapsed time.Duration)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	DailyHour   int
	DailyMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// Concurrency bounds how many buildings are recomputed at once
	Concurrency int

	// BuildingTimeout bounds a single building's recompute
	BuildingTimeout time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		DailyHour:       2, // 2am
		DailyMinute:     0,
		CheckInterval:   time.Minute,
		Concurrency:     4,
		BuildingTimeout: 5 * time.Minute,
	}
}

func (c CronTriggerConfig) validate() error {
	if c.DailyHour < 0 || c.DailyHour > 23 || c.DailyMinute < 0 || c.DailyMinute > 59 {
		return fmt.Errorf("%w: run time %02d:%02d", ErrInvalidConfig, c.DailyHour, c.DailyMinute)
	}
	if c.CheckInterval <= 0 || c.Concurrency <= 0 || c.BuildingTimeout <= 0 {
		return fmt.Errorf("%w: interval, concurrency and timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// SweepResult summarizes one pass over all buildings
type SweepResult struct {
	Buildings  int
	Recomputed int
	Skipped    int // building lock held elsewhere
	Failed     int
	Duration   time.Duration
}

// CronTrigger recomputes every building once a day
type CronTrigger struct {
	config     CronTriggerConfig
	buildings  BuildingProvider
	recomputer BuildingRecomputer
	logger     *zap.Logger
	recorder   SweepRecorder
	now        func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	sweeping    atomic.Bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	buildings BuildingProvider,
	recomputer BuildingRecomputer,
	logger *zap.Logger,
) (*CronTrigger, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:     config,
		buildings:  buildings,
		recomputer: recomputer,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// SetRecorder reports every finished sweep to r. Call it before Start.
func (c *CronTrigger) SetRecorder(r SweepRecorder) {
	c.recorder = r
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Reconcile trigger started",
		zap.Int("daily_hour", c.config.DailyHour),
		zap.Int("daily_minute", c.config.DailyMinute),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop cancels a running sweep and waits for the loop to exit
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Reconcile trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the sweep at most once per calendar day, at the configured minute
func (c *CronTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.now()
	currentDate := now.Format("2006-01-02")

	c.mu.Lock()
	if c.lastRunDate == currentDate {
		c.mu.Unlock()
		return false
	}
	if now.Hour() != c.config.DailyHour || now.Minute() != c.config.DailyMinute {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = currentDate
	c.mu.Unlock()

	if _, err := c.RunSweep(ctx); err != nil {
		c.logger.Error("Reconcile sweep failed", zap.Error(err))
	}
	return true
}

// RunSweep recomputes every building now. Buildings whose lock is held elsewhere are
// skipped; other failures are logged and counted without stopping the sweep.
func (c *CronTrigger) RunSweep(ctx context.Context) (SweepResult, error) {
	if !c.sweeping.CompareAndSwap(false, true) {
		return SweepResult{}, ErrSweepInProgress
	}
	defer c.sweeping.Store(false)

	start := c.now()
	ids, err := c.buildings.ListBuildingIDs(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list buildings: %w", err)
	}
	c.logger.Info("Reconcile sweep started", zap.Int("buildings", len(ids)))

	var recomputed, skipped, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(c.config.Concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			bctx, cancel := context.WithTimeout(ctx, c.config.BuildingTimeout)
			defer cancel()

			_, err := c.recomputer.RecomputeBuilding(bctx, id)
			switch {
			case err == nil:
				recomputed.Add(1)
			case errors.Is(err, shared.ErrLockNotObtained):
				skipped.Add(1)
				c.logger.Warn("Building busy, skipped", zap.String("building_id", id.String()))
			default:
				failed.Add(1)
				c.logger.Error("Building recompute failed",
					zap.String("building_id", id.String()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := SweepResult{
		Buildings:  len(ids),
		Recomputed: int(recomputed.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
		Duration:   c.now().Sub(start),
	}
	c.logger.Info("Reconcile sweep finished",
		zap.Int("recomputed", result.Recomputed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	if c.recorder != nil {
		c.recorder.RecordSweep(ctx, result.Recomputed, result.Skipped, result.Failed, result.Duration)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
