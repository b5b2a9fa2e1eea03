package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationEngine links a unit's unallocated paid funds to its outstanding distributions.
// It must run inside a TransactionScope while the unit's building is locked.
type AllocationEngine struct {
	planner *billing.AllocationPlanner
	metrics AllocationMetrics
	logger  *zap.Logger
}

// AllocationMetrics receives the outcome of each allocation pass
type AllocationMetrics interface {
	RecordAllocation(ctx context.Context, links int, amount int64, elapsed time.Duration)
}

type noopAllocationMetrics struct{}

func (noopAllocationMetrics) RecordAllocation(context.Context, int, int64, time.Duration) {}

// NewAllocationEngine creates a new AllocationEngine
func NewAllocationEngine(planner *billing.AllocationPlanner, logger *zap.Logger) *AllocationEngine {
	if planner == nil {
		planner = billing.NewAllocationPlanner(billing.GroupBoundaryStop)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationEngine{planner: planner, metrics: noopAllocationMetrics{}, logger: logger}
}

// WithMetrics sets the recorder for allocation passes
func (e *AllocationEngine) WithMetrics(m AllocationMetrics) *AllocationEngine {
	if m != nil {
		e.metrics = m
	}
	return e
}

// AllocateUnassigned creates links for the unit and returns how many were created
func (e *AllocationEngine) AllocateUnassigned(ctx context.Context, repos TransactionalRepositories, unitID uuid.UUID) (int, error) {
	start := time.Now()
	outstanding, err := repos.DistributionRepo().FindOutstandingByUnit(ctx, unitID)
	if err != nil {
		return 0, fmt.Errorf("failed to load outstanding distributions: %w", err)
	}
	if len(outstanding) == 0 {
		return 0, nil
	}

	transactions, err := repos.TransactionRepo().FindPaidByUnit(ctx, unitID)
	if err != nil {
		return 0, fmt.Errorf("failed to load paid transactions: %w", err)
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	linkRepo := repos.LinkRepo()
	txIDs := make([]uuid.UUID, len(transactions))
	for i, tx := range transactions {
		txIDs[i] = tx.ID
	}
	allocated, err := linkRepo.SumAllocatedByTransactions(ctx, txIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to sum allocated amounts: %w", err)
	}

	funds := make([]billing.AvailableFunds, 0, len(transactions))
	for _, tx := range transactions {
		if left := tx.Amount - allocated[tx.ID]; left > 0 {
			funds = append(funds, billing.AvailableFunds{
				TransactionID: tx.ID,
				TargetGroup:   tx.TargetGroup,
				Unallocated:   left,
			})
		}
	}
	if len(funds) == 0 {
		return 0, nil
	}

	debts := make([]billing.OutstandingDebt, 0, len(outstanding))
	for _, d := range outstanding {
		paid, err := linkRepo.SumPaidForDistribution(ctx, d.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to sum paid amount for distribution %s: %w", d.ID, err)
		}
		// A stale unpaid status on a covered row is settled by the aggregator afterwards.
		needed := max(d.Amount-paid, 0)
		debts = append(debts, billing.OutstandingDebt{
			DistributionID: d.ID,
			TargetGroup:    d.TargetGroup,
			Needed:         needed,
		})
	}

	planned, err := e.planner.Plan(debts, funds)
	if err != nil {
		return 0, err
	}
	if len(planned) == 0 {
		return 0, nil
	}

	links := make([]*billing.TransactionDistributionLink, len(planned))
	var total int64
	for i, p := range planned {
		links[i] = billing.NewTransactionDistributionLink(p.TransactionID, p.DistributionID, p.Amount)
		total += p.Amount
	}
	if err := linkRepo.CreateBatch(ctx, links); err != nil {
		return 0, fmt.Errorf("failed to create allocation links: %w", err)
	}
	e.metrics.RecordAllocation(ctx, len(links), total, time.Since(start))

	e.logger.Debug("Allocated unassigned funds",
		zap.String("unit_id", unitID.String()),
		zap.Int("links", len(links)),
		zap.Int64("amount", total),
		zap.String("policy", string(e.planner.Policy())),
	)
	return len(links), nil
}
