package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BalanceUpdate selects what the aggregator recomputes.
// DistributionID wins over UnitID when both are set.
type BalanceUpdate struct {
	DistributionID *uuid.UUID
	UnitID         *uuid.UUID
	// SkipAllocation leaves unallocated funds alone (plain distribution edits)
	SkipAllocation bool
	// ResetLinks releases every link of the unit before allocating again
	ResetLinks bool
}

// ForDistribution targets a single distribution and its unit
func ForDistribution(id uuid.UUID) BalanceUpdate {
	return BalanceUpdate{DistributionID: &id}
}

// ForUnit targets every active distribution of a unit
func ForUnit(id uuid.UUID) BalanceUpdate {
	return BalanceUpdate{UnitID: &id}
}

// BalanceAggregator recomputes cached balances bottom-up:
// links, distribution, invoice, unit, building. Every step reads fresh
// sums from storage so repeated runs converge on the same values.
type BalanceAggregator struct {
	engine *AllocationEngine
	logger *zap.Logger
}

// NewBalanceAggregator creates a new BalanceAggregator
func NewBalanceAggregator(engine *AllocationEngine, logger *zap.Logger) *BalanceAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = NewAllocationEngine(nil, logger)
	}
	return &BalanceAggregator{engine: engine, logger: logger}
}

// UpdateBalances runs the full recompute chain for one unit.
// Errors are logged with the identifying IDs and returned so the caller's scope rolls back.
func (a *BalanceAggregator) UpdateBalances(ctx context.Context, repos TransactionalRepositories, upd BalanceUpdate) (err error) {
	var unitID uuid.UUID
	defer func() {
		if err != nil {
			a.logger.Error("Balance update failed",
				zap.Stringp("distribution_id", uuidStringp(upd.DistributionID)),
				zap.Stringp("unit_id", uuidStringp(upd.UnitID)),
				zap.String("resolved_unit_id", unitID.String()),
				zap.Bool("reset_links", upd.ResetLinks),
				zap.Error(err),
			)
		}
	}()

	var distribution *billing.InvoiceDistribution
	switch {
	case upd.DistributionID != nil:
		distribution, err = repos.DistributionRepo().FindByIDWithDeleted(ctx, *upd.DistributionID)
		if err != nil {
			return err
		}
		unitID = distribution.UnitID
	case upd.UnitID != nil:
		unitID = *upd.UnitID
	default:
		return billing.ErrNoTargetUnit
	}

	unit, err := repos.UnitRepo().FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.ErrNoTargetUnit
		}
		return err
	}

	if upd.ResetLinks {
		if err = a.resetUnit(ctx, repos, unit.ID); err != nil {
			return err
		}
	}

	linked := 0
	if !upd.SkipAllocation {
		if linked, err = a.engine.AllocateUnassigned(ctx, repos, unit.ID); err != nil {
			return err
		}
	}

	if distribution != nil {
		if err = a.refreshDistribution(ctx, repos, distribution); err != nil {
			return err
		}
		if err = a.refreshInvoice(ctx, repos, distribution.InvoiceID); err != nil {
			return err
		}
	}
	// new links may have landed on other rows of the unit
	if distribution == nil || linked > 0 {
		if err = a.refreshUnitDistributions(ctx, repos, unit.ID); err != nil {
			return err
		}
	}

	if err = a.refreshUnit(ctx, repos, unit); err != nil {
		return err
	}
	return a.RefreshBuilding(ctx, repos, unit.BuildingID)
}

// RefreshBuilding recomputes the building aggregate from its units and income
func (a *BalanceAggregator) RefreshBuilding(ctx context.Context, repos TransactionalRepositories, buildingID uuid.UUID) error {
	building, err := repos.BuildingRepo().FindByID(ctx, buildingID)
	if err != nil {
		return err
	}
	ledgers, err := repos.UnitRepo().SumLedgers(ctx, buildingID)
	if err != nil {
		return fmt.Errorf("failed to sum unit ledgers: %w", err)
	}
	income, err := repos.TransactionRepo().SumPaidIncome(ctx, buildingID)
	if err != nil {
		return fmt.Errorf("failed to sum building income: %w", err)
	}
	building.ApplyTotals(billing.BuildingTotals{
		BaseBalance: ledgers.BaseBalance,
		TotalIncome: income,
		PaidAmount:  ledgers.PaidAmount,
		TotalDebt:   ledgers.TotalDebt,
	})
	return repos.BuildingRepo().UpdateTotals(ctx, building)
}

func (a *BalanceAggregator) resetUnit(ctx context.Context, repos TransactionalRepositories, unitID uuid.UUID) error {
	distributions, err := repos.DistributionRepo().FindByUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if len(distributions) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(distributions))
	for i, d := range distributions {
		ids[i] = d.ID
	}
	if err := repos.LinkRepo().SoftDeleteByDistributions(ctx, ids); err != nil {
		return fmt.Errorf("failed to release links: %w", err)
	}
	for _, d := range distributions {
		d.Reset()
		if err := repos.DistributionRepo().UpdateBalance(ctx, d); err != nil {
			return err
		}
	}
	a.logger.Info("Reset unit allocations",
		zap.String("unit_id", unitID.String()),
		zap.Int("distributions", len(distributions)),
	)
	return nil
}

func (a *BalanceAggregator) refreshUnitDistributions(ctx context.Context, repos TransactionalRepositories, unitID uuid.UUID) error {
	distributions, err := repos.DistributionRepo().FindByUnit(ctx, unitID)
	if err != nil {
		return err
	}
	seen := make(map[uuid.UUID]struct{}, len(distributions))
	for _, d := range distributions {
		if err := a.refreshDistribution(ctx, repos, d); err != nil {
			return err
		}
		if _, ok := seen[d.InvoiceID]; ok {
			continue
		}
		seen[d.InvoiceID] = struct{}{}
		if err := a.refreshInvoice(ctx, repos, d.InvoiceID); err != nil {
			return err
		}
	}
	return nil
}

func (a *BalanceAggregator) refreshDistribution(ctx context.Context, repos TransactionalRepositories, d *billing.InvoiceDistribution) error {
	paid, err := repos.LinkRepo().SumPaidForDistribution(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("failed to sum links for distribution %s: %w", d.ID, err)
	}
	d.ApplyPaidAmount(paid)
	return repos.DistributionRepo().UpdateBalance(ctx, d)
}

func (a *BalanceAggregator) refreshInvoice(ctx context.Context, repos TransactionalRepositories, invoiceID uuid.UUID) error {
	invoice, err := repos.InvoiceRepo().FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	paid, err := repos.DistributionRepo().SumPaidByInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to sum distributions for invoice %s: %w", invoiceID, err)
	}
	invoice.ApplyPaidAmount(paid)
	return repos.InvoiceRepo().UpdateBalance(ctx, invoice)
}

func (a *BalanceAggregator) refreshUnit(ctx context.Context, repos TransactionalRepositories, unit *billing.Unit) error {
	for _, group := range billing.AllTargetGroups() {
		debt, err := repos.DistributionRepo().SumAmountByUnit(ctx, unit.ID, group)
		if err != nil {
			return fmt.Errorf("failed to sum %s debt: %w", group, err)
		}
		paid, err := repos.TransactionRepo().SumPaidByUnit(ctx, unit.ID, group)
		if err != nil {
			return fmt.Errorf("failed to sum %s payments: %w", group, err)
		}
		unit.SetLedgerTotals(group, paid, debt)
	}
	return repos.UnitRepo().UpdateLedgers(ctx, unit)
}

func uuidStringp(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
