package billing

import (
	"context"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// Reconciliation triggers. Services call these at the end of each write
// instead of relying on persistence hooks, so bulk paths can recompute once.

// OnTransactionChanged recomputes after a transaction is created, updated, deleted or restored.
// linked lists the distributions the transaction was linked to before the change.
// Those are settled first so rows that lost funds count as outstanding again,
// then the unit is recomputed as a whole with allocation.
func (a *BalanceAggregator) OnTransactionChanged(ctx context.Context, repos TransactionalRepositories, tx *billing.Transaction, linked []uuid.UUID) error {
	if tx.Type == billing.TransactionTypeBuildingIncome {
		return a.RefreshBuilding(ctx, repos, tx.BuildingID)
	}
	if tx.UnitID == nil {
		return billing.ErrNoTargetUnit
	}
	for _, id := range linked {
		upd := ForDistribution(id)
		upd.SkipAllocation = true
		if err := a.UpdateBalances(ctx, repos, upd); err != nil {
			return err
		}
	}
	return a.UpdateBalances(ctx, repos, ForUnit(*tx.UnitID))
}

// OnDistributionRemovedOrRestored recomputes after a distribution is deleted or restored.
// Plain creates and edits do not trigger; their callers recompute explicitly.
func (a *BalanceAggregator) OnDistributionRemovedOrRestored(ctx context.Context, repos TransactionalRepositories, distributionID uuid.UUID) error {
	return a.UpdateBalances(ctx, repos, ForDistribution(distributionID))
}

// linkedDistributionIDs returns the distinct distributions a transaction currently covers
func linkedDistributionIDs(links []*billing.TransactionDistributionLink) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(links))
	seen := make(map[uuid.UUID]struct{}, len(links))
	for _, l := range links {
		if _, ok := seen[l.DistributionID]; ok {
			continue
		}
		seen[l.DistributionID] = struct{}{}
		ids = append(ids, l.DistributionID)
	}
	return ids
}

func sumLinkAmounts(links []*billing.TransactionDistributionLink) int64 {
	var total int64
	for _, l := range links {
		total += l.PaidAmount
	}
	return total
}
