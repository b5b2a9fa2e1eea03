package billing

import (
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// GroupBoundaryPolicy controls how the FIFO scan treats distributions of another target group
type GroupBoundaryPolicy string

const (
	// GroupBoundaryStop passes over other-group distributions until the
	// transaction has matched one, then ends its scan at the next mismatch.
	GroupBoundaryStop GroupBoundaryPolicy = "stop"
	// GroupBoundarySkip passes over other-group distributions and keeps scanning.
	GroupBoundarySkip GroupBoundaryPolicy = "skip"
)

// IsValid checks if the policy is valid
func (p GroupBoundaryPolicy) IsValid() bool {
	return p == GroupBoundaryStop || p == GroupBoundarySkip
}

// OutstandingDebt is a distribution that can still receive funds
type OutstandingDebt struct {
	DistributionID uuid.UUID
	TargetGroup    TargetGroup
	Needed         int64
}

// AvailableFunds is a paid transaction with money not yet linked to any distribution
type AvailableFunds struct {
	TransactionID uuid.UUID
	TargetGroup   TargetGroup
	Unallocated   int64
}

// PlannedLink is one allocation the engine should persist
type PlannedLink struct {
	TransactionID  uuid.UUID
	DistributionID uuid.UUID
	Amount         int64
}

// AllocationPlanner matches unallocated funds against outstanding debts, oldest debt first.
// Debts and funds must already be in FIFO order (created_at, then id).
type AllocationPlanner struct {
	policy GroupBoundaryPolicy
}

// NewAllocationPlanner creates a planner; an invalid policy falls back to GroupBoundaryStop
func NewAllocationPlanner(policy GroupBoundaryPolicy) *AllocationPlanner {
	if !policy.IsValid() {
		policy = GroupBoundaryStop
	}
	return &AllocationPlanner{policy: policy}
}

// Policy returns the boundary policy in effect
func (p *AllocationPlanner) Policy() GroupBoundaryPolicy {
	return p.policy
}

// Plan returns the links to create. It never allocates more than a debt
// still needs or more than a transaction has left, and never crosses groups.
func (p *AllocationPlanner) Plan(debts []OutstandingDebt, funds []AvailableFunds) ([]PlannedLink, error) {
	queue := make([]OutstandingDebt, 0, len(debts))
	for _, d := range debts {
		if d.Needed < 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Distribution is overpaid: "+d.DistributionID.String())
		}
		if d.Needed > 0 {
			queue = append(queue, d)
		}
	}

	links := make([]PlannedLink, 0)
	for _, f := range funds {
		remaining := f.Unallocated
		if remaining <= 0 {
			continue
		}
		matched := false
		for i := 0; i < len(queue) && remaining > 0; {
			debt := &queue[i]
			if debt.TargetGroup != f.TargetGroup {
				if matched && p.policy == GroupBoundaryStop {
					break
				}
				i++
				continue
			}

			matched = true
			amount := min(debt.Needed, remaining)
			links = append(links, PlannedLink{
				TransactionID:  f.TransactionID,
				DistributionID: debt.DistributionID,
				Amount:         amount,
			})
			remaining -= amount
			debt.Needed -= amount
			if debt.Needed == 0 {
				queue = append(queue[:i], queue[i+1:]...)
				continue
			}
			i++
		}
	}
	return links, nil
}
