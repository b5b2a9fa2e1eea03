package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DistributionShare is one unit's computed portion of an invoice amount
type DistributionShare struct {
	UnitID      uuid.UUID `json:"unit_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
}

// CustomShare is a caller-supplied amount for one unit
type CustomShare struct {
	UnitID uuid.UUID `json:"unit_id"`
	Amount int64     `json:"amount"`
}

// DistributionCalculator splits an invoice amount across units.
// It never persists anything and always derives weights from the units it is given.
type DistributionCalculator struct{}

// NewDistributionCalculator creates a new calculator
func NewDistributionCalculator() *DistributionCalculator {
	return &DistributionCalculator{}
}

// Calculate returns one share per unit, in input order.
// Every share is rounded up, so the sum may exceed total by up to len(units)-1.
func (c *DistributionCalculator) Calculate(method DistributionMethod, units []*Unit, total int64) ([]DistributionShare, error) {
	if len(units) == 0 {
		return nil, NewInvalidDistributionError("At least one unit is required")
	}
	if total < 0 {
		return nil, NewInvalidDistributionError("Total amount cannot be negative")
	}
	if err := checkDistinct(unitIDs(units)); err != nil {
		return nil, err
	}

	switch method {
	case DistributionMethodEqual:
		return c.equal(units, total), nil
	case DistributionMethodPerPerson, DistributionMethodArea, DistributionMethodParking:
		return c.weighted(method, units, total)
	case DistributionMethodCustom:
		return nil, NewInvalidDistributionError("Custom distributions require explicit amounts per unit")
	default:
		return nil, NewInvalidDistributionError(fmt.Sprintf("Unknown distribution method: %s", method))
	}
}

// CalculateCustom passes explicit amounts through unchanged
func (c *DistributionCalculator) CalculateCustom(shares []CustomShare) ([]DistributionShare, error) {
	if len(shares) == 0 {
		return nil, NewInvalidDistributionError("At least one unit is required")
	}
	ids := make([]uuid.UUID, len(shares))
	result := make([]DistributionShare, len(shares))
	for i, s := range shares {
		if s.Amount < 0 {
			return nil, NewInvalidDistributionError(fmt.Sprintf("Amount for unit %s cannot be negative", s.UnitID))
		}
		ids[i] = s.UnitID
		result[i] = DistributionShare{
			UnitID:      s.UnitID,
			Amount:      s.Amount,
			Description: fmt.Sprintf("custom amount: %d", s.Amount),
		}
	}
	if err := checkDistinct(ids); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *DistributionCalculator) equal(units []*Unit, total int64) []DistributionShare {
	n := int64(len(units))
	amount := ceilDiv(total, n)
	shares := make([]DistributionShare, len(units))
	for i, u := range units {
		shares[i] = DistributionShare{
			UnitID:      u.ID,
			Amount:      amount,
			Description: fmt.Sprintf("equal split: ceil(%d / %d) = %d", total, n, amount),
		}
	}
	return shares
}

func (c *DistributionCalculator) weighted(method DistributionMethod, units []*Unit, total int64) ([]DistributionShare, error) {
	weights := make([]decimal.Decimal, len(units))
	sum := decimal.Zero
	for i, u := range units {
		w := u.Weight(method)
		if w.IsNegative() {
			return nil, NewInvalidDistributionError(fmt.Sprintf("Unit %s has a negative %s weight", u.UnitNumber, weightName(method)))
		}
		weights[i] = w
		sum = sum.Add(w)
	}
	if !sum.IsPositive() {
		return nil, NewInvalidDistributionError(fmt.Sprintf("Total %s of the selected units is zero", weightName(method)))
	}

	totalDec := decimal.NewFromInt(total)
	shares := make([]DistributionShare, len(units))
	for i, u := range units {
		q, r := totalDec.Mul(weights[i]).QuoRem(sum, 0)
		if r.IsPositive() {
			q = q.Add(decimal.NewFromInt(1))
		}
		amount := q.IntPart()
		shares[i] = DistributionShare{
			UnitID: u.ID,
			Amount: amount,
			Description: fmt.Sprintf("%s split: ceil(%d × %s / %s) = %d",
				weightName(method), total, weights[i].String(), sum.String(), amount),
		}
	}
	return shares, nil
}

func weightName(method DistributionMethod) string {
	switch method {
	case DistributionMethodPerPerson:
		return "residents"
	case DistributionMethodArea:
		return "area"
	case DistributionMethodParking:
		return "parking spaces"
	}
	return string(method)
}

func ceilDiv(a, b int64) int64 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func unitIDs(units []*Unit) []uuid.UUID {
	ids := make([]uuid.UUID, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}

func checkDistinct(ids []uuid.UUID) error {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return NewInvalidDistributionError(fmt.Sprintf("Unit %s appears more than once", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}
