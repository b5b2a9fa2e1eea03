package billing

import (
	"github.com/buildingledger/backend/internal/domain/shared"
)

// Building is the top of the balance hierarchy.
// All four balance fields are caches maintained by the balance aggregator.
type Building struct {
	shared.BaseEntity
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	BaseBalance int64  `json:"base_balance"`
	TotalIncome int64  `json:"total_income"`
	PaidAmount  int64  `json:"paid_amount"`
	TotalDebt   int64  `json:"total_debt"`
}

// NewBuilding creates a new building with zeroed balances
func NewBuilding(name, address, city string) (*Building, error) {
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Building name cannot be empty")
	}
	return &Building{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Address:    address,
		City:       city,
	}, nil
}

// CurrentBalance returns base_balance + paid_amount + total_income - total_debt
func (b *Building) CurrentBalance() int64 {
	return b.BaseBalance + b.PaidAmount + b.TotalIncome - b.TotalDebt
}

// BuildingTotals holds freshly summed child values for a building
type BuildingTotals struct {
	BaseBalance int64
	TotalIncome int64
	PaidAmount  int64
	TotalDebt   int64
}

// ApplyTotals overwrites the cached balance fields
func (b *Building) ApplyTotals(t BuildingTotals) {
	b.BaseBalance = t.BaseBalance
	b.TotalIncome = t.TotalIncome
	b.PaidAmount = t.PaidAmount
	b.TotalDebt = t.TotalDebt
}
