package billing

import (
	"context"

	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LedgerTotals are the summed unit fields rolled up into a building
type LedgerTotals struct {
	BaseBalance int64
	PaidAmount  int64
	TotalDebt   int64
}

// TransactionFilter defines filtering options for transaction queries
type TransactionFilter struct {
	shared.Filter
	Status      *TransactionStatus // Filter by status
	TargetGroup *TargetGroup       // Filter by ledger
}

// BuildingRepository defines the interface for building persistence
type BuildingRepository interface {
	// FindByID finds a building by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Building, error)

	// Save creates a building
	Save(ctx context.Context, building *Building) error

	// UpdateTotals writes the four cached balance fields
	UpdateTotals(ctx context.Context, building *Building) error

	// ListIDs returns the IDs of all buildings, oldest first
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// UnitRepository defines the interface for unit persistence
type UnitRepository interface {
	// FindByID finds a unit by ID with its members loaded
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)

	// FindByIDs finds units by ID in the order given; a missing ID is NOT_FOUND
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Unit, error)

	// FindByBuilding finds all units of a building ordered by unit number
	FindByBuilding(ctx context.Context, buildingID uuid.UUID) ([]*Unit, error)

	// Save creates a unit and its memberships
	Save(ctx context.Context, unit *Unit) error

	// Update writes the unit's attributes and base balances
	Update(ctx context.Context, unit *Unit) error

	// UpdateLedgers writes the cached paid, debt and total debt fields
	UpdateLedgers(ctx context.Context, unit *Unit) error

	// AddMember stores a membership of an existing unit
	AddMember(ctx context.Context, member UnitMember) error

	// RemoveMember deletes a membership; a missing row is NOT_FOUND
	RemoveMember(ctx context.Context, member UnitMember) error

	// SumLedgers sums base balances, paid amounts and total debt over a building's units
	SumLedgers(ctx context.Context, buildingID uuid.UUID) (LedgerTotals, error)
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// Save creates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// UpdateBalance writes paid_amount and status
	UpdateBalance(ctx context.Context, invoice *Invoice) error
}

// DistributionRepository defines the interface for invoice distribution persistence.
// Finders skip soft-deleted rows unless their name says otherwise.
type DistributionRepository interface {
	// FindByID finds an active distribution by ID
	FindByID(ctx context.Context, id uuid.UUID) (*InvoiceDistribution, error)

	// FindByIDWithDeleted finds a distribution by ID whether or not it is deleted
	FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*InvoiceDistribution, error)

	// FindByInvoice finds the active distributions of an invoice in FIFO order
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceDistribution, error)

	// FindByUnit finds the active distributions of a unit in FIFO order
	FindByUnit(ctx context.Context, unitID uuid.UUID) ([]*InvoiceDistribution, error)

	// FindOutstandingByUnit finds active unpaid distributions of a unit in FIFO order
	FindOutstandingByUnit(ctx context.Context, unitID uuid.UUID) ([]*InvoiceDistribution, error)

	// ExistsActive reports whether an active row exists for the invoice and unit
	ExistsActive(ctx context.Context, invoiceID, unitID uuid.UUID) (bool, error)

	// CreateBatch creates distributions
	CreateBatch(ctx context.Context, distributions []*InvoiceDistribution) error

	// Update writes amount, description, status and paid_amount
	Update(ctx context.Context, distribution *InvoiceDistribution) error

	// UpdateBalance writes paid_amount and status only
	UpdateBalance(ctx context.Context, distribution *InvoiceDistribution) error

	// SoftDelete marks a distribution deleted
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// Restore clears the deleted marker
	Restore(ctx context.Context, id uuid.UUID) error

	// SumAmountByUnit sums amount over a unit's active distributions for one group
	SumAmountByUnit(ctx context.Context, unitID uuid.UUID, group TargetGroup) (int64, error)

	// SumPaidByInvoice sums paid_amount over an invoice's active distributions
	SumPaidByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// FindByID finds an active transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByIDWithDeleted finds a transaction by ID whether or not it is deleted
	FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByUnit lists a unit's active transactions
	FindByUnit(ctx context.Context, unitID uuid.UUID, filter TransactionFilter) ([]*Transaction, int64, error)

	// FindPaidByUnit finds a unit's active paid transactions in creation order
	FindPaidByUnit(ctx context.Context, unitID uuid.UUID) ([]*Transaction, error)

	// Save creates a transaction
	Save(ctx context.Context, transaction *Transaction) error

	// Update writes the mutable transaction fields
	Update(ctx context.Context, transaction *Transaction) error

	// SoftDelete marks a transaction deleted
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// Restore clears the deleted marker
	Restore(ctx context.Context, id uuid.UUID) error

	// SumPaidByUnit sums amount over a unit's active paid unit transactions for one group
	SumPaidByUnit(ctx context.Context, unitID uuid.UUID, group TargetGroup) (int64, error)

	// SumPaidIncome sums amount over a building's active paid income transactions
	SumPaidIncome(ctx context.Context, buildingID uuid.UUID) (int64, error)
}

// LinkRepository defines the interface for transaction-distribution link persistence.
// Every query ignores soft-deleted links.
type LinkRepository interface {
	// CreateBatch creates links
	CreateBatch(ctx context.Context, links []*TransactionDistributionLink) error

	// FindByTransaction finds a transaction's active links
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*TransactionDistributionLink, error)

	// FindByDistribution finds a distribution's active links
	FindByDistribution(ctx context.Context, distributionID uuid.UUID) ([]*TransactionDistributionLink, error)

	// SumAllocatedByTransactions sums paid_amount per transaction
	SumAllocatedByTransactions(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]int64, error)

	// SumPaidForDistribution sums paid_amount over links whose transaction is paid and active
	SumPaidForDistribution(ctx context.Context, distributionID uuid.UUID) (int64, error)

	// SoftDeleteByTransaction releases every link of a transaction
	SoftDeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error

	// SoftDeleteByDistributions releases every link of the given distributions
	SoftDeleteByDistributions(ctx context.Context, distributionIDs []uuid.UUID) error
}
