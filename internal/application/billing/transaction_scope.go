package billing

import (
	"context"

	"github.com/buildingledger/backend/internal/domain/billing"
)

// TransactionScope provides transactional access to billing repositories.
// Every write that touches balances runs inside one scope so that a failure
// anywhere in the recompute chain rolls the whole operation back.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all billing repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// BuildingRepo returns the building repository scoped to the current transaction
	BuildingRepo() billing.BuildingRepository
	// UnitRepo returns the unit repository scoped to the current transaction
	UnitRepo() billing.UnitRepository
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
	// DistributionRepo returns the invoice distribution repository scoped to the current transaction
	DistributionRepo() billing.DistributionRepository
	// TransactionRepo returns the transaction repository scoped to the current transaction
	TransactionRepo() billing.TransactionRepository
	// LinkRepo returns the link repository scoped to the current transaction
	LinkRepo() billing.LinkRepository
}

// Repositories bundles non-transactional repositories for NoOpTransactionScope
type Repositories struct {
	Buildings     billing.BuildingRepository
	Units         billing.UnitRepository
	Invoices      billing.InvoiceRepository
	Distributions billing.DistributionRepository
	Transactions  billing.TransactionRepository
	Links         billing.LinkRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with mocked repositories.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BuildingRepo returns the building repository.
func (s *NoOpTransactionScope) BuildingRepo() billing.BuildingRepository { return s.repos.Buildings }

// UnitRepo returns the unit repository.
func (s *NoOpTransactionScope) UnitRepo() billing.UnitRepository { return s.repos.Units }

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository { return s.repos.Invoices }

// DistributionRepo returns the distribution repository.
func (s *NoOpTransactionScope) DistributionRepo() billing.DistributionRepository {
	return s.repos.Distributions
}

// TransactionRepo returns the transaction repository.
func (s *NoOpTransactionScope) TransactionRepo() billing.TransactionRepository {
	return s.repos.Transactions
}

// LinkRepo returns the link repository.
func (s *NoOpTransactionScope) LinkRepo() billing.LinkRepository { return s.repos.Links }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
