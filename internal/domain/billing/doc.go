// Package billing holds the domain model of a building's shared-cost ledger.
//
// A Building owns Units. Each unit keeps two ledgers, one for its residents and one
// for its owner, selected by TargetGroup. An Invoice is split across units by the
// DistributionCalculator into InvoiceDistributions, one per unit. Transactions are
// money received from a unit (or booked directly to the building) and are matched to
// distributions through TransactionDistributionLinks by the AllocationPlanner.
//
// Key Aggregates:
//   - Building: cached totals of its units plus building income
//   - Unit: base balances, cached paid and debt per ledger
//   - Invoice: a charge and its distributions
//   - Transaction: a unit payment or income booked to the building
//
// Allocation is FIFO by distribution creation time, capped by each transaction's
// unallocated remainder. Everything here is pure; persistence and locking live in
// the application and infrastructure layers.
package billing
