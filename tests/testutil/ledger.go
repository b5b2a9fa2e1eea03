package testutil

import (
	"context"
	"testing"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/infrastructure/lock"
	"github.com/buildingledger/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger wires the billing services over a real database with an in-process locker.
type Ledger struct {
	DB           *gorm.DB
	Scope        *persistence.GormTransactionScope
	Locker       *lock.MemoryLocker
	Aggregator   *appbilling.BalanceAggregator
	Properties   *appbilling.PropertyService
	Invoices     *appbilling.InvoiceService
	Transactions *appbilling.TransactionService
	Balances     *appbilling.BalanceService
}

// NewLedger wires the services over a fresh in-memory sqlite database
func NewLedger(t *testing.T, policy billing.GroupBoundaryPolicy) *Ledger {
	t.Helper()
	return NewLedgerWithDB(t, NewSQLiteDB(t), policy)
}

// NewLedgerWithDB wires the services over an already migrated database
func NewLedgerWithDB(t *testing.T, db *gorm.DB, policy billing.GroupBoundaryPolicy) *Ledger {
	t.Helper()

	logger := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db)
	locker := lock.NewMemoryLocker()
	engine := appbilling.NewAllocationEngine(billing.NewAllocationPlanner(policy), logger)
	aggregator := appbilling.NewBalanceAggregator(engine, logger)

	return &Ledger{
		DB:           db,
		Scope:        scope,
		Locker:       locker,
		Aggregator:   aggregator,
		Properties:   appbilling.NewPropertyService(scope, locker, aggregator, logger),
		Invoices:     appbilling.NewInvoiceService(scope, locker, aggregator, logger),
		Transactions: appbilling.NewTransactionService(scope, locker, aggregator, logger),
		Balances:     appbilling.NewBalanceService(scope, locker, aggregator, logger),
	}
}

// UnitSeed describes a unit to seed; zero values are fine for equal splits.
type UnitSeed struct {
	Number    string
	Residents int
	Area      string
	Parking   int
}

// SeedBuilding creates a building
func (l *Ledger) SeedBuilding(t *testing.T, name string) uuid.UUID {
	t.Helper()
	resp, err := l.Properties.CreateBuilding(context.Background(), appbilling.CreateBuildingInput{Name: name})
	require.NoError(t, err)
	return resp.ID
}

// SeedUnits creates units in a building and returns their IDs in the given order
func (l *Ledger) SeedUnits(t *testing.T, buildingID uuid.UUID, seeds ...UnitSeed) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(seeds))
	for _, s := range seeds {
		area := decimal.Zero
		if s.Area != "" {
			area = decimal.RequireFromString(s.Area)
		}
		resp, err := l.Properties.CreateUnit(context.Background(), appbilling.CreateUnitInput{
			BuildingID:        buildingID,
			UnitNumber:        s.Number,
			Area:              area,
			NumberOfResidents: s.Residents,
			ParkingSpaces:     s.Parking,
		})
		require.NoError(t, err)
		ids = append(ids, resp.ID)
	}
	return ids
}

// IssueInvoice creates an invoice split across units with the given method
func (l *Ledger) IssueInvoice(
	t *testing.T,
	buildingID uuid.UUID,
	amount int64,
	group billing.TargetGroup,
	method billing.DistributionMethod,
	unitIDs ...uuid.UUID,
) *appbilling.InvoiceResponse {
	t.Helper()
	resp, err := l.Invoices.CreateInvoiceWithDistributions(context.Background(), appbilling.CreateInvoiceInput{
		BuildingID:  buildingID,
		Title:       "Charge",
		Amount:      amount,
		TargetGroup: group,
		Type:        billing.InvoiceTypeMonthlyCharge,
		Method:      method,
		UnitIDs:     unitIDs,
	})
	require.NoError(t, err)
	return resp
}

// Pay records a paid transaction against a unit ledger
func (l *Ledger) Pay(t *testing.T, unitID uuid.UUID, amount int64, group billing.TargetGroup) *appbilling.TransactionResponse {
	t.Helper()
	resp, err := l.Transactions.Record(context.Background(), appbilling.RecordTransactionInput{
		UnitID:        unitID,
		Amount:        amount,
		Status:        billing.TransactionStatusPaid,
		TargetGroup:   group,
		PaymentMethod: billing.PaymentMethodCash,
	})
	require.NoError(t, err)
	return resp
}

// Unit reads a unit's balances
func (l *Ledger) Unit(t *testing.T, unitID uuid.UUID) *appbilling.UnitResponse {
	t.Helper()
	resp, err := l.Balances.GetUnitBalance(context.Background(), unitID)
	require.NoError(t, err)
	return resp
}

// Building reads a building's balances
func (l *Ledger) Building(t *testing.T, buildingID uuid.UUID) *appbilling.BuildingResponse {
	t.Helper()
	resp, err := l.Balances.GetBuildingBalance(context.Background(), buildingID)
	require.NoError(t, err)
	return resp
}

// Distributions lists a unit's active distributions in FIFO order
func (l *Ledger) Distributions(t *testing.T, unitID uuid.UUID) []appbilling.DistributionResponse {
	t.Helper()
	resp, err := l.Balances.ListUnitDistributions(context.Background(), unitID)
	require.NoError(t, err)
	return resp
}
