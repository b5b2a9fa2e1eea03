package billing_test

import (
	"context"
	"testing"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateUnit_BaseBalancesRollUp(t *testing.T) {
	l := newLedger(t)
	b := l.SeedBuilding(t, "Tower")
	units := l.SeedUnits(t, b, testutil.UnitSeed{Number: "1"}, testutil.UnitSeed{Number: "2"})
	l.IssueInvoice(t, b, 400, resident, equal, units...)
	l.Pay(t, units[0], 100, resident)

	updated, err := l.Properties.UpdateUnit(context.Background(), units[0], appbilling.UpdateUnitInput{
		ResidentBaseBalance: ptr(int64(-50)),
		OwnerBaseBalance:    ptr(int64(300)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-50), updated.Resident.BaseBalance)
	assert.Equal(t, int64(300), updated.Owner.BaseBalance)
	// -50 + 100 - 200 on the resident side, 300 on the owner side
	assert.Equal(t, int64(150), updated.CurrentBalance)
	assert.Equal(t, int64(100), updated.Resident.PaidAmount)
	assert.Equal(t, int64(200), updated.Resident.Debt)

	building := l.Building(t, b)
	assert.Equal(t, int64(250), building.BaseBalance)
	assertLedgerInvariants(t, l.DB, b)
}

func TestUpdateUnit_WeightsApplyToLaterInvoices(t *testing.T) {
	l := newLedger(t)
	b := l.SeedBuilding(t, "Tower")
	units := l.SeedUnits(t, b,
		testutil.UnitSeed{Number: "1", Residents: 1},
		testutil.UnitSeed{Number: "2", Residents: 1},
	)
	first := l.IssueInvoice(t, b, 600, resident, billing.DistributionMethodPerPerson, units...)

	_, err := l.Properties.UpdateUnit(context.Background(), units[1], appbilling.UpdateUnitInput{
		NumberOfResidents: ptr(2),
		Area:              ptr(decimal.RequireFromString("70.456")),
		Floor:             ptr(4),
	})
	require.NoError(t, err)
	unit := l.Unit(t, units[1])
	assert.Equal(t, 2, unit.NumberOfResidents)
	assert.Equal(t, "70.46", unit.Area.StringFixed(2))
	assert.Equal(t, 4, unit.Floor)

	// stored shares keep their amounts
	assert.Equal(t, int64(300), l.Distributions(t, units[1])[0].Amount)
	assert.Equal(t, int64(300), first.Distributions[1].Amount)

	second := l.IssueInvoice(t, b, 600, resident, billing.DistributionMethodPerPerson, units...)
	shares := map[uuid.UUID]int64{}
	for _, d := range second.Distributions {
		shares[d.UnitID] = d.Amount
	}
	assert.Equal(t, int64(200), shares[units[0]])
	assert.Equal(t, int64(400), shares[units[1]])
	assertLedgerInvariants(t, l.DB, b)
}

func TestUpdateUnit_Errors(t *testing.T) {
	l := newLedger(t)
	b := l.SeedBuilding(t, "Tower")
	units := l.SeedUnits(t, b, testutil.UnitSeed{Number: "1"}, testutil.UnitSeed{Number: "2"})
	ctx := context.Background()

	tests := []struct {
		name     string
		unitID   uuid.UUID
		input    appbilling.UpdateUnitInput
		wantCode string
	}{
		{"unknown unit", uuid.New(), appbilling.UpdateUnitInput{Floor: ptr(1)}, shared.CodeNotFound},
		{"negative area", units[0], appbilling.UpdateUnitInput{Area: ptr(decimal.NewFromInt(-1))}, shared.CodeInvalidInput},
		{"negative parking", units[0], appbilling.UpdateUnitInput{ParkingSpaces: ptr(-2)}, shared.CodeInvalidInput},
		{"empty number", units[0], appbilling.UpdateUnitInput{UnitNumber: ptr("")}, shared.CodeInvalidInput},
		{"duplicate number", units[0], appbilling.UpdateUnitInput{UnitNumber: ptr("2")}, shared.CodeAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Properties.UpdateUnit(ctx, tt.unitID, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, shared.CodeOf(err))
		})
	}

	assert.Equal(t, "1", l.Unit(t, units[0]).UnitNumber, "rejected edits leave the unit untouched")
}

func TestUnitMembers_AddAndRemove(t *testing.T) {
	l := newLedger(t)
	b := l.SeedBuilding(t, "Tower")
	unit := l.SeedUnits(t, b, testutil.UnitSeed{Number: "1"})[0]
	ctx := context.Background()
	user := uuid.New()

	resp, err := l.Properties.AddUnitMember(ctx, unit, appbilling.UnitMemberInput{UserID: user, Role: owner})
	require.NoError(t, err)
	assert.Equal(t, []billing.UnitMember{{UnitID: unit, UserID: user, Role: owner}}, resp.Members)

	// the same user may also live in the unit
	resp, err = l.Properties.AddUnitMember(ctx, unit, appbilling.UnitMemberInput{UserID: user, Role: resident})
	require.NoError(t, err)
	assert.Len(t, resp.Members, 2)

	_, err = l.Properties.AddUnitMember(ctx, unit, appbilling.UnitMemberInput{UserID: user, Role: owner})
	assert.Equal(t, shared.CodeAlreadyExists, shared.CodeOf(err))

	resp, err = l.Properties.RemoveUnitMember(ctx, unit, appbilling.UnitMemberInput{UserID: user, Role: owner})
	require.NoError(t, err)
	assert.Equal(t, []billing.UnitMember{{UnitID: unit, UserID: user, Role: resident}}, resp.Members)
	assert.Equal(t, resp.Members, l.Unit(t, unit).Members)

	_, err = l.Properties.RemoveUnitMember(ctx, unit, appbilling.UnitMemberInput{UserID: user, Role: owner})
	assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))

	_, err = l.Properties.AddUnitMember(ctx, uuid.New(), appbilling.UnitMemberInput{UserID: user, Role: owner})
	assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
}
