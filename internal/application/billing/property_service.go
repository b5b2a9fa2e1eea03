package billing

import (
	"context"
	"fmt"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PropertyService registers buildings and units, the lookup side the engine reads from
type PropertyService struct {
	uow        unitOfWork
	aggregator *BalanceAggregator
	logger     *zap.Logger
}

// NewPropertyService creates a new PropertyService
func NewPropertyService(
	scope TransactionScope,
	locker BuildingLocker,
	aggregator *BalanceAggregator,
	logger *zap.Logger,
) *PropertyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyService{
		uow:        unitOfWork{scope: scope, locker: locker},
		aggregator: aggregator,
		logger:     logger,
	}
}

// CreateBuilding registers a building with zero balances
func (s *PropertyService) CreateBuilding(ctx context.Context, input CreateBuildingInput) (*BuildingResponse, error) {
	building, err := billing.NewBuilding(input.Name, input.Address, input.City)
	if err != nil {
		return nil, err
	}
	err = s.uow.read(ctx, func(repos TransactionalRepositories) error {
		return repos.BuildingRepo().Save(ctx, building)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save building: %w", err)
	}
	s.logger.Info("Building created", zap.String("building_id", building.ID.String()))
	resp := ToBuildingResponse(building)
	return &resp, nil
}

// ListBuildingIDs returns the IDs of every building, oldest first
func (s *PropertyService) ListBuildingIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		var err error
		ids, err = repos.BuildingRepo().ListIDs(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	return ids, nil
}

// CreateUnit adds a unit to a building. Base balances roll into the building immediately.
func (s *PropertyService) CreateUnit(ctx context.Context, input CreateUnitInput) (*UnitResponse, error) {
	unit, err := billing.NewUnit(input.BuildingID, input.UnitNumber)
	if err != nil {
		return nil, err
	}
	if input.Type != "" {
		unit.Type = input.Type
	}
	if input.Area.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Area cannot be negative")
	}
	unit.Area = input.Area.Round(2)
	unit.Floor = input.Floor
	unit.NumberOfRooms = input.NumberOfRooms
	unit.NumberOfResidents = input.NumberOfResidents
	unit.ParkingSpaces = input.ParkingSpaces
	unit.Resident.BaseBalance = input.ResidentBaseBalance
	unit.Owner.BaseBalance = input.OwnerBaseBalance
	for _, m := range input.Members {
		if !m.Role.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid member role")
		}
		unit.Members = append(unit.Members, billing.UnitMember{UnitID: unit.ID, UserID: m.UserID, Role: m.Role})
	}

	err = s.uow.runLocked(ctx, []uuid.UUID{input.BuildingID}, func(repos TransactionalRepositories) error {
		if _, err := repos.BuildingRepo().FindByID(ctx, input.BuildingID); err != nil {
			return err
		}
		if err := repos.UnitRepo().Save(ctx, unit); err != nil {
			return fmt.Errorf("failed to save unit: %w", err)
		}
		return s.aggregator.RefreshBuilding(ctx, repos, input.BuildingID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Unit created",
		zap.String("unit_id", unit.ID.String()),
		zap.String("building_id", unit.BuildingID.String()),
	)
	resp := ToUnitResponse(unit)
	return &resp, nil
}

// ListUnits returns every unit of a building
func (s *PropertyService) ListUnits(ctx context.Context, buildingID uuid.UUID) ([]UnitResponse, error) {
	var out []UnitResponse
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.BuildingRepo().FindByID(ctx, buildingID); err != nil {
			return err
		}
		units, err := repos.UnitRepo().FindByBuilding(ctx, buildingID)
		if err != nil {
			return err
		}
		out = make([]UnitResponse, len(units))
		for i, u := range units {
			out[i] = ToUnitResponse(u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUnit edits a unit's attributes and base balances, then recomputes the unit
// and its building so the new base balances show up in both aggregates.
func (s *PropertyService) UpdateUnit(ctx context.Context, unitID uuid.UUID, input UpdateUnitInput) (*UnitResponse, error) {
	change := billing.UnitChange{
		UnitNumber:          input.UnitNumber,
		Type:                input.Type,
		Area:                input.Area,
		Floor:               input.Floor,
		NumberOfRooms:       input.NumberOfRooms,
		NumberOfResidents:   input.NumberOfResidents,
		ParkingSpaces:       input.ParkingSpaces,
		ResidentBaseBalance: input.ResidentBaseBalance,
		OwnerBaseBalance:    input.OwnerBaseBalance,
	}

	var resp UnitResponse
	err := s.uow.run(ctx, buildingOfUnit(unitID), func(repos TransactionalRepositories) error {
		unit, err := repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		if err := unit.Apply(change); err != nil {
			return err
		}
		if err := repos.UnitRepo().Update(ctx, unit); err != nil {
			return err
		}
		if err := s.aggregator.UpdateBalances(ctx, repos, ForUnit(unitID)); err != nil {
			return err
		}
		unit, err = repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		resp = ToUnitResponse(unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Unit updated", zap.String("unit_id", unitID.String()))
	return &resp, nil
}

// AddUnitMember assigns a user to a unit under a role
func (s *PropertyService) AddUnitMember(ctx context.Context, unitID uuid.UUID, input UnitMemberInput) (*UnitResponse, error) {
	return s.changeMembers(ctx, unitID, func(repos TransactionalRepositories, unit *billing.Unit) error {
		member, err := unit.AddMember(input.UserID, input.Role)
		if err != nil {
			return err
		}
		return repos.UnitRepo().AddMember(ctx, member)
	})
}

// RemoveUnitMember drops a user's role from a unit
func (s *PropertyService) RemoveUnitMember(ctx context.Context, unitID uuid.UUID, input UnitMemberInput) (*UnitResponse, error) {
	return s.changeMembers(ctx, unitID, func(repos TransactionalRepositories, unit *billing.Unit) error {
		if err := unit.RemoveMember(input.UserID, input.Role); err != nil {
			return err
		}
		return repos.UnitRepo().RemoveMember(ctx, billing.UnitMember{UnitID: unitID, UserID: input.UserID, Role: input.Role})
	})
}

// changeMembers runs a membership edit under the building lock. Memberships
// carry no money, so balances are left alone.
func (s *PropertyService) changeMembers(
	ctx context.Context,
	unitID uuid.UUID,
	fn func(repos TransactionalRepositories, unit *billing.Unit) error,
) (*UnitResponse, error) {
	var resp UnitResponse
	err := s.uow.run(ctx, buildingOfUnit(unitID), func(repos TransactionalRepositories) error {
		unit, err := repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		if err := fn(repos, unit); err != nil {
			return err
		}
		resp = ToUnitResponse(unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Unit members changed",
		zap.String("unit_id", unitID.String()),
		zap.Int("members", len(resp.Members)),
	)
	return &resp, nil
}
