package billing

import (
	"context"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BalanceService exposes manual recomputation and balance read models
type BalanceService struct {
	uow        unitOfWork
	aggregator *BalanceAggregator
	logger     *zap.Logger
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(
	scope TransactionScope,
	locker BuildingLocker,
	aggregator *BalanceAggregator,
	logger *zap.Logger,
) *BalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceService{
		uow:        unitOfWork{scope: scope, locker: locker},
		aggregator: aggregator,
		logger:     logger,
	}
}

// ResetAndRecomputeUnit drops every allocation of the unit and rebuilds it from paid transactions
func (s *BalanceService) ResetAndRecomputeUnit(ctx context.Context, unitID uuid.UUID) (*UnitResponse, error) {
	var resp UnitResponse
	err := s.uow.run(ctx, buildingOfUnit(unitID), func(repos TransactionalRepositories) error {
		upd := ForUnit(unitID)
		upd.ResetLinks = true
		if err := s.aggregator.UpdateBalances(ctx, repos, upd); err != nil {
			return err
		}
		unit, err := repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		resp = ToUnitResponse(unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Unit balance recomputed", zap.String("unit_id", unitID.String()))
	return &resp, nil
}

// RecomputeBuilding resets and recomputes every unit of a building in one scope
func (s *BalanceService) RecomputeBuilding(ctx context.Context, buildingID uuid.UUID) (*BuildingResponse, error) {
	var resp BuildingResponse
	err := s.uow.runLocked(ctx, []uuid.UUID{buildingID}, func(repos TransactionalRepositories) error {
		units, err := repos.UnitRepo().FindByBuilding(ctx, buildingID)
		if err != nil {
			return err
		}
		for _, u := range units {
			upd := ForUnit(u.ID)
			upd.ResetLinks = true
			if err := s.aggregator.UpdateBalances(ctx, repos, upd); err != nil {
				return err
			}
		}
		if err := s.aggregator.RefreshBuilding(ctx, repos, buildingID); err != nil {
			return err
		}
		building, err := repos.BuildingRepo().FindByID(ctx, buildingID)
		if err != nil {
			return err
		}
		resp = ToBuildingResponse(building)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Building balances recomputed", zap.String("building_id", buildingID.String()))
	return &resp, nil
}

// GetUnitBalance returns a unit with both ledgers and their current balances
func (s *BalanceService) GetUnitBalance(ctx context.Context, unitID uuid.UUID) (*UnitResponse, error) {
	var resp UnitResponse
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		unit, err := repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		resp = ToUnitResponse(unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBuildingBalance returns a building's cached aggregate and current balance
func (s *BalanceService) GetBuildingBalance(ctx context.Context, buildingID uuid.UUID) (*BuildingResponse, error) {
	var resp BuildingResponse
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		building, err := repos.BuildingRepo().FindByID(ctx, buildingID)
		if err != nil {
			return err
		}
		resp = ToBuildingResponse(building)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUnitDistributions returns a unit's active distributions in FIFO order
func (s *BalanceService) ListUnitDistributions(ctx context.Context, unitID uuid.UUID) ([]DistributionResponse, error) {
	var ds []*billing.InvoiceDistribution
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.UnitRepo().FindByID(ctx, unitID); err != nil {
			return err
		}
		var err error
		ds, err = repos.DistributionRepo().FindByUnit(ctx, unitID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToDistributionResponses(ds), nil
}
