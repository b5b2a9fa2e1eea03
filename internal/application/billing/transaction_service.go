package billing

import (
	"context"
	"fmt"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService records payments and income and keeps their allocations consistent
type TransactionService struct {
	uow        unitOfWork
	aggregator *BalanceAggregator
	logger     *zap.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	scope TransactionScope,
	locker BuildingLocker,
	aggregator *BalanceAggregator,
	logger *zap.Logger,
) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		uow:        unitOfWork{scope: scope, locker: locker},
		aggregator: aggregator,
		logger:     logger,
	}
}

// Record creates a unit transaction and allocates it if it is paid
func (s *TransactionService) Record(ctx context.Context, input RecordTransactionInput) (*TransactionResponse, error) {
	var tx *billing.Transaction
	var allocated int64
	err := s.uow.run(ctx, buildingOfUnit(input.UnitID), func(repos TransactionalRepositories) error {
		unit, err := repos.UnitRepo().FindByID(ctx, input.UnitID)
		if err != nil {
			return err
		}
		tx, err = billing.NewUnitTransaction(unit, billing.TransactionAttributes{
			Amount:        input.Amount,
			Status:        input.Status,
			TargetGroup:   input.TargetGroup,
			PaymentMethod: input.PaymentMethod,
			Authority:     input.Authority,
			ReferenceID:   input.ReferenceID,
			Description:   input.Description,
			PaidAt:        input.PaidAt,
		})
		if err != nil {
			return err
		}
		if err := repos.TransactionRepo().Save(ctx, tx); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		if err := s.aggregator.OnTransactionChanged(ctx, repos, tx, nil); err != nil {
			return err
		}
		allocated, err = s.allocatedAmount(ctx, repos, tx.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("unit_id", input.UnitID.String()),
		zap.Int64("amount", tx.Amount),
		zap.String("status", string(tx.Status)),
		zap.Int64("allocated", allocated),
	)
	resp := ToTransactionResponse(tx, allocated)
	return &resp, nil
}

// RecordBuildingIncome books income against a building; only the building aggregate changes
func (s *TransactionService) RecordBuildingIncome(ctx context.Context, input RecordBuildingIncomeInput) (*TransactionResponse, error) {
	tx, err := billing.NewBuildingIncome(input.BuildingID, billing.TransactionAttributes{
		Amount:        input.Amount,
		Status:        input.Status,
		PaymentMethod: input.PaymentMethod,
		Description:   input.Description,
		PaidAt:        input.PaidAt,
	})
	if err != nil {
		return nil, err
	}
	err = s.uow.runLocked(ctx, []uuid.UUID{input.BuildingID}, func(repos TransactionalRepositories) error {
		if _, err := repos.BuildingRepo().FindByID(ctx, input.BuildingID); err != nil {
			return err
		}
		if err := repos.TransactionRepo().Save(ctx, tx); err != nil {
			return fmt.Errorf("failed to save building income: %w", err)
		}
		return s.aggregator.OnTransactionChanged(ctx, repos, tx, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Building income recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("building_id", input.BuildingID.String()),
		zap.Int64("amount", tx.Amount),
	)
	resp := ToTransactionResponse(tx, 0)
	return &resp, nil
}

// Update edits a transaction. Leaving paid, or dropping below the allocated
// amount, releases the transaction's links before recomputation.
func (s *TransactionService) Update(ctx context.Context, id uuid.UUID, input UpdateTransactionInput) (*TransactionResponse, error) {
	var tx *billing.Transaction
	var allocated int64
	err := s.uow.run(ctx, buildingOfTransaction(id), func(repos TransactionalRepositories) error {
		var err error
		tx, err = repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		links, err := repos.LinkRepo().FindByTransaction(ctx, id)
		if err != nil {
			return err
		}
		release, err := tx.Apply(billing.TransactionChange{
			Amount:      input.Amount,
			Status:      input.Status,
			Description: input.Description,
			ReferenceID: input.ReferenceID,
		}, sumLinkAmounts(links))
		if err != nil {
			return err
		}
		if err := repos.TransactionRepo().Update(ctx, tx); err != nil {
			return err
		}
		if release {
			if err := repos.LinkRepo().SoftDeleteByTransaction(ctx, id); err != nil {
				return fmt.Errorf("failed to release links: %w", err)
			}
		}
		if err := s.aggregator.OnTransactionChanged(ctx, repos, tx, linkedDistributionIDs(links)); err != nil {
			return err
		}
		allocated, err = s.allocatedAmount(ctx, repos, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx, allocated)
	return &resp, nil
}

// Delete releases the transaction's links, soft-deletes it and recomputes what it covered
func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.uow.run(ctx, buildingOfTransaction(id), func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		links, err := repos.LinkRepo().FindByTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.LinkRepo().SoftDeleteByTransaction(ctx, id); err != nil {
			return fmt.Errorf("failed to release links: %w", err)
		}
		if err := repos.TransactionRepo().SoftDelete(ctx, id); err != nil {
			return err
		}
		return s.aggregator.OnTransactionChanged(ctx, repos, tx, linkedDistributionIDs(links))
	})
	if err != nil {
		return err
	}
	s.logger.Info("Transaction deleted", zap.String("transaction_id", id.String()))
	return nil
}

// Restore undeletes a transaction; its funds are allocated afresh
func (s *TransactionService) Restore(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	var tx *billing.Transaction
	var allocated int64
	err := s.uow.run(ctx, buildingOfTransaction(id), func(repos TransactionalRepositories) error {
		var err error
		tx, err = repos.TransactionRepo().FindByIDWithDeleted(ctx, id)
		if err != nil {
			return err
		}
		if !tx.IsDeleted() {
			return shared.NewDomainError(shared.CodeInvalidState, "Transaction is not deleted")
		}
		if err := repos.TransactionRepo().Restore(ctx, id); err != nil {
			return err
		}
		tx.SoftDeletable.Restore()
		if err := s.aggregator.OnTransactionChanged(ctx, repos, tx, nil); err != nil {
			return err
		}
		allocated, err = s.allocatedAmount(ctx, repos, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx, allocated)
	return &resp, nil
}

// Get returns a transaction with its allocated and unallocated amounts
func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	var resp TransactionResponse
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.TransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		allocated, err := s.allocatedAmount(ctx, repos, id)
		if err != nil {
			return err
		}
		resp = ToTransactionResponse(tx, allocated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByUnit returns a page of a unit's transactions and the total count
func (s *TransactionService) ListByUnit(ctx context.Context, unitID uuid.UUID, filter billing.TransactionFilter) ([]TransactionResponse, int64, error) {
	var items []TransactionResponse
	var total int64
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		txs, count, err := repos.TransactionRepo().FindByUnit(ctx, unitID, filter)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(txs))
		for i, tx := range txs {
			ids[i] = tx.ID
		}
		allocated, err := repos.LinkRepo().SumAllocatedByTransactions(ctx, ids)
		if err != nil {
			return err
		}
		items = make([]TransactionResponse, len(txs))
		for i, tx := range txs {
			items[i] = ToTransactionResponse(tx, allocated[tx.ID])
		}
		total = count
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *TransactionService) allocatedAmount(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (int64, error) {
	sums, err := repos.LinkRepo().SumAllocatedByTransactions(ctx, []uuid.UUID{id})
	if err != nil {
		return 0, err
	}
	return sums[id], nil
}
