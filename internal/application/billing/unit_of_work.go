package billing

import (
	"context"

	"github.com/buildingledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// unitOfWork pairs the building lock with a transaction scope.
// Writes resolve the buildings they touch in a short read scope, take the
// lock, and only then open the scope that mutates and recomputes.
type unitOfWork struct {
	scope  TransactionScope
	locker BuildingLocker
}

type buildingResolver func(ctx context.Context, repos TransactionalRepositories) ([]uuid.UUID, error)

func (u unitOfWork) run(ctx context.Context, resolve buildingResolver, fn func(repos TransactionalRepositories) error) error {
	var buildingIDs []uuid.UUID
	if err := u.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ids, err := resolve(ctx, repos)
		buildingIDs = ids
		return err
	}); err != nil {
		return err
	}
	return u.runLocked(ctx, buildingIDs, fn)
}

func (u unitOfWork) runLocked(ctx context.Context, buildingIDs []uuid.UUID, fn func(repos TransactionalRepositories) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "billing.locked_write", telemetry.BuildingIDs(buildingIDs...))
	defer telemetry.EndSpan(span, &err)

	if u.locker != nil && len(buildingIDs) > 0 {
		release, err := u.locker.Acquire(ctx, buildingIDs...)
		if err != nil {
			return err
		}
		defer release()
	}
	return u.scope.Execute(ctx, fn)
}

// read runs fn in a scope without taking any lock
func (u unitOfWork) read(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return u.scope.Execute(ctx, fn)
}

func buildingOfUnit(unitID uuid.UUID) buildingResolver {
	return func(ctx context.Context, repos TransactionalRepositories) ([]uuid.UUID, error) {
		unit, err := repos.UnitRepo().FindByID(ctx, unitID)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{unit.BuildingID}, nil
	}
}

func buildingOfInvoice(invoiceID uuid.UUID) buildingResolver {
	return func(ctx context.Context, repos TransactionalRepositories) ([]uuid.UUID, error) {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{invoice.BuildingID}, nil
	}
}

func buildingOfDistribution(distributionID uuid.UUID) buildingResolver {
	return func(ctx context.Context, repos TransactionalRepositories) ([]uuid.UUID, error) {
		d, err := repos.DistributionRepo().FindByIDWithDeleted(ctx, distributionID)
		if err != nil {
			return nil, err
		}
		return buildingOfUnit(d.UnitID)(ctx, repos)
	}
}

func buildingOfTransaction(transactionID uuid.UUID) buildingResolver {
	return func(ctx context.Context, repos TransactionalRepositories) ([]uuid.UUID, error) {
		tx, err := repos.TransactionRepo().FindByIDWithDeleted(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{tx.BuildingID}, nil
	}
}
