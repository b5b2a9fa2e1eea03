package billing

import (
	"context"
	"fmt"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService issues invoices, splits them across units and maintains the split
type InvoiceService struct {
	uow        unitOfWork
	aggregator *BalanceAggregator
	calculator *billing.DistributionCalculator
	logger     *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	locker BuildingLocker,
	aggregator *BalanceAggregator,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		uow:        unitOfWork{scope: scope, locker: locker},
		aggregator: aggregator,
		calculator: billing.NewDistributionCalculator(),
		logger:     logger,
	}
}

// CalculateDistribution previews how an amount would be split. Nothing is persisted.
func (s *InvoiceService) CalculateDistribution(ctx context.Context, input CalculateDistributionInput) ([]billing.DistributionShare, error) {
	var shares []billing.DistributionShare
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		if len(input.UnitIDs) == 0 {
			return billing.NewInvalidDistributionError("At least one unit is required")
		}
		units, err := repos.UnitRepo().FindByIDs(ctx, input.UnitIDs)
		if err != nil {
			return err
		}
		shares, err = s.calculator.Calculate(input.Method, units, input.TotalAmount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// CreateInvoiceWithDistributions persists the invoice, one unpaid distribution per unit,
// and recomputes balances for every created row.
func (s *InvoiceService) CreateInvoiceWithDistributions(ctx context.Context, input CreateInvoiceInput) (*InvoiceResponse, error) {
	invoice, err := billing.NewInvoice(billing.InvoiceAttributes{
		BuildingID:               input.BuildingID,
		CategoryID:               input.CategoryID,
		Title:                    input.Title,
		Description:              input.Description,
		Amount:                   input.Amount,
		TargetGroup:              input.TargetGroup,
		Type:                     input.Type,
		DueDate:                  input.DueDate,
		IsCoveredByMonthlyCharge: input.IsCoveredByMonthlyCharge,
	})
	if err != nil {
		return nil, err
	}

	var created []*billing.InvoiceDistribution
	err = s.uow.runLocked(ctx, []uuid.UUID{input.BuildingID}, func(repos TransactionalRepositories) error {
		if _, err := repos.BuildingRepo().FindByID(ctx, input.BuildingID); err != nil {
			return err
		}
		shares, err := s.computeShares(ctx, repos, invoice, input.Method, input.UnitIDs, input.CustomAmounts)
		if err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		created, err = s.createDistributions(ctx, repos, invoice, input.Method, shares)
		if err != nil {
			return err
		}
		return s.reload(ctx, repos, invoice, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("building_id", invoice.BuildingID.String()),
		zap.String("method", string(input.Method)),
		zap.Int("distributions", len(created)),
	)
	resp := ToInvoiceResponse(invoice, created)
	return &resp, nil
}

// BulkReplaceDistributions drops the invoice's current split and creates a new one.
// Units that fall out of the split are recomputed too, since their links were released.
func (s *InvoiceService) BulkReplaceDistributions(ctx context.Context, invoiceID uuid.UUID, input ReplaceDistributionsInput) ([]DistributionResponse, error) {
	var created []*billing.InvoiceDistribution
	err := s.uow.run(ctx, buildingOfInvoice(invoiceID), func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		shares, err := s.computeShares(ctx, repos, invoice, input.Method, input.UnitIDs, input.CustomAmounts)
		if err != nil {
			return err
		}

		existing, err := repos.DistributionRepo().FindByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := s.removeDistributions(ctx, repos, existing); err != nil {
			return err
		}

		created, err = s.createDistributions(ctx, repos, invoice, input.Method, shares)
		if err != nil {
			return err
		}

		kept := make(map[uuid.UUID]struct{}, len(created))
		for _, d := range created {
			kept[d.UnitID] = struct{}{}
		}
		for _, d := range existing {
			if _, ok := kept[d.UnitID]; ok {
				continue
			}
			kept[d.UnitID] = struct{}{}
			if err := s.aggregator.UpdateBalances(ctx, repos, ForUnit(d.UnitID)); err != nil {
				return err
			}
		}
		return s.reload(ctx, repos, invoice, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice distributions replaced",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("method", string(input.Method)),
		zap.Int("distributions", len(created)),
	)
	return ToDistributionResponses(created), nil
}

// DeleteDistribution removes one unit from an invoice's split and re-splits the
// invoice amount over the remaining units. Custom splits keep their amounts.
func (s *InvoiceService) DeleteDistribution(ctx context.Context, id uuid.UUID) error {
	err := s.uow.run(ctx, buildingOfDistribution(id), func(repos TransactionalRepositories) error {
		distRepo := repos.DistributionRepo()
		target, err := distRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		invoice, err := repos.InvoiceRepo().FindByID(ctx, target.InvoiceID)
		if err != nil {
			return err
		}
		all, err := distRepo.FindByInvoice(ctx, invoice.ID)
		if err != nil {
			return err
		}
		siblings := make([]*billing.InvoiceDistribution, 0, len(all))
		for _, d := range all {
			if d.ID != target.ID {
				siblings = append(siblings, d)
			}
		}

		if len(siblings) > 0 && target.DistributionMethod.IsComputed() {
			if err := s.redistribute(ctx, repos, invoice, target.DistributionMethod, siblings); err != nil {
				return err
			}
		}

		if err := s.removeDistributions(ctx, repos, []*billing.InvoiceDistribution{target}); err != nil {
			return err
		}

		for _, d := range siblings {
			if err := s.aggregator.UpdateBalances(ctx, repos, ForDistribution(d.ID)); err != nil {
				return err
			}
		}
		return s.aggregator.OnDistributionRemovedOrRestored(ctx, repos, target.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Invoice distribution deleted", zap.String("distribution_id", id.String()))
	return nil
}

// UpdateDistribution edits description or status and recomputes without allocating new funds
func (s *InvoiceService) UpdateDistribution(ctx context.Context, id uuid.UUID, input UpdateDistributionInput) (*DistributionResponse, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid distribution status")
	}

	var result *billing.InvoiceDistribution
	err := s.uow.run(ctx, buildingOfDistribution(id), func(repos TransactionalRepositories) error {
		d, err := repos.DistributionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Description != nil {
			d.Description = *input.Description
		}
		if input.Status != nil {
			d.Status = *input.Status
		}
		if err := repos.DistributionRepo().Update(ctx, d); err != nil {
			return err
		}
		upd := ForDistribution(d.ID)
		upd.SkipAllocation = true
		if err := s.aggregator.UpdateBalances(ctx, repos, upd); err != nil {
			return err
		}
		result, err = repos.DistributionRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToDistributionResponse(result)
	return &resp, nil
}

// RestoreDistribution brings a deleted distribution back and recomputes its unit.
// Sibling amounts are left as they are.
func (s *InvoiceService) RestoreDistribution(ctx context.Context, id uuid.UUID) (*DistributionResponse, error) {
	var result *billing.InvoiceDistribution
	err := s.uow.run(ctx, buildingOfDistribution(id), func(repos TransactionalRepositories) error {
		distRepo := repos.DistributionRepo()
		d, err := distRepo.FindByIDWithDeleted(ctx, id)
		if err != nil {
			return err
		}
		if !d.IsDeleted() {
			return shared.NewDomainError(shared.CodeInvalidState, "Distribution is not deleted")
		}
		exists, err := distRepo.ExistsActive(ctx, d.InvoiceID, d.UnitID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeInvalidState, "Unit already has an active distribution for this invoice")
		}
		if err := distRepo.Restore(ctx, id); err != nil {
			return err
		}
		if err := s.aggregator.OnDistributionRemovedOrRestored(ctx, repos, id); err != nil {
			return err
		}
		result, err = distRepo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToDistributionResponse(result)
	return &resp, nil
}

// GetInvoice returns an invoice with its active distributions
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	var resp InvoiceResponse
	err := s.uow.read(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		ds, err := repos.DistributionRepo().FindByInvoice(ctx, id)
		if err != nil {
			return err
		}
		resp = ToInvoiceResponse(invoice, ds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *InvoiceService) computeShares(
	ctx context.Context,
	repos TransactionalRepositories,
	invoice *billing.Invoice,
	method billing.DistributionMethod,
	unitIDs []uuid.UUID,
	custom []billing.CustomShare,
) ([]billing.DistributionShare, error) {
	if method == billing.DistributionMethodCustom {
		shares, err := s.calculator.CalculateCustom(custom)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, len(shares))
		for i, sh := range shares {
			ids[i] = sh.UnitID
		}
		if _, err := s.loadBuildingUnits(ctx, repos, invoice.BuildingID, ids); err != nil {
			return nil, err
		}
		return shares, nil
	}
	if len(unitIDs) == 0 {
		return nil, billing.NewInvalidDistributionError("At least one unit is required")
	}
	units, err := s.loadBuildingUnits(ctx, repos, invoice.BuildingID, unitIDs)
	if err != nil {
		return nil, err
	}
	return s.calculator.Calculate(method, units, invoice.Amount)
}

func (s *InvoiceService) loadBuildingUnits(ctx context.Context, repos TransactionalRepositories, buildingID uuid.UUID, ids []uuid.UUID) ([]*billing.Unit, error) {
	units, err := repos.UnitRepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		if u.BuildingID != buildingID {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Unit %s does not belong to building %s", u.ID, buildingID))
		}
	}
	return units, nil
}

func (s *InvoiceService) createDistributions(
	ctx context.Context,
	repos TransactionalRepositories,
	invoice *billing.Invoice,
	method billing.DistributionMethod,
	shares []billing.DistributionShare,
) ([]*billing.InvoiceDistribution, error) {
	created := make([]*billing.InvoiceDistribution, len(shares))
	for i, share := range shares {
		created[i] = billing.NewInvoiceDistribution(invoice, method, share)
	}
	if err := repos.DistributionRepo().CreateBatch(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create distributions: %w", err)
	}
	for _, d := range created {
		if err := s.aggregator.UpdateBalances(ctx, repos, ForDistribution(d.ID)); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// removeDistributions releases links and soft-deletes rows without recomputing
func (s *InvoiceService) removeDistributions(ctx context.Context, repos TransactionalRepositories, ds []*billing.InvoiceDistribution) error {
	if len(ds) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	if err := repos.LinkRepo().SoftDeleteByDistributions(ctx, ids); err != nil {
		return fmt.Errorf("failed to release links: %w", err)
	}
	for _, id := range ids {
		if err := repos.DistributionRepo().SoftDelete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// redistribute re-splits the invoice amount over the given rows and persists new amounts
func (s *InvoiceService) redistribute(
	ctx context.Context,
	repos TransactionalRepositories,
	invoice *billing.Invoice,
	method billing.DistributionMethod,
	rows []*billing.InvoiceDistribution,
) error {
	ids := make([]uuid.UUID, len(rows))
	for i, d := range rows {
		ids[i] = d.UnitID
	}
	units, err := repos.UnitRepo().FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	shares, err := s.calculator.Calculate(method, units, invoice.Amount)
	if err != nil {
		return err
	}
	for i, d := range rows {
		d.Reshare(shares[i])
		// settle status against the new amount so allocation sees the row as outstanding
		d.ApplyPaidAmount(d.PaidAmount)
		if err := repos.DistributionRepo().Update(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// reload refreshes the invoice and rows after recomputation so responses carry current balances
func (s *InvoiceService) reload(ctx context.Context, repos TransactionalRepositories, invoice *billing.Invoice, ds []*billing.InvoiceDistribution) error {
	fresh, err := repos.InvoiceRepo().FindByID(ctx, invoice.ID)
	if err != nil {
		return err
	}
	*invoice = *fresh
	for i, d := range ds {
		fd, err := repos.DistributionRepo().FindByID(ctx, d.ID)
		if err != nil {
			return err
		}
		ds[i] = fd
	}
	return nil
}
