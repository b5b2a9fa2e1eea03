package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fifoOrder orders rows oldest first; ids are time-ordered and break ties
const fifoOrder = "created_at ASC, id ASC"

// GormDistributionRepository implements DistributionRepository using GORM
type GormDistributionRepository struct {
	db *gorm.DB
}

// NewGormDistributionRepository creates a new GormDistributionRepository
func NewGormDistributionRepository(db *gorm.DB) *GormDistributionRepository {
	return &GormDistributionRepository{db: db}
}

// FindByID finds an active distribution by ID
func (r *GormDistributionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.InvoiceDistribution, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDWithDeleted finds a distribution by ID whether or not it is deleted
func (r *GormDistributionRepository) FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*billing.InvoiceDistribution, error) {
	return r.findOne(r.db.WithContext(ctx).Unscoped(), id)
}

func (r *GormDistributionRepository) findOne(db *gorm.DB, id uuid.UUID) (*billing.InvoiceDistribution, error) {
	var model models.InvoiceDistributionModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice distribution", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice finds the active distributions of an invoice in FIFO order
func (r *GormDistributionRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*billing.InvoiceDistribution, error) {
	return r.findMany(r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID))
}

// FindByUnit finds the active distributions of a unit in FIFO order
func (r *GormDistributionRepository) FindByUnit(ctx context.Context, unitID uuid.UUID) ([]*billing.InvoiceDistribution, error) {
	return r.findMany(r.db.WithContext(ctx).Where("unit_id = ?", unitID))
}

// FindOutstandingByUnit finds active unpaid distributions of a unit in FIFO order
func (r *GormDistributionRepository) FindOutstandingByUnit(ctx context.Context, unitID uuid.UUID) ([]*billing.InvoiceDistribution, error) {
	return r.findMany(r.db.WithContext(ctx).
		Where("unit_id = ? AND status = ?", unitID, billing.InvoiceStatusUnpaid))
}

func (r *GormDistributionRepository) findMany(query *gorm.DB) ([]*billing.InvoiceDistribution, error) {
	var distModels []models.InvoiceDistributionModel
	if err := query.Order(fifoOrder).Find(&distModels).Error; err != nil {
		return nil, err
	}
	out := make([]*billing.InvoiceDistribution, len(distModels))
	for i := range distModels {
		out[i] = distModels[i].ToDomain()
	}
	return out, nil
}

// ExistsActive reports whether an active row exists for the invoice and unit
func (r *GormDistributionRepository) ExistsActive(ctx context.Context, invoiceID, unitID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceDistributionModel{}).
		Where("invoice_id = ? AND unit_id = ?", invoiceID, unitID).
		Count(&count).Error
	return count > 0, err
}

// CreateBatch creates distributions
func (r *GormDistributionRepository) CreateBatch(ctx context.Context, distributions []*billing.InvoiceDistribution) error {
	if len(distributions) == 0 {
		return nil
	}
	distModels := make([]*models.InvoiceDistributionModel, len(distributions))
	for i, d := range distributions {
		distModels[i] = models.InvoiceDistributionModelFromDomain(d)
	}
	return r.db.WithContext(ctx).Create(distModels).Error
}

// Update writes amount, description, status and paid_amount
func (r *GormDistributionRepository) Update(ctx context.Context, d *billing.InvoiceDistribution) error {
	return r.update(ctx, d.ID, map[string]any{
		"amount":      d.Amount,
		"description": d.Description,
		"status":      d.Status,
		"paid_amount": d.PaidAmount,
	}, &d.UpdatedAt)
}

// UpdateBalance writes paid_amount and status only. Deleted rows are updated too.
func (r *GormDistributionRepository) UpdateBalance(ctx context.Context, d *billing.InvoiceDistribution) error {
	return r.update(ctx, d.ID, map[string]any{
		"status":      d.Status,
		"paid_amount": d.PaidAmount,
	}, &d.UpdatedAt)
}

func (r *GormDistributionRepository) update(ctx context.Context, id uuid.UUID, fields map[string]any, updatedAt *time.Time) error {
	*updatedAt = time.Now()
	fields["updated_at"] = *updatedAt
	result := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.InvoiceDistributionModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Invoice distribution", id)
	}
	return nil
}

// SoftDelete marks a distribution deleted
func (r *GormDistributionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceDistributionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Invoice distribution", id)
	}
	return nil
}

// Restore clears the deleted marker
func (r *GormDistributionRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return restoreRow(ctx, r.db, &models.InvoiceDistributionModel{}, id, "Invoice distribution")
}

// SumAmountByUnit sums amount over a unit's active distributions for one group
func (r *GormDistributionRepository) SumAmountByUnit(ctx context.Context, unitID uuid.UUID, group billing.TargetGroup) (int64, error) {
	return sumColumn(r.db.WithContext(ctx).
		Model(&models.InvoiceDistributionModel{}).
		Where("unit_id = ? AND target_group = ?", unitID, group), "amount")
}

// SumPaidByInvoice sums paid_amount over an invoice's active distributions
func (r *GormDistributionRepository) SumPaidByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	return sumColumn(r.db.WithContext(ctx).
		Model(&models.InvoiceDistributionModel{}).
		Where("invoice_id = ?", invoiceID), "paid_amount")
}

// sumColumn returns SUM(column) over the query as a bigint, zero when no rows match
func sumColumn(query *gorm.DB, column string) (int64, error) {
	var total int64
	err := query.Select("CAST(COALESCE(SUM(" + column + "), 0) AS BIGINT)").Scan(&total).Error
	return total, err
}

// restoreRow clears deleted_at on a soft-deleted row
func restoreRow(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, entity string) error {
	result := db.WithContext(ctx).
		Unscoped().
		Model(model).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(entity, id)
	}
	return nil
}

// Ensure GormDistributionRepository implements DistributionRepository
var _ billing.DistributionRepository = (*GormDistributionRepository)(nil)
