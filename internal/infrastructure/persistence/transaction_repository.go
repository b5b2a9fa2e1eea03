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

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds an active transaction by ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Transaction, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDWithDeleted finds a transaction by ID whether or not it is deleted
func (r *GormTransactionRepository) FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*billing.Transaction, error) {
	return r.findOne(r.db.WithContext(ctx).Unscoped(), id)
}

func (r *GormTransactionRepository) findOne(db *gorm.DB, id uuid.UUID) (*billing.Transaction, error) {
	var model models.TransactionModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Transaction", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUnit lists a unit's active transactions
func (r *GormTransactionRepository) FindByUnit(ctx context.Context, unitID uuid.UUID, filter billing.TransactionFilter) ([]*billing.Transaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("unit_id = ?", unitID)
	if filter.Status != nil {
		query = query.Where("transaction_status = ?", *filter.Status)
	}
	if filter.TargetGroup != nil {
		query = query.Where("target_group = ?", *filter.TargetGroup)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	for _, term := range transactionSort.orderBy(filter.OrderBy, filter.OrderDir, "created_at") {
		query = query.Order(term)
	}
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	var txModels []models.TransactionModel
	if err := query.Find(&txModels).Error; err != nil {
		return nil, 0, err
	}
	return toTransactions(txModels), total, nil
}

// FindPaidByUnit finds a unit's active paid transactions in creation order
func (r *GormTransactionRepository) FindPaidByUnit(ctx context.Context, unitID uuid.UUID) ([]*billing.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("unit_id = ? AND transaction_type = ? AND transaction_status = ?",
			unitID, billing.TransactionTypeUnit, billing.TransactionStatusPaid).
		Order(fifoOrder).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toTransactions(txModels), nil
}

func toTransactions(txModels []models.TransactionModel) []*billing.Transaction {
	out := make([]*billing.Transaction, len(txModels))
	for i := range txModels {
		out[i] = txModels[i].ToDomain()
	}
	return out
}

// Save creates a transaction
func (r *GormTransactionRepository) Save(ctx context.Context, transaction *billing.Transaction) error {
	return r.db.WithContext(ctx).Create(models.TransactionModelFromDomain(transaction)).Error
}

// Update writes the mutable transaction fields
func (r *GormTransactionRepository) Update(ctx context.Context, t *billing.Transaction) error {
	t.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"amount":             t.Amount,
			"transaction_status": t.Status,
			"description":        t.Description,
			"reference_id":       t.ReferenceID,
			"paid_at":            t.PaidAt,
			"updated_at":         t.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Transaction", t.ID)
	}
	return nil
}

// SoftDelete marks a transaction deleted
func (r *GormTransactionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TransactionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Transaction", id)
	}
	return nil
}

// Restore clears the deleted marker
func (r *GormTransactionRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return restoreRow(ctx, r.db, &models.TransactionModel{}, id, "Transaction")
}

// SumPaidByUnit sums amount over a unit's active paid unit transactions for one group
func (r *GormTransactionRepository) SumPaidByUnit(ctx context.Context, unitID uuid.UUID, group billing.TargetGroup) (int64, error) {
	return sumColumn(r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("unit_id = ? AND target_group = ? AND transaction_type = ? AND transaction_status = ?",
			unitID, group, billing.TransactionTypeUnit, billing.TransactionStatusPaid), "amount")
}

// SumPaidIncome sums amount over a building's active paid income transactions
func (r *GormTransactionRepository) SumPaidIncome(ctx context.Context, buildingID uuid.UUID) (int64, error) {
	return sumColumn(r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("building_id = ? AND transaction_type = ? AND transaction_status = ?",
			buildingID, billing.TransactionTypeBuildingIncome, billing.TransactionStatusPaid), "amount")
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ billing.TransactionRepository = (*GormTransactionRepository)(nil)
