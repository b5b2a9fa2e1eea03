package persistence

import (
	"context"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLinkRepository implements LinkRepository using GORM
type GormLinkRepository struct {
	db *gorm.DB
}

// NewGormLinkRepository creates a new GormLinkRepository
func NewGormLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateBatch creates links
func (r *GormLinkRepository) CreateBatch(ctx context.Context, links []*billing.TransactionDistributionLink) error {
	if len(links) == 0 {
		return nil
	}
	linkModels := make([]*models.TransactionDistributionLinkModel, len(links))
	for i, l := range links {
		linkModels[i] = models.TransactionDistributionLinkModelFromDomain(l)
	}
	return r.db.WithContext(ctx).Create(linkModels).Error
}

// FindByTransaction finds a transaction's active links
func (r *GormLinkRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*billing.TransactionDistributionLink, error) {
	return r.findMany(r.db.WithContext(ctx).Where("transaction_id = ?", transactionID))
}

// FindByDistribution finds a distribution's active links
func (r *GormLinkRepository) FindByDistribution(ctx context.Context, distributionID uuid.UUID) ([]*billing.TransactionDistributionLink, error) {
	return r.findMany(r.db.WithContext(ctx).Where("invoice_distribution_id = ?", distributionID))
}

func (r *GormLinkRepository) findMany(query *gorm.DB) ([]*billing.TransactionDistributionLink, error) {
	var linkModels []models.TransactionDistributionLinkModel
	if err := query.Order(fifoOrder).Find(&linkModels).Error; err != nil {
		return nil, err
	}
	out := make([]*billing.TransactionDistributionLink, len(linkModels))
	for i := range linkModels {
		out[i] = linkModels[i].ToDomain()
	}
	return out, nil
}

// SumAllocatedByTransactions sums paid_amount per transaction
func (r *GormLinkRepository) SumAllocatedByTransactions(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	sums := make(map[uuid.UUID]int64, len(transactionIDs))
	if len(transactionIDs) == 0 {
		return sums, nil
	}
	var rows []struct {
		TransactionID uuid.UUID
		Total         int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.TransactionDistributionLinkModel{}).
		Select("transaction_id, CAST(COALESCE(SUM(paid_amount), 0) AS BIGINT) AS total").
		Where("transaction_id IN ?", transactionIDs).
		Group("transaction_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.TransactionID] = row.Total
	}
	return sums, nil
}

// SumPaidForDistribution sums paid_amount over links whose transaction is paid and active
func (r *GormLinkRepository) SumPaidForDistribution(ctx context.Context, distributionID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT CAST(COALESCE(SUM(l.paid_amount), 0) AS BIGINT)
		FROM transaction_invoice_distribution l
		JOIN transactions t ON t.id = l.transaction_id
		WHERE l.invoice_distribution_id = ?
		  AND l.deleted_at IS NULL
		  AND t.deleted_at IS NULL
		  AND t.transaction_status = ?`,
		distributionID, billing.TransactionStatusPaid,
	).Scan(&total).Error
	return total, err
}

// SoftDeleteByTransaction releases every link of a transaction
func (r *GormLinkRepository) SoftDeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&models.TransactionDistributionLinkModel{}).Error
}

// SoftDeleteByDistributions releases every link of the given distributions
func (r *GormLinkRepository) SoftDeleteByDistributions(ctx context.Context, distributionIDs []uuid.UUID) error {
	if len(distributionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("invoice_distribution_id IN ?", distributionIDs).
		Delete(&models.TransactionDistributionLinkModel{}).Error
}

// Ensure GormLinkRepository implements LinkRepository
var _ billing.LinkRepository = (*GormLinkRepository)(nil)
