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

// GormBuildingRepository implements BuildingRepository using GORM
type GormBuildingRepository struct {
	db *gorm.DB
}

// NewGormBuildingRepository creates a new GormBuildingRepository
func NewGormBuildingRepository(db *gorm.DB) *GormBuildingRepository {
	return &GormBuildingRepository{db: db}
}

// FindByID finds a building by ID
func (r *GormBuildingRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Building, error) {
	var model models.BuildingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Building", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates a building
func (r *GormBuildingRepository) Save(ctx context.Context, building *billing.Building) error {
	return r.db.WithContext(ctx).Create(models.BuildingModelFromDomain(building)).Error
}

// UpdateTotals writes the four cached balance fields
func (r *GormBuildingRepository) UpdateTotals(ctx context.Context, building *billing.Building) error {
	building.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.BuildingModel{}).
		Where("id = ?", building.ID).
		Updates(map[string]any{
			"base_balance": building.BaseBalance,
			"total_income": building.TotalIncome,
			"paid_amount":  building.PaidAmount,
			"total_debt":   building.TotalDebt,
			"updated_at":   building.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Building", building.ID)
	}
	return nil
}

// ListIDs returns the IDs of all buildings, oldest first
func (r *GormBuildingRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.BuildingModel{}).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure GormBuildingRepository implements BuildingRepository
var _ billing.BuildingRepository = (*GormBuildingRepository)(nil)
