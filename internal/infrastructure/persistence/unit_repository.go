package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUnitRepository implements UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by ID with its members loaded
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Unit, error) {
	var model models.UnitModel
	if err := r.db.WithContext(ctx).
		Preload("Members").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Unit", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds units by ID in the order given
func (r *GormUnitRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*billing.Unit, error) {
	if len(ids) == 0 {
		return []*billing.Unit{}, nil
	}
	var unitModels []models.UnitModel
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Where("id IN ?", ids).
		Find(&unitModels).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*billing.Unit, len(unitModels))
	for i := range unitModels {
		byID[unitModels[i].ID] = unitModels[i].ToDomain()
	}
	units := make([]*billing.Unit, len(ids))
	for i, id := range ids {
		u, ok := byID[id]
		if !ok {
			return nil, shared.NewNotFoundError("Unit", id)
		}
		units[i] = u
	}
	return units, nil
}

// FindByBuilding finds all units of a building ordered by unit number
func (r *GormUnitRepository) FindByBuilding(ctx context.Context, buildingID uuid.UUID) ([]*billing.Unit, error) {
	var unitModels []models.UnitModel
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Where("building_id = ?", buildingID).
		Order("unit_number ASC").
		Find(&unitModels).Error; err != nil {
		return nil, err
	}
	units := make([]*billing.Unit, len(unitModels))
	for i := range unitModels {
		units[i] = unitModels[i].ToDomain()
	}
	return units, nil
}

// Save creates a unit and its memberships
func (r *GormUnitRepository) Save(ctx context.Context, unit *billing.Unit) error {
	err := r.db.WithContext(ctx).Create(models.UnitModelFromDomain(unit)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Unit %s already exists in this building", unit.UnitNumber))
	}
	return err
}

// Update writes the unit's attributes and base balances
func (r *GormUnitRepository) Update(ctx context.Context, unit *billing.Unit) error {
	unit.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.UnitModel{}).
		Where("id = ?", unit.ID).
		Updates(map[string]any{
			"unit_number":           unit.UnitNumber,
			"type":                  unit.Type,
			"area":                  unit.Area,
			"floor":                 unit.Floor,
			"number_of_rooms":       unit.NumberOfRooms,
			"number_of_residents":   unit.NumberOfResidents,
			"parking_spaces":        unit.ParkingSpaces,
			"resident_base_balance": unit.Resident.BaseBalance,
			"owner_base_balance":    unit.Owner.BaseBalance,
			"updated_at":            unit.UpdatedAt,
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Unit %s already exists in this building", unit.UnitNumber))
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Unit", unit.ID)
	}
	return nil
}

// AddMember stores a membership of an existing unit
func (r *GormUnitRepository) AddMember(ctx context.Context, member billing.UnitMember) error {
	err := r.db.WithContext(ctx).Create(&models.UnitMemberModel{
		UnitID:    member.UnitID,
		UserID:    member.UserID,
		Role:      member.Role,
		CreatedAt: time.Now(),
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.CodeAlreadyExists, "User already holds this role in the unit")
	}
	return err
}

// RemoveMember deletes a membership; a missing row is NOT_FOUND
func (r *GormUnitRepository) RemoveMember(ctx context.Context, member billing.UnitMember) error {
	result := r.db.WithContext(ctx).
		Where("unit_id = ? AND user_id = ? AND role = ?", member.UnitID, member.UserID, member.Role).
		Delete(&models.UnitMemberModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Unit member not found")
	}
	return nil
}

// UpdateLedgers writes the cached paid, debt and total debt fields
func (r *GormUnitRepository) UpdateLedgers(ctx context.Context, unit *billing.Unit) error {
	unit.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.UnitModel{}).
		Where("id = ?", unit.ID).
		Updates(map[string]any{
			"resident_paid_amount": unit.Resident.PaidAmount,
			"owner_paid_amount":    unit.Owner.PaidAmount,
			"resident_debt":        unit.Resident.Debt,
			"owner_debt":           unit.Owner.Debt,
			"total_debt":           unit.TotalDebt,
			"updated_at":           unit.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Unit", unit.ID)
	}
	return nil
}

// SumLedgers sums base balances, paid amounts and total debt over a building's units
func (r *GormUnitRepository) SumLedgers(ctx context.Context, buildingID uuid.UUID) (billing.LedgerTotals, error) {
	var row struct {
		BaseBalance int64
		PaidAmount  int64
		TotalDebt   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.UnitModel{}).
		Select(
			"CAST(COALESCE(SUM(resident_base_balance + owner_base_balance), 0) AS BIGINT) AS base_balance, "+
				"CAST(COALESCE(SUM(resident_paid_amount + owner_paid_amount), 0) AS BIGINT) AS paid_amount, "+
				"CAST(COALESCE(SUM(total_debt), 0) AS BIGINT) AS total_debt",
		).
		Where("building_id = ?", buildingID).
		Scan(&row).Error
	if err != nil {
		return billing.LedgerTotals{}, err
	}
	return billing.LedgerTotals{
		BaseBalance: row.BaseBalance,
		PaidAmount:  row.PaidAmount,
		TotalDebt:   row.TotalDebt,
	}, nil
}

// Ensure GormUnitRepository implements UnitRepository
var _ billing.UnitRepository = (*GormUnitRepository)(nil)
