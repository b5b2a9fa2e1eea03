package models

import (
	"time"

	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel holds the id and timestamp columns of every ledger table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity(*m)
}

func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	*m = BaseModel(e)
}

// SoftDeleteModel adds gorm's deleted_at. Default scopes skip deleted rows,
// Unscoped sees them.
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (m *SoftDeleteModel) ToDomainSoftDeletable() shared.SoftDeletable {
	if !m.DeletedAt.Valid {
		return shared.SoftDeletable{}
	}
	at := m.DeletedAt.Time
	return shared.SoftDeletable{DeletedAt: &at}
}

func (m *SoftDeleteModel) FromDomainSoftDeletable(s shared.SoftDeletable) {
	m.DeletedAt = gorm.DeletedAt{}
	if s.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	}
}
