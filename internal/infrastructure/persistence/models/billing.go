package models

import (
	"time"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BuildingModel is the persistence model for the Building aggregate.
type BuildingModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(255);not null"`
	Address     string `gorm:"type:varchar(500)"`
	City        string `gorm:"type:varchar(100)"`
	BaseBalance int64  `gorm:"type:bigint;not null;default:0"`
	TotalIncome int64  `gorm:"type:bigint;not null;default:0"`
	PaidAmount  int64  `gorm:"type:bigint;not null;default:0"`
	TotalDebt   int64  `gorm:"type:bigint;not null;default:0"`
}

// TableName returns the table name for GORM
func (BuildingModel) TableName() string {
	return "buildings"
}

// ToDomain converts the persistence model to a domain Building.
func (m *BuildingModel) ToDomain() *billing.Building {
	return &billing.Building{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Address:     m.Address,
		City:        m.City,
		BaseBalance: m.BaseBalance,
		TotalIncome: m.TotalIncome,
		PaidAmount:  m.PaidAmount,
		TotalDebt:   m.TotalDebt,
	}
}

// BuildingModelFromDomain creates a persistence model from a domain Building.
func BuildingModelFromDomain(b *billing.Building) *BuildingModel {
	m := &BuildingModel{
		Name:        b.Name,
		Address:     b.Address,
		City:        b.City,
		BaseBalance: b.BaseBalance,
		TotalIncome: b.TotalIncome,
		PaidAmount:  b.PaidAmount,
		TotalDebt:   b.TotalDebt,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// UnitModel is the persistence model for a Unit and its two ledgers.
type UnitModel struct {
	BaseModel
	BuildingID          uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_unit_building_number,priority:1"`
	UnitNumber          string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_unit_building_number,priority:2"`
	Type                billing.UnitType  `gorm:"type:varchar(20);not null;default:'residential'"`
	Area                decimal.Decimal   `gorm:"type:decimal(8,2);not null;default:0"`
	Floor               int               `gorm:"not null;default:0"`
	NumberOfRooms       int               `gorm:"not null;default:0"`
	NumberOfResidents   int               `gorm:"not null;default:0"`
	ParkingSpaces       int               `gorm:"not null;default:0"`
	ResidentBaseBalance int64             `gorm:"type:bigint;not null;default:0"`
	OwnerBaseBalance    int64             `gorm:"type:bigint;not null;default:0"`
	ResidentPaidAmount  int64             `gorm:"type:bigint;not null;default:0"`
	OwnerPaidAmount     int64             `gorm:"type:bigint;not null;default:0"`
	ResidentDebt        int64             `gorm:"type:bigint;not null;default:0"`
	OwnerDebt           int64             `gorm:"type:bigint;not null;default:0"`
	TotalDebt           int64             `gorm:"type:bigint;not null;default:0"`
	Members             []UnitMemberModel `gorm:"foreignKey:UnitID;references:ID"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string {
	return "units"
}

// ToDomain converts the persistence model to a domain Unit.
func (m *UnitModel) ToDomain() *billing.Unit {
	members := make([]billing.UnitMember, len(m.Members))
	for i, mm := range m.Members {
		members[i] = mm.ToDomain()
	}
	return &billing.Unit{
		BaseEntity:        m.BaseModel.ToDomain(),
		BuildingID:        m.BuildingID,
		UnitNumber:        m.UnitNumber,
		Type:              m.Type,
		Area:              m.Area,
		Floor:             m.Floor,
		NumberOfRooms:     m.NumberOfRooms,
		NumberOfResidents: m.NumberOfResidents,
		ParkingSpaces:     m.ParkingSpaces,
		Resident: billing.Ledger{
			BaseBalance: m.ResidentBaseBalance,
			PaidAmount:  m.ResidentPaidAmount,
			Debt:        m.ResidentDebt,
		},
		Owner: billing.Ledger{
			BaseBalance: m.OwnerBaseBalance,
			PaidAmount:  m.OwnerPaidAmount,
			Debt:        m.OwnerDebt,
		},
		TotalDebt: m.TotalDebt,
		Members:   members,
	}
}

// UnitModelFromDomain creates a persistence model from a domain Unit.
func UnitModelFromDomain(u *billing.Unit) *UnitModel {
	m := &UnitModel{
		BuildingID:          u.BuildingID,
		UnitNumber:          u.UnitNumber,
		Type:                u.Type,
		Area:                u.Area,
		Floor:               u.Floor,
		NumberOfRooms:       u.NumberOfRooms,
		NumberOfResidents:   u.NumberOfResidents,
		ParkingSpaces:       u.ParkingSpaces,
		ResidentBaseBalance: u.Resident.BaseBalance,
		OwnerBaseBalance:    u.Owner.BaseBalance,
		ResidentPaidAmount:  u.Resident.PaidAmount,
		OwnerPaidAmount:     u.Owner.PaidAmount,
		ResidentDebt:        u.Resident.Debt,
		OwnerDebt:           u.Owner.Debt,
		TotalDebt:           u.TotalDebt,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	m.Members = make([]UnitMemberModel, len(u.Members))
	for i, mm := range u.Members {
		m.Members[i] = UnitMemberModel{
			UnitID:    u.ID,
			UserID:    mm.UserID,
			Role:      mm.Role,
			CreatedAt: u.CreatedAt,
		}
	}
	return m
}

// UnitMemberModel is the role-tagged unit membership (unit_user).
type UnitMemberModel struct {
	UnitID    uuid.UUID           `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID           `gorm:"type:uuid;primaryKey;index"`
	Role      billing.TargetGroup `gorm:"type:varchar(20);primaryKey"`
	CreatedAt time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnitMemberModel) TableName() string {
	return "unit_user"
}

// ToDomain converts the persistence model to a domain UnitMember.
func (m *UnitMemberModel) ToDomain() billing.UnitMember {
	return billing.UnitMember{UnitID: m.UnitID, UserID: m.UserID, Role: m.Role}
}

// InvoiceModel is the persistence model for an Invoice.
type InvoiceModel struct {
	BaseModel
	BuildingID               uuid.UUID             `gorm:"type:uuid;not null;index"`
	CategoryID               *uuid.UUID            `gorm:"column:invoice_category_id;type:uuid;index"`
	Title                    string                `gorm:"type:varchar(255);not null"`
	Description              string                `gorm:"type:text"`
	Amount                   int64                 `gorm:"type:bigint;not null"`
	PaidAmount               int64                 `gorm:"type:bigint;not null;default:0"`
	Status                   billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	TargetGroup              billing.TargetGroup   `gorm:"type:varchar(20);not null"`
	Type                     billing.InvoiceType   `gorm:"type:varchar(30);not null"`
	DueDate                  *time.Time
	IsCoveredByMonthlyCharge bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseEntity:               m.BaseModel.ToDomain(),
		BuildingID:               m.BuildingID,
		CategoryID:               m.CategoryID,
		Title:                    m.Title,
		Description:              m.Description,
		Amount:                   m.Amount,
		PaidAmount:               m.PaidAmount,
		Status:                   m.Status,
		TargetGroup:              m.TargetGroup,
		Type:                     m.Type,
		DueDate:                  m.DueDate,
		IsCoveredByMonthlyCharge: m.IsCoveredByMonthlyCharge,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice.
func InvoiceModelFromDomain(i *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		BuildingID:               i.BuildingID,
		CategoryID:               i.CategoryID,
		Title:                    i.Title,
		Description:              i.Description,
		Amount:                   i.Amount,
		PaidAmount:               i.PaidAmount,
		Status:                   i.Status,
		TargetGroup:              i.TargetGroup,
		Type:                     i.Type,
		DueDate:                  i.DueDate,
		IsCoveredByMonthlyCharge: i.IsCoveredByMonthlyCharge,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}

// InvoiceDistributionModel is the persistence model for one unit's share of an invoice.
// At most one active row exists per invoice and unit.
type InvoiceDistributionModel struct {
	SoftDeleteModel
	InvoiceID          uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_distribution_invoice_unit,priority:1,where:deleted_at IS NULL"`
	UnitID             uuid.UUID                  `gorm:"type:uuid;not null;index;uniqueIndex:idx_distribution_invoice_unit,priority:2,where:deleted_at IS NULL"`
	TargetGroup        billing.TargetGroup        `gorm:"type:varchar(20);not null"`
	DistributionMethod billing.DistributionMethod `gorm:"type:varchar(20);not null"`
	Amount             int64                      `gorm:"type:bigint;not null"`
	PaidAmount         int64                      `gorm:"type:bigint;not null;default:0"`
	Status             billing.InvoiceStatus      `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	Description        string                     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceDistributionModel) TableName() string {
	return "invoice_distributions"
}

// ToDomain converts the persistence model to a domain InvoiceDistribution.
func (m *InvoiceDistributionModel) ToDomain() *billing.InvoiceDistribution {
	return &billing.InvoiceDistribution{
		BaseEntity:         m.BaseModel.ToDomain(),
		SoftDeletable:      m.ToDomainSoftDeletable(),
		InvoiceID:          m.InvoiceID,
		UnitID:             m.UnitID,
		TargetGroup:        m.TargetGroup,
		DistributionMethod: m.DistributionMethod,
		Amount:             m.Amount,
		PaidAmount:         m.PaidAmount,
		Status:             m.Status,
		Description:        m.Description,
	}
}

// InvoiceDistributionModelFromDomain creates a persistence model from a domain InvoiceDistribution.
func InvoiceDistributionModelFromDomain(d *billing.InvoiceDistribution) *InvoiceDistributionModel {
	m := &InvoiceDistributionModel{
		InvoiceID:          d.InvoiceID,
		UnitID:             d.UnitID,
		TargetGroup:        d.TargetGroup,
		DistributionMethod: d.DistributionMethod,
		Amount:             d.Amount,
		PaidAmount:         d.PaidAmount,
		Status:             d.Status,
		Description:        d.Description,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	m.FromDomainSoftDeletable(d.SoftDeletable)
	return m
}

// TransactionModel is the persistence model for unit payments and building income.
type TransactionModel struct {
	SoftDeleteModel
	BuildingID    uuid.UUID                 `gorm:"type:uuid;not null;index"`
	UnitID        *uuid.UUID                `gorm:"type:uuid;index"`
	Amount        int64                     `gorm:"type:bigint;not null"`
	Status        billing.TransactionStatus `gorm:"column:transaction_status;type:varchar(30);not null;index"`
	TargetGroup   billing.TargetGroup       `gorm:"type:varchar(20)"`
	Type          billing.TransactionType   `gorm:"column:transaction_type;type:varchar(30);not null"`
	PaymentMethod billing.PaymentMethod     `gorm:"type:varchar(30)"`
	Authority     string                    `gorm:"type:varchar(255);index"`
	ReferenceID   string                    `gorm:"type:varchar(255)"`
	Description   string                    `gorm:"type:text"`
	PaidAt        *time.Time
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() *billing.Transaction {
	return &billing.Transaction{
		BaseEntity:    m.BaseModel.ToDomain(),
		SoftDeletable: m.ToDomainSoftDeletable(),
		BuildingID:    m.BuildingID,
		UnitID:        m.UnitID,
		Amount:        m.Amount,
		Status:        m.Status,
		TargetGroup:   m.TargetGroup,
		Type:          m.Type,
		PaymentMethod: m.PaymentMethod,
		Authority:     m.Authority,
		ReferenceID:   m.ReferenceID,
		Description:   m.Description,
		PaidAt:        m.PaidAt,
	}
}

// TransactionModelFromDomain creates a persistence model from a domain Transaction.
func TransactionModelFromDomain(t *billing.Transaction) *TransactionModel {
	m := &TransactionModel{
		BuildingID:    t.BuildingID,
		UnitID:        t.UnitID,
		Amount:        t.Amount,
		Status:        t.Status,
		TargetGroup:   t.TargetGroup,
		Type:          t.Type,
		PaymentMethod: t.PaymentMethod,
		Authority:     t.Authority,
		ReferenceID:   t.ReferenceID,
		Description:   t.Description,
		PaidAt:        t.PaidAt,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	m.FromDomainSoftDeletable(t.SoftDeletable)
	return m
}

// TransactionDistributionLinkModel records an allocation of a transaction to a distribution.
type TransactionDistributionLinkModel struct {
	SoftDeleteModel
	TransactionID  uuid.UUID `gorm:"type:uuid;not null;index"`
	DistributionID uuid.UUID `gorm:"column:invoice_distribution_id;type:uuid;not null;index"`
	Amount         int64     `gorm:"type:bigint;not null"`
	PaidAmount     int64     `gorm:"type:bigint;not null"`
}

// TableName returns the table name for GORM
func (TransactionDistributionLinkModel) TableName() string {
	return "transaction_invoice_distribution"
}

// ToDomain converts the persistence model to a domain link.
func (m *TransactionDistributionLinkModel) ToDomain() *billing.TransactionDistributionLink {
	return &billing.TransactionDistributionLink{
		BaseEntity:     m.BaseModel.ToDomain(),
		SoftDeletable:  m.ToDomainSoftDeletable(),
		TransactionID:  m.TransactionID,
		DistributionID: m.DistributionID,
		Amount:         m.Amount,
		PaidAmount:     m.PaidAmount,
	}
}

// TransactionDistributionLinkModelFromDomain creates a persistence model from a domain link.
func TransactionDistributionLinkModelFromDomain(l *billing.TransactionDistributionLink) *TransactionDistributionLinkModel {
	m := &TransactionDistributionLinkModel{
		TransactionID:  l.TransactionID,
		DistributionID: l.DistributionID,
		Amount:         l.Amount,
		PaidAmount:     l.PaidAmount,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	m.FromDomainSoftDeletable(l.SoftDeletable)
	return m
}

// AllModels returns every billing model in dependency order for AutoMigrate
func AllModels() []any {
	return []any{
		&BuildingModel{},
		&UnitModel{},
		&UnitMemberModel{},
		&InvoiceModel{},
		&InvoiceDistributionModel{},
		&TransactionModel{},
		&TransactionDistributionLinkModel{},
	}
}
