package billing

import (
	"time"

	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBuildingInput represents a request to register a building
type CreateBuildingInput struct {
	Name    string `json:"name" binding:"required,max=255"`
	Address string `json:"address" binding:"max=500"`
	City    string `json:"city" binding:"max=100"`
}

// UnitMemberInput assigns a user to a unit with a role
type UnitMemberInput struct {
	UserID uuid.UUID           `json:"user_id" binding:"required"`
	Role   billing.TargetGroup `json:"role" binding:"required,oneof=resident owner"`
}

// CreateUnitInput represents a request to add a unit to a building
type CreateUnitInput struct {
	BuildingID          uuid.UUID         `json:"-"`
	UnitNumber          string            `json:"unit_number" binding:"required,max=50"`
	Type                billing.UnitType  `json:"type" binding:"omitempty,oneof=residential commercial"`
	Area                decimal.Decimal   `json:"area"`
	Floor               int               `json:"floor"`
	NumberOfRooms       int               `json:"number_of_rooms" binding:"gte=0"`
	NumberOfResidents   int               `json:"number_of_residents" binding:"gte=0"`
	ParkingSpaces       int               `json:"parking_spaces" binding:"gte=0"`
	ResidentBaseBalance int64             `json:"resident_base_balance"`
	OwnerBaseBalance    int64             `json:"owner_base_balance"`
	Members             []UnitMemberInput `json:"members" binding:"dive"`
}

// UpdateUnitInput holds the editable fields of a unit; omitted fields are left as is
type UpdateUnitInput struct {
	UnitNumber          *string           `json:"unit_number" binding:"omitempty,min=1,max=50"`
	Type                *billing.UnitType `json:"type" binding:"omitempty,oneof=residential commercial"`
	Area                *decimal.Decimal  `json:"area"`
	Floor               *int              `json:"floor"`
	NumberOfRooms       *int              `json:"number_of_rooms" binding:"omitempty,gte=0"`
	NumberOfResidents   *int              `json:"number_of_residents" binding:"omitempty,gte=0"`
	ParkingSpaces       *int              `json:"parking_spaces" binding:"omitempty,gte=0"`
	ResidentBaseBalance *int64            `json:"resident_base_balance"`
	OwnerBaseBalance    *int64            `json:"owner_base_balance"`
}

// CalculateDistributionInput represents a dry-run split request
type CalculateDistributionInput struct {
	Method      billing.DistributionMethod `json:"distribution_method" binding:"required,enum"`
	UnitIDs     []uuid.UUID                `json:"unit_ids" binding:"required,min=1"`
	TotalAmount int64                      `json:"total_amount" binding:"gte=0"`
}

// CreateInvoiceInput represents a request to issue an invoice and split it
type CreateInvoiceInput struct {
	BuildingID               uuid.UUID                  `json:"building_id" binding:"required"`
	CategoryID               *uuid.UUID                 `json:"invoice_category_id"`
	Title                    string                     `json:"title" binding:"required,max=255"`
	Description              string                     `json:"description"`
	Amount                   int64                      `json:"amount" binding:"gte=0"`
	TargetGroup              billing.TargetGroup        `json:"target_group" binding:"required,oneof=resident owner"`
	Type                     billing.InvoiceType        `json:"type" binding:"omitempty,oneof=monthly_charge planned_expense unexpected_expense"`
	DueDate                  *time.Time                 `json:"due_date"`
	IsCoveredByMonthlyCharge bool                       `json:"is_covered_by_monthly_charge"`
	Method                   billing.DistributionMethod `json:"distribution_method" binding:"required,enum"`
	UnitIDs                  []uuid.UUID                `json:"unit_ids"`
	CustomAmounts            []billing.CustomShare      `json:"custom_amounts"`
}

// ReplaceDistributionsInput represents a request to re-split an existing invoice
type ReplaceDistributionsInput struct {
	Method        billing.DistributionMethod `json:"distribution_method" binding:"required,enum"`
	UnitIDs       []uuid.UUID                `json:"unit_ids"`
	CustomAmounts []billing.CustomShare      `json:"custom_amounts"`
}

// UpdateDistributionInput holds the editable fields of a distribution
type UpdateDistributionInput struct {
	Description *string                `json:"description"`
	Status      *billing.InvoiceStatus `json:"status" binding:"omitempty,oneof=unpaid paid pending cancelled"`
}

// RecordTransactionInput represents a payment against a unit ledger
type RecordTransactionInput struct {
	UnitID        uuid.UUID                 `json:"unit_id" binding:"required"`
	Amount        int64                     `json:"amount" binding:"gt=0"`
	Status        billing.TransactionStatus `json:"transaction_status" binding:"required,enum"`
	TargetGroup   billing.TargetGroup       `json:"target_group" binding:"required,oneof=resident owner"`
	PaymentMethod billing.PaymentMethod     `json:"payment_method" binding:"omitempty,enum"`
	Authority     string                    `json:"authority" binding:"max=255"`
	ReferenceID   string                    `json:"reference_id" binding:"max=255"`
	Description   string                    `json:"description"`
	PaidAt        *time.Time                `json:"paid_at"`
}

// RecordBuildingIncomeInput represents income booked directly to a building
type RecordBuildingIncomeInput struct {
	BuildingID    uuid.UUID                 `json:"-"`
	Amount        int64                     `json:"amount" binding:"gt=0"`
	Status        billing.TransactionStatus `json:"transaction_status" binding:"required,enum"`
	PaymentMethod billing.PaymentMethod     `json:"payment_method" binding:"omitempty,enum"`
	Description   string                    `json:"description"`
	PaidAt        *time.Time                `json:"paid_at"`
}

// UpdateTransactionInput holds the editable fields of a transaction
type UpdateTransactionInput struct {
	Amount      *int64                     `json:"amount" binding:"omitempty,gt=0"`
	Status      *billing.TransactionStatus `json:"transaction_status" binding:"omitempty,enum"`
	Description *string                    `json:"description"`
	ReferenceID *string                    `json:"reference_id"`
}

// BuildingResponse represents a building with its cached balances
type BuildingResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	BaseBalance    int64     `json:"base_balance"`
	TotalIncome    int64     `json:"total_income"`
	PaidAmount     int64     `json:"paid_amount"`
	TotalDebt      int64     `json:"total_debt"`
	CurrentBalance int64     `json:"current_balance"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LedgerResponse represents one side of a unit's balance
type LedgerResponse struct {
	BaseBalance    int64 `json:"base_balance"`
	PaidAmount     int64 `json:"paid_amount"`
	Debt           int64 `json:"debt"`
	CurrentBalance int64 `json:"current_balance"`
}

// UnitResponse represents a unit with both ledgers
type UnitResponse struct {
	ID                uuid.UUID            `json:"id"`
	BuildingID        uuid.UUID            `json:"building_id"`
	UnitNumber        string               `json:"unit_number"`
	Type              billing.UnitType     `json:"type"`
	Area              decimal.Decimal      `json:"area"`
	Floor             int                  `json:"floor"`
	NumberOfRooms     int                  `json:"number_of_rooms"`
	NumberOfResidents int                  `json:"number_of_residents"`
	ParkingSpaces     int                  `json:"parking_spaces"`
	Resident          LedgerResponse       `json:"resident"`
	Owner             LedgerResponse       `json:"owner"`
	TotalDebt         int64                `json:"total_debt"`
	CurrentBalance    int64                `json:"current_balance"`
	Members           []billing.UnitMember `json:"members"`
}

// DistributionResponse represents one unit's share of an invoice
type DistributionResponse struct {
	ID                 uuid.UUID                  `json:"id"`
	InvoiceID          uuid.UUID                  `json:"invoice_id"`
	UnitID             uuid.UUID                  `json:"unit_id"`
	TargetGroup        billing.TargetGroup        `json:"target_group"`
	DistributionMethod billing.DistributionMethod `json:"distribution_method"`
	Amount             int64                      `json:"amount"`
	PaidAmount         int64                      `json:"paid_amount"`
	CurrentBalance     int64                      `json:"current_balance"`
	Status             billing.InvoiceStatus      `json:"status"`
	Description        string                     `json:"description"`
	CreatedAt          time.Time                  `json:"created_at"`
}

// InvoiceResponse represents an invoice and its active distributions
type InvoiceResponse struct {
	ID                       uuid.UUID              `json:"id"`
	BuildingID               uuid.UUID              `json:"building_id"`
	CategoryID               *uuid.UUID             `json:"invoice_category_id,omitempty"`
	Title                    string                 `json:"title"`
	Description              string                 `json:"description"`
	Amount                   int64                  `json:"amount"`
	PaidAmount               int64                  `json:"paid_amount"`
	Status                   billing.InvoiceStatus  `json:"status"`
	TargetGroup              billing.TargetGroup    `json:"target_group"`
	Type                     billing.InvoiceType    `json:"type"`
	DueDate                  *time.Time             `json:"due_date,omitempty"`
	IsCoveredByMonthlyCharge bool                   `json:"is_covered_by_monthly_charge"`
	Distributions            []DistributionResponse `json:"distributions"`
	CreatedAt                time.Time              `json:"created_at"`
}

// TransactionResponse represents a transaction with its unallocated remainder
type TransactionResponse struct {
	ID            uuid.UUID                 `json:"id"`
	BuildingID    uuid.UUID                 `json:"building_id"`
	UnitID        *uuid.UUID                `json:"unit_id,omitempty"`
	Amount        int64                     `json:"amount"`
	Allocated     int64                     `json:"allocated"`
	Unallocated   int64                     `json:"unallocated"`
	Status        billing.TransactionStatus `json:"transaction_status"`
	TargetGroup   billing.TargetGroup       `json:"target_group,omitempty"`
	Type          billing.TransactionType   `json:"transaction_type"`
	PaymentMethod billing.PaymentMethod     `json:"payment_method,omitempty"`
	Authority     string                    `json:"authority,omitempty"`
	ReferenceID   string                    `json:"reference_id,omitempty"`
	Description   string                    `json:"description,omitempty"`
	PaidAt        *time.Time                `json:"paid_at,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// ToBuildingResponse converts a domain Building to BuildingResponse
func ToBuildingResponse(b *billing.Building) BuildingResponse {
	return BuildingResponse{
		ID:             b.ID,
		Name:           b.Name,
		Address:        b.Address,
		City:           b.City,
		BaseBalance:    b.BaseBalance,
		TotalIncome:    b.TotalIncome,
		PaidAmount:     b.PaidAmount,
		TotalDebt:      b.TotalDebt,
		CurrentBalance: b.CurrentBalance(),
		UpdatedAt:      b.UpdatedAt,
	}
}

func toLedgerResponse(l billing.Ledger) LedgerResponse {
	return LedgerResponse{
		BaseBalance:    l.BaseBalance,
		PaidAmount:     l.PaidAmount,
		Debt:           l.Debt,
		CurrentBalance: l.CurrentBalance(),
	}
}

// ToUnitResponse converts a domain Unit to UnitResponse
func ToUnitResponse(u *billing.Unit) UnitResponse {
	members := u.Members
	if members == nil {
		members = []billing.UnitMember{}
	}
	return UnitResponse{
		ID:                u.ID,
		BuildingID:        u.BuildingID,
		UnitNumber:        u.UnitNumber,
		Type:              u.Type,
		Area:              u.Area,
		Floor:             u.Floor,
		NumberOfRooms:     u.NumberOfRooms,
		NumberOfResidents: u.NumberOfResidents,
		ParkingSpaces:     u.ParkingSpaces,
		Resident:          toLedgerResponse(u.Resident),
		Owner:             toLedgerResponse(u.Owner),
		TotalDebt:         u.TotalDebt,
		CurrentBalance:    u.CurrentBalance(),
		Members:           members,
	}
}

// ToDistributionResponse converts a domain InvoiceDistribution to DistributionResponse
func ToDistributionResponse(d *billing.InvoiceDistribution) DistributionResponse {
	return DistributionResponse{
		ID:                 d.ID,
		InvoiceID:          d.InvoiceID,
		UnitID:             d.UnitID,
		TargetGroup:        d.TargetGroup,
		DistributionMethod: d.DistributionMethod,
		Amount:             d.Amount,
		PaidAmount:         d.PaidAmount,
		CurrentBalance:     d.CurrentBalance(),
		Status:             d.Status,
		Description:        d.Description,
		CreatedAt:          d.CreatedAt,
	}
}

// ToDistributionResponses converts a slice of distributions
func ToDistributionResponses(ds []*billing.InvoiceDistribution) []DistributionResponse {
	out := make([]DistributionResponse, len(ds))
	for i, d := range ds {
		out[i] = ToDistributionResponse(d)
	}
	return out
}

// ToInvoiceResponse converts a domain Invoice and its distributions to InvoiceResponse
func ToInvoiceResponse(inv *billing.Invoice, ds []*billing.InvoiceDistribution) InvoiceResponse {
	return InvoiceResponse{
		ID:                       inv.ID,
		BuildingID:               inv.BuildingID,
		CategoryID:               inv.CategoryID,
		Title:                    inv.Title,
		Description:              inv.Description,
		Amount:                   inv.Amount,
		PaidAmount:               inv.PaidAmount,
		Status:                   inv.Status,
		TargetGroup:              inv.TargetGroup,
		Type:                     inv.Type,
		DueDate:                  inv.DueDate,
		IsCoveredByMonthlyCharge: inv.IsCoveredByMonthlyCharge,
		Distributions:            ToDistributionResponses(ds),
		CreatedAt:                inv.CreatedAt,
	}
}

// ToTransactionResponse converts a domain Transaction to TransactionResponse.
// allocated is the sum of the transaction's active links.
func ToTransactionResponse(t *billing.Transaction, allocated int64) TransactionResponse {
	unallocated := int64(0)
	if t.IsPaid() && t.IsUnitTransaction() {
		unallocated = max(t.Amount-allocated, 0)
	}
	return TransactionResponse{
		ID:            t.ID,
		BuildingID:    t.BuildingID,
		UnitID:        t.UnitID,
		Amount:        t.Amount,
		Allocated:     allocated,
		Unallocated:   unallocated,
		Status:        t.Status,
		TargetGroup:   t.TargetGroup,
		Type:          t.Type,
		PaymentMethod: t.PaymentMethod,
		Authority:     t.Authority,
		ReferenceID:   t.ReferenceID,
		Description:   t.Description,
		PaidAt:        t.PaidAt,
		CreatedAt:     t.CreatedAt,
	}
}
