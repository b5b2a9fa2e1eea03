package billing

import (
	"time"

	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Transaction is money received for a unit ledger or as building income.
// BuildingID is always set; UnitID is nil for building income.
type Transaction struct {
	shared.BaseEntity
	shared.SoftDeletable
	BuildingID    uuid.UUID         `json:"building_id"`
	UnitID        *uuid.UUID        `json:"unit_id,omitempty"`
	Amount        int64             `json:"amount"`
	Status        TransactionStatus `json:"transaction_status"`
	TargetGroup   TargetGroup       `json:"target_group"`
	Type          TransactionType   `json:"transaction_type"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Authority     string            `json:"authority,omitempty"`
	ReferenceID   string            `json:"reference_id,omitempty"`
	Description   string            `json:"description,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
}

// TransactionAttributes are the caller-supplied fields of a new transaction
type TransactionAttributes struct {
	Amount        int64
	Status        TransactionStatus
	TargetGroup   TargetGroup
	PaymentMethod PaymentMethod
	Authority     string
	ReferenceID   string
	Description   string
	PaidAt        *time.Time
}

func (a TransactionAttributes) validate() error {
	if a.Amount <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Transaction amount must be positive")
	}
	if !a.Status.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid transaction status")
	}
	if a.PaymentMethod != "" && !a.PaymentMethod.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid payment method")
	}
	return nil
}

// NewUnitTransaction creates a payment against one of a unit's ledgers
func NewUnitTransaction(unit *Unit, attrs TransactionAttributes) (*Transaction, error) {
	if unit == nil {
		return nil, ErrNoTargetUnit
	}
	if err := attrs.validate(); err != nil {
		return nil, err
	}
	if !attrs.TargetGroup.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid target group")
	}
	unitID := unit.ID
	t := newTransaction(unit.BuildingID, attrs, TransactionTypeUnit)
	t.UnitID = &unitID
	t.TargetGroup = attrs.TargetGroup
	return t, nil
}

// NewBuildingIncome creates income booked directly against a building
func NewBuildingIncome(buildingID uuid.UUID, attrs TransactionAttributes) (*Transaction, error) {
	if buildingID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Building ID cannot be empty")
	}
	if err := attrs.validate(); err != nil {
		return nil, err
	}
	return newTransaction(buildingID, attrs, TransactionTypeBuildingIncome), nil
}

func newTransaction(buildingID uuid.UUID, attrs TransactionAttributes, txType TransactionType) *Transaction {
	t := &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		BuildingID:    buildingID,
		Amount:        attrs.Amount,
		Status:        attrs.Status,
		Type:          txType,
		PaymentMethod: attrs.PaymentMethod,
		Authority:     attrs.Authority,
		ReferenceID:   attrs.ReferenceID,
		Description:   attrs.Description,
		PaidAt:        attrs.PaidAt,
	}
	if t.Status == TransactionStatusPaid && t.PaidAt == nil {
		now := t.CreatedAt
		t.PaidAt = &now
	}
	return t
}

// IsPaid reports whether the transaction counts toward paid sums
func (t *Transaction) IsPaid() bool {
	return !t.IsDeleted() && t.Status == TransactionStatusPaid
}

// IsUnitTransaction reports whether the transaction belongs to a unit ledger
func (t *Transaction) IsUnitTransaction() bool {
	return t.Type == TransactionTypeUnit && t.UnitID != nil
}

// TransactionChange holds the mutable fields of a transaction; nil fields are left as is
type TransactionChange struct {
	Amount      *int64
	Status      *TransactionStatus
	Description *string
	ReferenceID *string
}

// Apply mutates the transaction and reports whether existing allocations must be released.
// Links are released when the transaction stops being paid or its amount
// drops below what is already allocated.
func (t *Transaction) Apply(change TransactionChange, allocated int64) (releaseLinks bool, err error) {
	if change.Amount != nil {
		if *change.Amount <= 0 {
			return false, shared.NewDomainError(shared.CodeInvalidInput, "Transaction amount must be positive")
		}
		t.Amount = *change.Amount
	}
	if change.Status != nil {
		if !change.Status.IsValid() {
			return false, shared.NewDomainError(shared.CodeInvalidInput, "Invalid transaction status")
		}
		if *change.Status == TransactionStatusPaid && t.Status != TransactionStatusPaid && t.PaidAt == nil {
			now := time.Now()
			t.PaidAt = &now
		}
		t.Status = *change.Status
	}
	if change.Description != nil {
		t.Description = *change.Description
	}
	if change.ReferenceID != nil {
		t.ReferenceID = *change.ReferenceID
	}
	if allocated == 0 {
		return false, nil
	}
	return t.Status != TransactionStatusPaid || t.Amount < allocated, nil
}
