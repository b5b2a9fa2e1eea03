package billing

import (
	"time"

	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Invoice is a charge issued once and split across units
type Invoice struct {
	shared.BaseEntity
	BuildingID               uuid.UUID     `json:"building_id"`
	CategoryID               *uuid.UUID    `json:"invoice_category_id,omitempty"`
	Title                    string        `json:"title"`
	Description              string        `json:"description"`
	Amount                   int64         `json:"amount"`
	PaidAmount               int64         `json:"paid_amount"`
	Status                   InvoiceStatus `json:"status"`
	TargetGroup              TargetGroup   `json:"target_group"`
	Type                     InvoiceType   `json:"type"`
	DueDate                  *time.Time    `json:"due_date,omitempty"`
	IsCoveredByMonthlyCharge bool          `json:"is_covered_by_monthly_charge"`
}

// InvoiceAttributes are the caller-supplied fields of a new invoice
type InvoiceAttributes struct {
	BuildingID               uuid.UUID
	CategoryID               *uuid.UUID
	Title                    string
	Description              string
	Amount                   int64
	TargetGroup              TargetGroup
	Type                     InvoiceType
	DueDate                  *time.Time
	IsCoveredByMonthlyCharge bool
}

// NewInvoice creates an unpaid invoice
func NewInvoice(attrs InvoiceAttributes) (*Invoice, error) {
	if attrs.BuildingID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Building ID cannot be empty")
	}
	if attrs.Title == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invoice title cannot be empty")
	}
	if attrs.Amount < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invoice amount cannot be negative")
	}
	if !attrs.TargetGroup.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid target group")
	}
	if attrs.Type == "" {
		attrs.Type = InvoiceTypeMonthlyCharge
	}
	if !attrs.Type.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid invoice type")
	}
	return &Invoice{
		BaseEntity:               shared.NewBaseEntity(),
		BuildingID:               attrs.BuildingID,
		CategoryID:               attrs.CategoryID,
		Title:                    attrs.Title,
		Description:              attrs.Description,
		Amount:                   attrs.Amount,
		Status:                   InvoiceStatusUnpaid,
		TargetGroup:              attrs.TargetGroup,
		Type:                     attrs.Type,
		DueDate:                  attrs.DueDate,
		IsCoveredByMonthlyCharge: attrs.IsCoveredByMonthlyCharge,
	}, nil
}

// ApplyPaidAmount stores the summed paid amount and settles the status
func (i *Invoice) ApplyPaidAmount(paidAmount int64) {
	i.PaidAmount = paidAmount
	i.Status = settleStatus(i.Status, paidAmount, i.Amount)
}

// Remaining returns amount - paid_amount
func (i *Invoice) Remaining() int64 {
	return i.Amount - i.PaidAmount
}
