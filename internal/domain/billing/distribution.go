package billing

import (
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceDistribution is one unit's share of an invoice.
// TargetGroup is copied from the invoice when the row is created so that
// allocation and ledger sums never need to join back to the invoice.
type InvoiceDistribution struct {
	shared.BaseEntity
	shared.SoftDeletable
	InvoiceID          uuid.UUID          `json:"invoice_id"`
	UnitID             uuid.UUID          `json:"unit_id"`
	TargetGroup        TargetGroup        `json:"target_group"`
	DistributionMethod DistributionMethod `json:"distribution_method"`
	Amount             int64              `json:"amount"`
	PaidAmount         int64              `json:"paid_amount"`
	Status             InvoiceStatus      `json:"status"`
	Description        string             `json:"description"`
}

// NewInvoiceDistribution creates an unpaid distribution row for a calculated share
func NewInvoiceDistribution(invoice *Invoice, method DistributionMethod, share DistributionShare) *InvoiceDistribution {
	return &InvoiceDistribution{
		BaseEntity:         shared.NewBaseEntity(),
		InvoiceID:          invoice.ID,
		UnitID:             share.UnitID,
		TargetGroup:        invoice.TargetGroup,
		DistributionMethod: method,
		Amount:             share.Amount,
		Status:             InvoiceStatusUnpaid,
		Description:        share.Description,
	}
}

// CurrentBalance returns amount - paid_amount
func (d *InvoiceDistribution) CurrentBalance() int64 {
	return d.Amount - d.PaidAmount
}

// IsOutstanding reports whether the allocation engine may still route funds here
func (d *InvoiceDistribution) IsOutstanding() bool {
	return !d.IsDeleted() && d.Status == InvoiceStatusUnpaid
}

// ApplyPaidAmount stores the summed link amount and settles the status
func (d *InvoiceDistribution) ApplyPaidAmount(paidAmount int64) {
	d.PaidAmount = paidAmount
	d.Status = settleStatus(d.Status, paidAmount, d.Amount)
}

// Reset clears the paid amount and forces the status back to unpaid
func (d *InvoiceDistribution) Reset() {
	d.PaidAmount = 0
	d.Status = InvoiceStatusUnpaid
}

// Reshare replaces amount and description after a sibling redistribution
func (d *InvoiceDistribution) Reshare(share DistributionShare) {
	d.Amount = share.Amount
	d.Description = share.Description
}
