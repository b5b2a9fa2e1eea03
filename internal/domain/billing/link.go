package billing

import (
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionDistributionLink records how much of a transaction covers a distribution.
// Only paid transactions are allocated, so PaidAmount equals Amount on creation.
type TransactionDistributionLink struct {
	shared.BaseEntity
	shared.SoftDeletable
	TransactionID  uuid.UUID `json:"transaction_id"`
	DistributionID uuid.UUID `json:"invoice_distribution_id"`
	Amount         int64     `json:"amount"`
	PaidAmount     int64     `json:"paid_amount"`
}

// NewTransactionDistributionLink creates a link for an allocated amount
func NewTransactionDistributionLink(transactionID, distributionID uuid.UUID, amount int64) *TransactionDistributionLink {
	return &TransactionDistributionLink{
		BaseEntity:     shared.NewBaseEntity(),
		TransactionID:  transactionID,
		DistributionID: distributionID,
		Amount:         amount,
		PaidAmount:     amount,
	}
}
