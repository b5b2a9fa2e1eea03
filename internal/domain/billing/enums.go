package billing

// TargetGroup selects which of a unit's two independent ledgers a charge or payment belongs to
type TargetGroup string

const (
	TargetGroupResident TargetGroup = "resident"
	TargetGroupOwner    TargetGroup = "owner"
)

// IsValid checks if the target group is valid
func (g TargetGroup) IsValid() bool {
	switch g {
	case TargetGroupResident, TargetGroupOwner:
		return true
	}
	return false
}

// String returns the string representation
func (g TargetGroup) String() string {
	return string(g)
}

// AllTargetGroups returns both ledgers in a fixed order
func AllTargetGroups() []TargetGroup {
	return []TargetGroup{TargetGroupResident, TargetGroupOwner}
}

// InvoiceStatus is shared by invoices and invoice distributions
type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "unpaid"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPaid, InvoiceStatusPending, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsManualOverride reports whether the status is only ever set by an operator.
// Balance recomputation leaves these statuses untouched.
func (s InvoiceStatus) IsManualOverride() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusCancelled
}

// settleStatus derives paid/unpaid from the amounts unless the current status is a manual override
func settleStatus(current InvoiceStatus, paidAmount, amount int64) InvoiceStatus {
	if current.IsManualOverride() {
		return current
	}
	if paidAmount >= amount {
		return InvoiceStatusPaid
	}
	return InvoiceStatusUnpaid
}

// InvoiceType classifies an invoice
type InvoiceType string

const (
	InvoiceTypeMonthlyCharge     InvoiceType = "monthly_charge"
	InvoiceTypePlannedExpense    InvoiceType = "planned_expense"
	InvoiceTypeUnexpectedExpense InvoiceType = "unexpected_expense"
)

// IsValid checks if the invoice type is valid
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeMonthlyCharge, InvoiceTypePlannedExpense, InvoiceTypeUnexpectedExpense:
		return true
	}
	return false
}

// DistributionMethod selects how an invoice amount is split across units
type DistributionMethod string

const (
	DistributionMethodEqual     DistributionMethod = "equal"
	DistributionMethodPerPerson DistributionMethod = "per_person"
	DistributionMethodArea      DistributionMethod = "area"
	DistributionMethodParking   DistributionMethod = "parking"
	DistributionMethodCustom    DistributionMethod = "custom"
)

// IsValid checks if the method is valid
func (m DistributionMethod) IsValid() bool {
	switch m {
	case DistributionMethodEqual, DistributionMethodPerPerson, DistributionMethodArea,
		DistributionMethodParking, DistributionMethodCustom:
		return true
	}
	return false
}

// IsComputed reports whether the calculator derives amounts for this method
func (m DistributionMethod) IsComputed() bool {
	return m.IsValid() && m != DistributionMethodCustom
}

// TransactionStatus tracks a payment through the gateway
type TransactionStatus string

const (
	TransactionStatusTransferredToPay    TransactionStatus = "transferred_to_pay"
	TransactionStatusPendingVerification TransactionStatus = "pending_verification"
	TransactionStatusExpired             TransactionStatus = "expired"
	TransactionStatusUnsuccessful        TransactionStatus = "unsuccessful"
	TransactionStatusPaid                TransactionStatus = "paid"
	TransactionStatusUnpaid              TransactionStatus = "unpaid"
)

// IsValid checks if the transaction status is valid
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusTransferredToPay, TransactionStatusPendingVerification, TransactionStatusExpired,
		TransactionStatusUnsuccessful, TransactionStatusPaid, TransactionStatusUnpaid:
		return true
	}
	return false
}

// TransactionType distinguishes unit payments from building-level income
type TransactionType string

const (
	TransactionTypeUnit           TransactionType = "unit_transaction"
	TransactionTypeBuildingIncome TransactionType = "building_income"
)

// PaymentMethod records how money arrived
type PaymentMethod string

const (
	PaymentMethodSamanGateway    PaymentMethod = "bank_gateway_saman"
	PaymentMethodZarinpalGateway PaymentMethod = "bank_gateway_zarinpal"
	PaymentMethodMobileBanking   PaymentMethod = "mobile_banking"
	PaymentMethodATM             PaymentMethod = "atm"
	PaymentMethodCash            PaymentMethod = "cash"
	PaymentMethodCheck           PaymentMethod = "check"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodSamanGateway, PaymentMethodZarinpalGateway, PaymentMethodMobileBanking,
		PaymentMethodATM, PaymentMethodCash, PaymentMethodCheck:
		return true
	}
	return false
}

// UnitType classifies a unit
type UnitType string

const (
	UnitTypeResidential UnitType = "residential"
	UnitTypeCommercial  UnitType = "commercial"
)

func (t UnitType) IsValid() bool {
	return t == UnitTypeResidential || t == UnitTypeCommercial
}
