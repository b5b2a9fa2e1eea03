package billing

import "github.com/buildingledger/backend/internal/domain/shared"

// Error codes raised by the reconciliation engine
const (
	CodeInvalidDistribution = "INVALID_DISTRIBUTION"
	CodeNoTargetUnit        = "NO_TARGET_UNIT"
)

var (
	// ErrInvalidDistribution matches every calculator rejection via errors.Is
	ErrInvalidDistribution = shared.NewDomainError(CodeInvalidDistribution, "Invalid distribution")
	// ErrNoTargetUnit is returned when a balance update cannot resolve a unit
	ErrNoTargetUnit = shared.NewDomainError(CodeNoTargetUnit, "No valid unit found for balance update")
)

// NewInvalidDistributionError creates an INVALID_DISTRIBUTION error with a specific message
func NewInvalidDistributionError(message string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidDistribution, message)
}
