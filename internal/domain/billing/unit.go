package billing

import (
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitMember is a role-tagged membership of a user in a unit
type UnitMember struct {
	UnitID uuid.UUID   `json:"unit_id"`
	UserID uuid.UUID   `json:"user_id"`
	Role   TargetGroup `json:"role"`
}

// Ledger is one side (resident or owner) of a unit's balance
type Ledger struct {
	BaseBalance int64 `json:"base_balance"`
	PaidAmount  int64 `json:"paid_amount"`
	Debt        int64 `json:"debt"`
}

// CurrentBalance returns base + paid - debt
func (l Ledger) CurrentBalance() int64 {
	return l.BaseBalance + l.PaidAmount - l.Debt
}

// Unit belongs to a building and keeps two independent ledgers.
// Base balances are manual adjustments; paid amounts and debts are caches.
type Unit struct {
	shared.BaseEntity
	BuildingID        uuid.UUID       `json:"building_id"`
	UnitNumber        string          `json:"unit_number"`
	Type              UnitType        `json:"type"`
	Area              decimal.Decimal `json:"area"`
	Floor             int             `json:"floor"`
	NumberOfRooms     int             `json:"number_of_rooms"`
	NumberOfResidents int             `json:"number_of_residents"`
	ParkingSpaces     int             `json:"parking_spaces"`
	Resident          Ledger          `json:"resident"`
	Owner             Ledger          `json:"owner"`
	TotalDebt         int64           `json:"total_debt"`
	Members           []UnitMember    `json:"members,omitempty"`
}

// NewUnit creates a new residential unit in the given building
func NewUnit(buildingID uuid.UUID, unitNumber string) (*Unit, error) {
	if buildingID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Building ID cannot be empty")
	}
	if unitNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit number cannot be empty")
	}
	return &Unit{
		BaseEntity: shared.NewBaseEntity(),
		BuildingID: buildingID,
		UnitNumber: unitNumber,
		Type:       UnitTypeResidential,
		Area:       decimal.Zero,
	}, nil
}

// Ledger returns the ledger for the given group
func (u *Unit) Ledger(group TargetGroup) Ledger {
	if group == TargetGroupOwner {
		return u.Owner
	}
	return u.Resident
}

// SetLedgerTotals stores recomputed paid and debt for one group and keeps TotalDebt in step
func (u *Unit) SetLedgerTotals(group TargetGroup, paidAmount, debt int64) {
	if group == TargetGroupOwner {
		u.Owner.PaidAmount = paidAmount
		u.Owner.Debt = debt
	} else {
		u.Resident.PaidAmount = paidAmount
		u.Resident.Debt = debt
	}
	u.TotalDebt = u.Resident.Debt + u.Owner.Debt
}

// CurrentBalance sums both ledgers
func (u *Unit) CurrentBalance() int64 {
	return u.Resident.CurrentBalance() + u.Owner.CurrentBalance()
}

// MembersWithRole returns the user IDs holding the given role
func (u *Unit) MembersWithRole(role TargetGroup) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(u.Members))
	for _, m := range u.Members {
		if m.Role == role {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// Weight returns the unit's weight under a computed distribution method
func (u *Unit) Weight(method DistributionMethod) decimal.Decimal {
	switch method {
	case DistributionMethodPerPerson:
		return decimal.NewFromInt(int64(u.NumberOfResidents))
	case DistributionMethodArea:
		return u.Area
	case DistributionMethodParking:
		return decimal.NewFromInt(int64(u.ParkingSpaces))
	default:
		return decimal.NewFromInt(1)
	}
}

// UnitChange holds the editable attributes of a unit; nil fields are left as is
type UnitChange struct {
	UnitNumber          *string
	Type                *UnitType
	Area                *decimal.Decimal
	Floor               *int
	NumberOfRooms       *int
	NumberOfResidents   *int
	ParkingSpaces       *int
	ResidentBaseBalance *int64
	OwnerBaseBalance    *int64
}

// Apply validates the change as a whole and then mutates the unit.
// Weights changed here only affect distributions calculated afterwards.
func (u *Unit) Apply(change UnitChange) error {
	if change.UnitNumber != nil && *change.UnitNumber == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unit number cannot be empty")
	}
	if change.Type != nil && !change.Type.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid unit type")
	}
	if change.Area != nil && change.Area.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Area cannot be negative")
	}
	for _, n := range []*int{change.NumberOfRooms, change.NumberOfResidents, change.ParkingSpaces} {
		if n != nil && *n < 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Counts cannot be negative")
		}
	}

	if change.UnitNumber != nil {
		u.UnitNumber = *change.UnitNumber
	}
	if change.Type != nil {
		u.Type = *change.Type
	}
	if change.Area != nil {
		u.Area = change.Area.Round(2)
	}
	if change.Floor != nil {
		u.Floor = *change.Floor
	}
	if change.NumberOfRooms != nil {
		u.NumberOfRooms = *change.NumberOfRooms
	}
	if change.NumberOfResidents != nil {
		u.NumberOfResidents = *change.NumberOfResidents
	}
	if change.ParkingSpaces != nil {
		u.ParkingSpaces = *change.ParkingSpaces
	}
	if change.ResidentBaseBalance != nil {
		u.Resident.BaseBalance = *change.ResidentBaseBalance
	}
	if change.OwnerBaseBalance != nil {
		u.Owner.BaseBalance = *change.OwnerBaseBalance
	}
	return nil
}

// AddMember assigns a user to the unit under a role
func (u *Unit) AddMember(userID uuid.UUID, role TargetGroup) (UnitMember, error) {
	if userID == uuid.Nil {
		return UnitMember{}, shared.NewDomainError(shared.CodeInvalidInput, "User ID cannot be empty")
	}
	if !role.IsValid() {
		return UnitMember{}, shared.NewDomainError(shared.CodeInvalidInput, "Invalid member role")
	}
	for _, m := range u.Members {
		if m.UserID == userID && m.Role == role {
			return UnitMember{}, shared.NewDomainError(shared.CodeAlreadyExists, "User already holds this role in the unit")
		}
	}
	member := UnitMember{UnitID: u.ID, UserID: userID, Role: role}
	u.Members = append(u.Members, member)
	return member, nil
}

// RemoveMember drops a user's role from the unit
func (u *Unit) RemoveMember(userID uuid.UUID, role TargetGroup) error {
	if !role.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid member role")
	}
	for i, m := range u.Members {
		if m.UserID == userID && m.Role == role {
			u.Members = append(u.Members[:i], u.Members[i+1:]...)
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, "Unit member not found")
}
