package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps every ledger record has
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh ID and creation time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: NewID(), CreatedAt: now, UpdatedAt: now}
}

// NewID returns a UUIDv7. Within one process IDs sort in creation order, which
// FIFO queries rely on to break created_at ties.
func NewID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}

// SoftDeletable marks records that are hidden rather than removed.
// Deleted rows stay out of balances until restored.
type SoftDeletable struct {
	DeletedAt *time.Time
}

func (s *SoftDeletable) IsDeleted() bool { return s.DeletedAt != nil }

func (s *SoftDeletable) MarkDeleted(at time.Time) { s.DeletedAt = &at }

func (s *SoftDeletable) Restore() { s.DeletedAt = nil }
