package billing

import (
	"context"

	"github.com/google/uuid"
)

// BuildingLocker serializes balance writes per building.
// Every recompute chain ends by rewriting the building aggregate, so the
// building is the smallest key that keeps two chains from interleaving.
type BuildingLocker interface {
	// Acquire blocks until all given buildings are held or ctx is done.
	// Implementations must acquire keys in a stable order to avoid deadlock.
	// The returned release func is safe to call once.
	Acquire(ctx context.Context, buildingIDs ...uuid.UUID) (release func(), err error)
}
