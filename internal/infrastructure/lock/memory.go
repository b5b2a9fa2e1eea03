package lock

import (
	"context"
	"fmt"
	"sync"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MemoryLocker serializes buildings within one process using a
// one-slot channel per building
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

// slot is dropped from the map once no holder or waiter references it
type slot struct {
	id   uuid.UUID
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a new MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[uuid.UUID]*slot)}
}

func (l *MemoryLocker) ref(id uuid.UUID) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		s = &slot{id: id, ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) unref(s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.refs--; s.refs == 0 {
		delete(l.slots, s.id)
	}
}

// Acquire blocks until every building is held or ctx is done
func (l *MemoryLocker) Acquire(ctx context.Context, buildingIDs ...uuid.UUID) (func(), error) {
	ids := sortedUnique(buildingIDs)
	held := make([]*slot, 0, len(ids))
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			l.unref(held[i])
		}
	}

	for _, id := range ids {
		s := l.ref(id)
		select {
		case s.ch <- struct{}{}:
			held = append(held, s)
		case <-ctx.Done():
			l.unref(s)
			releaseHeld()
			return nil, fmt.Errorf("%w: building %s: %v", shared.ErrLockNotObtained, id, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

// Len reports how many buildings are currently held or awaited
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// Ensure MemoryLocker implements BuildingLocker
var _ appbilling.BuildingLocker = (*MemoryLocker)(nil)
