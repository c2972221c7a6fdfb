package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/cardroom/holdemd/internal/engine"
)

// Memory is the in-process store used by tests and single-node runs
// without durability requirements. The mutex only guards map access;
// the CAS check is what serializes writers.
type Memory struct {
	mu    sync.Mutex
	hands map[string]*engine.Hand
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{hands: make(map[string]*engine.Hand)}
}

func (m *Memory) Create(_ context.Context, h *engine.Hand) error {
	clone, err := cloneHand(h)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := handKey(h.TableID, h.ID)
	if _, exists := m.hands[key]; exists {
		return fmt.Errorf("hand %s already exists", h.ID)
	}
	m.hands[key] = clone
	return nil
}

func (m *Memory) Get(_ context.Context, tableID, handID string) (*engine.Hand, error) {
	m.mu.Lock()
	h, ok := m.hands[handKey(tableID, handID)]
	m.mu.Unlock()

	if !ok {
		return nil, engine.ErrHandNotFound
	}
	return cloneHand(h)
}

func (m *Memory) Commit(_ context.Context, h *engine.Hand, expectedVersion int64) error {
	clone, err := cloneHand(h)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := handKey(h.TableID, h.ID)
	stored, ok := m.hands[key]
	if !ok {
		return engine.ErrHandNotFound
	}
	if stored.Version != expectedVersion {
		return engine.ErrSuperseded
	}

	clone.Version = expectedVersion + 1
	m.hands[key] = clone
	h.Version = clone.Version
	return nil
}

func (m *Memory) Close() error {
	return nil
}
